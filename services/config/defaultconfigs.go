package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: board name (selected at build time by the firmware entry point)
// Val: raw JSON decoded into types.BoardConfig; omitted fields take defaults
// -----------------------------------------------------------------------------

// Raspberry Pi Pico carrier. GP26..GP28 are the three analogue rails; the die
// sensor is read through the on-chip temperature channel.
const cfgPico = `{
  "name": "pico",
  "pins": {
    "reg12_en": 2,
    "reg5_en": 3,
    "reg12_good": 6,
    "led_reg12": 7,
    "led_reg5": 8,
    "led_regpi": 9,
    "chipset_int": 10,
    "heartbeat": 25
  },
  "charger": {
    "bus": {"id": 0, "sda": 4, "scl": 5, "freq_hz": 100000, "timeout_ms": 25},
    "addr": 107,
    "charge_current_mA": 3000,
    "watchdog": 0,
    "discharge_ocp": true,
    "ts_ignore": true,
    "ilim_hiz": false
  },
  "fuel_gauge": {
    "enabled": false,
    "addr": 54,
    "rsense_uohm": 10000,
    "design_cap_mAh": 3000,
    "empty_mV": 3300,
    "recovery_mV": 3880,
    "thermistor": false
  },
  "host_link": {
    "bus": {"id": 1, "sda": 14, "scl": 15, "freq_hz": 100000},
    "addr": 66
  },
  "adc": {
    "ref_uV": 3300000,
    "resolution_bits": 12,
    "divider": 2,
    "channels": [26, 27, 28],
    "temp_cal1_code": 870,
    "temp_cal2_code": 656,
    "temp_cal1_degC": 30,
    "temp_cal2_degC": 130
  },
  "console": {"uart": 0, "tx": 0, "rx": 1, "baud": 115200}
}`

// Host simulation. Timing is compressed so a full bring-up runs in well
// under a second.
const cfgSim = `{
  "name": "sim",
  "pins": {
    "reg12_en": 1, "reg5_en": 2, "reg12_good": 3,
    "led_reg12": 4, "led_reg5": 5, "led_regpi": 6,
    "chipset_int": 7, "heartbeat": 8
  },
  "charger": {"discharge_ocp": true, "ts_ignore": true},
  "fuel_gauge": {"enabled": true, "design_cap_mAh": 3000, "empty_mV": 3300, "recovery_mV": 3880},
  "adc": {"temp_cal1_code": 1034, "temp_cal2_code": 1380},
  "timing": {"init_retry_ms": 300, "standby_wake_ms": 500, "heartbeat_period_ms": 500}
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"sim":  []byte(cfgSim),
}
