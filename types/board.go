package types

// ------------------------
// Board configuration (embedded JSON, see services/config)
// ------------------------

type BoardConfig struct {
	Name      string          `json:"name"`
	Pins      PinConfig       `json:"pins"`
	Charger   ChargerConfig   `json:"charger"`
	FuelGauge FuelGaugeConfig `json:"fuel_gauge"`
	HostLink  HostLinkConfig  `json:"host_link"`
	ADC       ADCConfig       `json:"adc"`
	Rails     RailConfig      `json:"rails"`
	Timing    TimingConfig    `json:"timing"`
	Console   ConsoleConfig   `json:"console"`
}

// PinConfig holds MCU pin numbers. -1 means not fitted.
type PinConfig struct {
	Reg12En    int `json:"reg12_en"`
	Reg5En     int `json:"reg5_en"`
	Reg12Good  int `json:"reg12_good"`
	LedReg12   int `json:"led_reg12"`
	LedReg5    int `json:"led_reg5"`
	LedRegPi   int `json:"led_regpi"`
	ChipsetInt int `json:"chipset_int"` // host interrupt line, active low
	Heartbeat  int `json:"heartbeat"`   // liveness LED
}

// I2CBusConfig selects a controller and its pins.
type I2CBusConfig struct {
	ID        int    `json:"id"`
	SDA       int    `json:"sda"`
	SCL       int    `json:"scl"`
	FreqHz    uint32 `json:"freq_hz"`
	TimeoutMs uint32 `json:"timeout_ms"`
}

type ChargerConfig struct {
	Bus                 I2CBusConfig `json:"bus"`
	Addr                uint16       `json:"addr"`
	ChargeCurrentMilliA uint32       `json:"charge_current_mA"`
	Watchdog            uint8        `json:"watchdog"` // REG10 WATCHDOG code, 0 disables
	DischargeOCP        bool         `json:"discharge_ocp"`
	TsIgnore            bool         `json:"ts_ignore"`
	IlimHiz             bool         `json:"ilim_hiz"`
}

type FuelGaugeConfig struct {
	Enabled          bool   `json:"enabled"`
	Addr             uint16 `json:"addr"`
	RSense_uOhm      uint32 `json:"rsense_uohm"`
	DesignCapMilliAh uint32 `json:"design_cap_mAh"`
	EmptyMilliV      uint32 `json:"empty_mV"`
	RecoveryMilliV   uint32 `json:"recovery_mV"`
	Thermistor       bool   `json:"thermistor"`
}

// HostLinkConfig is the slave-mode bus the host computer polls.
type HostLinkConfig struct {
	Bus  I2CBusConfig `json:"bus"`
	Addr uint16       `json:"addr"`
}

type ADCConfig struct {
	RefMicroV      uint32 `json:"ref_uV"`
	ResolutionBits uint8  `json:"resolution_bits"`
	Divider        uint32 `json:"divider"` // rail divider ratio
	// Channel pins in buffer order: ballast, reg5, regpi. The die sensor is
	// always the last channel.
	Channels []int `json:"channels"`
	// Die temperature sensor calibration.
	TempCal1Code     uint16 `json:"temp_cal1_code"`
	TempCal2Code     uint16 `json:"temp_cal2_code"`
	TempCal1DegC     int32  `json:"temp_cal1_degC"`
	TempCal2DegC     int32  `json:"temp_cal2_degC"`
	FactoryRefMilliV uint32 `json:"factory_ref_mV"` // 0: codes already at RefMicroV
}

type RailConfig struct {
	Reg5MinMicroV  uint32 `json:"reg5_min_uV"`
	RegPiMinMicroV uint32 `json:"regpi_min_uV"`
}

type TimingConfig struct {
	RailPollMs        uint32 `json:"rail_poll_ms"`
	ADCPollMs         uint32 `json:"adc_poll_ms"`
	InitRetryMs       uint32 `json:"init_retry_ms"`
	RunPeriodMs       uint32 `json:"run_period_ms"`
	StandbyWakeMs     uint32 `json:"standby_wake_ms"`
	HeartbeatPeriodMs uint32 `json:"heartbeat_period_ms"`
}

type ConsoleConfig struct {
	UART int    `json:"uart"`
	TX   int    `json:"tx"`
	RX   int    `json:"rx"`
	Baud uint32 `json:"baud"`
}
