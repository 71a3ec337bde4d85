// Package config resolves the build-time board configuration embedded in the
// firmware image.
package config

import (
	"encoding/json"
	"errors"

	"chipset-go/errcode"
	"chipset-go/types"
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// Boards lists the embedded board names.
func Boards() []string {
	out := make([]string, 0, len(embeddedConfigs))
	for k := range embeddedConfigs {
		out = append(out, k)
	}
	return out
}

// Load decodes the embedded config for board, fills defaults and validates it.
func Load(board string) (types.BoardConfig, error) {
	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return types.BoardConfig{}, errors.New("no embedded config for board: " + board)
	}
	var cfg types.BoardConfig
	if err := DecodeJSON(raw, &cfg); err != nil {
		return types.BoardConfig{}, errcode.Wrap(errcode.InvalidParams, "config.load", err)
	}
	if cfg.Name == "" {
		cfg.Name = board
	}
	ApplyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return types.BoardConfig{}, err
	}
	return cfg, nil
}

// Default returns a validated configuration built from defaults alone, with
// pins numbered for the host simulation.
func Default() types.BoardConfig {
	cfg := types.BoardConfig{
		Name: "default",
		Pins: types.PinConfig{
			Reg12En: 1, Reg5En: 2, Reg12Good: 3,
			LedReg12: 4, LedReg5: 5, LedRegPi: 6,
			ChipsetInt: 7, Heartbeat: 8,
		},
		Charger: types.ChargerConfig{DischargeOCP: true, TsIgnore: true},
	}
	ApplyDefaults(&cfg)
	return cfg
}

// DecodeJSON decodes src ([]byte, string or any JSON-marshalable value) into dst.
func DecodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

// ApplyDefaults fills zero fields with the board's fixed constants.
func ApplyDefaults(c *types.BoardConfig) {
	def32 := func(v *uint32, d uint32) {
		if *v == 0 {
			*v = d
		}
	}
	def16 := func(v *uint16, d uint16) {
		if *v == 0 {
			*v = d
		}
	}

	t := &c.Timing
	def32(&t.RailPollMs, 1)
	def32(&t.ADCPollMs, 10)
	def32(&t.InitRetryMs, 3000)
	def32(&t.RunPeriodMs, 100)
	def32(&t.StandbyWakeMs, 5000)
	def32(&t.HeartbeatPeriodMs, 5000)

	def32(&c.Rails.Reg5MinMicroV, 4_900_000)
	def32(&c.Rails.RegPiMinMicroV, 3_200_000)

	def16(&c.Charger.Addr, 0x6B)
	def32(&c.Charger.ChargeCurrentMilliA, 3000)
	def32(&c.Charger.Bus.FreqHz, 100_000)
	def32(&c.Charger.Bus.TimeoutMs, 25)

	def16(&c.FuelGauge.Addr, 0x36)
	def32(&c.FuelGauge.RSense_uOhm, 10_000)

	def16(&c.HostLink.Addr, 0x42)
	def32(&c.HostLink.Bus.FreqHz, 100_000)

	def32(&c.ADC.RefMicroV, 3_300_000)
	def32(&c.ADC.Divider, 2)
	if c.ADC.ResolutionBits == 0 {
		c.ADC.ResolutionBits = 12
	}
	if c.ADC.TempCal1DegC == 0 && c.ADC.TempCal2DegC == 0 {
		c.ADC.TempCal1DegC, c.ADC.TempCal2DegC = 30, 130
	}

	def32(&c.Console.Baud, 115200)
}

// Validate rejects configurations the sequencer cannot run with.
func Validate(c types.BoardConfig) error {
	if c.Rails.Reg5MinMicroV == 0 || c.Rails.RegPiMinMicroV == 0 {
		return errcode.Wrap(errcode.InvalidParams, "config.validate", errors.New("rail thresholds must be > 0"))
	}
	if c.ADC.TempCal1Code != 0 && c.ADC.TempCal1Code == c.ADC.TempCal2Code {
		return errcode.Wrap(errcode.InvalidParams, "config.validate", errors.New("temperature calibration points coincide"))
	}
	p := c.Pins
	seen := map[int]string{}
	for _, e := range []struct {
		name string
		pin  int
	}{
		{"reg12_en", p.Reg12En}, {"reg5_en", p.Reg5En}, {"reg12_good", p.Reg12Good},
		{"led_reg12", p.LedReg12}, {"led_reg5", p.LedReg5}, {"led_regpi", p.LedRegPi},
		{"chipset_int", p.ChipsetInt}, {"heartbeat", p.Heartbeat},
	} {
		if e.pin < 0 {
			continue
		}
		if other, dup := seen[e.pin]; dup {
			return errcode.Wrap(errcode.InvalidParams, "config.validate", errors.New("pin shared by "+other+" and "+e.name))
		}
		seen[e.pin] = e.name
	}
	return nil
}
