// Package max17261 is a typed façade over the Maxim MAX17261 ModelGauge m5
// fuel gauge, built on the cached register client in drivers/regdev.
package max17261

import (
	"chipset-go/drivers/regdev"
	"chipset-go/x/mathx"
)

type Config struct {
	Address     uint16
	RSense_uOhm uint32 // default 10 mΩ
}

type Device struct {
	*regdev.Client
	rsense_uOhm uint32
}

// Layout returns the register block for a gauge at addr.
func Layout(addr uint16) regdev.Layout {
	if addr == 0 {
		addr = AddressDefault
	}
	return regdev.Layout{
		Name:    "max17261",
		Address: addr,
		First:   regFirst,
		Count:   regCount,
		Width:   2,
	}
}

func New(bus regdev.Transport, cfg Config, opts ...regdev.Option) *Device {
	rs := cfg.RSense_uOhm
	if rs == 0 {
		rs = 10_000
	}
	return &Device{Client: regdev.New(bus, Layout(cfg.Address), opts...), rsense_uOhm: rs}
}

// capacity LSB in µAh for the configured sense resistor.
func (d *Device) capLSB_uAh() int64 {
	return int64(capLSBnVh) * 1000 / int64(d.rsense_uOhm)
}

// ---------------- Configuration ----------------

// SetDesignCapacity sets DesignCap in mAh.
func (d *Device) SetDesignCapacity(mAh uint32) {
	d.SetValue(regDesignCap, mathx.Quantise(int64(mAh)*1000, d.capLSB_uAh(), 0, 0, 0xFFFF))
}

func (d *Device) DesignCapacity() uint32 {
	return uint32(int64(d.Value(regDesignCap)) * d.capLSB_uAh() / 1000)
}

// SetEmptyVoltage sets the empty threshold (10 mV steps) and the recovery
// voltage (40 mV steps).
func (d *Device) SetEmptyVoltage(emptyMilliV, recoveryMilliV uint32) {
	ve := mathx.Quantise(int64(emptyMilliV), vEmptyStepVE, 0, 0, vEmptyVE>>7)
	vr := mathx.Quantise(int64(recoveryMilliV), vEmptyStepVR, 0, 0, vEmptyVR)
	d.SetValue(regVEmpty, ve<<7|vr)
}

// EmptyVoltage returns the cached (empty, recovery) thresholds in mV.
func (d *Device) EmptyVoltage() (emptyMilliV, recoveryMilliV uint32) {
	v := d.Value(regVEmpty)
	return uint32(v>>7) * vEmptyStepVE, uint32(v&vEmptyVR) * vEmptyStepVR
}

// SetThermistorEnabled selects the external thermistor (ETHRM and TSel) or
// the die sensor.
func (d *Device) SetThermistorEnabled(on bool) {
	d.SetBit(regConfig, cfgETHRM, on)
	d.SetBit(regConfig, cfgTSel, on)
}

// SetChargeTerminationCurrent sets IChgTerm in mA.
func (d *Device) SetChargeTerminationCurrent(mA uint32) {
	step := int64(currLSBpV) * 1000 / int64(d.rsense_uOhm) // nA per LSB
	d.SetValue(regIChgTerm, mathx.Quantise(int64(mA)*1_000_000, step, 0, 0, 0x7FFF))
}

// ---------------- Status ----------------

// StateOfCharge returns RepSOC in whole percent.
func (d *Device) StateOfCharge() uint8 { return uint8(d.Value(regRepSOC) >> 8) }

// StateOfChargeRaw returns RepSOC in 1/256 %.
func (d *Device) StateOfChargeRaw() uint16 { return d.Value(regRepSOC) }

func (d *Device) CellMilliVolts() uint32 {
	return uint32(uint64(d.Value(regVCell)) * vcellNumUV / vcellDenUV / 1000)
}

// RemainingCapacity returns RepCap in mAh.
func (d *Device) RemainingCapacity() uint32 {
	return uint32(int64(d.Value(regRepCap)) * d.capLSB_uAh() / 1000)
}

// CurrentMilliAmps returns the signed battery current; positive is charging.
func (d *Device) CurrentMilliAmps() int32 {
	raw := int64(int16(d.Value(regCurrent)))
	return int32(raw * currLSBpV / (int64(d.rsense_uOhm) * 1000))
}

func (d *Device) PowerOnReset() bool { return d.Value(regStatus)&statusPOR != 0 }

// ClearPowerOnReset clears Status.POR on the next write.
func (d *Device) ClearPowerOnReset() { d.SetBit(regStatus, statusPOR, false) }

func (d *Device) DeviceName() uint16 { return d.Value(regDevName) }
