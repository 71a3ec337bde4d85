// Package bq25792 is a typed façade over the TI BQ25792 1-4 cell buck-boost
// charger, built on the cached register client in drivers/regdev.
//
// Setters only edit the cache; call WriteDirty then WaitForTransaction to
// apply them. Status getters decode the values fetched by the last Read.
package bq25792

import (
	"chipset-go/drivers/regdev"
	"chipset-go/x/mathx"
)

type Config struct {
	Address uint16
}

type Device struct {
	*regdev.Client
}

// Layout returns the register block for a charger at addr.
func Layout(addr uint16) regdev.Layout {
	if addr == 0 {
		addr = AddressDefault
	}
	return regdev.Layout{
		Name:      "bq25792",
		Address:   addr,
		First:     regFirst,
		Count:     regCount,
		Width:     1,
		BigEndian: true,
	}
}

func New(bus regdev.Transport, cfg Config, opts ...regdev.Option) *Device {
	return &Device{Client: regdev.New(bus, Layout(cfg.Address), opts...)}
}

// ---------------- Limits ----------------

// SetChargeCurrentLimit sets ICHG, clamped to 50..5000 mA in 10 mA steps.
func (d *Device) SetChargeCurrentLimit(mA uint32) {
	code := mathx.Quantise(int64(mA), stepMA, 0, ichgMinMA/stepMA, ichgMaxMA/stepMA)
	d.SetValue16(regChargeILimit, code&ichgMask)
}

// ChargeCurrentLimit returns the cached ICHG in mA.
func (d *Device) ChargeCurrentLimit() uint32 {
	return uint32(d.Value16(regChargeILimit)&ichgMask) * stepMA
}

// SetInputCurrentLimit sets IINDPM, clamped to 100..3300 mA.
func (d *Device) SetInputCurrentLimit(mA uint32) {
	code := mathx.Quantise(int64(mA), stepMA, 0, iinMinMA/stepMA, iinMaxMA/stepMA)
	d.SetValue16(regInputILimit, code&iinMask)
}

func (d *Device) InputCurrentLimit() uint32 {
	return uint32(d.Value16(regInputILimit)&iinMask) * stepMA
}

// SetChargeVoltageLimit sets VREG, clamped to 3.0..18.8 V in 10 mV steps.
func (d *Device) SetChargeVoltageLimit(mV uint32) {
	code := mathx.Quantise(int64(mV), stepMV, 0, vregMinMV/stepMV, vregMaxMV/stepMV)
	d.SetValue16(regChargeVLimit, code&vregMask)
}

func (d *Device) ChargeVoltageLimit() uint32 {
	return uint32(d.Value16(regChargeVLimit)&vregMask) * stepMV
}

// SetTerminationCurrent sets ITERM, clamped to 40..1000 mA in 40 mA steps.
func (d *Device) SetTerminationCurrent(mA uint32) {
	code := mathx.Quantise(int64(mA), itermStep, 0, itermMinMA/itermStep, itermMaxMA/itermStep)
	d.SetField(regTermination, itermMask, code)
}

func (d *Device) SetTerminationEnabled(on bool) { d.SetBit(regChargerCtrl0, ctrl0EnTerm, on) }
func (d *Device) SetChargeEnabled(on bool)      { d.SetBit(regChargerCtrl0, ctrl0EnChg, on) }
func (d *Device) SetHiZ(on bool)                { d.SetBit(regChargerCtrl0, ctrl0EnHiZ, on) }

// ---------------- Protection / housekeeping ----------------

func (d *Device) SetWatchdog(w Watchdog) {
	d.SetField(regChargerCtrl1, ctrl1Watchdog, uint16(w))
}

func (d *Device) Watchdog() Watchdog {
	return Watchdog(d.Field(regChargerCtrl1, ctrl1Watchdog))
}

// ResetWatchdog requests a WD_RST on the next write; the chip clears the bit.
func (d *Device) ResetWatchdog() { d.SetBit(regChargerCtrl1, ctrl1WdRst, true) }

// SetTsIgnore makes the charger ignore the battery thermistor input.
func (d *Device) SetTsIgnore(on bool) { d.SetBit(regNTCCtrl1, ntcTsIgnore, on) }

// SetDischargeOcpEnabled enables battery discharge over-current protection.
func (d *Device) SetDischargeOcpEnabled(on bool) { d.SetBit(regChargerCtrl5, ctrl5EnBatOC, on) }

// SetIlimHizCurrentLimitEnabled enables the external ILIM_HIZ pin limit.
func (d *Device) SetIlimHizCurrentLimitEnabled(on bool) {
	d.SetBit(regChargerCtrl5, ctrl5EnExtIlim, on)
}

func (d *Device) SetAdcEnabled(on bool) { d.SetBit(regADCCtrl, adcEn, on) }

// ---------------- Status ----------------

func (d *Device) ChargerStatus0() Status0 { return Status0(d.Value(regStatus0)) }

func (d *Device) ChargeStatus() ChargeStatus {
	return ChargeStatus(d.Field(regStatus1, stat1ChgStat))
}

func (d *Device) VbusStatus() VbusStatus {
	return VbusStatus(d.Field(regStatus1, stat1VbusStat))
}

func (d *Device) VbusPresent() bool { return d.ChargerStatus0().Has(StatusVbusPresent) }

// Charging reports an active charge phase: not idle and not terminated.
func (d *Device) Charging() bool { return d.ChargeStatus().Charging() }

// PartNumber returns the PN field of REG48 (BQ25792 reads 1).
func (d *Device) PartNumber() uint8 { return uint8(d.Field(regPartInfo, partNumMask)) }

func (d *Device) Revision() uint8 { return uint8(d.Field(regPartInfo, partRevMask)) }
