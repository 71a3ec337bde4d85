package power

import (
	"chipset-go/drivers/bq25792"
)

// initBatteryManagers forces the rails off and applies the charger (and,
// when fitted, gauge) configuration. Any bus failure aborts the attempt.
func (s *Sequencer) initBatteryManagers() error {
	s.env.Out.Reg12En.Set(false)
	s.env.Out.Reg5En.Set(false)

	c := s.env.Charger
	cc := s.cfg.Charger
	if err := c.ReadAndWait(s.sleep); err != nil {
		return err
	}
	c.SetChargeCurrentLimit(cc.ChargeCurrentMilliA)
	c.SetTsIgnore(cc.TsIgnore)
	c.SetWatchdog(bq25792.Watchdog(cc.Watchdog))
	c.SetDischargeOcpEnabled(cc.DischargeOCP)
	c.SetIlimHizCurrentLimitEnabled(cc.IlimHiz)
	if err := c.WriteDirty(); err != nil {
		return err
	}
	if err := c.WaitForTransaction(s.sleep); err != nil {
		return err
	}

	g := s.env.Gauge
	if g == nil {
		return nil
	}
	gc := s.cfg.FuelGauge
	if err := g.ReadAndWait(s.sleep); err != nil {
		return err
	}
	if gc.DesignCapMilliAh != 0 {
		g.SetDesignCapacity(gc.DesignCapMilliAh)
	}
	if gc.EmptyMilliV != 0 {
		g.SetEmptyVoltage(gc.EmptyMilliV, gc.RecoveryMilliV)
	}
	g.SetThermistorEnabled(gc.Thermistor)
	if g.PowerOnReset() {
		g.ClearPowerOnReset()
	}
	if err := g.WriteDirty(); err != nil {
		return err
	}
	return g.WaitForTransaction(s.sleep)
}
