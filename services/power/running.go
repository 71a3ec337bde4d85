package power

import (
	"chipset-go/protocol"
)

func (s *Sequencer) enterRunning() {
	s.startSample()
	if s.env.Host != nil {
		s.publish()
		if err := s.env.Host.Listen(); err != nil {
			println("[hostlink] listen:", err.Error())
		}
	}
}

func (s *Sequencer) tickRunning() {
	host := s.env.Host
	if host != nil {
		if host.TakeServed() {
			s.packet.ClearVolatile()
		}
		s.dispatch()
		if s.state != Running {
			return
		}
	}

	if s.takeSample() {
		s.startSample()
	}

	s.pollBatteryManagers()
	s.packet.TimestampMillis = s.timestamp()

	if host != nil {
		s.publish()
	}
	s.sleepInterruptible(s.t.runPeriod)
}

// pollBatteryManagers refreshes the charger status flags. A failed read
// leaves BatteryManagerValid unset for this cycle.
func (s *Sequencer) pollBatteryManagers() {
	c := s.env.Charger
	if err := c.ReadAndWait(s.sleep); err != nil {
		println("[power] charger read:", err.Error())
		return
	}
	f := protocol.BatteryManagerValid
	if c.VbusPresent() {
		f = f.Union(protocol.VbusConnected)
	}
	if c.Charging() {
		f = f.Union(protocol.ChargingInProgress)
	}
	s.packet.Status = s.packet.Status.Union(f)

	if f != s.lastFlags {
		println("[power] charger", f.String(), c.ChargeStatus().String())
		s.lastFlags = f
	}

	if g := s.env.Gauge; g != nil {
		if err := g.ReadAndWait(s.sleep); err != nil {
			println("[power] gauge read:", err.Error())
		}
	}
}

// timestamp is the RTC time in ms, or 0 while the clock is unset.
func (s *Sequencer) timestamp() uint64 {
	rtc := s.env.RTC
	if rtc == nil || !rtc.Valid() {
		return 0
	}
	c, err := rtc.Calendar()
	if err != nil {
		return 0
	}
	return uint64(c.UnixMilli())
}

func (s *Sequencer) publish() {
	served := s.packet
	served.ClearVolatile()
	if err := s.packet.Serialize(s.wire[:], s.env.CRC); err != nil {
		println("[hostlink] serialize:", err.Error())
		return
	}
	if err := served.Serialize(s.served[:], s.env.CRC); err != nil {
		println("[hostlink] serialize:", err.Error())
		return
	}
	s.env.Host.Publish(s.wire[:], s.served[:])
	for _, fn := range s.packetObs {
		fn(s.packet)
	}
}

// ---------------- Standby ----------------

func (s *Sequencer) enterStandby() {
	if s.env.Host != nil {
		_ = s.env.Host.Stop()
	}
	s.env.ADC.Stop()
	s.armed = false
	s.sampleReady.Store(false)

	// The host needs the rails while it halts.
	s.sleep(s.shutdownDelay)

	if err := s.env.Heartbeat.Start(s.t.heartbeat); err != nil {
		println("[power] heartbeat:", err.Error())
	}
	s.env.Out.Reg5En.Set(false)
	s.env.Out.Reg12En.Set(false)

	s.env.Sleeper.Standby(s.t.standbyWake)

	s.env.Heartbeat.Stop()
	s.packet = protocol.PacketOut{}
	s.shutdownDelay = 0
}
