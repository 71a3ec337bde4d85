package power

import (
	"chipset-go/protocol"
	"chipset-go/x/timex"
)

// dispatch applies at most one pending host command. Malformed frames are
// dropped without a response or state change.
func (s *Sequencer) dispatch() {
	n, ok := s.env.Host.TakeCommand(s.cmd[:])
	if !ok {
		return
	}
	frame := s.cmd[:n]
	op, _ := protocol.PeekOpcode(frame)

	switch op {
	case protocol.OpSetTime:
		var c protocol.SetTime
		if err := c.Unmarshal(frame, s.env.CRC); err != nil {
			println("[hostlink] drop", op.String(), err.Error())
			return
		}
		cal := timex.FromUnixMilli(c.Timestamp.UnixMilli())
		if err := s.env.RTC.SetCalendar(cal); err != nil {
			println("[hostlink] set_time:", err.Error())
			return
		}
		println("[hostlink] set_time", c.Timestamp.UnixMilli())

	case protocol.OpShutdown:
		var c protocol.Shutdown
		if err := c.Unmarshal(frame, s.env.CRC); err != nil {
			println("[hostlink] drop", op.String(), err.Error())
			return
		}
		println("[hostlink] shutdown in", c.Delay.Milliseconds(), "ms")
		s.shutdownDelay = c.Delay
		s.transition(Standby)

	default:
		println("[hostlink] ignore opcode", uint8(op))
	}
}
