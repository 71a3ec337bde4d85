package hal

import "time"

// TimerSleeper sleeps on real timers.
type TimerSleeper struct {
	t *time.Timer
}

func (s *TimerSleeper) Sleep(d time.Duration, wake <-chan struct{}) {
	if s.t == nil {
		s.t = time.NewTimer(d)
	} else {
		resetTimer(s.t, d)
	}
	select {
	case <-s.t.C:
	case <-wake:
	}
}

func (s *TimerSleeper) Standby(d time.Duration) {
	println("[hal] standby", d.String())
	s.Sleep(d, nil)
}
