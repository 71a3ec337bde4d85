// Package heartbeat blinks a status LED from its own goroutine while the
// main loop is busy elsewhere (battery-manager bring-up, standby).
package heartbeat

import (
	"sync"
	"time"

	"chipset-go/errcode"
)

// Pin is the LED line.
type Pin interface {
	Set(level bool)
}

type Service struct {
	pin Pin

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func New(pin Pin) *Service { return &Service{pin: pin} }

// Start blinks with the given on+off period, restarting any running blink.
func (s *Service) Start(period time.Duration) error {
	if period <= 0 {
		return errcode.InvalidParams
	}
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.serviceLoop(period/2, s.stop, s.done)
	return nil
}

// Stop ends the blink and leaves the LED off. It returns once the loop exits.
func (s *Service) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

func (s *Service) serviceLoop(half time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if half <= 0 {
		half = time.Millisecond
	}
	tick := time.NewTicker(half)
	defer tick.Stop()

	on := true
	s.pin.Set(on)
	for {
		select {
		case <-stop:
			s.pin.Set(false)
			return
		case <-tick.C:
			on = !on
			s.pin.Set(on)
		}
	}
}
