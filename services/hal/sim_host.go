//go:build !rp2040

package hal

import (
	"sync"
	"time"

	"chipset-go/drivers/i2cx"
)

// ----------------------------- GPIO (host) -----------------------------------

// FakePin is an in-memory line. OnSet, when non-nil, runs after every level
// change and lets a simulation wire outputs to inputs.
type FakePin struct {
	mu     sync.RWMutex
	number int
	level  bool
	writes int
	OnSet  func(level bool)
}

func NewFakePin(number int) *FakePin { return &FakePin{number: number} }

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	changed := p.level != level
	p.level = level
	p.writes++
	hook := p.OnSet
	p.mu.Unlock()
	if changed && hook != nil {
		hook(level)
	}
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakePin) Toggle() { p.Set(!p.Get()) }

func (p *FakePin) Number() int { return p.number }

// Writes counts Set calls, changed or not.
func (p *FakePin) Writes() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.writes
}

// ----------------------------- ADC (host) ------------------------------------

// SimADC returns codes from Source. With Hold set, completion waits for
// Complete; otherwise it fires before StartOneShot returns.
type SimADC struct {
	mu      sync.Mutex
	Source  func() []uint16
	Hold    bool
	pending func()
	starts  int
	stopped bool
}

func (a *SimADC) StartOneShot(buf []uint16, done func()) error {
	a.mu.Lock()
	a.starts++
	a.stopped = false
	if a.Source != nil {
		copy(buf, a.Source())
	}
	if a.Hold {
		a.pending = done
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()
	if done != nil {
		done()
	}
	return nil
}

// Complete delivers a held conversion.
func (a *SimADC) Complete() bool {
	a.mu.Lock()
	done := a.pending
	a.pending = nil
	a.mu.Unlock()
	if done == nil {
		return false
	}
	done()
	return true
}

func (a *SimADC) Stop() {
	a.mu.Lock()
	a.pending = nil
	a.stopped = true
	a.mu.Unlock()
}

func (a *SimADC) Starts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.starts
}

// ----------------------------- Sleep (host) ----------------------------------

// FakeSleeper returns immediately and records what was asked. OnSleep, when
// non-nil, runs on every call so tests can move the world forward.
type FakeSleeper struct {
	mu       sync.Mutex
	Sleeps   []time.Duration
	Standbys []time.Duration
	OnSleep  func(d time.Duration, interruptible bool)
}

func (s *FakeSleeper) Sleep(d time.Duration, wake <-chan struct{}) {
	s.mu.Lock()
	s.Sleeps = append(s.Sleeps, d)
	hook := s.OnSleep
	s.mu.Unlock()
	if hook != nil {
		hook(d, wake != nil)
	}
}

func (s *FakeSleeper) Standby(d time.Duration) {
	s.mu.Lock()
	s.Standbys = append(s.Standbys, d)
	s.mu.Unlock()
}

// Total returns the summed duration of plain sleeps.
func (s *FakeSleeper) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t time.Duration
	for _, d := range s.Sleeps {
		t += d
	}
	return t
}

// ----------------------------- Heartbeat (host) ------------------------------

type SimHeartbeat struct {
	mu      sync.Mutex
	running bool
	period  time.Duration
	starts  int
}

func (h *SimHeartbeat) Start(period time.Duration) error {
	h.mu.Lock()
	h.running, h.period = true, period
	h.starts++
	h.mu.Unlock()
	return nil
}

func (h *SimHeartbeat) Stop() {
	h.mu.Lock()
	h.running = false
	h.mu.Unlock()
}

func (h *SimHeartbeat) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

func (h *SimHeartbeat) Starts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.starts
}

// ----------------------------- Host link (host) ------------------------------

// SimSlavePort plays the host computer against an i2cx.Slave.
type SimSlavePort struct {
	mu        sync.Mutex
	slave     *i2cx.Slave
	listening bool
	rx        []byte
	tx        []byte
}

// Attach binds the port to the slave whose event entry points it drives.
func (p *SimSlavePort) Attach(s *i2cx.Slave) { p.slave = s }

func (p *SimSlavePort) EnableListen() error {
	p.mu.Lock()
	p.listening = true
	p.mu.Unlock()
	return nil
}

func (p *SimSlavePort) DisableListen() error {
	p.mu.Lock()
	p.listening = false
	p.mu.Unlock()
	return nil
}

func (p *SimSlavePort) StartReceive(buf []byte) error {
	p.mu.Lock()
	p.rx = buf
	p.mu.Unlock()
	return nil
}

func (p *SimSlavePort) StartTransmit(buf []byte) error {
	p.mu.Lock()
	p.tx = append(p.tx[:0], buf...)
	p.mu.Unlock()
	return nil
}

func (p *SimSlavePort) Listening() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listening
}

// HostWrite sends frame to the board. It reports false when the board was
// not listening and nothing was captured.
func (p *SimSlavePort) HostWrite(frame []byte) bool {
	if !p.Listening() || p.slave == nil {
		return false
	}
	p.mu.Lock()
	p.rx = nil
	p.mu.Unlock()
	p.slave.OnAddress(i2cx.DirWrite)
	p.mu.Lock()
	rx := p.rx
	p.mu.Unlock()
	if rx == nil {
		return false
	}
	p.slave.OnReceiveComplete(copy(rx, frame))
	return true
}

// HostRead reads the board's response, or nil when it was not listening.
func (p *SimSlavePort) HostRead() []byte {
	if !p.Listening() || p.slave == nil {
		return nil
	}
	p.mu.Lock()
	p.tx = p.tx[:0]
	p.mu.Unlock()
	p.slave.OnAddress(i2cx.DirRead)
	p.mu.Lock()
	out := append([]byte(nil), p.tx...)
	p.mu.Unlock()
	p.slave.OnTransmitComplete()
	return out
}
