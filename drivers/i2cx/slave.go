package i2cx

import "sync"

// Direction of an address match, from the host's point of view.
type Direction uint8

const (
	DirWrite Direction = iota // host → board
	DirRead                   // board → host
)

// RxBufferSize bounds one received host frame.
const RxBufferSize = 255

// SlavePort is the hardware side of an address-matched slave. Start* calls
// are non-blocking; the platform reports their outcome through the Slave's
// On* entry points.
type SlavePort interface {
	EnableListen() error
	DisableListen() error
	StartReceive(buf []byte) error
	StartTransmit(buf []byte) error
}

// Slave serves the host link. Event entry points run in completion context
// and only move bytes and flags; decoding and actions happen in the main loop
// through TakeCommand / TakeServed.
type Slave struct {
	port SlavePort

	mu        sync.Mutex
	listening bool

	rx     [RxBufferSize]byte
	rxLen  int
	rxBusy bool
	cmd    bool // a complete frame is waiting in rx

	resp    []byte // latest published response
	after   []byte // replaces resp once resp has been served
	swap    bool
	txBuf   []byte // snapshot being transmitted
	served  bool
	errors  uint32
	dropped uint32

	notify func()
}

func NewSlave(port SlavePort) *Slave {
	return &Slave{port: port}
}

// SetNotify registers fn to run, in completion context, after a frame arrives
// or a response goes out. It is typically the main loop's wake-up.
func (s *Slave) SetNotify(fn func()) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// Listen enables address matching.
func (s *Slave) Listen() error {
	s.mu.Lock()
	s.listening = true
	s.mu.Unlock()
	return s.port.EnableListen()
}

// Stop disables address matching and drops any unconsumed frame.
func (s *Slave) Stop() error {
	s.mu.Lock()
	s.listening = false
	s.cmd = false
	s.rxBusy = false
	s.served = false
	s.mu.Unlock()
	return s.port.DisableListen()
}

// Listening reports whether the slave is armed.
func (s *Slave) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// Publish stores the response sent on the next read from the host. When
// after is non-nil it becomes the response as soon as b has been served, so
// fields that must go out once are gone before the main loop catches up.
// Both slices are copied.
func (s *Slave) Publish(b, after []byte) {
	s.mu.Lock()
	s.resp = append(s.resp[:0], b...)
	s.after = append(s.after[:0], after...)
	s.swap = after != nil
	s.mu.Unlock()
}

// TakeCommand copies a completed host frame into dst, once.
func (s *Slave) TakeCommand(dst []byte) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cmd {
		return 0, false
	}
	s.cmd = false
	return copy(dst, s.rx[:s.rxLen]), true
}

// TakeServed reports, once, that a response went out since the last call.
func (s *Slave) TakeServed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.served
	s.served = false
	return v
}

// Stats returns the count of bus errors and frames overwritten before the
// main loop consumed them.
func (s *Slave) Stats() (errors, dropped uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors, s.dropped
}

// ---------------- Completion-context entry points ----------------

// OnAddress handles an address match.
func (s *Slave) OnAddress(dir Direction) {
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	_ = s.port.DisableListen()

	if dir == DirWrite {
		s.mu.Lock()
		if s.cmd {
			s.dropped++
			s.cmd = false
		}
		s.rxBusy = true
		buf := s.rx[:]
		s.mu.Unlock()
		if err := s.port.StartReceive(buf); err != nil {
			s.fail()
		}
		return
	}

	s.mu.Lock()
	s.txBuf = append(s.txBuf[:0], s.resp...)
	out := s.txBuf
	s.mu.Unlock()
	if err := s.port.StartTransmit(out); err != nil {
		s.fail()
	}
}

// OnReceiveComplete marks n received bytes as a frame for the main loop.
func (s *Slave) OnReceiveComplete(n int) {
	s.mu.Lock()
	if !s.listening || !s.rxBusy {
		s.mu.Unlock()
		return
	}
	if n > RxBufferSize {
		n = RxBufferSize
	}
	s.rxBusy = false
	s.rxLen = n
	s.cmd = n > 0
	fn := s.notify
	s.mu.Unlock()
	s.relisten()
	if fn != nil {
		fn()
	}
}

// OnTransmitComplete records that the host received the response.
func (s *Slave) OnTransmitComplete() {
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return
	}
	s.served = true
	if s.swap {
		s.resp = append(s.resp[:0], s.after...)
		s.swap = false
	}
	fn := s.notify
	s.mu.Unlock()
	s.relisten()
	if fn != nil {
		fn()
	}
}

// OnListenComplete re-arms listening after the hardware ends a listen cycle.
func (s *Slave) OnListenComplete() {
	if s.Listening() {
		s.relisten()
	}
}

// OnError abandons the current transfer and re-arms listening.
func (s *Slave) OnError() {
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.fail()
}

func (s *Slave) fail() {
	s.mu.Lock()
	s.errors++
	s.rxBusy = false
	s.mu.Unlock()
	s.relisten()
}

func (s *Slave) relisten() {
	if s.Listening() {
		_ = s.port.EnableListen()
	}
}
