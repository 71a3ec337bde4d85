// Package i2cx is the bus transaction engine shared by every device on a
// physical I²C bus: blocking and split-phase master transfers, and the
// address-matched slave listener used by the host link.
//
// Discipline:
//   - At most one async transfer is outstanding per Engine. A second request is
//     refused with errcode.Busy; nothing is queued.
//   - Completion arrives exactly once per accepted request via Complete, from
//     the platform's completion context (DMA/IRQ or a goroutine on host builds).
//   - The pending slot is cleared before the callback runs, so a callback may
//     start the next transfer on the same bus.
//   - No retries. Callers decide.
package i2cx

import (
	"sync"
	"time"

	"chipset-go/errcode"

	"tinygo.org/x/drivers"
)

// MaxTransfer bounds one async write; WriteAsync copies into a buffer of this size.
const MaxTransfer = 255

// Callback receives the device address of the finished transfer and nil on success.
type Callback func(addr uint16, err error)

// AsyncPort starts a non-blocking transfer in hardware. The platform must call
// Engine.Complete exactly once for every start that returned nil.
type AsyncPort interface {
	StartRead(addr uint16, buf []byte) error
	StartWrite(addr uint16, buf []byte) error
}

// TimedBus is implemented by buses that honour a per-call timeout.
type TimedBus interface {
	TxTimeout(addr uint16, w, r []byte, timeout time.Duration) error
}

type Option func(*Engine)

// WithAsyncPort routes split-phase transfers through hardware instead of a goroutine.
func WithAsyncPort(p AsyncPort) Option { return func(e *Engine) { e.port = p } }

// WithName labels the engine in log lines.
func WithName(name string) Option { return func(e *Engine) { e.name = name } }

type Engine struct {
	bus  drivers.I2C
	port AsyncPort
	name string

	mu   sync.Mutex
	cb   Callback
	last uint16

	// Owned copy of the last async write payload.
	tx [MaxTransfer]byte
}

func New(bus drivers.I2C, opts ...Option) *Engine {
	e := &Engine{bus: bus, name: "i2c"}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Name returns the log label.
func (e *Engine) Name() string { return e.name }

// Pending reports whether an async transfer is outstanding.
func (e *Engine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cb != nil
}

// LastAddress is the device address of the most recent async request.
func (e *Engine) LastAddress() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// ---------------- Blocking transfers ----------------

// Read receives len(buf) bytes from addr, blocking up to timeout.
func (e *Engine) Read(addr uint16, buf []byte, timeout time.Duration) error {
	return e.transfer(addr, nil, buf, timeout, "read")
}

// Write sends buf to addr, blocking up to timeout.
func (e *Engine) Write(addr uint16, buf []byte, timeout time.Duration) error {
	return e.transfer(addr, buf, nil, timeout, "write")
}

func (e *Engine) transfer(addr uint16, w, r []byte, timeout time.Duration, op string) error {
	var err error
	if tb, ok := e.bus.(TimedBus); ok {
		if e.Pending() {
			return errcode.Busy
		}
		err = tb.TxTimeout(addr, w, r, timeout)
	} else {
		err = e.boundedTx(addr, w, r, timeout)
	}
	if err != nil {
		return errcode.Wrap(errcode.MapDriverErr(err), e.name+"."+op, err)
	}
	return nil
}

// boundedTx bounds a plain drivers.I2C transfer by running it on a goroutine
// that holds the async slot until the bus returns. After a Timeout the engine
// stays Pending, and w and r stay in use, until the stray transfer ends.
// A timeout <= 0 waits without bound.
func (e *Engine) boundedTx(addr uint16, w, r []byte, timeout time.Duration) error {
	if !e.claim(addr, nil) {
		return errcode.Busy
	}
	if timeout <= 0 {
		err := e.bus.Tx(addr, w, r)
		e.release()
		return err
	}
	done := make(chan error, 1)
	go func() {
		err := e.bus.Tx(addr, w, r)
		e.release()
		done <- err
	}()
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case err := <-done:
		return err
	case <-t.C:
		return errcode.Timeout
	}
}

// ---------------- Split-phase transfers ----------------

// ReadAsync starts a receive into buf. buf must stay untouched until cb runs.
func (e *Engine) ReadAsync(addr uint16, buf []byte, cb Callback) error {
	if !e.claim(addr, cb) {
		return errcode.Busy
	}
	if e.port != nil {
		if err := e.port.StartRead(addr, buf); err != nil {
			e.release()
			return errcode.Wrap(errcode.MapDriverErr(err), e.name+".read_async", err)
		}
		return nil
	}
	go func() { e.Complete(e.bus.Tx(addr, nil, buf)) }()
	return nil
}

// WriteAsync starts a transmit of a private copy of buf; the caller may reuse
// buf as soon as this returns.
func (e *Engine) WriteAsync(addr uint16, buf []byte, cb Callback) error {
	if len(buf) > MaxTransfer {
		return errcode.BadLength
	}
	if !e.claim(addr, cb) {
		return errcode.Busy
	}
	// Only the slot owner touches e.tx, so no lock is needed for the copy.
	n := copy(e.tx[:], buf)
	out := e.tx[:n]
	if e.port != nil {
		if err := e.port.StartWrite(addr, out); err != nil {
			e.release()
			return errcode.Wrap(errcode.MapDriverErr(err), e.name+".write_async", err)
		}
		return nil
	}
	go func() { e.Complete(e.bus.Tx(addr, out, nil)) }()
	return nil
}

// Complete is the completion event for the outstanding async transfer:
// err == nil for transfer-complete, non-nil for a bus error. Spurious
// completions (no request pending) are ignored.
func (e *Engine) Complete(err error) {
	e.mu.Lock()
	cb, addr := e.cb, e.last
	e.cb = nil
	e.mu.Unlock()
	if cb == nil {
		return
	}
	if err != nil {
		err = errcode.Wrap(errcode.MapDriverErr(err), e.name, err)
	}
	cb(addr, err)
}

func (e *Engine) claim(addr uint16, cb Callback) bool {
	if cb == nil {
		cb = func(uint16, error) {}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cb != nil {
		return false
	}
	e.cb = cb
	e.last = addr
	return true
}

func (e *Engine) release() {
	e.mu.Lock()
	e.cb = nil
	e.mu.Unlock()
}
