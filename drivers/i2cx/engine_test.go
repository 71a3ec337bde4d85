package i2cx

import (
	"errors"
	"sync"
	"testing"
	"time"

	"chipset-go/errcode"

	"github.com/stretchr/testify/require"
)

// manualPort records starts; the test decides when they complete.
type manualPort struct {
	mu     sync.Mutex
	writes [][]byte
	reads  int
	fail   error
}

func (p *manualPort) StartRead(addr uint16, buf []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.reads++
	return nil
}

func (p *manualPort) StartWrite(addr uint16, buf []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.writes = append(p.writes, buf)
	return nil
}

// echoBus fills reads with a fixed pattern and records writes.
type echoBus struct {
	mu      sync.Mutex
	written [][]byte
	err     error
	timeout time.Duration
}

func (b *echoBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	if len(w) > 0 {
		b.written = append(b.written, append([]byte(nil), w...))
	}
	for i := range r {
		r[i] = byte(0xA0 + i)
	}
	return nil
}

type timedBus struct {
	echoBus
}

func (b *timedBus) TxTimeout(addr uint16, w, r []byte, timeout time.Duration) error {
	b.mu.Lock()
	b.timeout = timeout
	b.mu.Unlock()
	return b.Tx(addr, w, r)
}

func TestWriteAsyncRejectedWhilePending(t *testing.T) {
	port := &manualPort{}
	e := New(&echoBus{}, WithAsyncPort(port))

	var calls int
	require.NoError(t, e.WriteAsync(0x6B, []byte{0x10, 0x00}, func(addr uint16, err error) {
		calls++
		require.Equal(t, uint16(0x6B), addr)
		require.NoError(t, err)
	}))
	require.True(t, e.Pending())

	err := e.WriteAsync(0x6B, []byte{0x14, 0x01}, nil)
	require.ErrorIs(t, err, errcode.Busy)
	require.Len(t, port.writes, 1, "rejected request must not start I/O")

	e.Complete(nil)
	require.Equal(t, 1, calls)
	require.False(t, e.Pending())

	require.NoError(t, e.WriteAsync(0x6B, []byte{0x14, 0x01}, nil))
	require.Len(t, port.writes, 2)
}

func TestCompleteFiresOnceAndIgnoresSpurious(t *testing.T) {
	port := &manualPort{}
	e := New(&echoBus{}, WithAsyncPort(port))

	var got []error
	require.NoError(t, e.ReadAsync(0x36, make([]byte, 4), func(_ uint16, err error) { got = append(got, err) }))
	e.Complete(errors.New("nack"))
	e.Complete(nil)

	require.Len(t, got, 1)
	require.ErrorIs(t, got[0], errcode.BusError)
}

func TestCallbackMayStartNextTransfer(t *testing.T) {
	port := &manualPort{}
	e := New(&echoBus{}, WithAsyncPort(port))

	var second error
	require.NoError(t, e.WriteAsync(0x6B, []byte{0x00}, func(addr uint16, err error) {
		second = e.ReadAsync(addr, make([]byte, 2), nil)
	}))
	e.Complete(nil)

	require.NoError(t, second)
	require.True(t, e.Pending())
	require.Equal(t, 1, port.reads)
}

func TestWriteAsyncCopiesCallerBuffer(t *testing.T) {
	port := &manualPort{}
	e := New(&echoBus{}, WithAsyncPort(port))

	buf := []byte{0x03, 0x01, 0x2C}
	require.NoError(t, e.WriteAsync(0x6B, buf, nil))
	buf[1], buf[2] = 0xFF, 0xFF

	require.Equal(t, []byte{0x03, 0x01, 0x2C}, port.writes[0])
}

func TestWriteAsyncTooLong(t *testing.T) {
	e := New(&echoBus{}, WithAsyncPort(&manualPort{}))
	require.ErrorIs(t, e.WriteAsync(0x6B, make([]byte, MaxTransfer+1), nil), errcode.BadLength)
	require.False(t, e.Pending())
}

func TestStartFailureReleasesSlot(t *testing.T) {
	port := &manualPort{fail: errors.New("hal busy")}
	e := New(&echoBus{}, WithAsyncPort(port))

	require.ErrorIs(t, e.ReadAsync(0x6B, make([]byte, 1), nil), errcode.BusError)
	require.False(t, e.Pending())
}

func TestGoroutineFallback(t *testing.T) {
	bus := &echoBus{}
	e := New(bus)

	buf := make([]byte, 3)
	done := make(chan error, 1)
	require.NoError(t, e.ReadAsync(0x6B, buf, func(_ uint16, err error) { done <- err }))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for completion")
	}
	require.Equal(t, []byte{0xA0, 0xA1, 0xA2}, buf)
}

func TestSynchronousTransfers(t *testing.T) {
	bus := &timedBus{}
	e := New(bus)

	require.NoError(t, e.Write(0x6B, []byte{0x10, 0x00}, 25*time.Millisecond))
	require.Equal(t, 25*time.Millisecond, bus.timeout)

	r := make([]byte, 2)
	require.NoError(t, e.Read(0x6B, r, time.Second))
	require.Equal(t, []byte{0xA0, 0xA1}, r)

	bus.err = errors.New("arbitration lost")
	require.ErrorIs(t, e.Write(0x6B, []byte{0}, time.Second), errcode.BusError)
}

func TestSynchronousRefusedWhileAsyncPending(t *testing.T) {
	e := New(&echoBus{}, WithAsyncPort(&manualPort{}))
	require.NoError(t, e.ReadAsync(0x6B, make([]byte, 1), nil))
	require.ErrorIs(t, e.Write(0x6B, []byte{0}, time.Second), errcode.Busy)
}

// stuckBus holds every transfer until release is closed.
type stuckBus struct {
	release chan struct{}
}

func (b *stuckBus) Tx(addr uint16, w, r []byte) error {
	<-b.release
	return nil
}

func TestUntimedBusHonoursTimeout(t *testing.T) {
	bus := &stuckBus{release: make(chan struct{})}
	e := New(bus)

	start := time.Now()
	err := e.Write(0x6B, []byte{0x01}, 20*time.Millisecond)
	require.ErrorIs(t, err, errcode.Timeout)
	require.Less(t, time.Since(start), time.Second)

	// The stray transfer still owns the bus.
	require.True(t, e.Pending())
	require.ErrorIs(t, e.WriteAsync(0x6B, []byte{0x02}, nil), errcode.Busy)
	require.ErrorIs(t, e.Read(0x6B, make([]byte, 1), time.Second), errcode.Busy)

	close(bus.release)
	require.Eventually(t, func() bool { return !e.Pending() }, time.Second, time.Millisecond)
	require.NoError(t, e.Write(0x6B, []byte{0x03}, time.Second))
}

func TestUntimedBusCompletesWithinTimeout(t *testing.T) {
	bus := &echoBus{}
	e := New(bus)

	r := make([]byte, 2)
	require.NoError(t, e.Read(0x6B, r, time.Second))
	require.Equal(t, []byte{0xA0, 0xA1}, r)
	require.False(t, e.Pending())

	bus.err = errors.New("nack")
	require.ErrorIs(t, e.Write(0x6B, []byte{0}, 0), errcode.BusError)
	require.False(t, e.Pending())
}
