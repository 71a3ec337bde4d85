package regdev

import (
	"errors"
	"testing"
	"time"

	"chipset-go/drivers/i2cx"
	"chipset-go/errcode"

	"github.com/stretchr/testify/require"
)

// fakeBus emulates a register-pointer device. In manual mode completions are
// held until complete is called.
type fakeBus struct {
	regs   []byte
	ptr    int
	frames [][]byte
	manual bool
	held   func()
	failAt int // 1-based transfer index that fails; 0 never
	count  int
}

func (b *fakeBus) transfer(cb i2cx.Callback, addr uint16, do func()) error {
	b.count++
	var err error
	if b.failAt == b.count {
		err = errors.New("nack")
	} else {
		do()
	}
	fire := func() {
		if cb != nil {
			cb(addr, err)
		}
	}
	if b.manual {
		b.held = fire
		return nil
	}
	fire()
	return nil
}

func (b *fakeBus) WriteAsync(addr uint16, buf []byte, cb i2cx.Callback) error {
	frame := append([]byte(nil), buf...)
	return b.transfer(cb, addr, func() {
		b.frames = append(b.frames, frame)
		b.ptr = int(frame[0])
		copy(b.regs[b.ptr:], frame[1:])
	})
}

func (b *fakeBus) ReadAsync(addr uint16, buf []byte, cb i2cx.Callback) error {
	return b.transfer(cb, addr, func() { copy(buf, b.regs[b.ptr:]) })
}

func (b *fakeBus) complete() {
	f := b.held
	b.held = nil
	f()
}

func noSleep(time.Duration) {}

var byteLayout = Layout{Name: "test", Address: 0x6B, First: 0, Count: 8, Width: 1, BigEndian: true}

func TestReadAndWaitFillsCache(t *testing.T) {
	bus := &fakeBus{regs: []byte{0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17}}
	c := New(bus, byteLayout)

	require.NoError(t, c.ReadAndWait(noSleep))
	require.Equal(t, uint16(0x13), c.Value(3))
	require.Equal(t, uint16(0x1415), c.Value16(4))
	require.Equal(t, []byte{0x00}, bus.frames[0], "pointer write precedes data read")
}

func TestWriteDirtyOnlyDirtyRegisters(t *testing.T) {
	bus := &fakeBus{regs: make([]byte, 8)}
	c := New(bus, byteLayout)

	c.SetValue(1, 0xAA)
	c.SetValue(2, 0xBB)
	c.SetValue(6, 0xCC)
	require.NoError(t, c.WriteDirty())
	require.NoError(t, c.WaitForTransaction(noSleep))

	require.Equal(t, [][]byte{{0x01, 0xAA, 0xBB}, {0x06, 0xCC}}, bus.frames)
	require.False(t, c.Dirty(1))

	bus.frames = nil
	require.NoError(t, c.WriteDirty())
	require.Empty(t, bus.frames, "nothing dirty sends nothing")
}

func TestFieldHelpers(t *testing.T) {
	c := New(&fakeBus{regs: make([]byte, 8)}, byteLayout)
	c.SetValue(2, 0b1010_0001)
	c.SetField(2, 0b0000_0110, 0b11)
	require.Equal(t, uint16(0b1010_0111), c.Value(2))
	require.Equal(t, uint16(0b101), c.Field(2, 0b1110_0000))

	c.SetBit(2, 0x80, false)
	require.Equal(t, uint16(0b0010_0111), c.Value(2))
	c.SetBit(2, 0x40, true)
	require.Equal(t, uint16(0b0110_0111), c.Value(2))

	c.SetValue(200, 1)
	require.Zero(t, c.Value(200))
}

func TestEmptyMaskIsNoOp(t *testing.T) {
	c := New(&fakeBus{regs: make([]byte, 8)}, byteLayout)
	c.SetBit(3, 0, true)
	c.SetBit(3, 0, false)
	c.SetField(3, 0, 0xFF)
	require.Zero(t, c.Value(3))
	require.False(t, c.Dirty(3))
	require.Zero(t, c.Field(3, 0))
}

func TestWordLayoutLittleEndian(t *testing.T) {
	bus := &fakeBus{regs: make([]byte, 16)}
	c := New(bus, Layout{Name: "w", Address: 0x36, First: 0, Count: 8, Width: 2})

	c.SetValue(3, 0x1234)
	require.NoError(t, c.WriteDirty())
	require.NoError(t, c.WaitForTransaction(noSleep))
	require.Equal(t, [][]byte{{0x03, 0x34, 0x12}}, bus.frames)
}

func TestWriteDirtyRejectedWhilePending(t *testing.T) {
	bus := &fakeBus{regs: make([]byte, 8), manual: true}
	c := New(bus, byteLayout)

	require.NoError(t, c.Read())
	c.SetValue(0, 1)
	require.ErrorIs(t, c.WriteDirty(), errcode.Busy)
	require.True(t, c.Dirty(0), "setter still applies while pending")
}

func TestReadDoesNotOverwriteLocalEdits(t *testing.T) {
	bus := &fakeBus{regs: []byte{1, 2, 3, 4, 5, 6, 7, 8}, manual: true}
	c := New(bus, byteLayout)

	require.NoError(t, c.Read())
	c.SetValue(2, 0x55)
	bus.complete() // pointer
	bus.complete() // data
	require.NoError(t, c.WaitForTransaction(noSleep))

	require.Equal(t, uint16(0x55), c.Value(2))
	require.Equal(t, uint16(4), c.Value(3))
}

func TestFailedWriteChainRemarksDirty(t *testing.T) {
	bus := &fakeBus{regs: make([]byte, 8), failAt: 2}
	c := New(bus, byteLayout)

	c.SetValue(0, 1)
	c.SetValue(5, 2)
	require.NoError(t, c.WriteDirty())
	err := c.WaitForTransaction(noSleep)
	require.ErrorIs(t, err, errcode.BusError)
	require.True(t, c.Dirty(0))
	require.True(t, c.Dirty(5))

	bus.failAt = 0
	bus.frames = nil
	require.NoError(t, c.WriteDirty())
	require.NoError(t, c.WaitForTransaction(noSleep))
	require.Len(t, bus.frames, 2)
}

func TestWaitForTransactionTimesOut(t *testing.T) {
	bus := &fakeBus{regs: make([]byte, 8), manual: true}
	c := New(bus, byteLayout, WithPolling(time.Millisecond, 3))

	var slept []time.Duration
	require.NoError(t, c.Read())
	err := c.WaitForTransaction(func(d time.Duration) { slept = append(slept, d) })
	require.ErrorIs(t, err, errcode.Timeout)
	require.Len(t, slept, 3)
	require.True(t, c.Pending())
}
