// Package regdev is a cached register-map client for I²C devices that expose
// a contiguous block of byte or word registers behind a register pointer.
//
// Setters only touch the cache and mark registers dirty. I/O happens in two
// split-phase operations, Read and WriteDirty, whose outcome is collected with
// WaitForTransaction. Completion callbacks run in the bus completion context
// and only touch the staging buffer and result flags; the cache itself is
// changed by the caller's goroutine.
package regdev

import (
	"sync"
	"time"

	"chipset-go/drivers/i2cx"
	"chipset-go/errcode"
)

// Transport is the split-phase half of an i2cx.Engine.
type Transport interface {
	ReadAsync(addr uint16, buf []byte, cb i2cx.Callback) error
	WriteAsync(addr uint16, buf []byte, cb i2cx.Callback) error
}

// SleepFunc suspends the caller while a transaction is outstanding.
type SleepFunc func(d time.Duration)

// Layout describes the register block of one device.
type Layout struct {
	Name      string
	Address   uint16
	First     uint8 // first register offset
	Count     int   // number of registers
	Width     int   // bytes per register: 1 or 2
	BigEndian bool  // byte order of multi-byte values
}

func (l Layout) bytes() int { return l.Count * l.Width }

const (
	DefaultPollInterval = time.Millisecond
	DefaultMaxPolls     = 1000
)

type Option func(*Client)

// WithPolling bounds WaitForTransaction to maxPolls sleeps of interval each.
func WithPolling(interval time.Duration, maxPolls int) Option {
	return func(c *Client) {
		if interval > 0 {
			c.interval = interval
		}
		if maxPolls > 0 {
			c.maxPolls = maxPolls
		}
	}
}

type op uint8

const (
	opNone op = iota
	opRead
	opWrite
)

// frame is one contiguous run of registers sent as [reg, data...].
type frame struct {
	start int // index into the cache
	n     int
	data  []byte
}

type Client struct {
	bus Transport
	l   Layout

	interval time.Duration
	maxPolls int

	cache []uint16
	dirty []bool

	// Shared with the completion context.
	mu     sync.Mutex
	busy   bool
	last   op
	result error
	staged bool // a full-map read is waiting to be merged
	failed bool // the last write chain did not finish
	stage  []byte
	frames []frame
	next   int
	wbuf   []byte // encoded frames, owned by the write chain
	ptr    [1]byte
}

func New(bus Transport, l Layout, opts ...Option) *Client {
	if l.Width != 2 {
		l.Width = 1
	}
	c := &Client{
		bus:      bus,
		l:        l,
		interval: DefaultPollInterval,
		maxPolls: DefaultMaxPolls,
		cache:    make([]uint16, l.Count),
		dirty:    make([]bool, l.Count),
		stage:    make([]byte, l.bytes()),
		wbuf:     make([]byte, 0, l.Count+l.bytes()),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Layout() Layout { return c.l }

// ---------------- Cache access ----------------

func (c *Client) index(reg uint8) (int, bool) {
	i := int(reg) - int(c.l.First)
	return i, i >= 0 && i < c.l.Count
}

// Value returns the cached value of reg; unknown registers read as zero.
func (c *Client) Value(reg uint8) uint16 {
	i, ok := c.index(reg)
	if !ok {
		return 0
	}
	return c.cache[i]
}

// SetValue stores v for reg and marks it dirty.
func (c *Client) SetValue(reg uint8, v uint16) {
	i, ok := c.index(reg)
	if !ok {
		return
	}
	if c.l.Width == 1 {
		v &= 0xFF
	}
	c.cache[i] = v
	c.dirty[i] = true
}

// Field returns the bits of reg selected by mask, shifted down to bit 0.
func (c *Client) Field(reg uint8, mask uint16) uint16 {
	if mask == 0 {
		return 0
	}
	return (c.Value(reg) & mask) >> shift(mask)
}

// SetField replaces the bits of reg selected by mask with v.
func (c *Client) SetField(reg uint8, mask, v uint16) {
	if mask == 0 {
		return
	}
	cur := c.Value(reg)
	c.SetValue(reg, (cur&^mask)|((v<<shift(mask))&mask))
}

// SetBit sets or clears the bits in mask. An empty mask is a no-op.
func (c *Client) SetBit(reg uint8, mask uint16, on bool) {
	if mask == 0 {
		return
	}
	if on {
		c.SetField(reg, mask, mask>>shift(mask))
	} else {
		c.SetField(reg, mask, 0)
	}
}

// Value16 returns a 16-bit quantity starting at reg. Byte-wide devices span
// reg and reg+1 in the layout's byte order.
func (c *Client) Value16(reg uint8) uint16 {
	if c.l.Width == 2 {
		return c.Value(reg)
	}
	a, b := c.Value(reg), c.Value(reg+1)
	if c.l.BigEndian {
		return a<<8 | b
	}
	return b<<8 | a
}

// SetValue16 is the inverse of Value16.
func (c *Client) SetValue16(reg uint8, v uint16) {
	if c.l.Width == 2 {
		c.SetValue(reg, v)
		return
	}
	hi, lo := v>>8, v&0xFF
	if c.l.BigEndian {
		c.SetValue(reg, hi)
		c.SetValue(reg+1, lo)
		return
	}
	c.SetValue(reg, lo)
	c.SetValue(reg+1, hi)
}

// Dirty reports whether reg has an unwritten local edit.
func (c *Client) Dirty(reg uint8) bool {
	i, ok := c.index(reg)
	return ok && c.dirty[i]
}

// Pending reports whether a transaction is outstanding.
func (c *Client) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// shift is the position of the lowest set bit of mask, 0 for an empty mask.
func shift(mask uint16) uint16 {
	if mask == 0 {
		return 0
	}
	var s uint16
	for mask&1 == 0 {
		mask >>= 1
		s++
	}
	return s
}

// ---------------- Transactions ----------------

// Read starts a full-map read: a pointer write followed by a data read.
func (c *Client) Read() error {
	if !c.begin(opRead) {
		return errcode.Busy
	}
	c.ptr[0] = c.l.First
	if err := c.bus.WriteAsync(c.l.Address, c.ptr[:], c.onPointer); err != nil {
		c.abort()
		return err
	}
	return nil
}

func (c *Client) onPointer(addr uint16, err error) {
	if err != nil {
		c.finish(err)
		return
	}
	if err := c.bus.ReadAsync(addr, c.stage, c.onData); err != nil {
		c.finish(err)
	}
}

func (c *Client) onData(_ uint16, err error) {
	c.mu.Lock()
	if err == nil {
		c.staged = true
	}
	c.mu.Unlock()
	c.finish(err)
}

// ReadAndWait reads the full map and waits for the result.
func (c *Client) ReadAndWait(sleep SleepFunc) error {
	if err := c.Read(); err != nil {
		return err
	}
	return c.WaitForTransaction(sleep)
}

// WriteDirty sends every dirty register, one frame per contiguous run.
// Dirty markers clear once the first frame is accepted. Nothing dirty is a
// successful no-op.
func (c *Client) WriteDirty() error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return errcode.Busy
	}
	c.settle()
	c.frames = c.frames[:0]
	c.wbuf = c.wbuf[:0]
	for i := 0; i < c.l.Count; {
		if !c.dirty[i] {
			i++
			continue
		}
		start := i
		for i < c.l.Count && c.dirty[i] {
			i++
		}
		c.frames = append(c.frames, c.encode(start, i-start))
	}
	if len(c.frames) == 0 {
		c.mu.Unlock()
		return nil
	}
	c.busy, c.last, c.result = true, opWrite, nil
	c.next = 1
	first := c.frames[0].data
	c.mu.Unlock()

	if err := c.bus.WriteAsync(c.l.Address, first, c.onFrame); err != nil {
		c.abort()
		return err
	}
	for _, f := range c.frames {
		for i := f.start; i < f.start+f.n; i++ {
			c.dirty[i] = false
		}
	}
	return nil
}

func (c *Client) onFrame(addr uint16, err error) {
	if err != nil {
		c.finish(err)
		return
	}
	c.mu.Lock()
	if c.next >= len(c.frames) {
		c.mu.Unlock()
		c.finish(nil)
		return
	}
	data := c.frames[c.next].data
	c.next++
	c.mu.Unlock()
	if err := c.bus.WriteAsync(addr, data, c.onFrame); err != nil {
		c.finish(err)
	}
}

// encode appends the frame for n registers from start to wbuf.
func (c *Client) encode(start, n int) frame {
	off := len(c.wbuf)
	b := append(c.wbuf, c.l.First+uint8(start))
	for i := start; i < start+n; i++ {
		v := c.cache[i]
		switch {
		case c.l.Width == 1:
			b = append(b, byte(v))
		case c.l.BigEndian:
			b = append(b, byte(v>>8), byte(v))
		default:
			b = append(b, byte(v), byte(v>>8))
		}
	}
	c.wbuf = b
	return frame{start: start, n: n, data: b[off:]}
}

// WaitForTransaction waits until the last Read or WriteDirty resolves and
// returns its outcome. Read data is merged into the cache here, except for
// registers edited since the read was issued. A failed write chain marks its
// registers dirty again.
func (c *Client) WaitForTransaction(sleep SleepFunc) error {
	for polls := 0; ; polls++ {
		c.mu.Lock()
		busy := c.busy
		c.mu.Unlock()
		if !busy {
			break
		}
		if polls >= c.maxPolls {
			return errcode.Wrap(errcode.Timeout, c.l.Name+".wait", nil)
		}
		if sleep != nil {
			sleep(c.interval)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settle()
	return c.result
}

// settle applies the side effects of a finished transaction. Caller holds mu.
func (c *Client) settle() {
	if c.staged {
		c.merge()
		c.staged = false
	}
	if c.failed {
		for _, f := range c.frames {
			for i := f.start; i < f.start+f.n; i++ {
				c.dirty[i] = true
			}
		}
		c.failed = false
	}
}

func (c *Client) merge() {
	for i := 0; i < c.l.Count; i++ {
		if c.dirty[i] {
			continue
		}
		o := i * c.l.Width
		switch {
		case c.l.Width == 1:
			c.cache[i] = uint16(c.stage[o])
		case c.l.BigEndian:
			c.cache[i] = uint16(c.stage[o])<<8 | uint16(c.stage[o+1])
		default:
			c.cache[i] = uint16(c.stage[o]) | uint16(c.stage[o+1])<<8
		}
	}
}

func (c *Client) begin(kind op) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return false
	}
	c.settle()
	c.busy, c.last, c.result = true, kind, nil
	return true
}

// abort releases a transaction whose first transfer was refused.
func (c *Client) abort() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Client) finish(err error) {
	c.mu.Lock()
	if err != nil {
		if c.last == opWrite {
			c.failed = true
		}
		c.result = errcode.Wrap(errcode.MapDriverErr(err), c.l.Name, err)
	}
	c.busy = false
	c.mu.Unlock()
}
