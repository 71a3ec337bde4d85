//go:build !rp2040

package hal

import (
	"sync"

	"chipset-go/drivers/i2cx"
	"chipset-go/errcode"

	"tinygo.org/x/drivers"
)

// RegisterFile emulates a device with a register pointer: a write sets the
// pointer from its first byte and stores the rest; a read returns bytes from
// the pointer onwards.
type RegisterFile struct {
	Width int // bytes per register
	Regs  []byte
	ptr   int
}

func NewRegisterFile(count, width int) *RegisterFile {
	return &RegisterFile{Width: width, Regs: make([]byte, count*width)}
}

// Poke stores a raw byte at register reg (byte offset within wide registers).
func (f *RegisterFile) Poke(reg int, b ...byte) { copy(f.Regs[reg*f.Width:], b) }

// Word returns a little-endian word register.
func (f *RegisterFile) Word(reg int) uint16 {
	o := reg * f.Width
	return uint16(f.Regs[o]) | uint16(f.Regs[o+1])<<8
}

// SimI2C is a host I²C bus with register-file devices behind it.
type SimI2C struct {
	mu      sync.Mutex
	devs    map[uint16]*RegisterFile
	frames  map[uint16][][]byte
	failing int
}

var _ drivers.I2C = (*SimI2C)(nil)

func NewSimI2C() *SimI2C {
	return &SimI2C{devs: make(map[uint16]*RegisterFile), frames: make(map[uint16][][]byte)}
}

func (b *SimI2C) Attach(addr uint16, dev *RegisterFile) {
	b.mu.Lock()
	b.devs[addr] = dev
	b.mu.Unlock()
}

// FailNext makes the next n transfers fail with a bus error.
func (b *SimI2C) FailNext(n int) {
	b.mu.Lock()
	b.failing = n
	b.mu.Unlock()
}

// Frames returns the write frames addressed to addr since the last reset.
func (b *SimI2C) Frames(addr uint16) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.frames[addr]...)
}

func (b *SimI2C) ResetFrames() {
	b.mu.Lock()
	b.frames = make(map[uint16][][]byte)
	b.mu.Unlock()
}

func (b *SimI2C) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing > 0 {
		b.failing--
		return errcode.BusError
	}
	dev := b.devs[addr]
	if dev == nil {
		return errcode.BusError // no ACK
	}
	if len(w) > 0 {
		b.frames[addr] = append(b.frames[addr], append([]byte(nil), w...))
		dev.ptr = int(w[0]) * dev.Width
		if dev.ptr < len(dev.Regs) {
			copy(dev.Regs[dev.ptr:], w[1:])
		}
	}
	if len(r) > 0 {
		n := 0
		if dev.ptr < len(dev.Regs) {
			n = copy(r, dev.Regs[dev.ptr:])
		}
		for i := n; i < len(r); i++ {
			r[i] = 0xFF
		}
	}
	return nil
}

// SyncPort runs split-phase transfers inline on the calling goroutine and
// completes them before returning, which keeps host runs deterministic.
type SyncPort struct {
	Bus    drivers.I2C
	engine *i2cx.Engine
}

var _ i2cx.AsyncPort = (*SyncPort)(nil)

// NewSyncEngine returns an engine whose async transfers complete inline.
func NewSyncEngine(bus drivers.I2C, opts ...i2cx.Option) *i2cx.Engine {
	p := &SyncPort{Bus: bus}
	p.engine = i2cx.New(bus, append(opts, i2cx.WithAsyncPort(p))...)
	return p.engine
}

func (p *SyncPort) StartRead(addr uint16, buf []byte) error {
	p.engine.Complete(p.Bus.Tx(addr, nil, buf))
	return nil
}

func (p *SyncPort) StartWrite(addr uint16, buf []byte) error {
	p.engine.Complete(p.Bus.Tx(addr, buf, nil))
	return nil
}
