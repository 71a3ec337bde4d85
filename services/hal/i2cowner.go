package hal

import (
	"sync/atomic"
	"time"

	"chipset-go/drivers/i2cx"
	"chipset-go/errcode"

	"tinygo.org/x/drivers"
)

// -----------------------------------------------------------------------------
// I²C owner (one worker goroutine per controller)
// -----------------------------------------------------------------------------

// i2cReq owns its buffers: a caller that stops waiting may reuse its own
// slices while the worker still holds the request.
type i2cReq struct {
	addr uint16
	w, r []byte
	done chan error   // buffered(1); worker replies best-effort
	gone *atomic.Bool // caller stopped waiting
}

type i2cOwner struct {
	hw   drivers.I2C
	reqs chan i2cReq
	quit chan struct{}
}

func newI2COwner(hw drivers.I2C) *i2cOwner {
	o := &i2cOwner{hw: hw, reqs: make(chan i2cReq, 16), quit: make(chan struct{})}
	go o.loop()
	return o
}

func (o *i2cOwner) loop() {
	for {
		select {
		case req := <-o.reqs:
			if req.gone.Load() {
				continue
			}
			err := o.hw.Tx(req.addr, req.w, req.r)
			select {
			case req.done <- err:
			default:
			}
		case <-o.quit:
			return
		}
	}
}

func (o *i2cOwner) stop() { close(o.quit) }

// i2cBus adapts the owner to drivers.I2C with a default per-call timeout.
type i2cBus struct {
	o       *i2cOwner
	timeout time.Duration // 0 => no deadline
}

var (
	_ drivers.I2C   = (*i2cBus)(nil)
	_ i2cx.TimedBus = (*i2cBus)(nil)
)

func (d *i2cBus) Tx(addr uint16, w, r []byte) error {
	return d.TxTimeout(addr, w, r, d.timeout)
}

func (d *i2cBus) TxTimeout(addr uint16, w, r []byte, timeout time.Duration) error {
	req := i2cReq{
		addr: addr,
		w:    append([]byte(nil), w...),
		done: make(chan error, 1),
		gone: new(atomic.Bool),
	}
	if len(r) > 0 {
		req.r = make([]byte, len(r))
	}

	if timeout <= 0 {
		d.o.reqs <- req
		return collectRead(req, r, <-req.done)
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case d.o.reqs <- req:
	case <-t.C:
		return errcode.Busy
	}
	resetTimer(t, timeout)
	select {
	case err := <-req.done:
		return collectRead(req, r, err)
	case <-t.C:
		req.gone.Store(true)
		return errcode.Timeout
	}
}

func collectRead(req i2cReq, r []byte, err error) error {
	if err == nil {
		copy(r, req.r)
	}
	return err
}
