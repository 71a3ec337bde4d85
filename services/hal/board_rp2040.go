//go:build rp2040

package hal

import (
	"strconv"
	"sync"
	"time"

	"chipset-go/drivers/i2cx"
	"chipset-go/errcode"
	"chipset-go/services/heartbeat"
	"chipset-go/services/telemetry"
	"chipset-go/types"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

type platform struct {
	owner *i2cOwner
	slave *rp2SlavePort
}

// -----------------------------------------------------------------------------
// GPIO
// -----------------------------------------------------------------------------

type rp2Pin struct{ p machine.Pin }

func outputPin(n int) Pin {
	if n < 0 {
		return NopPin{}
	}
	p := machine.Pin(n)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	return rp2Pin{p}
}

func inputPin(n int) Pin {
	if n < 0 {
		return NopPin{}
	}
	p := machine.Pin(n)
	p.Configure(machine.PinConfig{Mode: machine.PinInput})
	return rp2Pin{p}
}

func (r rp2Pin) Set(b bool) { r.p.Set(b) }
func (r rp2Pin) Get() bool  { return r.p.Get() }

// -----------------------------------------------------------------------------
// I²C controllers
// -----------------------------------------------------------------------------

func i2cByID(id int) (*machine.I2C, error) {
	switch id {
	case 0:
		return machine.I2C0, nil
	case 1:
		return machine.I2C1, nil
	}
	return nil, errcode.UnknownBus
}

// -----------------------------------------------------------------------------
// Host link (I²C target mode)
// -----------------------------------------------------------------------------

// rp2SlavePort turns the controller's target events into i2cx.Slave calls.
// While the slave is not listening, host writes are discarded and host reads
// see 0xFF.
type rp2SlavePort struct {
	hw    *machine.I2C
	slave *i2cx.Slave

	mu        sync.Mutex
	listening bool
	rx        []byte
	tx        []byte
}

func (p *rp2SlavePort) EnableListen() error {
	p.mu.Lock()
	p.listening = true
	p.mu.Unlock()
	return nil
}

func (p *rp2SlavePort) DisableListen() error {
	p.mu.Lock()
	p.listening = false
	p.mu.Unlock()
	return nil
}

func (p *rp2SlavePort) StartReceive(buf []byte) error {
	p.mu.Lock()
	p.rx = buf
	p.mu.Unlock()
	return nil
}

func (p *rp2SlavePort) StartTransmit(buf []byte) error {
	p.mu.Lock()
	p.tx = buf
	p.mu.Unlock()
	return nil
}

func (p *rp2SlavePort) armed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listening
}

func (p *rp2SlavePort) loop() {
	buf := make([]byte, i2cx.RxBufferSize)
	idle := []byte{0xFF}
	for {
		evt, n, err := p.hw.WaitForEvent(buf)
		if err != nil {
			p.slave.OnError()
			continue
		}
		switch evt {
		case machine.I2CReceive:
			if !p.armed() {
				continue
			}
			p.slave.OnAddress(i2cx.DirWrite)
			p.mu.Lock()
			rx := p.rx
			p.rx = nil
			p.mu.Unlock()
			if rx != nil {
				p.slave.OnReceiveComplete(copy(rx, buf[:n]))
			}
		case machine.I2CRequest:
			if !p.armed() {
				_ = p.hw.Reply(idle)
				continue
			}
			p.slave.OnAddress(i2cx.DirRead)
			p.mu.Lock()
			tx := p.tx
			p.mu.Unlock()
			if len(tx) == 0 {
				tx = idle
			}
			if err := p.hw.Reply(tx); err != nil {
				p.slave.OnError()
				continue
			}
			p.slave.OnTransmitComplete()
		case machine.I2CFinish:
			p.slave.OnListenComplete()
		}
	}
}

// -----------------------------------------------------------------------------
// ADC
// -----------------------------------------------------------------------------

// rp2ADC converts the rail channels and the die sensor on a goroutine. Stop
// discards any conversion still in flight.
type rp2ADC struct {
	ch   []machine.ADC
	cal  telemetry.Calibration
	bits uint8

	mu  sync.Mutex
	gen uint32
}

func newADC(cfg types.ADCConfig) *rp2ADC {
	machine.InitADC()
	a := &rp2ADC{cal: telemetry.FromConfig(cfg)}
	a.bits = a.cal.ResolutionBits
	for _, n := range cfg.Channels {
		c := machine.ADC{Pin: machine.Pin(n)}
		c.Configure(machine.ADCConfig{})
		a.ch = append(a.ch, c)
	}
	return a
}

func (a *rp2ADC) StartOneShot(buf []uint16, done func()) error {
	if len(buf) < len(a.ch)+1 {
		return errcode.BadLength
	}
	a.mu.Lock()
	a.gen++
	gen := a.gen
	a.mu.Unlock()

	go func() {
		for i, c := range a.ch {
			// Get is left-aligned to 16 bits.
			buf[i] = c.Get() >> (16 - a.bits)
		}
		buf[len(buf)-1] = a.cal.TemperatureCode(machine.ReadTemperature())
		a.mu.Lock()
		live := a.gen == gen
		a.mu.Unlock()
		if live && done != nil {
			done()
		}
	}()
	return nil
}

func (a *rp2ADC) Stop() {
	a.mu.Lock()
	a.gen++
	a.mu.Unlock()
}

// -----------------------------------------------------------------------------
// Board
// -----------------------------------------------------------------------------

// Open claims and configures every peripheral named in cfg.
func Open(cfg types.BoardConfig) (*Board, error) {
	p := cfg.Pins

	cb := cfg.Charger.Bus
	chw, err := i2cByID(cb.ID)
	if err != nil {
		return nil, errcode.Wrap(errcode.UnknownBus, "hal.open.charger", err)
	}
	if err := chw.Configure(machine.I2CConfig{
		SCL:       machine.Pin(cb.SCL),
		SDA:       machine.Pin(cb.SDA),
		Frequency: cb.FreqHz,
	}); err != nil {
		return nil, errcode.Wrap(errcode.MapDriverErr(err), "hal.open.charger", err)
	}
	owner := newI2COwner(chw)
	bus := &i2cBus{o: owner, timeout: time.Duration(cb.TimeoutMs) * time.Millisecond}

	hb := cfg.HostLink.Bus
	hhw, err := i2cByID(hb.ID)
	if err != nil || hhw == chw {
		owner.stop()
		return nil, errcode.Wrap(errcode.Conflict, "hal.open.host_link", err)
	}
	if err := hhw.Configure(machine.I2CConfig{
		SCL:       machine.Pin(hb.SCL),
		SDA:       machine.Pin(hb.SDA),
		Frequency: hb.FreqHz,
		Mode:      machine.I2CModeTarget,
	}); err != nil {
		owner.stop()
		return nil, errcode.Wrap(errcode.MapDriverErr(err), "hal.open.host_link", err)
	}
	if err := hhw.Listen(cfg.HostLink.Addr); err != nil {
		owner.stop()
		return nil, errcode.Wrap(errcode.MapDriverErr(err), "hal.open.host_link", err)
	}
	port := &rp2SlavePort{hw: hhw}
	host := i2cx.NewSlave(port)
	port.slave = host
	go port.loop()

	var console *uartx.UART
	switch cfg.Console.UART {
	case 1:
		console = uartx.UART1
	default:
		console = uartx.UART0
	}
	_ = console.Configure(uartx.UARTConfig{
		BaudRate: cfg.Console.Baud,
		TX:       machine.Pin(cfg.Console.TX),
		RX:       machine.Pin(cfg.Console.RX),
	})

	out := Outputs{
		Reg12En:    outputPin(p.Reg12En),
		Reg5En:     outputPin(p.Reg5En),
		LedReg12:   outputPin(p.LedReg12),
		LedReg5:    outputPin(p.LedReg5),
		LedRegPi:   outputPin(p.LedRegPi),
		ChipsetInt: outputPin(p.ChipsetInt),
	}
	b := &Board{
		Out:       out,
		In:        Inputs{Reg12Good: inputPin(p.Reg12Good)},
		ADC:       newADC(cfg.ADC),
		RTC:       NewSoftRTC(nil),
		Sleeper:   &TimerSleeper{},
		Heartbeat: heartbeat.New(outputPin(p.Heartbeat)),
		Fatal:     halt(out),
		Charger:   i2cx.New(bus, i2cx.WithName("i2c"+strconv.Itoa(cb.ID))),
		Host:      host,
		Console:   console,
	}
	b.plat = platform{owner: owner, slave: port}
	return b, nil
}

// Close stops the bus worker.
func (b *Board) Close() {
	if b.plat.owner != nil {
		b.plat.owner.stop()
	}
}

// halt lights every indicator and reports reason forever. Rails keep their
// last level.
func halt(out Outputs) FatalFunc {
	return func(reason string) {
		out.LedReg12.Set(true)
		out.LedReg5.Set(true)
		out.LedRegPi.Set(true)
		for {
			println("[fatal]", reason)
			time.Sleep(time.Second)
		}
	}
}
