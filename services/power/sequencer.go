// Package power runs the board's power sequencer: battery-manager bring-up,
// ordered rail start (12 V, 5 V, host rail), the running telemetry loop that
// serves the host, and standby.
//
// Everything here runs on the main loop. Event-context code reaches the
// sequencer only through OnConversionComplete and Wake, which set flags.
package power

import (
	"context"
	"sync/atomic"
	"time"

	"chipset-go/drivers/bq25792"
	"chipset-go/drivers/i2cx"
	"chipset-go/drivers/max17261"
	"chipset-go/protocol"
	"chipset-go/services/hal"
	"chipset-go/services/telemetry"
	"chipset-go/types"
	"chipset-go/x/mathx"
)

// Converter turns a raw conversion into physical units.
type Converter interface {
	Convert(raw telemetry.Raw) telemetry.Reading
}

// Env is everything the sequencer drives or observes.
type Env struct {
	Out       hal.Outputs
	In        hal.Inputs
	ADC       hal.ADC
	RTC       hal.RTC
	Sleeper   hal.Sleeper
	Heartbeat hal.Heartbeat
	Fatal     hal.FatalFunc
	CRC       protocol.CRCFunc
	Converter Converter

	Charger *bq25792.Device
	Gauge   *max17261.Device // nil when not fitted
	Host    *i2cx.Slave
}

type timing struct {
	railPoll    time.Duration
	adcPoll     time.Duration
	initRetry   time.Duration
	runPeriod   time.Duration
	standbyWake time.Duration
	heartbeat   time.Duration
}

func ms(v uint32) time.Duration { return time.Duration(v) * time.Millisecond }

type Sequencer struct {
	env Env
	cfg types.BoardConfig
	t   timing

	state   State
	started bool

	packet protocol.PacketOut
	wire   [protocol.PacketOutSize]byte
	served [protocol.PacketOutSize]byte // wire with the volatile fields cleared
	cmd    [protocol.MaxFrame]byte

	adcBuf      [telemetry.NumChannels]uint16
	armed       bool
	sampleReady atomic.Bool
	wake        chan struct{}

	shutdownDelay time.Duration
	lastFlags     protocol.StatusFlags

	observers []func(from, to State)
	packetObs []func(protocol.PacketOut)
}

func New(env Env, cfg types.BoardConfig) *Sequencer {
	if env.CRC == nil {
		env.CRC = protocol.CRC32
	}
	if env.Fatal == nil {
		env.Fatal = func(reason string) { panic(reason) }
	}
	s := &Sequencer{
		env:  env,
		cfg:  cfg,
		wake: make(chan struct{}, 1),
		t: timing{
			railPoll:    ms(cfg.Timing.RailPollMs),
			adcPoll:     ms(cfg.Timing.ADCPollMs),
			initRetry:   ms(cfg.Timing.InitRetryMs),
			runPeriod:   ms(cfg.Timing.RunPeriodMs),
			standbyWake: ms(cfg.Timing.StandbyWakeMs),
			heartbeat:   ms(cfg.Timing.HeartbeatPeriodMs),
		},
	}
	if env.Host != nil {
		env.Host.SetNotify(s.Wake)
	}
	return s
}

// OnTransition registers fn to observe every state change.
func (s *Sequencer) OnTransition(fn func(from, to State)) {
	s.observers = append(s.observers, fn)
}

// OnPacket registers fn to receive every packet published to the host.
func (s *Sequencer) OnPacket(fn func(p protocol.PacketOut)) {
	s.packetObs = append(s.packetObs, fn)
}

func (s *Sequencer) State() State { return s.state }

// Packet returns a copy of the current telemetry record.
func (s *Sequencer) Packet() protocol.PacketOut { return s.packet }

// ---------------- Event-context entry points ----------------

// OnConversionComplete records that the ADC buffer is full.
func (s *Sequencer) OnConversionComplete() {
	s.sampleReady.Store(true)
	s.Wake()
}

// Wake ends an interruptible sleep early.
func (s *Sequencer) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// ---------------- Main loop ----------------

// Run brings up the battery managers, retrying forever, then steps the state
// machine until ctx ends. Boot is skipped when it already succeeded.
func (s *Sequencer) Run(ctx context.Context) error {
	if !s.started {
		if err := s.Boot(ctx); err != nil {
			return err
		}
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Step()
	}
}

// Boot runs battery-manager initialisation with the heartbeat lit, retrying at
// the fixed back-off until it succeeds or ctx ends.
func (s *Sequencer) Boot(ctx context.Context) error {
	if err := s.env.Heartbeat.Start(s.t.heartbeat); err != nil {
		println("[power] heartbeat:", err.Error())
	}
	defer s.env.Heartbeat.Stop()
	for attempt := 1; ; attempt++ {
		err := s.initBatteryManagers()
		if err == nil {
			println("[power] battery managers ready after", attempt, "attempt(s)")
			s.started = true
			return nil
		}
		println("[power] battery manager init failed:", err.Error())
		if err := ctx.Err(); err != nil {
			return err
		}
		s.sleep(s.t.initRetry)
	}
}

// Step runs one tick of the current state and, on a transition, the entry
// action of the new one.
func (s *Sequencer) Step() {
	switch s.state {
	case FullReset:
		s.transition(WaitForReg12)
	case WaitForReg12:
		s.tickWaitForReg12()
	case WaitForReg5:
		s.tickWaitForRail(s.cfg.Rails.Reg5MinMicroV, func(r *protocol.PacketOut) uint32 { return r.Reg5MicroV }, s.env.Out.LedReg5, WaitForRegPi)
	case WaitForRegPi:
		s.tickWaitForRail(s.cfg.Rails.RegPiMinMicroV, func(r *protocol.PacketOut) uint32 { return r.RegPiMicroV }, s.env.Out.LedRegPi, Running)
	case Running:
		s.tickRunning()
	case Standby:
		s.transition(WaitForReg12)
	}
}

func (s *Sequencer) transition(to State) {
	from := s.state
	if to == FullReset {
		s.env.Fatal("power: FullReset re-entered from " + from.String())
		return
	}
	if !legal(from, to) {
		s.env.Fatal("power: illegal transition " + from.String() + " -> " + to.String())
		return
	}
	s.state = to
	println("[power]", from.String(), "->", to.String())
	for _, fn := range s.observers {
		fn(from, to)
	}
	switch to {
	case WaitForReg12:
		s.enterWaitForReg12()
	case WaitForReg5:
		s.env.Out.Reg5En.Set(true)
		s.startSample()
	case WaitForRegPi:
		s.startSample()
	case Running:
		s.enterRunning()
	case Standby:
		s.enterStandby()
	}
}

// ---------------- Rails ----------------

func (s *Sequencer) enterWaitForReg12() {
	s.env.Out.ChipsetInt.Set(false)
	s.env.Out.LedReg12.Set(true)
	s.env.Out.LedReg5.Set(true)
	s.env.Out.LedRegPi.Set(true)
	s.env.Out.Reg12En.Set(true)
}

func (s *Sequencer) tickWaitForReg12() {
	if !s.env.In.Reg12Good.Get() {
		s.sleep(s.t.railPoll)
		return
	}
	s.env.Out.LedReg12.Set(false)
	s.transition(WaitForReg5)
}

// tickWaitForRail waits for a conversion and advances once the rail picked
// by rail reaches min µV. Below threshold it re-samples.
func (s *Sequencer) tickWaitForRail(min uint32, rail func(*protocol.PacketOut) uint32, led hal.Pin, to State) {
	if !s.takeSample() {
		s.sleep(s.t.adcPoll)
		return
	}
	if !mathx.AtLeast(rail(&s.packet), min) {
		s.startSample()
		return
	}
	led.Set(false)
	s.transition(to)
}

// ---------------- Sampling ----------------

func (s *Sequencer) startSample() {
	s.sampleReady.Store(false)
	if err := s.env.ADC.StartOneShot(s.adcBuf[:], s.OnConversionComplete); err != nil {
		println("[power] adc start:", err.Error())
		s.armed = false
		return
	}
	s.armed = true
}

// takeSample converts a completed conversion into the packet. It re-arms a
// conversion that failed to start.
func (s *Sequencer) takeSample() bool {
	if !s.sampleReady.Load() {
		if !s.armed {
			s.startSample()
		}
		return false
	}
	s.sampleReady.Store(false)
	s.armed = false
	r := s.env.Converter.Convert(telemetry.Raw(s.adcBuf))
	r.Apply(&s.packet)
	s.packet.Status = s.packet.Status.Union(protocol.AdcValid)
	return true
}

// ---------------- Sleep ----------------

func (s *Sequencer) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	s.env.Sleeper.Sleep(d, nil)
}

func (s *Sequencer) sleepInterruptible(d time.Duration) {
	if d <= 0 {
		return
	}
	s.env.Sleeper.Sleep(d, s.wake)
}
