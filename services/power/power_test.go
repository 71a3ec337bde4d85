package power

import (
	"context"
	"testing"
	"time"

	"chipset-go/drivers/bq25792"
	"chipset-go/drivers/i2cx"
	"chipset-go/protocol"
	"chipset-go/services/config"
	"chipset-go/services/hal"
	"chipset-go/services/telemetry"
	"chipset-go/types"

	"github.com/stretchr/testify/require"
)

// railConv reports whatever rail voltages the test sets.
type railConv struct {
	reg5, regPi []uint32 // consumed front to back; the last value sticks
}

func pop(v *[]uint32) uint32 {
	x := (*v)[0]
	if len(*v) > 1 {
		*v = (*v)[1:]
	}
	return x
}

func (c *railConv) Convert(telemetry.Raw) telemetry.Reading {
	return telemetry.Reading{
		Reg5MicroV:    pop(&c.reg5),
		RegPiMicroV:   pop(&c.regPi),
		TemperatureUK: 303_150_000,
	}
}

type rig struct {
	cfg     types.BoardConfig
	out     hal.Outputs
	good    *hal.FakePin
	adc     *hal.SimADC
	rtc     *hal.SoftRTC
	sleeper *hal.FakeSleeper
	hb      *hal.SimHeartbeat
	bus     *hal.SimI2C
	charger *hal.RegisterFile
	port    *hal.SimSlavePort
	conv    *railConv
	seq     *Sequencer
	fatal   []string
	visited []State
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		cfg:     config.Default(),
		good:    hal.NewFakePin(3),
		adc:     &hal.SimADC{Source: func() []uint16 { return []uint16{2048, 3041, 2000, 1034} }},
		rtc:     hal.NewSoftRTC(nil),
		sleeper: &hal.FakeSleeper{},
		hb:      &hal.SimHeartbeat{},
		bus:     hal.NewSimI2C(),
		charger: hal.NewRegisterFile(0x49, 1),
		port:    &hal.SimSlavePort{},
		conv:    &railConv{reg5: []uint32{5_000_000}, regPi: []uint32{3_300_000}},
	}
	r.out = hal.Outputs{
		Reg12En: hal.NewFakePin(1), Reg5En: hal.NewFakePin(2),
		LedReg12: hal.NewFakePin(4), LedReg5: hal.NewFakePin(5), LedRegPi: hal.NewFakePin(6),
		ChipsetInt: hal.NewFakePin(7),
	}
	r.out.ChipsetInt.Set(true)
	r.bus.Attach(0x6B, r.charger)

	slave := i2cx.NewSlave(r.port)
	r.port.Attach(slave)

	r.seq = New(Env{
		Out:       r.out,
		In:        hal.Inputs{Reg12Good: r.good},
		ADC:       r.adc,
		RTC:       r.rtc,
		Sleeper:   r.sleeper,
		Heartbeat: r.hb,
		Fatal:     func(reason string) { r.fatal = append(r.fatal, reason) },
		Converter: r.conv,
		Charger:   bq25792.New(hal.NewSyncEngine(r.bus), bq25792.Config{}),
		Host:      slave,
	}, r.cfg)
	r.seq.OnTransition(func(_, to State) { r.visited = append(r.visited, to) })
	return r
}

// runUntil steps until the sequencer reaches want or the step budget runs out.
func (r *rig) runUntil(t *testing.T, want State, budget int) {
	t.Helper()
	for i := 0; i < budget && r.seq.State() != want; i++ {
		r.seq.Step()
	}
	require.Equal(t, want, r.seq.State())
}

func (r *rig) bootToRunning(t *testing.T) {
	t.Helper()
	r.good.Set(true)
	require.NoError(t, r.seq.Boot(context.Background()))
	r.runUntil(t, Running, 50)
}

func TestBootConfiguresCharger(t *testing.T) {
	r := newRig(t)
	r.charger.Poke(0x10, 0x05)
	r.charger.Poke(0x14, 0x16)

	require.NoError(t, r.seq.Boot(context.Background()))

	regs := r.charger.Regs
	require.Equal(t, []byte{0x01, 0x2C}, regs[0x03:0x05], "3000 mA")
	require.Equal(t, byte(0x00), regs[0x10]&0x07, "watchdog disabled")
	require.Equal(t, byte(0x01), regs[0x14]&0x01, "discharge OCP on")
	require.Equal(t, byte(0x00), regs[0x14]&0x02, "ILIM_HIZ limit off")
	require.Equal(t, byte(0x01), regs[0x18]&0x01, "TS ignored")

	require.Equal(t, 1, r.hb.Starts())
	require.False(t, r.hb.Running())
	require.False(t, r.out.Reg12En.Get())
	require.False(t, r.out.Reg5En.Get())
}

func TestBootRetriesAfterBusFailure(t *testing.T) {
	r := newRig(t)
	r.bus.FailNext(1)

	require.NoError(t, r.seq.Boot(context.Background()))
	require.Contains(t, r.sleeper.Sleeps, 3*time.Second)
	require.Equal(t, FullReset, r.seq.State())
}

func TestBootStopsWithContext(t *testing.T) {
	r := newRig(t)
	r.bus.Attach(0x6B, nil) // charger never answers
	ctx, cancel := context.WithCancel(context.Background())
	r.sleeper.OnSleep = func(d time.Duration, _ bool) {
		if d == 3*time.Second {
			cancel()
		}
	}
	require.ErrorIs(t, r.seq.Boot(ctx), context.Canceled)
}

func TestStatesVisitedInOrder(t *testing.T) {
	r := newRig(t)
	polls := 0
	r.sleeper.OnSleep = func(d time.Duration, _ bool) {
		if d == time.Millisecond {
			polls++
			if polls == 3 {
				r.good.Set(true)
			}
		}
	}
	r.conv.reg5 = []uint32{1_000_000, 4_000_000, 5_000_000}
	r.conv.regPi = []uint32{0, 0, 0, 3_000_000, 3_300_000}

	require.NoError(t, r.seq.Boot(context.Background()))
	r.runUntil(t, Running, 100)

	require.Equal(t, []State{WaitForReg12, WaitForReg5, WaitForRegPi, Running}, r.visited)
	require.Equal(t, 3, polls)
	require.True(t, r.out.Reg12En.Get())
	require.True(t, r.out.Reg5En.Get())
	require.False(t, r.out.LedReg12.Get())
	require.False(t, r.out.LedReg5.Get())
	require.False(t, r.out.LedRegPi.Get())
	require.False(t, r.out.ChipsetInt.Get())
	require.True(t, r.port.Listening())
}

func TestWaitForReg12LightsIndicators(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.seq.Boot(context.Background()))
	r.seq.Step()
	require.Equal(t, WaitForReg12, r.seq.State())
	require.True(t, r.out.LedReg12.Get())
	require.True(t, r.out.LedReg5.Get())
	require.True(t, r.out.LedRegPi.Get())
	require.True(t, r.out.Reg12En.Get())
	require.False(t, r.out.Reg5En.Get())

	r.seq.Step()
	require.Equal(t, WaitForReg12, r.seq.State(), "rail not good yet")
	require.Equal(t, []time.Duration{time.Millisecond}, r.sleeper.Sleeps)
}

func TestReg5ThresholdBoundary(t *testing.T) {
	for _, tc := range []struct {
		uV   uint32
		want State
	}{
		{4_900_000, WaitForRegPi},
		{4_899_999, WaitForReg5},
	} {
		r := newRig(t)
		r.good.Set(true)
		r.conv.reg5 = []uint32{tc.uV}
		require.NoError(t, r.seq.Boot(context.Background()))
		r.runUntil(t, WaitForReg5, 5)

		starts := r.adc.Starts()
		r.seq.Step()
		require.Equal(t, tc.want, r.seq.State(), "%d µV", tc.uV)
		require.Equal(t, starts+1, r.adc.Starts(), "pass or fail, a new conversion is started")
	}
}

func TestRegPiThresholdBoundary(t *testing.T) {
	for _, tc := range []struct {
		uV   uint32
		want State
	}{
		{3_200_000, Running},
		{3_199_999, WaitForRegPi},
	} {
		r := newRig(t)
		r.good.Set(true)
		r.conv.regPi = []uint32{tc.uV}
		require.NoError(t, r.seq.Boot(context.Background()))
		r.runUntil(t, WaitForRegPi, 5)
		r.seq.Step()
		require.Equal(t, tc.want, r.seq.State(), "%d µV", tc.uV)
	}
}

func TestWaitForReg5SleepsUntilSampleCompletes(t *testing.T) {
	r := newRig(t)
	r.good.Set(true)
	r.adc.Hold = true
	require.NoError(t, r.seq.Boot(context.Background()))
	r.runUntil(t, WaitForReg5, 5)

	r.seq.Step()
	require.Equal(t, WaitForReg5, r.seq.State())
	require.Equal(t, 10*time.Millisecond, r.sleeper.Sleeps[len(r.sleeper.Sleeps)-1])

	require.True(t, r.adc.Complete())
	r.seq.Step()
	require.Equal(t, WaitForRegPi, r.seq.State())
}

func readPacket(t *testing.T, r *rig) protocol.PacketOut {
	t.Helper()
	raw := r.port.HostRead()
	var p protocol.PacketOut
	require.NoError(t, p.Deserialize(raw, protocol.CRC32))
	return p
}

func TestRunningServesTelemetry(t *testing.T) {
	r := newRig(t)
	r.charger.Poke(0x1B, 0x01) // VBUS present
	r.charger.Poke(0x1C, 3<<5) // fast charge
	r.bootToRunning(t)
	r.seq.Step()

	p := readPacket(t, r)
	require.Equal(t, uint32(5_000_000), p.Reg5MicroV)
	require.Equal(t, uint32(303_150_000), p.TemperatureUK)
	require.True(t, p.Status.Has(protocol.AdcValid|protocol.BatteryManagerValid|protocol.VbusConnected|protocol.ChargingInProgress))
	require.Zero(t, p.TimestampMillis, "clock never set")

	// Served fields are cleared before the next snapshot is built.
	r.charger.Poke(0x1C, 7<<5) // terminated
	r.seq.Step()
	p = readPacket(t, r)
	require.True(t, p.Status.Has(protocol.BatteryManagerValid))
	require.False(t, p.Status.Has(protocol.ChargingInProgress))

	require.Contains(t, r.sleeper.Sleeps, 100*time.Millisecond)
}

func TestServedFieldsClearedBeforeNextTick(t *testing.T) {
	r := newRig(t)
	r.bootToRunning(t)

	at := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	buf := make([]byte, protocol.CommandSize)
	require.NoError(t, (&protocol.SetTime{Timestamp: at}).Marshal(buf, protocol.CRC32))
	require.True(t, r.port.HostWrite(buf))
	r.seq.Step()

	first := readPacket(t, r)
	require.NotZero(t, first.TimestampMillis)
	require.True(t, first.Status.Has(protocol.AdcValid|protocol.BatteryManagerValid))

	// No tick in between: the host must not see the same stamp twice.
	second := readPacket(t, r)
	require.Zero(t, second.TimestampMillis)
	require.Zero(t, second.Status)
	require.Equal(t, first.Reg5MicroV, second.Reg5MicroV)
}

func TestChargerReadFailureClearsValidFlag(t *testing.T) {
	r := newRig(t)
	r.bootToRunning(t)
	r.seq.Step()
	_ = r.port.HostRead()

	r.bus.FailNext(1)
	r.seq.Step()
	p := readPacket(t, r)
	require.False(t, p.Status.Has(protocol.BatteryManagerValid))
	require.Equal(t, Running, r.seq.State())
}

func TestSetTimeStampsPackets(t *testing.T) {
	r := newRig(t)
	r.bootToRunning(t)

	at := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	buf := make([]byte, protocol.CommandSize)
	require.NoError(t, (&protocol.SetTime{Timestamp: at}).Marshal(buf, protocol.CRC32))
	require.True(t, r.port.HostWrite(buf))

	r.seq.Step()
	require.True(t, r.rtc.Valid())
	p := readPacket(t, r)
	require.GreaterOrEqual(t, p.TimestampMillis, uint64(at.UnixMilli()))
	require.Less(t, p.TimestampMillis, uint64(at.Add(time.Minute).UnixMilli()))
}

func TestShutdownEntersStandbyThenResequences(t *testing.T) {
	r := newRig(t)
	r.bootToRunning(t)
	r.sleeper.Sleeps = nil

	buf := make([]byte, protocol.CommandSize)
	require.NoError(t, (&protocol.Shutdown{Delay: 5000 * time.Millisecond}).Marshal(buf, protocol.CRC32))
	require.True(t, r.port.HostWrite(buf))

	r.seq.Step()
	require.Equal(t, Standby, r.seq.State())
	require.Equal(t, []time.Duration{5 * time.Second}, r.sleeper.Sleeps, "grace period with rails on")
	require.Equal(t, []time.Duration{5 * time.Second}, r.sleeper.Standbys)
	require.False(t, r.out.Reg12En.Get())
	require.False(t, r.out.Reg5En.Get())
	require.False(t, r.port.Listening())
	require.False(t, r.hb.Running())
	require.Equal(t, 2, r.hb.Starts(), "heartbeat blinks through standby")

	r.seq.Step()
	require.Equal(t, WaitForReg12, r.seq.State())
	require.True(t, r.out.Reg12En.Get())
	require.Equal(t, []State{WaitForReg12, WaitForReg5, WaitForRegPi, Running, Standby, WaitForReg12}, r.visited)
	require.Empty(t, r.fatal)
}

func TestCorruptCommandIsDropped(t *testing.T) {
	r := newRig(t)
	r.bootToRunning(t)

	buf := make([]byte, protocol.CommandSize)
	require.NoError(t, (&protocol.Shutdown{Delay: time.Second}).Marshal(buf, protocol.CRC32))
	buf[len(buf)-1] ^= 0x10
	require.True(t, r.port.HostWrite(buf))
	r.seq.Step()
	require.Equal(t, Running, r.seq.State())

	require.True(t, r.port.HostWrite([]byte{0x7F, 1, 2, 3}))
	r.seq.Step()
	require.Equal(t, Running, r.seq.State())
}

func TestHostIgnoredOutsideRunning(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.seq.Boot(context.Background()))
	r.seq.Step()
	require.False(t, r.port.HostWrite([]byte{0x02}))
	require.Nil(t, r.port.HostRead())
}

func TestFullResetReentryIsFatal(t *testing.T) {
	r := newRig(t)
	r.bootToRunning(t)

	r.seq.transition(FullReset)
	require.Len(t, r.fatal, 1)
	require.Equal(t, Running, r.seq.State())

	r.seq.transition(WaitForReg5)
	require.Len(t, r.fatal, 2, "edges outside the sequence are defects too")
}

func TestRunReturnsOnCancel(t *testing.T) {
	r := newRig(t)
	r.good.Set(true)
	ctx, cancel := context.WithCancel(context.Background())
	r.seq.OnTransition(func(_, to State) {
		if to == Running {
			cancel()
		}
	})
	require.ErrorIs(t, r.seq.Run(ctx), context.Canceled)
	require.Equal(t, Running, r.seq.State())
}

func TestRunSkipsBootWhenAlreadyBooted(t *testing.T) {
	r := newRig(t)
	r.good.Set(true)
	require.NoError(t, r.seq.Boot(context.Background()))
	require.Equal(t, 1, r.hb.Starts())

	ctx, cancel := context.WithCancel(context.Background())
	r.seq.OnTransition(func(_, to State) {
		if to == Running {
			cancel()
		}
	})
	require.ErrorIs(t, r.seq.Run(ctx), context.Canceled)
	require.Equal(t, 1, r.hb.Starts(), "no second init")
}

func TestPacketObserverSeesPublishedPackets(t *testing.T) {
	r := newRig(t)
	var got []protocol.PacketOut
	r.seq.OnPacket(func(p protocol.PacketOut) { got = append(got, p) })
	r.bootToRunning(t)
	r.seq.Step()

	require.Len(t, got, 2, "entry publish and one tick")
	require.Equal(t, r.seq.Packet(), got[1])
	require.True(t, got[1].Status.Has(protocol.BatteryManagerValid))
}
