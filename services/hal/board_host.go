//go:build !rp2040

package hal

import (
	"context"
	"os"
	"strconv"
	"time"

	"chipset-go/drivers/i2cx"
	"chipset-go/protocol"
	"chipset-go/services/heartbeat"
	"chipset-go/services/telemetry"
	"chipset-go/types"
	"chipset-go/x/mathx"
)

type platform struct {
	sim *Sim
}

// Sim is the simulated world behind a host board.
type Sim struct {
	Bus       *SimI2C
	Charger   *RegisterFile
	Gauge     *RegisterFile // nil unless the gauge is enabled
	ADC       *SimADC
	HostPort  *SimSlavePort
	Reg12Good *FakePin
	Heartbeat *FakePin
}

// Sim returns the simulation behind b.
func (b *Board) Sim() *Sim { return b.plat.sim }

// Open builds a simulated board: the 12 V rail reports good as soon as it is
// enabled, and the 5 V and host rails read nominal while REG5_EN is high.
func Open(cfg types.BoardConfig) (*Board, error) {
	p := cfg.Pins
	reg12En, reg5En, good := NewFakePin(p.Reg12En), NewFakePin(p.Reg5En), NewFakePin(p.Reg12Good)
	reg12En.OnSet = good.Set

	cal := telemetry.FromConfig(cfg.ADC)
	adc := &SimADC{}
	adc.Source = func() []uint16 {
		raw := make([]uint16, telemetry.NumChannels)
		raw[telemetry.ChBallast] = uint16(mathx.FullScale(cal.ResolutionBits) * 3 / 4)
		raw[telemetry.ChDieTemp] = cal.TemperatureCode(35_000)
		if reg5En.Get() {
			raw[telemetry.ChReg5] = cal.RailCode(5_000_000)
			raw[telemetry.ChRegPi] = cal.RailCode(3_300_000)
		}
		return raw
	}

	bus := NewSimI2C()
	charger := NewRegisterFile(0x49, 1)
	charger.Poke(0x1B, 0x09) // VBUS present, power good
	charger.Poke(0x1C, 3<<5) // fast charge
	charger.Poke(0x48, 1<<3) // part number
	bus.Attach(cfg.Charger.Addr, charger)

	var gauge *RegisterFile
	if cfg.FuelGauge.Enabled {
		gauge = NewRegisterFile(0x50, 2)
		gauge.Poke(0x00, 0x02, 0x00) // POR
		gauge.Poke(0x06, 0x00, 0x50) // 80 %
		gauge.Poke(0x09, 0x00, 0xC3) // 3.9 V
		gauge.Poke(0x21, 0x33, 0x40)
		bus.Attach(cfg.FuelGauge.Addr, gauge)
	}

	port := &SimSlavePort{}
	host := i2cx.NewSlave(port)
	port.Attach(host)

	hb := NewFakePin(p.Heartbeat)
	b := &Board{
		Out: Outputs{
			Reg12En:    reg12En,
			Reg5En:     reg5En,
			LedReg12:   NewFakePin(p.LedReg12),
			LedReg5:    NewFakePin(p.LedReg5),
			LedRegPi:   NewFakePin(p.LedRegPi),
			ChipsetInt: NewFakePin(p.ChipsetInt),
		},
		In:        Inputs{Reg12Good: good},
		ADC:       adc,
		RTC:       NewSoftRTC(nil),
		Sleeper:   &TimerSleeper{},
		Heartbeat: heartbeat.New(hb),
		Fatal:     func(reason string) { panic(reason) },
		Charger:   NewSyncEngine(bus, i2cx.WithName("i2c"+strconv.Itoa(cfg.Charger.Bus.ID))),
		Host:      host,
		Console:   os.Stdout,
	}
	b.plat.sim = &Sim{
		Bus: bus, Charger: charger, Gauge: gauge, ADC: adc,
		HostPort: port, Reg12Good: good, Heartbeat: hb,
	}
	return b, nil
}

// Close is a no-op on the host.
func (b *Board) Close() {}

// RunHost plays the host computer until ctx ends: it sets the board clock
// from now once the link answers, then reads telemetry every period.
func (s *Sim) RunHost(ctx context.Context, period time.Duration, now func() time.Time, onPacket func(protocol.PacketOut)) {
	tick := time.NewTicker(period)
	defer tick.Stop()

	var cmd [protocol.CommandSize]byte
	clockSet := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		if !clockSet {
			st := protocol.SetTime{Timestamp: now()}
			if err := st.Marshal(cmd[:], protocol.CRC32); err == nil {
				clockSet = s.HostPort.HostWrite(cmd[:])
			}
		}
		raw := s.HostPort.HostRead()
		if raw == nil {
			continue
		}
		var p protocol.PacketOut
		if err := p.Deserialize(raw, protocol.CRC32); err != nil {
			println("[sim] host read:", err.Error())
			continue
		}
		if onPacket != nil {
			onPacket(p)
		}
	}
}
