// Command chipset is the power-supply board firmware. It brings up the
// battery managers, sequences the 12 V, 5 V and host rails, then serves
// telemetry to the host over the I²C host link until told to stand by.
package main

import (
	"context"

	"chipset-go/bus"
	"chipset-go/drivers/bq25792"
	"chipset-go/drivers/max17261"
	"chipset-go/protocol"
	"chipset-go/services/config"
	"chipset-go/services/console"
	"chipset-go/services/hal"
	"chipset-go/services/power"
	"chipset-go/services/telemetry"
	"chipset-go/x/timex"
)

func main() {
	ctx := context.Background()
	platformInit()

	cfg, err := config.Load(boardName)
	if err != nil {
		println("[main] config", boardName+":", err.Error())
		return
	}
	b, err := hal.Open(cfg)
	if err != nil {
		println("[main] board:", err.Error())
		return
	}
	defer b.Close()
	println("[main] board", cfg.Name, "open")

	env := power.Env{
		Out:       b.Out,
		In:        b.In,
		ADC:       b.ADC,
		RTC:       b.RTC,
		Sleeper:   b.Sleeper,
		Heartbeat: b.Heartbeat,
		Fatal:     b.Fatal,
		CRC:       protocol.CRC32,
		Converter: telemetry.New(telemetry.FromConfig(cfg.ADC)),
		Charger:   bq25792.New(b.Charger, bq25792.Config{Address: cfg.Charger.Addr}),
		Host:      b.Host,
	}
	if fg := cfg.FuelGauge; fg.Enabled {
		env.Gauge = max17261.New(b.Charger, max17261.Config{Address: fg.Addr, RSense_uOhm: fg.RSense_uOhm})
	}
	seq := power.New(env, cfg)

	events := bus.NewBus(16)
	seq.OnTransition(func(from, to power.State) {
		console.PublishState(events, from.String(), to.String())
	})
	seq.OnPacket(func(p protocol.PacketOut) {
		console.PublishSample(events, telemetry.NewSample(p, timex.NowMs()))
	})
	go func() { _ = console.New(events, b.Console).Run(ctx) }()

	platformStart(ctx, b)

	if err := seq.Run(ctx); err != nil {
		b.Fatal("power: " + err.Error())
	}
}
