// cmd/boardtest/main.go
//
// Bench test for the power-supply board. It cycles the rails up and down by
// hand, outside the power sequencer, checks that each rail measures good and
// that the charger answers, then flashes pass/fail on the rail LEDs.
package main

import (
	"fmt"
	"io"
	"time"

	"chipset-go/drivers/bq25792"
	"chipset-go/services/config"
	"chipset-go/services/hal"
	"chipset-go/services/telemetry"
	"chipset-go/types"
)

// ---------- Configuration ----------

const (
	stepDelayUp   = 300 * time.Millisecond
	stepDelayDown = 300 * time.Millisecond
	dwellUp       = 2 * time.Second
	dwellDown     = 2 * time.Second
	adcTimeout    = 100 * time.Millisecond

	// Cycles: 0 = loop forever
	cyclesToRun = 0
)

var boardName = "pico"

// ---------- Output ----------

type out struct{ w io.Writer }

func (o *out) println(a ...any) {
	line := fmt.Sprintln(a...)
	print(line)
	if o.w != nil {
		_, _ = io.WriteString(o.w, line)
	}
}

// ---------- Test rig ----------

type rig struct {
	b       *hal.Board
	cfg     types.BoardConfig
	charger *bq25792.Device
	conv    *telemetry.Sampler
	o       *out
	sleep   func(time.Duration)
}

// measure runs one conversion and returns it in physical units.
func (r *rig) measure() (telemetry.Reading, bool) {
	var buf [telemetry.NumChannels]uint16
	done := make(chan struct{}, 1)
	if err := r.b.ADC.StartOneShot(buf[:], func() { done <- struct{}{} }); err != nil {
		r.o.println("adc start:", err.Error())
		return telemetry.Reading{}, false
	}
	select {
	case <-done:
	case <-time.After(adcTimeout):
		r.b.ADC.Stop()
		return telemetry.Reading{}, false
	}
	return r.conv.Convert(telemetry.Raw(buf)), true
}

// cycle brings the rails up in order, checks them, and takes them down
// again. It returns the names of the checks that failed.
func (r *rig) cycle() []string {
	var miss []string
	out, rails := r.b.Out, r.cfg.Rails

	out.Reg12En.Set(true)
	r.o.println("rail up: reg12")
	r.sleep(stepDelayUp)
	if !r.b.In.Reg12Good.Get() {
		miss = append(miss, "reg12")
	}

	out.Reg5En.Set(true)
	r.o.println("rail up: reg5")
	r.sleep(stepDelayUp)
	m, ok := r.measure()
	switch {
	case !ok:
		miss = append(miss, "adc")
	default:
		r.o.println("reg5", m.Reg5MicroV, "uV regpi", m.RegPiMicroV, "uV")
		if m.Reg5MicroV < rails.Reg5MinMicroV {
			miss = append(miss, "reg5")
		}
		if m.RegPiMicroV < rails.RegPiMinMicroV {
			miss = append(miss, "regpi")
		}
	}
	r.sleep(dwellUp)

	if err := r.charger.ReadAndWait(r.sleep); err != nil {
		r.o.println("charger:", err.Error())
		miss = append(miss, "charger")
	} else {
		r.o.println("charger", r.charger.ChargeStatus().String(), "vbus", r.charger.VbusPresent())
	}

	out.Reg5En.Set(false)
	r.o.println("rail down: reg5")
	r.sleep(stepDelayDown)
	out.Reg12En.Set(false)
	r.o.println("rail down: reg12")
	r.sleep(dwellDown)
	return miss
}

func (r *rig) flashPassFail(pass bool) {
	leds := []hal.Pin{r.b.Out.LedReg12, r.b.Out.LedReg5, r.b.Out.LedRegPi}
	set := func(on bool) {
		for _, l := range leds {
			l.Set(on)
		}
	}
	if pass {
		// Double short
		for i := 0; i < 2; i++ {
			set(true)
			r.sleep(120 * time.Millisecond)
			set(false)
			r.sleep(200 * time.Millisecond)
		}
		return
	}
	// Single long
	set(true)
	r.sleep(400 * time.Millisecond)
	set(false)
	r.sleep(200 * time.Millisecond)
}

// ---------- Main ----------

func main() {
	cfg, err := config.Load(boardName)
	if err != nil {
		println("[boardtest] config:", err.Error())
		return
	}
	b, err := hal.Open(cfg)
	if err != nil {
		println("[boardtest] board:", err.Error())
		return
	}
	defer b.Close()

	r := &rig{
		b:       b,
		cfg:     cfg,
		charger: bq25792.New(b.Charger, bq25792.Config{Address: cfg.Charger.Addr}),
		conv:    telemetry.New(telemetry.FromConfig(cfg.ADC)),
		o:       &out{w: b.Console},
		sleep:   time.Sleep,
	}

	for cycle := 1; ; cycle++ {
		r.o.println("=== boardtest: cycle", cycle, "===")
		miss := r.cycle()
		pass := len(miss) == 0
		if pass {
			r.o.println("[PASS] rails good; charger answering")
		} else {
			r.o.println("[FAIL] missing or out of range:", fmt.Sprintf("%v", miss))
		}
		r.flashPassFail(pass)

		if cyclesToRun > 0 && cycle >= cyclesToRun {
			r.o.println("completed", cycle, "cycles; halting")
			return
		}
	}
}
