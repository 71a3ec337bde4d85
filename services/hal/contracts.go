// Package hal holds the narrow environment contracts the firmware core runs
// against, a host simulation of each, and the rp2040 platform.
//
// Completion callbacks passed into this package may be invoked from interrupt
// or goroutine context. They must only set flags or hand bytes over.
package hal

import (
	"time"

	"chipset-go/x/timex"
)

// Pin is a digital line. Inputs ignore Set.
type Pin interface {
	Get() bool
	Set(level bool)
}

// ADC runs one-shot conversions of every configured channel into buf and
// calls done once the buffer is complete.
type ADC interface {
	StartOneShot(buf []uint16, done func()) error
	Stop()
}

// RTC is the board's calendar clock (UTC).
type RTC interface {
	Calendar() (timex.Calendar, error)
	SetCalendar(c timex.Calendar) error
	// Valid reports whether the clock has been set since power-up.
	Valid() bool
}

// Sleeper is the low-power wait primitive.
type Sleeper interface {
	// Sleep suspends for d. A non-nil wake channel makes the sleep
	// interruptible by any peripheral event signalled on it.
	Sleep(d time.Duration, wake <-chan struct{})
	// Standby enters deep sleep for d with peripherals stopped, and
	// re-initialises clocks and buses before returning.
	Standby(d time.Duration)
}

// Heartbeat is the visible liveness output.
type Heartbeat interface {
	Start(period time.Duration) error
	Stop()
}

// FatalFunc halts normal operation on a logic defect.
type FatalFunc func(reason string)

// Outputs groups the rail and indicator lines driven by the sequencer.
type Outputs struct {
	Reg12En    Pin
	Reg5En     Pin
	LedReg12   Pin
	LedReg5    Pin
	LedRegPi   Pin
	ChipsetInt Pin // host interrupt, active low
}

// Inputs groups the lines the sequencer polls.
type Inputs struct {
	Reg12Good Pin
}

// NopPin stands in for lines that are not fitted.
type NopPin struct{}

func (NopPin) Get() bool { return false }
func (NopPin) Set(bool)  {}
