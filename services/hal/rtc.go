package hal

import (
	"sync"
	"time"

	"chipset-go/errcode"
	"chipset-go/x/timex"
)

// SoftRTC keeps calendar time the way a BCD hardware RTC does: two-digit
// year from 2000, whole seconds, invalid until first set. It advances from a
// monotonic clock between sets.
type SoftRTC struct {
	mu    sync.Mutex
	now   func() time.Time
	valid bool
	setAt time.Time

	// BCD registers as last written.
	year, month, day, hour, min, sec uint8
}

func NewSoftRTC(now func() time.Time) *SoftRTC {
	if now == nil {
		now = time.Now
	}
	return &SoftRTC{now: now}
}

func (r *SoftRTC) SetCalendar(c timex.Calendar) error {
	if c.Year < 2000 || c.Year > 2099 || c.Month < time.January || c.Month > time.December {
		return errcode.InvalidParams
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.year = timex.ToBCD(c.Year - 2000)
	r.month = timex.ToBCD(int(c.Month))
	r.day = timex.ToBCD(c.Day)
	r.hour = timex.ToBCD(c.Hour)
	r.min = timex.ToBCD(c.Minute)
	r.sec = timex.ToBCD(c.Second)
	r.setAt = r.now()
	r.valid = true
	return nil
}

func (r *SoftRTC) Calendar() (timex.Calendar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.valid {
		return timex.Calendar{}, errcode.NotConfigured
	}
	base := timex.Calendar{
		Year:   2000 + timex.FromBCD(r.year),
		Month:  time.Month(timex.FromBCD(r.month)),
		Day:    timex.FromBCD(r.day),
		Hour:   timex.FromBCD(r.hour),
		Minute: timex.FromBCD(r.min),
		Second: timex.FromBCD(r.sec),
	}
	elapsed := r.now().Sub(r.setAt) / time.Second
	return timex.FromUnixMilli(base.UnixMilli() + int64(elapsed)*1000), nil
}

func (r *SoftRTC) Valid() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.valid
}

// Invalidate forgets the time, as after a backup-domain reset.
func (r *SoftRTC) Invalidate() {
	r.mu.Lock()
	r.valid = false
	r.mu.Unlock()
}
