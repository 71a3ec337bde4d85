package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// PeriodFromHz returns a nanosecond period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}

// Calendar is the broken-down UTC form a hardware RTC keeps.
// Year is the full year; RTCs that only hold two digits store Year-2000.
type Calendar struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// FromUnixMilli converts a millisecond timestamp to calendar form.
// Sub-second precision is dropped; the RTC counts whole seconds.
func FromUnixMilli(ms int64) Calendar {
	t := time.UnixMilli(ms).UTC()
	return Calendar{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// UnixMilli returns the calendar as Unix milliseconds (whole seconds ×1000).
func (c Calendar) UnixMilli() int64 {
	return time.Date(c.Year, c.Month, c.Day, c.Hour, c.Minute, c.Second, 0, time.UTC).Unix() * 1000
}

// ToBCD packs 0..99 into two BCD digits.
func ToBCD(v int) uint8 {
	if v < 0 {
		v = 0
	}
	v %= 100
	return uint8(v/10)<<4 | uint8(v%10)
}

// FromBCD unpacks two BCD digits.
func FromBCD(b uint8) int { return int(b>>4)*10 + int(b&0x0F) }
