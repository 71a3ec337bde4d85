package hal

import (
	"testing"
	"time"

	"chipset-go/errcode"
	"chipset-go/x/timex"

	"github.com/stretchr/testify/require"
)

func TestSoftRTCInvalidUntilSet(t *testing.T) {
	r := NewSoftRTC(nil)
	require.False(t, r.Valid())
	_, err := r.Calendar()
	require.ErrorIs(t, err, errcode.NotConfigured)
}

func TestSoftRTCAdvancesInWholeSeconds(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewSoftRTC(func() time.Time { return now })

	set := timex.FromUnixMilli(time.Date(2026, 10, 19, 23, 59, 58, 0, time.UTC).UnixMilli() + 750)
	require.NoError(t, r.SetCalendar(set))
	require.True(t, r.Valid())

	now = now.Add(2500 * time.Millisecond)
	c, err := r.Calendar()
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC).UnixMilli(), c.UnixMilli())
}

func TestSoftRTCRejectsOutOfRangeYear(t *testing.T) {
	r := NewSoftRTC(nil)
	require.ErrorIs(t, r.SetCalendar(timex.Calendar{Year: 1999, Month: time.May, Day: 1}), errcode.InvalidParams)
	require.ErrorIs(t, r.SetCalendar(timex.Calendar{Year: 2100, Month: time.May, Day: 1}), errcode.InvalidParams)
	require.False(t, r.Valid())
}
