package heartbeat

import (
	"sync"
	"testing"
	"time"

	"chipset-go/errcode"

	"github.com/stretchr/testify/require"
)

type led struct {
	mu    sync.Mutex
	level bool
	sets  int
}

func (l *led) Set(v bool) {
	l.mu.Lock()
	l.level = v
	l.sets++
	l.mu.Unlock()
}

func (l *led) state() (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level, l.sets
}

func TestBlinkAndStop(t *testing.T) {
	l := &led{}
	s := New(l)
	require.NoError(t, s.Start(2*time.Millisecond))
	require.True(t, s.Running())

	require.Eventually(t, func() bool {
		_, n := l.state()
		return n >= 4
	}, time.Second, time.Millisecond)

	s.Stop()
	require.False(t, s.Running())
	level, n := l.state()
	require.False(t, level, "stop leaves the LED off")

	time.Sleep(5 * time.Millisecond)
	_, after := l.state()
	require.Equal(t, n, after, "no writes after stop")
}

func TestRestartAndIdleStop(t *testing.T) {
	l := &led{}
	s := New(l)
	s.Stop()

	require.NoError(t, s.Start(time.Hour))
	require.NoError(t, s.Start(time.Hour))
	require.Eventually(t, func() bool {
		level, _ := l.state()
		return level
	}, time.Second, time.Millisecond)
	s.Stop()
}

func TestRejectsZeroPeriod(t *testing.T) {
	require.ErrorIs(t, New(&led{}).Start(0), errcode.InvalidParams)
}
