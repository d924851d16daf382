package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockStartAndEnd(t *testing.T) {
	a := DefaultAlignment()
	loc := time.Local
	now := time.Date(2026, 2, 11, 9, 30, 0, 0, loc)

	start := a.BlockStart(now)
	assert.Equal(t, time.Date(2026, 2, 11, 4, 0, 0, 0, loc), start)

	end := a.BlockEnd(start)
	assert.Equal(t, time.Date(2026, 2, 12, 4, 0, 0, 0, loc), end)
	assert.Equal(t, end, a.NextBlockStart(start))
}

func TestBlockStartBeforeDayStartHour(t *testing.T) {
	a := DefaultAlignment()
	now := time.Date(2026, 2, 11, 2, 0, 0, 0, time.Local)
	start := a.BlockStart(now)
	assert.Equal(t, time.Date(2026, 2, 10, 4, 0, 0, 0, time.Local), start)
}

func TestSnapTo15Min(t *testing.T) {
	in := time.Date(2026, 2, 11, 4, 7, 30, 0, time.UTC)
	out := SnapTo15Min(in)
	assert.Equal(t, 0, out.Second())
	assert.Equal(t, 0, out.Nanosecond())
	assert.Contains(t, []int{0, 15, 30, 45}, out.Minute())
}

func TestSnapForwardTo15Min(t *testing.T) {
	in := time.Date(2026, 2, 11, 4, 7, 30, 0, time.UTC)
	out := SnapForwardTo15Min(in)
	require.False(t, out.Before(in))
	assert.Equal(t, 15, out.Minute())

	onGrid := time.Date(2026, 2, 11, 4, 30, 0, 0, time.UTC)
	assert.Equal(t, onGrid, SnapForwardTo15Min(onGrid))
}

func TestTicksRoundTrip(t *testing.T) {
	for _, ticks := range []int64{0, 10_000, 123_450_000, 600_000_000} {
		ms := TicksToMs(ticks)
		assert.Equal(t, ticks, MsToTicks(ms))
	}
}
