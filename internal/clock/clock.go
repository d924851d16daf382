// Package clock maps wall-clock time to schedule block boundaries. Every
// function here is pure and must be bit-identical across implementations;
// callers pin exact millisecond expectations in tests.
package clock

import "time"

// Alignment holds the two config values that parameterize block boundaries.
type Alignment struct {
	// DayStartHour is the local-time hour (0-23) a block day begins on.
	DayStartHour int
	// BlockHours is the length of one schedule block, default 24.
	BlockHours int
}

// DefaultAlignment matches spec.md §4.1 defaults.
func DefaultAlignment() Alignment {
	return Alignment{DayStartHour: 4, BlockHours: 24}
}

// BlockStart returns the largest instant <= t whose local-time hour equals
// DayStartHour and whose minute/second/ns are zero.
func (a Alignment) BlockStart(t time.Time) time.Time {
	t = t.Local()
	candidate := time.Date(t.Year(), t.Month(), t.Day(), a.DayStartHour, 0, 0, 0, t.Location())
	if candidate.After(t) {
		candidate = candidate.AddDate(0, 0, -1)
	}
	return candidate
}

// BlockEnd returns s + BlockHours.
func (a Alignment) BlockEnd(s time.Time) time.Time {
	return s.Add(time.Duration(a.BlockHours) * time.Hour)
}

// NextBlockStart is an alias for BlockEnd: blocks tile back-to-back.
func (a Alignment) NextBlockStart(s time.Time) time.Time {
	return a.BlockEnd(s)
}

// SnapTo15Min rounds t to the nearest quarter hour, with seconds/ns zeroed.
func SnapTo15Min(t time.Time) time.Time {
	t = t.Truncate(time.Second)
	base := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	offset := t.Sub(base)
	quarter := 15 * time.Minute
	rounded := (offset + quarter/2) / quarter * quarter
	return base.Add(rounded)
}

// SnapForwardTo15Min rounds t up to the next quarter hour (or t itself if
// it already lands on one).
func SnapForwardTo15Min(t time.Time) time.Time {
	base := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	offset := t.Sub(base)
	quarter := 15 * time.Minute
	rem := offset % quarter
	if rem == 0 {
		return base.Add(offset)
	}
	return base.Add(offset - rem + quarter)
}

// TicksPerMs is the Upstream 100-ns tick count per millisecond.
const TicksPerMs = 10_000

// TicksToMs converts Upstream 100-ns ticks to milliseconds, rounding to
// nearest.
func TicksToMs(ticks int64) int64 {
	if ticks < 0 {
		return 0
	}
	return (ticks + TicksPerMs/2) / TicksPerMs
}

// MsToTicks converts milliseconds to Upstream 100-ns ticks.
func MsToTicks(ms int64) int64 {
	return ms * TicksPerMs
}
