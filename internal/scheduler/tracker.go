package scheduler

import (
	"sync"

	"github.com/cablecast/cablecast/internal/model"
)

type interval struct {
	startMs, endMs int64
}

// GlobalTracker maps item id to the intervals it occupies across every
// channel in one generation pass, used to prevent the same real item from
// airing at overlapping times on two channels (spec.md §4.5).
type GlobalTracker struct {
	mu        sync.Mutex
	intervals map[string][]interval
}

// NewGlobalTracker returns an empty tracker.
func NewGlobalTracker() *GlobalTracker {
	return &GlobalTracker{intervals: make(map[string][]interval)}
}

// LoadSnapshot seeds the tracker from persisted blocks spanning the
// generation window — built once before a pass, per spec.md §5.
func LoadSnapshot(blocks []model.ScheduleBlock) *GlobalTracker {
	t := NewGlobalTracker()
	for _, b := range blocks {
		for _, p := range b.Programs {
			if p.Kind != model.ProgramReal || p.ItemID == "" {
				continue
			}
			t.Book(p.ItemID, p.StartTime.UnixMilli(), p.EndTime.UnixMilli())
		}
	}
	return t
}

// Conflicts reports whether [startMs, endMs) overlaps any interval already
// booked for itemID.
func (t *GlobalTracker) Conflicts(itemID string, startMs, endMs int64) bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, iv := range t.intervals[itemID] {
		if startMs < iv.endMs && endMs > iv.startMs {
			return true
		}
	}
	return false
}

// Book records [startMs, endMs) as occupied by itemID.
func (t *GlobalTracker) Book(itemID string, startMs, endMs int64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.intervals[itemID] = append(t.intervals[itemID], interval{startMs: startMs, endMs: endMs})
}
