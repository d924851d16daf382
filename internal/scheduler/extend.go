package scheduler

import (
	"context"
	"time"

	"github.com/cablecast/cablecast/internal/cablecasterr"
	"github.com/cablecast/cablecast/internal/clock"
	"github.com/cablecast/cablecast/internal/library"
	"github.com/cablecast/cablecast/internal/model"
)

// Store is the subset of internal/store.Store the scheduler needs. Kept as
// a local interface so this package stays decoupled from the concrete
// persistence layer (and is trivially fakeable in tests).
type Store interface {
	ListChannels(ctx context.Context) ([]model.Channel, error)
	GetScheduleBlock(ctx context.Context, channelID int, blockStart time.Time) (model.ScheduleBlock, error)
	ListChannelBlocks(ctx context.Context, channelID int) ([]model.ScheduleBlock, error)
	ItemsScheduledSince(ctx context.Context, channelID int, since time.Time) (map[string]struct{}, error)
	AllBlocksSince(ctx context.Context, since time.Time) ([]model.ScheduleBlock, error)
	UpsertScheduleBlock(ctx context.Context, b model.ScheduleBlock) error
	CleanOldScheduleBlocks(ctx context.Context, cutoff time.Time) (int64, error)
}

// RatingFilter carries the global settings needed to drop unrated items
// when the deny-list-disguised-as-allow filter is active (spec.md §4.5/§9).
type RatingFilter struct {
	Active bool
}

func applyRatingFilter(items []model.LibraryItem, rf RatingFilter) []model.LibraryItem {
	if !rf.Active {
		return items
	}
	out := make([]model.LibraryItem, 0, len(items))
	for _, it := range items {
		if it.Rating == "" || it.Rating == "Not Rated" {
			continue
		}
		out = append(out, it)
	}
	return out
}

// ExtendSchedules ensures every channel has enough blocks (each
// alignment.BlockHours long) to cover a fixed 24h forward from blockStart(now),
// sharing one GlobalTracker snapshot across the whole pass (spec.md §4.5).
// Channels are processed in channel.Number order, and blocks within a
// channel in increasing block_start order, per spec.md §5's ordering
// guarantee.
func ExtendSchedules(ctx context.Context, st Store, idx *library.Index, alignment clock.Alignment, channels []model.Channel, now time.Time, rf RatingFilter) error {
	windowStart := alignment.BlockStart(now)
	horizon := windowStart.Add(24 * time.Hour)

	snapshot, err := st.AllBlocksSince(ctx, windowStart)
	if err != nil {
		return err
	}
	tracker := LoadSnapshot(snapshot)

	for _, ch := range channels {
		blocks, err := st.ListChannelBlocks(ctx, ch.Number)
		if err != nil {
			return err
		}

		next := windowStart
		if latest, ok := latestBlockStart(blocks); ok {
			next = alignment.NextBlockStart(latest)
		}

		for !next.After(horizon) {
			if err := generateAndStore(ctx, st, idx, alignment, ch, next, tracker, rf); err != nil {
				return err
			}
			next = alignment.NextBlockStart(next)
		}
	}

	return nil
}

func latestBlockStart(blocks []model.ScheduleBlock) (time.Time, bool) {
	if len(blocks) == 0 {
		return time.Time{}, false
	}
	latest := blocks[0].BlockStart
	for _, b := range blocks[1:] {
		if b.BlockStart.After(latest) {
			latest = b.BlockStart
		}
	}
	return latest, true
}

// MaintainSchedules runs the 15-minute upkeep pass: ensure current + next
// blocks exist, and eagerly generate the block-after-next when within 1h of
// the current block's end (spec.md §4.5).
func MaintainSchedules(ctx context.Context, st Store, idx *library.Index, alignment clock.Alignment, channels []model.Channel, now time.Time, rf RatingFilter) error {
	current := alignment.BlockStart(now)
	tracker := NewGlobalTracker()

	for _, ch := range channels {
		if err := ensureBlock(ctx, st, idx, alignment, ch, current, tracker, rf); err != nil {
			return err
		}
		nextStart := alignment.NextBlockStart(current)
		if err := ensureBlock(ctx, st, idx, alignment, ch, nextStart, tracker, rf); err != nil {
			return err
		}

		if alignment.BlockEnd(current).Sub(now) <= time.Hour {
			afterNext := alignment.NextBlockStart(nextStart)
			if err := ensureBlock(ctx, st, idx, alignment, ch, afterNext, tracker, rf); err != nil {
				return err
			}
		}
	}
	return nil
}

// CleanOldScheduleBlocks deletes blocks older than 24h before now, as the
// final step of each extension pass.
func CleanOldScheduleBlocks(ctx context.Context, st Store, now time.Time) (int64, error) {
	return st.CleanOldScheduleBlocks(ctx, now.Add(-24*time.Hour))
}

func ensureBlock(ctx context.Context, st Store, idx *library.Index, alignment clock.Alignment, ch model.Channel, blockStart time.Time, tracker *GlobalTracker, rf RatingFilter) error {
	_, err := st.GetScheduleBlock(ctx, ch.Number, blockStart)
	switch {
	case err == nil:
		return nil
	case cablecasterr.KindOf(err) == cablecasterr.KindNotFound:
		return generateAndStore(ctx, st, idx, alignment, ch, blockStart, tracker, rf)
	default:
		return err
	}
}

func generateAndStore(ctx context.Context, st Store, idx *library.Index, alignment clock.Alignment, ch model.Channel, blockStart time.Time, tracker *GlobalTracker, rf RatingFilter) error {
	items := applyRatingFilter(idx.Resolve(ch.ItemIDs), rf)
	_, _, isMovieOnly := classify(items)

	since := blockStart.Add(-time.Duration(CooldownWindow(isMovieOnly)) * time.Millisecond)
	cooldown, err := st.ItemsScheduledSince(ctx, ch.Number, since)
	if err != nil {
		return err
	}

	block := GenerateBlock(Input{
		Channel:    ch,
		BlockStart: blockStart,
		Alignment:  alignment,
		Items:      items,
		Cooldown:   cooldown,
		Tracker:    tracker,
	})
	return st.UpsertScheduleBlock(ctx, block)
}
