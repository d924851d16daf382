// Package tuner answers "what's on now" for a channel, the read path behind
// both the player UI and the HLS proxy's seek calculation (spec.md §4.6).
package tuner

import (
	"context"
	"strconv"
	"time"

	"github.com/cablecast/cablecast/internal/cablecasterr"
	"github.com/cablecast/cablecast/internal/clock"
	"github.com/cablecast/cablecast/internal/metrics"
	"github.com/cablecast/cablecast/internal/model"
)

// Store is the subset of internal/store.Store the resolver needs.
type Store interface {
	GetScheduleBlock(ctx context.Context, channelID int, blockStart time.Time) (model.ScheduleBlock, error)
}

// Current is the answer to "what's playing on this channel right now".
type Current struct {
	Program model.ScheduleProgram
	Next    *model.ScheduleProgram
	SeekMs  int64
}

// Resolver looks up the current/next program for a channel at a given time.
type Resolver struct {
	store     Store
	alignment clock.Alignment
}

func NewResolver(store Store, alignment clock.Alignment) *Resolver {
	return &Resolver{store: store, alignment: alignment}
}

// GetCurrentProgram reads the block covering now (and the following block,
// for the edge case where the matching program sits at the very end of the
// current block), flattens their programs, and finds the one whose
// [start_time, end_time) contains now. Returns KindNotFound if nothing
// covers now (spec.md §4.6).
func (r *Resolver) GetCurrentProgram(ctx context.Context, channelID int, now time.Time) (Current, error) {
	metrics.TunesTotal.WithLabelValues(strconv.Itoa(channelID)).Inc()

	blockStart := r.alignment.BlockStart(now)
	block, err := r.store.GetScheduleBlock(ctx, channelID, blockStart)
	if err != nil {
		return Current{}, err
	}

	programs := block.Programs
	if len(programs) > 0 {
		nextBlockStart := r.alignment.NextBlockStart(blockStart)
		if nextBlock, err := r.store.GetScheduleBlock(ctx, channelID, nextBlockStart); err == nil {
			programs = append(append([]model.ScheduleProgram{}, programs...), nextBlock.Programs...)
		} else if cablecasterr.KindOf(err) != cablecasterr.KindNotFound {
			return Current{}, err
		}
	}

	for i, p := range programs {
		if !now.Before(p.StartTime) && now.Before(p.EndTime) {
			cur := Current{
				Program: p,
				SeekMs:  now.Sub(p.StartTime).Milliseconds(),
			}
			if i+1 < len(programs) {
				next := programs[i+1]
				cur.Next = &next
			}
			return cur, nil
		}
	}

	return Current{}, cablecasterr.New(cablecasterr.KindNotFound, "no program airing at the requested time")
}
