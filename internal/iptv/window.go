package iptv

import (
	"context"
	"time"

	"github.com/cablecast/cablecast/internal/clock"
	"github.com/cablecast/cablecast/internal/model"
)

// Store is the persistence surface iptv needs to gather programs for an
// EPG window.
type Store interface {
	GetScheduleBlock(ctx context.Context, channelID int, blockStart time.Time) (model.ScheduleBlock, error)
}

// ProgramsInWindow walks every block covering [now, now+hours) for
// channelID and returns the programs overlapping that window, in order.
// Missing blocks (not yet generated) are skipped rather than treated as
// an error, since the EPG endpoint tolerates gaps at the horizon.
func ProgramsInWindow(ctx context.Context, store Store, alignment clock.Alignment, channelID int, now time.Time, hours int) ([]model.ScheduleProgram, error) {
	windowEnd := now.Add(time.Duration(hours) * time.Hour)

	var out []model.ScheduleProgram
	blockStart := alignment.BlockStart(now)
	for blockStart.Before(windowEnd) {
		block, err := store.GetScheduleBlock(ctx, channelID, blockStart)
		if err == nil {
			for _, p := range block.Programs {
				if p.EndTime.After(now) && p.StartTime.Before(windowEnd) {
					out = append(out, p)
				}
			}
		}
		blockStart = alignment.NextBlockStart(blockStart)
	}
	return out, nil
}
