package tuner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cablecast/cablecast/internal/cablecasterr"
	"github.com/cablecast/cablecast/internal/clock"
	"github.com/cablecast/cablecast/internal/model"
)

type fakeStore struct {
	blocks map[time.Time]model.ScheduleBlock
}

func (f *fakeStore) GetScheduleBlock(_ context.Context, _ int, blockStart time.Time) (model.ScheduleBlock, error) {
	b, ok := f.blocks[blockStart]
	if !ok {
		return model.ScheduleBlock{}, cablecasterr.New(cablecasterr.KindNotFound, "schedule block not found")
	}
	return b, nil
}

func TestGetCurrentProgramFindsCoveringProgram(t *testing.T) {
	alignment := clock.DefaultAlignment()
	blockStart := time.Date(2026, 2, 11, 4, 0, 0, 0, time.UTC)

	p1 := model.ScheduleProgram{
		Kind: model.ProgramReal, ItemID: "m1", Title: "Movie One",
		StartTime: blockStart, EndTime: blockStart.Add(2 * time.Hour), DurationMs: 2 * 3_600_000,
	}
	p2 := model.ScheduleProgram{
		Kind: model.ProgramReal, ItemID: "m2", Title: "Movie Two",
		StartTime: p1.EndTime, EndTime: p1.EndTime.Add(time.Hour), DurationMs: 3_600_000,
	}
	block := model.ScheduleBlock{ChannelID: 1, BlockStart: blockStart, BlockEnd: alignment.BlockEnd(blockStart), Programs: []model.ScheduleProgram{p1, p2}}

	store := &fakeStore{blocks: map[time.Time]model.ScheduleBlock{blockStart: block}}
	r := NewResolver(store, alignment)

	now := blockStart.Add(90 * time.Minute)
	cur, err := r.GetCurrentProgram(context.Background(), 1, now)
	require.NoError(t, err)
	assert.Equal(t, "m1", cur.Program.ItemID)
	assert.Equal(t, int64(90*60*1000), cur.SeekMs)
	require.NotNil(t, cur.Next)
	assert.Equal(t, "m2", cur.Next.ItemID)
}

func TestGetCurrentProgramNoneAiringReturnsNotFound(t *testing.T) {
	alignment := clock.DefaultAlignment()
	blockStart := time.Date(2026, 2, 11, 4, 0, 0, 0, time.UTC)
	store := &fakeStore{blocks: map[time.Time]model.ScheduleBlock{blockStart: {ChannelID: 1, BlockStart: blockStart, BlockEnd: alignment.BlockEnd(blockStart)}}}
	r := NewResolver(store, alignment)

	_, err := r.GetCurrentProgram(context.Background(), 1, blockStart.Add(time.Hour))
	require.Error(t, err)
	assert.Equal(t, cablecasterr.KindNotFound, cablecasterr.KindOf(err))
}

func TestGetCurrentProgramNextFromFollowingBlock(t *testing.T) {
	alignment := clock.DefaultAlignment()
	blockStart := time.Date(2026, 2, 11, 4, 0, 0, 0, time.UTC)
	blockEnd := alignment.BlockEnd(blockStart)

	last := model.ScheduleProgram{
		Kind: model.ProgramReal, ItemID: "m1",
		StartTime: blockEnd.Add(-time.Hour), EndTime: blockEnd, DurationMs: 3_600_000,
	}
	nextBlockStart := alignment.NextBlockStart(blockStart)
	first := model.ScheduleProgram{
		Kind: model.ProgramReal, ItemID: "m2",
		StartTime: nextBlockStart, EndTime: nextBlockStart.Add(time.Hour), DurationMs: 3_600_000,
	}

	store := &fakeStore{blocks: map[time.Time]model.ScheduleBlock{
		blockStart:      {ChannelID: 1, BlockStart: blockStart, BlockEnd: blockEnd, Programs: []model.ScheduleProgram{last}},
		nextBlockStart:  {ChannelID: 1, BlockStart: nextBlockStart, BlockEnd: alignment.BlockEnd(nextBlockStart), Programs: []model.ScheduleProgram{first}},
	}}
	r := NewResolver(store, alignment)

	cur, err := r.GetCurrentProgram(context.Background(), 1, blockEnd.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "m1", cur.Program.ItemID)
	require.NotNil(t, cur.Next)
	assert.Equal(t, "m2", cur.Next.ItemID)
}
