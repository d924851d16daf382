package iptv

import (
	"context"
	"testing"
	"time"

	"github.com/cablecast/cablecast/internal/cablecasterr"
	"github.com/cablecast/cablecast/internal/clock"
	"github.com/cablecast/cablecast/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannelStore struct {
	channels []model.Channel
	blocks   map[int]map[time.Time]model.ScheduleBlock
}

func (f *fakeChannelStore) ListChannels(ctx context.Context) ([]model.Channel, error) {
	return f.channels, nil
}

func (f *fakeChannelStore) GetScheduleBlock(ctx context.Context, channelID int, blockStart time.Time) (model.ScheduleBlock, error) {
	byStart, ok := f.blocks[channelID]
	if !ok {
		return model.ScheduleBlock{}, cablecasterr.New(cablecasterr.KindNotFound, "no block")
	}
	b, ok := byStart[blockStart]
	if !ok {
		return model.ScheduleBlock{}, cablecasterr.New(cablecasterr.KindNotFound, "no block")
	}
	return b, nil
}

func TestProgramsInWindowFiltersToOverlappingPrograms(t *testing.T) {
	align := clock.DefaultAlignment()
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.Local)
	blockStart := align.BlockStart(now)

	inWindow := model.ScheduleProgram{Kind: model.ProgramReal, Title: "In Window", StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour)}
	before := model.ScheduleProgram{Kind: model.ProgramReal, Title: "Already Ended", StartTime: now.Add(-2 * time.Hour), EndTime: now.Add(-time.Hour)}

	store := &fakeChannelStore{
		blocks: map[int]map[time.Time]model.ScheduleBlock{
			1: {blockStart: {ChannelID: 1, BlockStart: blockStart, BlockEnd: align.BlockEnd(blockStart), Programs: []model.ScheduleProgram{before, inWindow}}},
		},
	}

	progs, err := ProgramsInWindow(context.Background(), store, align, 1, now, 4)
	require.NoError(t, err)
	require.Len(t, progs, 1)
	assert.Equal(t, "In Window", progs[0].Title)
}

func TestProgramsInWindowToleratesMissingBlocks(t *testing.T) {
	align := clock.DefaultAlignment()
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.Local)
	store := &fakeChannelStore{blocks: map[int]map[time.Time]model.ScheduleBlock{}}

	progs, err := ProgramsInWindow(context.Background(), store, align, 1, now, 4)
	require.NoError(t, err)
	assert.Empty(t, progs)
}

func TestRendererEPGCachesWithinTTL(t *testing.T) {
	align := clock.DefaultAlignment()
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.Local)
	store := &fakeChannelStore{
		channels: []model.Channel{{Number: 1, Name: "A"}},
		blocks:   map[int]map[time.Time]model.ScheduleBlock{},
	}
	r := NewRenderer(store, store, align)

	data1, err := r.EPG(context.Background(), "http://host", 12, now)
	require.NoError(t, err)

	// rename the channel without changing its count; a cache hit within
	// TTL should still return the original rendering rather than
	// recomputing from the now-stale store.
	store.channels = []model.Channel{{Number: 1, Name: "Renamed"}}
	data2, err := r.EPG(context.Background(), "http://host", 12, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, data1, data2)

	data3, err := r.EPG(context.Background(), "http://host", 12, now.Add(CacheTTL+time.Second))
	require.NoError(t, err)
	assert.NotEqual(t, data1, data3)
}

func TestRendererPlaylistListsAllChannels(t *testing.T) {
	store := &fakeChannelStore{channels: []model.Channel{{Number: 1, Name: "A"}, {Number: 2, Name: "B"}}}
	r := NewRenderer(store, store, clock.DefaultAlignment())

	data, err := r.Playlist(context.Background(), "http://host")
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "ch-1")
	assert.Contains(t, s, "ch-2")
}
