package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cablecast/cablecast/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	st, err := Open(filepath.Join(dir, "cablecast.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestServerCascadeDeleteOnActive(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	srv, err := st.CreateServer(ctx, model.Server{Name: "home", BaseURL: "http://x", IsActive: true})
	require.NoError(t, err)

	ch, err := st.CreateChannel(ctx, model.Channel{Name: "Action", Kind: model.ChannelAuto})
	require.NoError(t, err)

	require.NoError(t, st.UpsertScheduleBlock(ctx, model.ScheduleBlock{
		ChannelID:  ch.Number,
		BlockStart: time.Date(2026, 2, 11, 4, 0, 0, 0, time.UTC),
		BlockEnd:   time.Date(2026, 2, 12, 4, 0, 0, 0, time.UTC),
		Seed:       "abc",
	}))
	require.NoError(t, st.UpsertLibraryCache(ctx, srv.ID, []byte(`[]`)))

	require.NoError(t, st.DeleteServer(ctx, srv.ID))

	channels, err := st.ListChannels(ctx)
	require.NoError(t, err)
	require.Empty(t, channels)

	blocks, err := st.ListChannelBlocks(ctx, ch.Number)
	require.NoError(t, err)
	require.Empty(t, blocks)

	_, _, err = st.GetLibraryCache(ctx, srv.ID)
	require.Error(t, err)
}

func TestChannelNumberAllocation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	a, err := st.CreateChannel(ctx, model.Channel{Name: "A", Kind: model.ChannelAuto})
	require.NoError(t, err)
	require.Equal(t, 1, a.Number)

	b, err := st.CreateChannel(ctx, model.Channel{Name: "B", Kind: model.ChannelAuto})
	require.NoError(t, err)
	require.Equal(t, 2, b.Number)

	require.NoError(t, st.DeleteChannel(ctx, a.Number))

	c, err := st.CreateChannel(ctx, model.Channel{Name: "C", Kind: model.ChannelAuto})
	require.NoError(t, err)
	require.Equal(t, 3, c.Number, "allocation is max+1, not reuse of deleted numbers")
}

func TestUpsertScheduleBlockIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	ch, err := st.CreateChannel(ctx, model.Channel{Name: "A", Kind: model.ChannelAuto})
	require.NoError(t, err)

	start := time.Date(2026, 2, 11, 4, 0, 0, 0, time.UTC)
	block := model.ScheduleBlock{ChannelID: ch.Number, BlockStart: start, BlockEnd: start.Add(24 * time.Hour), Seed: "s1"}

	require.NoError(t, st.UpsertScheduleBlock(ctx, block))
	first, err := st.GetScheduleBlock(ctx, ch.Number, start)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, st.UpsertScheduleBlock(ctx, block))

	blocks, err := st.ListChannelBlocks(ctx, ch.Number)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.True(t, blocks[0].CreatedAt.After(first.CreatedAt) || blocks[0].CreatedAt.Equal(first.CreatedAt))
}

func TestSettingsRejectsUnknownKey(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	err := st.SetSetting(ctx, "not_a_real_setting", 1)
	require.Error(t, err)

	require.NoError(t, st.SetSetting(ctx, model.SettingBlockHours, 24))
	var v int
	require.NoError(t, st.GetSetting(ctx, model.SettingBlockHours, &v))
	require.Equal(t, 24, v)
}

func TestFactoryReset(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.CreateChannel(ctx, model.Channel{Name: "A", Kind: model.ChannelAuto})
	require.NoError(t, err)
	require.NoError(t, st.SetSetting(ctx, model.SettingBlockHours, 24))

	require.NoError(t, st.FactoryReset(ctx))

	channels, err := st.ListChannels(ctx)
	require.NoError(t, err)
	require.Empty(t, channels)

	settings, err := st.ListSettings(ctx)
	require.NoError(t, err)
	require.Empty(t, settings)
}
