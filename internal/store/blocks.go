package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/cablecast/cablecast/internal/cablecasterr"
	"github.com/cablecast/cablecast/internal/model"
)

// UpsertScheduleBlock is upsert-idempotent on (channel_id, block_start): a
// second call with identical args produces one row with the later
// created_at (spec.md §8 idempotence invariant).
func (s *Store) UpsertScheduleBlock(ctx context.Context, b model.ScheduleBlock) error {
	programsJSON, err := json.Marshal(b.Programs)
	if err != nil {
		return cablecasterr.Wrap(cablecasterr.KindValidation, "encode programs", err)
	}
	now := nowISO()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schedule_blocks (channel_id, block_start, block_end, programs_json, seed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id, block_start) DO UPDATE SET
			block_end = excluded.block_end,
			programs_json = excluded.programs_json,
			seed = excluded.seed,
			created_at = excluded.created_at`,
		b.ChannelID, b.BlockStart.UTC().Format(time.RFC3339Nano), b.BlockEnd.UTC().Format(time.RFC3339Nano), string(programsJSON), b.Seed, now)
	if err != nil {
		return cablecasterr.Wrap(cablecasterr.KindStore, "upsert schedule block", err)
	}
	return nil
}

func (s *Store) GetScheduleBlock(ctx context.Context, channelID int, blockStart time.Time) (model.ScheduleBlock, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT channel_id, block_start, block_end, programs_json, seed, created_at
		FROM schedule_blocks WHERE channel_id = ? AND block_start = ?`,
		channelID, blockStart.UTC().Format(time.RFC3339Nano))
	b, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScheduleBlock{}, cablecasterr.New(cablecasterr.KindNotFound, "schedule block not found")
	}
	if err != nil {
		return model.ScheduleBlock{}, cablecasterr.Wrap(cablecasterr.KindStore, "get schedule block", err)
	}
	return b, nil
}

// ListChannelBlocks returns every block for a channel ordered by block_start.
func (s *Store) ListChannelBlocks(ctx context.Context, channelID int) ([]model.ScheduleBlock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_id, block_start, block_end, programs_json, seed, created_at
		FROM schedule_blocks WHERE channel_id = ? ORDER BY block_start`, channelID)
	if err != nil {
		return nil, cablecasterr.Wrap(cablecasterr.KindStore, "list channel blocks", err)
	}
	defer rows.Close()
	return scanBlocks(rows)
}

// ItemsScheduledSince returns the set of item ids that appear as real
// programs on channelID with start_time >= since, used to build the
// cooldown set (spec.md §4.5).
func (s *Store) ItemsScheduledSince(ctx context.Context, channelID int, since time.Time) (map[string]struct{}, error) {
	blocks, err := s.ListChannelBlocks(ctx, channelID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{})
	for _, b := range blocks {
		for _, p := range b.Programs {
			if p.Kind != model.ProgramReal || p.ItemID == "" {
				continue
			}
			if !p.StartTime.Before(since) {
				out[p.ItemID] = struct{}{}
			}
		}
	}
	return out, nil
}

// AllBlocksSince returns every block across every channel whose block_end
// is >= since, for building a GlobalTracker snapshot.
func (s *Store) AllBlocksSince(ctx context.Context, since time.Time) ([]model.ScheduleBlock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_id, block_start, block_end, programs_json, seed, created_at
		FROM schedule_blocks WHERE block_end >= ? ORDER BY channel_id, block_start`,
		since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, cablecasterr.Wrap(cablecasterr.KindStore, "list all blocks", err)
	}
	defer rows.Close()
	return scanBlocks(rows)
}

// CleanOldScheduleBlocks deletes every block whose block_end is before
// cutoff, per spec.md §4.5.
func (s *Store) CleanOldScheduleBlocks(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM schedule_blocks WHERE block_end < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, cablecasterr.Wrap(cablecasterr.KindStore, "clean old blocks", err)
	}
	return res.RowsAffected()
}

func scanBlocks(rows *sql.Rows) ([]model.ScheduleBlock, error) {
	var out []model.ScheduleBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBlock(row rowScanner) (model.ScheduleBlock, error) {
	var b model.ScheduleBlock
	var start, end, created, programsJSON string
	if err := row.Scan(&b.ChannelID, &start, &end, &programsJSON, &b.Seed, &created); err != nil {
		return model.ScheduleBlock{}, err
	}
	var err error
	if b.BlockStart, err = parseTime(start); err != nil {
		return model.ScheduleBlock{}, err
	}
	if b.BlockEnd, err = parseTime(end); err != nil {
		return model.ScheduleBlock{}, err
	}
	if b.CreatedAt, err = parseTime(created); err != nil {
		return model.ScheduleBlock{}, err
	}
	if err := json.Unmarshal([]byte(programsJSON), &b.Programs); err != nil {
		return model.ScheduleBlock{}, err
	}
	return b, nil
}
