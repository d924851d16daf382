package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/cablecast/cablecast/internal/cablecasterr"
	"github.com/cablecast/cablecast/internal/model"
)

// CreateChannel allocates number = max(number)+1 (read inside the same
// transaction as the insert, per spec.md §4.2) when ch.Number is zero, and
// inserts the row.
func (s *Store) CreateChannel(ctx context.Context, ch model.Channel) (model.Channel, error) {
	filterJSON, err := marshalFilter(ch.Filter)
	if err != nil {
		return model.Channel{}, cablecasterr.Wrap(cablecasterr.KindValidation, "encode filter", err)
	}
	itemsJSON, err := json.Marshal(ch.ItemIDs)
	if err != nil {
		return model.Channel{}, cablecasterr.Wrap(cablecasterr.KindValidation, "encode item ids", err)
	}
	now := nowISO()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if ch.Number == 0 {
			var maxNum sql.NullInt64
			if err := tx.QueryRowContext(ctx, `SELECT MAX(number) FROM channels`).Scan(&maxNum); err != nil {
				return err
			}
			ch.Number = int(maxNum.Int64) + 1
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO channels (number, name, kind, preset_id, filter_json, item_ids_json, sort_order, ai_prompt, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ch.Number, ch.Name, string(ch.Kind), ch.PresetID, filterJSON, string(itemsJSON), ch.SortOrder, ch.AIPrompt, now, now)
		return err
	})
	if err != nil {
		return model.Channel{}, cablecasterr.Wrap(cablecasterr.KindStore, "create channel", err)
	}
	return s.GetChannel(ctx, ch.Number)
}

func (s *Store) GetChannel(ctx context.Context, number int) (model.Channel, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT number, name, kind, preset_id, filter_json, item_ids_json, sort_order, ai_prompt, created_at, updated_at
		FROM channels WHERE number = ?`, number)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Channel{}, cablecasterr.New(cablecasterr.KindNotFound, "channel not found")
	}
	if err != nil {
		return model.Channel{}, cablecasterr.Wrap(cablecasterr.KindStore, "get channel", err)
	}
	return ch, nil
}

func (s *Store) ListChannels(ctx context.Context) ([]model.Channel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, name, kind, preset_id, filter_json, item_ids_json, sort_order, ai_prompt, created_at, updated_at
		FROM channels ORDER BY number`)
	if err != nil {
		return nil, cablecasterr.Wrap(cablecasterr.KindStore, "list channels", err)
	}
	defer rows.Close()

	var out []model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, cablecasterr.Wrap(cablecasterr.KindStore, "scan channel", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// ExistingChannelNames returns every channel name, used to seed the
// materializer's name-uniqueness suffixing.
func (s *Store) ExistingChannelNames(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM channels`)
	if err != nil {
		return nil, cablecasterr.Wrap(cablecasterr.KindStore, "list channel names", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = struct{}{}
	}
	return out, rows.Err()
}

func (s *Store) UpdateChannel(ctx context.Context, ch model.Channel) error {
	filterJSON, err := marshalFilter(ch.Filter)
	if err != nil {
		return cablecasterr.Wrap(cablecasterr.KindValidation, "encode filter", err)
	}
	itemsJSON, err := json.Marshal(ch.ItemIDs)
	if err != nil {
		return cablecasterr.Wrap(cablecasterr.KindValidation, "encode item ids", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE channels SET name = ?, kind = ?, preset_id = ?, filter_json = ?, item_ids_json = ?, sort_order = ?, ai_prompt = ?, updated_at = ?
		WHERE number = ?`,
		ch.Name, string(ch.Kind), ch.PresetID, filterJSON, string(itemsJSON), ch.SortOrder, ch.AIPrompt, nowISO(), ch.Number)
	if err != nil {
		return cablecasterr.Wrap(cablecasterr.KindStore, "update channel", err)
	}
	return requireRowsAffected(res)
}

func (s *Store) DeleteChannel(ctx context.Context, number int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE number = ?`, number)
	if err != nil {
		return cablecasterr.Wrap(cablecasterr.KindStore, "delete channel", err)
	}
	return requireRowsAffected(res)
}

// DeleteChannelsByKind bulk-deletes channels of the given kinds, used by the
// materializer's regenerate step (preserves custom channels).
func (s *Store) DeleteChannelsByKind(ctx context.Context, kinds ...model.ChannelKind) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, k := range kinds {
			if _, err := tx.ExecContext(ctx, `DELETE FROM channels WHERE kind = ?`, string(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func scanChannel(row rowScanner) (model.Channel, error) {
	var ch model.Channel
	var kind, filterJSON, itemsJSON, created, updated string
	if err := row.Scan(&ch.Number, &ch.Name, &kind, &ch.PresetID, &filterJSON, &itemsJSON, &ch.SortOrder, &ch.AIPrompt, &created, &updated); err != nil {
		return model.Channel{}, err
	}
	ch.Kind = model.ChannelKind(kind)
	if filterJSON != "" {
		var f model.ChannelFilter
		if err := json.Unmarshal([]byte(filterJSON), &f); err != nil {
			return model.Channel{}, err
		}
		ch.Filter = &f
	}
	if err := json.Unmarshal([]byte(itemsJSON), &ch.ItemIDs); err != nil {
		return model.Channel{}, err
	}
	if t, err := parseTime(created); err == nil {
		ch.CreatedAt = t
	}
	if t, err := parseTime(updated); err == nil {
		ch.UpdatedAt = t
	}
	return ch, nil
}

func marshalFilter(f *model.ChannelFilter) (string, error) {
	if f == nil {
		return "", nil
	}
	b, err := json.Marshal(f)
	return string(b), err
}
