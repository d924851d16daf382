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

// SetSetting rejects unknown keys at the API boundary (callers should
// validate with model.KnownSettingKeys before reaching the store, but the
// store re-checks defensively since this method is also used by tests).
func (s *Store) SetSetting(ctx context.Context, key string, value any) error {
	if _, ok := model.KnownSettingKeys[key]; !ok {
		return cablecasterr.New(cablecasterr.KindValidation, "unknown setting key: "+key)
	}
	b, err := json.Marshal(value)
	if err != nil {
		return cablecasterr.Wrap(cablecasterr.KindValidation, "encode setting value", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value_json) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json`, key, string(b))
	if err != nil {
		return cablecasterr.Wrap(cablecasterr.KindStore, "set setting", err)
	}
	return nil
}

// GetSetting unmarshals the stored JSON value into out.
func (s *Store) GetSetting(ctx context.Context, key string, out any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value_json FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return cablecasterr.New(cablecasterr.KindNotFound, "setting not found: "+key)
	}
	if err != nil {
		return cablecasterr.Wrap(cablecasterr.KindStore, "get setting", err)
	}
	return json.Unmarshal([]byte(raw), out)
}

func (s *Store) ListSettings(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value_json FROM settings`)
	if err != nil {
		return nil, cablecasterr.Wrap(cablecasterr.KindStore, "list settings", err)
	}
	defer rows.Close()
	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = json.RawMessage(v)
	}
	return out, rows.Err()
}

// UpsertLibraryCache stores the full JSON-encoded library snapshot for a
// server, used to rehydrate LibraryIndex on startup (spec.md §4.3).
func (s *Store) UpsertLibraryCache(ctx context.Context, serverID string, itemsJSON []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO library_cache (server_id, items_json, synced_at) VALUES (?, ?, ?)
		ON CONFLICT(server_id) DO UPDATE SET items_json = excluded.items_json, synced_at = excluded.synced_at`,
		serverID, string(itemsJSON), nowISO())
	if err != nil {
		return cablecasterr.Wrap(cablecasterr.KindStore, "upsert library cache", err)
	}
	return nil
}

func (s *Store) GetLibraryCache(ctx context.Context, serverID string) ([]byte, time.Time, error) {
	var itemsJSON, syncedAt string
	err := s.db.QueryRowContext(ctx, `SELECT items_json, synced_at FROM library_cache WHERE server_id = ?`, serverID).
		Scan(&itemsJSON, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, cablecasterr.New(cablecasterr.KindNotFound, "no library cache")
	}
	if err != nil {
		return nil, time.Time{}, cablecasterr.Wrap(cablecasterr.KindStore, "get library cache", err)
	}
	t, _ := parseTime(syncedAt)
	return []byte(itemsJSON), t, nil
}

func (s *Store) ClearLibraryCache(ctx context.Context, serverID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM library_cache WHERE server_id = ?`, serverID)
	if err != nil {
		return cablecasterr.Wrap(cablecasterr.KindStore, "clear library cache", err)
	}
	return nil
}

// RecordPlaybackEvent appends a playback lifecycle event (start/progress/
// stopped) for aggregated metrics queries.
func (s *Store) RecordPlaybackEvent(ctx context.Context, itemID, eventType string, positionMs int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO playback_events (item_id, event_type, position_ms, occurred_at) VALUES (?, ?, ?, ?)`,
		itemID, eventType, positionMs, nowISO())
	if err != nil {
		return cablecasterr.Wrap(cablecasterr.KindStore, "record playback event", err)
	}
	return nil
}

// EventCountsByType returns a simple aggregate: event_type -> count, the
// teacher's "aggregated metrics queries" operation from spec.md §4.2.
func (s *Store) EventCountsByType(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT event_type, COUNT(*) FROM playback_events GROUP BY event_type`)
	if err != nil {
		return nil, cablecasterr.Wrap(cablecasterr.KindStore, "aggregate playback events", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var t string
		var n int64
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		out[t] = n
	}
	return out, rows.Err()
}
