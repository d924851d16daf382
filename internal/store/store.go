// Package store is cablecast's single-writer, transactional persistence
// layer: servers, channels, schedule blocks, settings, and library cache
// rows in an embedded SQLite database. Grounded on the teacher's
// library/store.go + persistence/sqlite: modernc.org/sqlite through
// database/sql, opened with WAL + busy_timeout pragmas, migrated inline.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver, no CGO

	"github.com/cablecast/cablecast/internal/cablecasterr"
)

// Store wraps a *sql.DB with cablecast's typed operations. All writes that
// touch more than one table run inside a transaction (spec.md §4.2).
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) a SQLite database at path and runs
// migrations. A small connection pool is used: SQLite serializes writers
// internally, and WAL mode lets readers proceed concurrently with the
// single writer.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, cablecasterr.Wrap(cablecasterr.KindStore, "open database", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, cablecasterr.Wrap(cablecasterr.KindStore, "ping database", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, cablecasterr.Wrap(cablecasterr.KindStore, "run migrations", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS servers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	base_url TEXT NOT NULL,
	username TEXT NOT NULL,
	access_token_enc TEXT NOT NULL,
	upstream_user_id TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS channels (
	number INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	kind TEXT NOT NULL,
	preset_id TEXT NOT NULL DEFAULT '',
	filter_json TEXT NOT NULL DEFAULT '',
	item_ids_json TEXT NOT NULL DEFAULT '[]',
	sort_order INTEGER NOT NULL DEFAULT 0,
	ai_prompt TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schedule_blocks (
	channel_id INTEGER NOT NULL,
	block_start TEXT NOT NULL,
	block_end TEXT NOT NULL,
	programs_json TEXT NOT NULL,
	seed TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (channel_id, block_start),
	FOREIGN KEY (channel_id) REFERENCES channels(number) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_blocks_channel_start ON schedule_blocks(channel_id, block_start);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS library_cache (
	server_id TEXT PRIMARY KEY,
	items_json TEXT NOT NULL,
	synced_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS playback_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	position_ms INTEGER NOT NULL DEFAULT 0,
	occurred_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_item ON playback_events(item_id);
CREATE INDEX IF NOT EXISTS idx_events_occurred ON playback_events(occurred_at);
`

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_meta`).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		_, err := s.db.ExecContext(ctx, `INSERT INTO schema_meta (version) VALUES (?)`, schemaVersion)
		return err
	}
	return nil
}

// FactoryReset drops every row from every table in one transaction,
// per spec.md §4.2 / the POST /api/settings/factory-reset endpoint.
func (s *Store) FactoryReset(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		tables := []string{"schedule_blocks", "channels", "servers", "settings", "library_cache", "playback_events"}
		for _, t := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cablecasterr.Wrap(cablecasterr.KindStore, "begin tx", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return cablecasterr.Wrap(cablecasterr.KindStore, "commit tx", err)
	}
	return nil
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
