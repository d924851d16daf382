package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/cablecast/cablecast/internal/cablecasterr"
	"github.com/cablecast/cablecast/internal/model"
)

// CreateServer inserts a new server row. If IsActive is set, any previously
// active server is deactivated in the same transaction (at most one active
// server, spec.md §3).
func (s *Store) CreateServer(ctx context.Context, srv model.Server) (model.Server, error) {
	if srv.ID == "" {
		srv.ID = uuid.NewString()
	}
	now := nowISO()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if srv.IsActive {
			if _, err := tx.ExecContext(ctx, `UPDATE servers SET is_active = 0, updated_at = ? WHERE is_active = 1`, now); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO servers (id, name, base_url, username, access_token_enc, upstream_user_id, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			srv.ID, srv.Name, srv.BaseURL, srv.Username, srv.AccessTokenEnc, srv.UpstreamUserID, boolToInt(srv.IsActive), now, now)
		return err
	})
	if err != nil {
		return model.Server{}, cablecasterr.Wrap(cablecasterr.KindStore, "create server", err)
	}
	return s.GetServer(ctx, srv.ID)
}

func (s *Store) GetServer(ctx context.Context, id string) (model.Server, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, base_url, username, access_token_enc, upstream_user_id, is_active, created_at, updated_at
		FROM servers WHERE id = ?`, id)
	srv, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Server{}, cablecasterr.New(cablecasterr.KindNotFound, "server not found")
	}
	if err != nil {
		return model.Server{}, cablecasterr.Wrap(cablecasterr.KindStore, "get server", err)
	}
	return srv, nil
}

func (s *Store) GetActiveServer(ctx context.Context) (model.Server, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, base_url, username, access_token_enc, upstream_user_id, is_active, created_at, updated_at
		FROM servers WHERE is_active = 1 LIMIT 1`)
	srv, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Server{}, cablecasterr.New(cablecasterr.KindNotFound, "no active server")
	}
	if err != nil {
		return model.Server{}, cablecasterr.Wrap(cablecasterr.KindStore, "get active server", err)
	}
	return srv, nil
}

func (s *Store) ListServers(ctx context.Context) ([]model.Server, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, base_url, username, access_token_enc, upstream_user_id, is_active, created_at, updated_at
		FROM servers ORDER BY created_at`)
	if err != nil {
		return nil, cablecasterr.Wrap(cablecasterr.KindStore, "list servers", err)
	}
	defer rows.Close()

	var out []model.Server
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, cablecasterr.Wrap(cablecasterr.KindStore, "scan server", err)
		}
		out = append(out, srv)
	}
	return out, rows.Err()
}

// UpdateServer updates the mutable fields of a server row.
func (s *Store) UpdateServer(ctx context.Context, srv model.Server) error {
	now := nowISO()
	res, err := s.db.ExecContext(ctx, `
		UPDATE servers SET name = ?, base_url = ?, username = ?, access_token_enc = ?, upstream_user_id = ?, updated_at = ?
		WHERE id = ?`,
		srv.Name, srv.BaseURL, srv.Username, srv.AccessTokenEnc, srv.UpstreamUserID, now, srv.ID)
	if err != nil {
		return cablecasterr.Wrap(cablecasterr.KindStore, "update server", err)
	}
	return requireRowsAffected(res)
}

// ActivateServer marks id as the sole active server.
func (s *Store) ActivateServer(ctx context.Context, id string) error {
	now := nowISO()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE servers SET is_active = 0, updated_at = ? WHERE is_active = 1`, now); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE servers SET is_active = 1, updated_at = ? WHERE id = ?`, now, id)
		if err != nil {
			return err
		}
		return requireRowsAffected(res)
	})
}

// DeleteServer removes a server. If it was the active server, this cascades
// per spec.md §3: schedule blocks, channels, and its library cache are
// removed in the same transaction before the server row itself.
func (s *Store) DeleteServer(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var isActive int
		err := tx.QueryRowContext(ctx, `SELECT is_active FROM servers WHERE id = ?`, id).Scan(&isActive)
		if errors.Is(err, sql.ErrNoRows) {
			return cablecasterr.New(cablecasterr.KindNotFound, "server not found")
		}
		if err != nil {
			return err
		}
		if isActive == 1 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_blocks`); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM channels`); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM library_cache WHERE server_id = ?`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM servers WHERE id = ?`, id)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanServer(row rowScanner) (model.Server, error) {
	var srv model.Server
	var isActive int
	var created, updated string
	if err := row.Scan(&srv.ID, &srv.Name, &srv.BaseURL, &srv.Username, &srv.AccessTokenEnc, &srv.UpstreamUserID, &isActive, &created, &updated); err != nil {
		return model.Server{}, err
	}
	srv.IsActive = isActive == 1
	if t, err := parseTime(created); err == nil {
		srv.CreatedAt = t
	}
	if t, err := parseTime(updated); err == nil {
		srv.UpdatedAt = t
	}
	return srv, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return cablecasterr.New(cablecasterr.KindNotFound, "no matching row")
	}
	return nil
}
