// Package supervisor owns the process's long-lived background concerns —
// the HTTP server, the config watcher, the idle-session reaper, the
// websocket hub's event loop, and the schedule maintenance ticker — and
// coordinates their shutdown, mirroring the teacher's internal/daemon/app.go.
package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog"

	"github.com/cablecast/cablecast/internal/broadcaster"
	"github.com/cablecast/cablecast/internal/clock"
	"github.com/cablecast/cablecast/internal/config"
	"github.com/cablecast/cablecast/internal/library"
	"github.com/cablecast/cablecast/internal/model"
	"github.com/cablecast/cablecast/internal/scheduler"
	"github.com/cablecast/cablecast/internal/sessions"
	"github.com/cablecast/cablecast/internal/upstream"
)

// MaintenanceInterval is how often the schedule-maintenance pass runs
// (spec.md §4.5's 15-minute upkeep cadence).
const MaintenanceInterval = 15 * time.Minute

// ScheduleStore is the subset of internal/store.Store the maintenance loop
// needs, re-exposed here so this package doesn't import the concrete store.
type ScheduleStore interface {
	scheduler.Store
	GetSetting(ctx context.Context, key string, out any) error
}

// Deps bundles everything the supervisor drives.
type Deps struct {
	HTTPServer *http.Server
	Holder     *config.Holder // nil disables the file watcher
	Hub        *broadcaster.Hub
	Sessions   *sessions.Registry
	Client     upstream.Client
	Store      ScheduleStore
	Index      *library.Index
	Alignment  clock.Alignment
	Logger     zerolog.Logger
}

// Supervisor runs every background concern under one errgroup and shuts
// them all down together when Run's context is cancelled.
type Supervisor struct {
	d Deps
}

func New(d Deps) *Supervisor {
	return &Supervisor{d: d}
}

// Run blocks until ctx is cancelled or a background concern returns a fatal
// error, then gracefully shuts down the HTTP server.
func (s *Supervisor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if s.d.Holder != nil {
		if err := s.d.Holder.StartWatcher(); err != nil {
			s.d.Logger.Warn().Err(err).Msg("config watcher failed to start")
		}
	}

	g.Go(func() error {
		s.d.Hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		sessions.RunReaper(ctx, s.d.Sessions, s.d.Client, s.d.Logger)
		return nil
	})

	g.Go(func() error {
		s.runMaintenance(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return s.d.HTTPServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if err := s.d.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return g.Wait()
}

// runMaintenance runs the 15-minute schedule upkeep pass (ensure current +
// next blocks, eager block-after-next generation) until ctx is cancelled,
// firing once immediately on start so a fresh boot doesn't wait a full
// interval before any blocks exist.
func (s *Supervisor) runMaintenance(ctx context.Context) {
	s.maintainOnce(ctx)

	ticker := time.NewTicker(MaintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.maintainOnce(ctx)
		}
	}
}

func (s *Supervisor) maintainOnce(ctx context.Context) {
	channels, err := s.d.Store.ListChannels(ctx)
	if err != nil {
		s.d.Logger.Warn().Err(err).Msg("schedule maintenance: list channels failed")
		return
	}
	now := time.Now()
	rf := s.ratingFilter(ctx)

	if err := scheduler.MaintainSchedules(ctx, s.d.Store, s.d.Index, s.d.Alignment, channels, now, rf); err != nil {
		s.d.Logger.Warn().Err(err).Msg("schedule maintenance failed")
		return
	}
	if _, err := scheduler.CleanOldScheduleBlocks(ctx, s.d.Store, now); err != nil {
		s.d.Logger.Warn().Err(err).Msg("schedule cleanup failed")
	}
}

func (s *Supervisor) ratingFilter(ctx context.Context) scheduler.RatingFilter {
	var mode string
	_ = s.d.Store.GetSetting(ctx, model.SettingRatingFilterMode, &mode)
	return scheduler.RatingFilter{Active: mode == "allow"}
}
