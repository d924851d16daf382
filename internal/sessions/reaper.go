package sessions

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cablecast/cablecast/internal/metrics"
	"github.com/cablecast/cablecast/internal/upstream"
)

const (
	// ReapInterval is how often the supervisor runs the idle sweep.
	ReapInterval = 2 * time.Minute
	// IdleTimeout is how long an entry may sit untouched before reaping.
	IdleTimeout = 5 * time.Minute
)

// Reap issues stopPlaybackSession + deleteTranscodingJob to Upstream for
// every entry idle since cutoff and drops it from the registry. Best-effort
// and idempotent: an Upstream error for one entry doesn't stop the sweep or
// leave the entry un-dropped (spec.md §4.8).
func Reap(ctx context.Context, reg *Registry, client upstream.Client, now time.Time, log zerolog.Logger) int {
	cutoff := now.Add(-IdleTimeout)
	idle := reg.IdleSince(cutoff)

	for _, e := range idle {
		if err := client.StopPlaybackSession(ctx, e.PlaySessionID); err != nil {
			log.Warn().Err(err).Str("item_id", e.ItemID).Msg("stop playback session failed during idle reap")
		}
		if err := client.DeleteTranscodingJob(ctx, e.PlaySessionID); err != nil {
			log.Warn().Err(err).Str("item_id", e.ItemID).Msg("delete transcoding job failed during idle reap")
		}
		reg.Drop(e.ItemID)
	}
	if len(idle) > 0 {
		metrics.SessionsReapedTotal.Add(float64(len(idle)))
	}
	metrics.ActiveSessions.Set(float64(len(reg.All())))
	return len(idle)
}

// RunReaper blocks, sweeping the registry every ReapInterval until ctx is
// cancelled (the supervisor's background goroutine for this concern).
func RunReaper(ctx context.Context, reg *Registry, client upstream.Client, log zerolog.Logger) {
	ticker := time.NewTicker(ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			Reap(ctx, reg, client, now, log)
		}
	}
}
