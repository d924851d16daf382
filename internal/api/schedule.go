package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cablecast/cablecast/internal/cablecasterr"
	"github.com/cablecast/cablecast/internal/model"
	"github.com/cablecast/cablecast/internal/scheduler"
)

func (s *Server) handleListSchedule(w http.ResponseWriter, r *http.Request) {
	channels, err := s.store.ListChannels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	now := time.Now()

	type entry struct {
		Channel model.Channel          `json:"channel"`
		Current *model.ScheduleProgram `json:"current,omitempty"`
	}
	out := make([]entry, 0, len(channels))
	for _, ch := range channels {
		e := entry{Channel: ch}
		if cur, err := s.resolver.GetCurrentProgram(r.Context(), ch.Number, now); err == nil {
			p := cur.Program
			e.Current = &p
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChannelSchedule(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "channelId"))
	if err != nil {
		writeError(w, cablecasterr.New(cablecasterr.KindValidation, "channel id must be numeric"))
		return
	}
	blocks, err := s.store.ListChannelBlocks(r.Context(), number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

func (s *Server) handleChannelScheduleNow(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "channelId"))
	if err != nil {
		writeError(w, cablecasterr.New(cablecasterr.KindValidation, "channel id must be numeric"))
		return
	}
	cur, err := s.resolver.GetCurrentProgram(r.Context(), number, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cur)
}

func (s *Server) ratingFilter(ctx context.Context) scheduler.RatingFilter {
	var mode string
	_ = s.store.GetSetting(ctx, model.SettingRatingFilterMode, &mode)
	return scheduler.RatingFilter{Active: mode == "allow"}
}

func (s *Server) handleRegenerateSchedule(w http.ResponseWriter, r *http.Request) {
	channels, err := s.store.ListChannels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	now := time.Now()
	rf := s.ratingFilter(r.Context())

	if err := scheduler.ExtendSchedules(r.Context(), s.store, s.idx, s.alignment, channels, now, rf); err != nil {
		writeError(w, err)
		return
	}
	if _, err := scheduler.CleanOldScheduleBlocks(r.Context(), s.store, now); err != nil {
		writeError(w, err)
		return
	}

	s.hub.Broadcast(librarySyncedMessage(s.idx.Len()))
	w.WriteHeader(http.StatusNoContent)
}
