package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cablecast/cablecast/internal/cablecasterr"
	"github.com/cablecast/cablecast/internal/clock"
)

// handleStreamMaster resolves the current program for itemId's channel and
// hands off to HLSProxy's master flow, seeking to the program's current
// position (spec.md §4.7).
func (s *Server) handleStreamMaster(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")
	channelID, err := strconv.Atoi(r.URL.Query().Get("channel"))
	if err != nil {
		writeError(w, cablecasterr.New(cablecasterr.KindValidation, "channel query parameter must be numeric"))
		return
	}

	cur, err := s.resolver.GetCurrentProgram(r.Context(), channelID, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	startTicks := clock.MsToTicks(cur.SeekMs)

	if err := s.streams.Master(r.Context(), w, itemID, startTicks); err != nil {
		s.logger.Warn().Err(err).Str("item_id", itemID).Msg("stream master failed")
	}
}

// handleStreamProxy forwards a child playlist/segment request through
// HLSProxy's coalescing proxy.
func (s *Server) handleStreamProxy(w http.ResponseWriter, r *http.Request) {
	subpath := chi.URLParam(r, "*")
	upstreamURL := subpath
	if r.URL.RawQuery != "" {
		upstreamURL += "?" + r.URL.RawQuery
	}
	itemID := r.URL.Query().Get("ItemId")
	playSessionID := r.URL.Query().Get("PlaySessionId")

	if err := s.streams.Proxy(r.Context(), w, upstreamURL, itemID, playSessionID); err != nil {
		s.logger.Warn().Err(err).Str("item_id", itemID).Msg("stream proxy failed")
	}
}

type stopRequest struct {
	ItemID        string `json:"item_id"`
	PlaySessionID string `json:"play_session_id"`
	PositionMs    int64  `json:"position_ms"`
}

func (s *Server) handleStreamStop(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, cablecasterr.Wrap(cablecasterr.KindValidation, "malformed request body", err))
		return
	}
	s.streams.Stop(r.Context(), req.ItemID, req.PlaySessionID, clock.MsToTicks(req.PositionMs))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStreamProgress(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, cablecasterr.Wrap(cablecasterr.KindValidation, "malformed request body", err))
		return
	}
	if _, ok := s.sessions.Get(req.ItemID); !ok {
		writeError(w, cablecasterr.New(cablecasterr.KindNotFound, "no active session for item"))
		return
	}
	if err := s.client.ReportPlaybackProgress(r.Context(), req.ItemID, req.PlaySessionID, clock.MsToTicks(req.PositionMs)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
