package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cablecast/cablecast/internal/cablecasterr"
)

// handlePlayback answers "what's playing on this channel right now" and
// echoes the bitrate/maxWidth/audioStreamIndex query hints back in the
// response. /api/stream does not read these hints, so they do not reach
// Upstream.
func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, map[string]any{
		"program":            cur.Program,
		"next":               cur.Next,
		"seek_ms":            cur.SeekMs,
		"bitrate":            r.URL.Query().Get("bitrate"),
		"max_width":          r.URL.Query().Get("maxWidth"),
		"audio_stream_index": r.URL.Query().Get("audioStreamIndex"),
	})
}
