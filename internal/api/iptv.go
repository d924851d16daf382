package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

const defaultEPGHours = 24

func (s *Server) baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

func (s *Server) handleIPTVPlaylist(w http.ResponseWriter, r *http.Request) {
	data, err := s.renderer.Playlist(r.Context(), s.baseURL(r))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/x-mpegurl")
	_, _ = w.Write(data)
}

func (s *Server) handleIPTVEPG(w http.ResponseWriter, r *http.Request) {
	hours := defaultEPGHours
	if v := r.URL.Query().Get("hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}
	data, err := s.renderer.EPG(r.Context(), s.baseURL(r), hours, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write(data)
}

// handleIPTVChannel redirects a player's numeric-channel request to the
// current program's stream master URL.
func (s *Server) handleIPTVChannel(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		http.Error(w, "channel must be numeric", http.StatusBadRequest)
		return
	}
	cur, err := s.resolver.GetCurrentProgram(r.Context(), number, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	target := fmt.Sprintf("/api/stream/%s?channel=%d", cur.Program.ItemID, number)
	http.Redirect(w, r, target, http.StatusFound)
}
