package api

import (
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	configured := s.apiKey() != ""
	authorized := !configured || authorize(extractAPIKey(r), s.apiKey())
	writeJSON(w, http.StatusOK, map[string]any{
		"auth_required": configured,
		"authorized":    authorized,
	})
}
