package api

import (
	"net/http"

	"github.com/cablecast/cablecast/internal/broadcaster"
)

// handleWebsocket upgrades the connection into the push channel (spec.md
// §6). The api key gate already ran via apiKeyMiddleware, so no further
// check is needed here.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if _, err := broadcaster.Upgrade(s.hub, w, r, s.logger); err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
	}
}
