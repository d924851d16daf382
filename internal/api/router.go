package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Routes builds the full chi router for the HTTP API (spec.md §6).
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.loggingMiddleware)
	r.Use(s.apiKeyMiddleware)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/auth/status", s.handleAuthStatus)

	r.Route("/api/servers", func(r chi.Router) {
		r.Get("/", s.handleListServers)
		r.Post("/", s.handleCreateServer)
		r.Put("/{id}", s.handleUpdateServer)
		r.Delete("/{id}", s.handleDeleteServer)
		r.Post("/{id}/test", s.handleTestServer)
		r.Post("/{id}/reauthenticate", s.handleReauthenticateServer)
		r.Post("/{id}/activate", s.handleActivateServer)
	})

	r.Route("/api/channels", func(r chi.Router) {
		r.Get("/", s.handleListChannels)
		r.Post("/", s.handleCreateChannel)
		r.Put("/{number}", s.handleUpdateChannel)
		r.Delete("/{number}", s.handleDeleteChannel)
		r.Post("/regenerate", s.handleRegenerateChannels)
	})

	r.Get("/api/schedule", s.handleListSchedule)
	r.Get("/api/schedule/{channelId}", s.handleChannelSchedule)
	r.Get("/api/schedule/{channelId}/now", s.handleChannelScheduleNow)
	r.Post("/api/schedule/regenerate", s.handleRegenerateSchedule)

	r.Get("/api/playback/{channelId}", s.handlePlayback)

	r.Get("/api/stream/{itemId}", s.handleStreamMaster)
	r.Get("/api/stream/proxy/*", s.handleStreamProxy)
	r.Post("/api/stream/stop", s.handleStreamStop)
	r.Post("/api/stream/progress", s.handleStreamProgress)

	r.Get("/api/settings", s.handleGetSettings)
	r.Put("/api/settings", s.handlePutSettings)
	r.Post("/api/settings/factory-reset", s.handleFactoryReset)

	r.Get("/api/iptv/playlist.m3u", s.handleIPTVPlaylist)
	r.Get("/api/iptv/epg.xml", s.handleIPTVEPG)
	r.Get("/api/iptv/channel/{n}", s.handleIPTVChannel)

	r.Get("/ws", s.handleWebsocket)

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}
