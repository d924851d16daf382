package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cablecast/cablecast/internal/cablecasterr"
	"github.com/cablecast/cablecast/internal/model"
)

type serverRequest struct {
	Name     string `json:"name"`
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// serverView omits the encrypted token from API responses.
type serverView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BaseURL   string    `json:"base_url"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toServerView(srv model.Server) serverView {
	return serverView{
		ID:        srv.ID,
		Name:      srv.Name,
		BaseURL:   srv.BaseURL,
		Username:  srv.Username,
		IsActive:  srv.IsActive,
		CreatedAt: srv.CreatedAt,
		UpdatedAt: srv.UpdatedAt,
	}
}

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	servers, err := s.store.ListServers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]serverView, 0, len(servers))
	for _, srv := range servers {
		views = append(views, toServerView(srv))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	var req serverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, cablecasterr.Wrap(cablecasterr.KindValidation, "malformed request body", err))
		return
	}
	if req.BaseURL == "" || req.Username == "" {
		writeError(w, cablecasterr.New(cablecasterr.KindValidation, "base_url and username are required"))
		return
	}

	auth, err := s.client.Authenticate(r.Context(), req.BaseURL, req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	encToken, err := s.cipher.Encrypt(auth.AccessToken)
	if err != nil {
		writeError(w, cablecasterr.Wrap(cablecasterr.KindConfig, "failed to encrypt access token", err))
		return
	}

	srv, err := s.store.CreateServer(r.Context(), model.Server{
		Name:           req.Name,
		BaseURL:        req.BaseURL,
		Username:       req.Username,
		AccessTokenEnc: encToken,
		UpstreamUserID: auth.UserID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toServerView(srv))
}

func (s *Server) handleUpdateServer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	srv, err := s.store.GetServer(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req serverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, cablecasterr.Wrap(cablecasterr.KindValidation, "malformed request body", err))
		return
	}
	if req.Name != "" {
		srv.Name = req.Name
	}
	if req.BaseURL != "" {
		srv.BaseURL = req.BaseURL
	}
	if req.Username != "" {
		srv.Username = req.Username
	}

	if err := s.store.UpdateServer(r.Context(), srv); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServerView(srv))
}

func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteServer(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTestServer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	srv, err := s.store.GetServer(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.client.TestConnection(r.Context(), srv.BaseURL); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reachable": true})
}

func (s *Server) handleReauthenticateServer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	srv, err := s.store.GetServer(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req serverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, cablecasterr.Wrap(cablecasterr.KindValidation, "malformed request body", err))
		return
	}
	username := srv.Username
	if req.Username != "" {
		username = req.Username
	}

	auth, err := s.client.Authenticate(r.Context(), srv.BaseURL, username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	encToken, err := s.cipher.Encrypt(auth.AccessToken)
	if err != nil {
		writeError(w, cablecasterr.Wrap(cablecasterr.KindConfig, "failed to encrypt access token", err))
		return
	}
	srv.Username = username
	srv.AccessTokenEnc = encToken
	srv.UpstreamUserID = auth.UserID

	if err := s.store.UpdateServer(r.Context(), srv); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServerView(srv))
}

func (s *Server) handleActivateServer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.ActivateServer(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
