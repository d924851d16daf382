package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cablecast/cablecast/internal/cablecasterr"
	"github.com/cablecast/cablecast/internal/materializer"
	"github.com/cablecast/cablecast/internal/model"
)

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.store.ListChannels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

type channelRequest struct {
	Name     string              `json:"name"`
	Filter   *model.ChannelFilter `json:"filter"`
	ItemIDs  []string            `json:"item_ids"`
	AIPrompt string              `json:"ai_prompt"`
}

func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, cablecasterr.Wrap(cablecasterr.KindValidation, "malformed request body", err))
		return
	}
	if req.Name == "" {
		writeError(w, cablecasterr.New(cablecasterr.KindValidation, "name is required"))
		return
	}
	ch, err := s.store.CreateChannel(r.Context(), model.Channel{
		Name:     req.Name,
		Kind:     model.ChannelCustom,
		Filter:   req.Filter,
		ItemIDs:  req.ItemIDs,
		AIPrompt: req.AIPrompt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

func (s *Server) handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, cablecasterr.New(cablecasterr.KindValidation, "channel number must be numeric"))
		return
	}
	ch, err := s.store.GetChannel(r.Context(), number)
	if err != nil {
		writeError(w, err)
		return
	}

	var req channelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, cablecasterr.Wrap(cablecasterr.KindValidation, "malformed request body", err))
		return
	}
	if req.Name != "" {
		ch.Name = req.Name
	}
	if req.Filter != nil {
		ch.Filter = req.Filter
	}
	if req.ItemIDs != nil {
		ch.ItemIDs = req.ItemIDs
	}
	if req.AIPrompt != "" {
		ch.AIPrompt = req.AIPrompt
	}

	if err := s.store.UpdateChannel(r.Context(), ch); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, cablecasterr.New(cablecasterr.KindValidation, "channel number must be numeric"))
		return
	}
	if err := s.store.DeleteChannel(r.Context(), number); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// regenerateRequest supplies preset selections and global filters directly:
// the corpus carries no built-in preset catalog, so the caller (the PWA
// settings screen) is the source of truth for which presets exist.
type regenerateRequest struct {
	PresetIDs   []string                       `json:"preset_ids"`
	Presets     map[string]presetRequest       `json:"presets"`
	Global      globalFiltersRequest           `json:"global"`
	Collections []materializer.NamedGroup      `json:"collections"`
	Playlists   []materializer.NamedGroup      `json:"playlists"`
}

type presetRequest struct {
	Kind   materializer.PresetKind `json:"kind"`
	Name   string                  `json:"name"`
	Filter *model.ChannelFilter    `json:"filter"`
}

type globalFiltersRequest struct {
	AllowMovies          bool     `json:"allow_movies"`
	AllowEpisodes        bool     `json:"allow_episodes"`
	BlockedRatings       []string `json:"blocked_ratings"`
	RatingFilterMode     string   `json:"rating_filter_mode"`
	BlockedGenres        []string `json:"blocked_genres"`
	SeparateContentTypes bool     `json:"separate_content_types"`
}

func (s *Server) handleRegenerateChannels(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, cablecasterr.Wrap(cablecasterr.KindValidation, "malformed request body", err))
		return
	}

	presets := make(map[string]materializer.PresetDef, len(req.Presets))
	for id, p := range req.Presets {
		presets[id] = materializer.PresetDef{ID: id, Kind: p.Kind, Name: p.Name, Filter: p.Filter}
	}

	existing, err := s.store.ExistingChannelNames(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	materialized := materializer.Materialize(s.idx, materializer.Request{
		PresetIDs: req.PresetIDs,
		Presets:   presets,
		Global: materializer.GlobalFilters{
			AllowMovies:          req.Global.AllowMovies,
			AllowEpisodes:        req.Global.AllowEpisodes,
			BlockedRatings:       req.Global.BlockedRatings,
			RatingFilterMode:     req.Global.RatingFilterMode,
			BlockedGenres:        req.Global.BlockedGenres,
			SeparateContentTypes: req.Global.SeparateContentTypes,
		},
		Collections:   req.Collections,
		Playlists:     req.Playlists,
		ExistingNames: existing,
		GeneratedKind: model.ChannelPreset,
	})

	if err := s.store.DeleteChannelsByKind(r.Context(), model.ChannelPreset, model.ChannelAuto); err != nil {
		writeError(w, err)
		return
	}
	created := make([]model.Channel, 0, len(materialized))
	for _, ch := range materialized {
		saved, err := s.store.CreateChannel(r.Context(), ch)
		if err != nil {
			writeError(w, err)
			return
		}
		created = append(created, saved)
	}

	s.hub.Broadcast(channelsRegeneratedMessage(len(created)))
	writeJSON(w, http.StatusOK, created)
}
