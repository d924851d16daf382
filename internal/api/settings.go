package api

import (
	"encoding/json"
	"net/http"

	"github.com/cablecast/cablecast/internal/cablecasterr"
	"github.com/cablecast/cablecast/internal/model"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.ListSettings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]json.RawMessage
	if err := decodeJSON(r, &updates); err != nil {
		writeError(w, cablecasterr.Wrap(cablecasterr.KindValidation, "malformed request body", err))
		return
	}

	for key, raw := range updates {
		if _, known := model.KnownSettingKeys[key]; !known {
			writeError(w, cablecasterr.New(cablecasterr.KindValidation, "unknown setting key: "+key))
			return
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			writeError(w, cablecasterr.Wrap(cablecasterr.KindValidation, "invalid value for "+key, err))
			return
		}
		if err := s.store.SetSetting(r.Context(), key, value); err != nil {
			writeError(w, err)
			return
		}
	}

	settings, err := s.store.ListSettings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleFactoryReset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.FactoryReset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
