package api

import (
	"encoding/json"
	"net/http"

	"github.com/cablecast/cablecast/internal/cablecasterr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := cablecasterr.KindOf(err)
	writeJSON(w, cablecasterr.HTTPStatus(kind), map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
