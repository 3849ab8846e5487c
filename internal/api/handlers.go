// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/umms/internal/log"
	"github.com/ManuGH/umms/internal/manager"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleResources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"pools": s.pools.Snapshot()})
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.players.List(r.Context())
	if err != nil {
		s.logger.Warn().Err(err).Str(log.FieldEvent, "api.players_failed").Msg("listing players failed")
		writeServiceUnavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": players})
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	info, err := s.players.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, manager.ErrNotFound):
		writeNotFound(w)
	case err != nil:
		writeServiceUnavailable(w, err)
	default:
		writeJSON(w, http.StatusOK, info)
	}
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

func writeServiceUnavailable(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
}
