package api

import (
	"net/http"

	"roomserve/internal/metrics"
)

// handleRooms returns the bookable room catalog.
// GET /api/rooms
func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("rooms")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rooms := s.engine.ListRooms(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}
