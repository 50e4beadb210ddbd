package api

import (
	"net/http"

	"roomserve/internal/metrics"
)

// handleAvailability serves both availability views for one room: the
// per-day free-slot map for a month, or the start/end slot options for a
// single date. Exactly one of month= and date= must be given.
// GET /api/availability?room_id=...&month=YYYY-MM
// GET /api/availability?room_id=...&date=YYYY-MM-DD
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	roomID := q.Get("room_id")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "room_id is required")
		return
	}

	month, date := q.Get("month"), q.Get("date")
	switch {
	case month != "" && date != "":
		writeError(w, http.StatusBadRequest, "month and date are mutually exclusive")
	case month != "":
		out, err := s.engine.MonthAvailability(r.Context(), roomID, month)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	case date != "":
		out, err := s.engine.DaySlots(r.Context(), roomID, date)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	default:
		writeError(w, http.StatusBadRequest, "month or date is required")
	}
}
