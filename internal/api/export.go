package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"roomserve/internal/export"
	"roomserve/internal/metrics"
)

// handleExport streams the reservation list as an XLSX workbook, honoring
// the same filters as the JSON listing.
// GET /api/reservations/export?date=YYYY-MM-DD&room_id=...
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservations_export")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	resvs, err := s.engine.ListReservations(r.Context(), q.Get("date"), q.Get("room_id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	// Build fully in memory before touching the response so a mid-write
	// failure cannot leave a truncated workbook with a 200 status.
	var buf bytes.Buffer
	if err := export.WriteReservationsXLSX(&buf, resvs); err != nil {
		s.logger.Error().Err(err).Msg("reservation export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	filename := fmt.Sprintf("reservations_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
