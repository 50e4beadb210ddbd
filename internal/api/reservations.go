package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"roomserve/internal/engine"
	"roomserve/internal/metrics"
	"roomserve/internal/models"
)

// CreateReservationRequest is the request body for POST /api/reservations.
type CreateReservationRequest struct {
	RoomID    string `json:"room_id"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email,omitempty"`
	Date      string `json:"date"`       // Format: YYYY-MM-DD
	StartTime string `json:"start_time"` // Format: HH:MM
	EndTime   string `json:"end_time"`   // Format: HH:MM
	Purpose   string `json:"purpose,omitempty"`
}

// handleReservations lists or creates reservations.
// GET  /api/reservations?date=YYYY-MM-DD&room_id=...
// POST /api/reservations
func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listReservations(w, r)
	case http.MethodPost:
		s.createReservation(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) listReservations(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservations_list")

	q := r.URL.Query()
	resvs, err := s.engine.ListReservations(r.Context(), q.Get("date"), q.Get("room_id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if resvs == nil {
		resvs = []models.Reservation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": resvs})
}

func (s *HTTPServer) createReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservations_create")

	var req CreateReservationRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		metrics.IncReservationRejected("validation")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resv, summary, err := s.engine.CreateReservation(r.Context(), engine.CreateRequest{
		RoomID:    req.RoomID,
		UserName:  req.UserName,
		UserEmail: req.UserEmail,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Purpose:   req.Purpose,
	})
	if err != nil {
		metrics.IncReservationRejected(rejectionReason(err))
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"reservation": resv,
		"summary":     summary,
	})
}

// handleReservationByID cancels a single reservation.
// DELETE /api/reservations/{id}
func (s *HTTPServer) handleReservationByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservations_cancel")

	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/reservations/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}

	summary, err := s.engine.CancelReservation(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
}
