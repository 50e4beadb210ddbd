package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"roomserve/internal/database"
	"roomserve/internal/engine"
	"roomserve/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func newTestServer(t *testing.T, opts Options) *HTTPServer {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), &logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	err = db.SeedRooms(context.Background(), []models.Room{
		{ID: "room-alpha", Name: "Alpha", Capacity: 4, Available: true, Amenities: []string{"tv"}},
		{ID: "room-beta", Name: "Beta", Capacity: 8, Available: true},
	})
	if err != nil {
		t.Fatalf("seed rooms: %v", err)
	}

	eng := engine.New(db, nil, &logger)
	return NewHTTPServer(eng, &logger, opts)
}

// testDate returns a date safely in the future so the default
// today-or-later listing window always includes it.
func testDate(t *testing.T) string {
	t.Helper()
	return time.Now().AddDate(0, 0, 7).Format("2006-01-02")
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			reader = bytes.NewReader([]byte(s))
		} else {
			data, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createBody(date, start, end string) map[string]string {
	return map[string]string{
		"room_id":    "room-alpha",
		"user_name":  "kim",
		"date":       date,
		"start_time": start,
		"end_time":   end,
	}
}

func TestHandleRooms(t *testing.T) {
	srv := newTestServer(t, Options{})

	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/rooms", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Rooms []models.Room `json:"rooms"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Rooms) != 2 {
		t.Fatalf("rooms = %d, want 2", len(resp.Rooms))
	}
	if resp.Rooms[0].Name != "Alpha" || resp.Rooms[1].Name != "Beta" {
		t.Errorf("rooms not sorted by name: %q, %q", resp.Rooms[0].Name, resp.Rooms[1].Name)
	}

	w = doJSON(t, srv.Handler(), http.MethodPost, "/api/rooms", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestCreateReservationStatusMapping(t *testing.T) {
	srv := newTestServer(t, Options{})
	date := testDate(t)

	// Occupy 10:00-11:00 so the conflict case has something to hit.
	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/reservations", createBody(date, "10:00", "11:00"))
	if w.Code != http.StatusCreated {
		t.Fatalf("setup create status = %d, body %s", w.Code, w.Body.String())
	}

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{
			name:       "overlap conflict",
			body:       createBody(date, "10:30", "11:30"),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "back-to-back succeeds",
			body:       createBody(date, "11:00", "12:00"),
			wantStatus: http.StatusCreated,
		},
		{
			name:       "outside business hours",
			body:       createBody(date, "07:00", "08:00"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "off-grid minutes",
			body:       createBody(date, "10:15", "11:15"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "inverted range",
			body:       createBody(date, "15:00", "14:00"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown room",
			body: map[string]string{
				"room_id": "room-nope", "user_name": "kim", "date": date,
				"start_time": "10:00", "end_time": "11:00",
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "missing user_name",
			body:       map[string]string{"room_id": "room-alpha", "date": date, "start_time": "10:00", "end_time": "11:00"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid JSON",
			body:       "not json",
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown field rejected",
			body: map[string]string{
				"room_id": "room-alpha", "user_name": "kim", "date": date,
				"start_time": "13:00", "end_time": "14:00", "color": "blue",
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, srv.Handler(), http.MethodPost, "/api/reservations", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestCancelReservation(t *testing.T) {
	srv := newTestServer(t, Options{})
	date := testDate(t)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/reservations", createBody(date, "10:00", "11:00"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var created struct {
		Reservation models.Reservation `json:"reservation"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.Reservation.ID == "" {
		t.Fatal("created reservation has no id")
	}

	w = doJSON(t, srv.Handler(), http.MethodDelete, "/api/reservations/"+created.Reservation.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want %d", w.Code, http.StatusOK)
	}

	// The row is gone; a second delete is a 404.
	w = doJSON(t, srv.Handler(), http.MethodDelete, "/api/reservations/"+created.Reservation.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("repeat delete status = %d, want %d", w.Code, http.StatusNotFound)
	}

	// And the freed interval books again.
	w = doJSON(t, srv.Handler(), http.MethodPost, "/api/reservations", createBody(date, "10:00", "11:00"))
	if w.Code != http.StatusCreated {
		t.Errorf("rebook status = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestListReservationsFilters(t *testing.T) {
	srv := newTestServer(t, Options{})
	date := testDate(t)
	other := time.Now().AddDate(0, 0, 8).Format("2006-01-02")

	for _, pair := range [][2]string{{"10:00", "11:00"}, {"14:00", "15:00"}} {
		w := doJSON(t, srv.Handler(), http.MethodPost, "/api/reservations", createBody(date, pair[0], pair[1]))
		if w.Code != http.StatusCreated {
			t.Fatalf("create status = %d", w.Code)
		}
	}
	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/reservations", createBody(other, "10:00", "11:00"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}

	var resp struct {
		Reservations []models.Reservation `json:"reservations"`
	}

	w = doJSON(t, srv.Handler(), http.MethodGet, "/api/reservations?date="+date, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Reservations) != 2 {
		t.Errorf("filtered list = %d entries, want 2", len(resp.Reservations))
	}

	w = doJSON(t, srv.Handler(), http.MethodGet, "/api/reservations", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Reservations) != 3 {
		t.Errorf("unfiltered list = %d entries, want 3", len(resp.Reservations))
	}

	w = doJSON(t, srv.Handler(), http.MethodGet, "/api/reservations?date=31-12-2026", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleAvailability(t *testing.T) {
	srv := newTestServer(t, Options{})
	date := testDate(t)
	month := date[:7]

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/reservations", createBody(date, "10:00", "11:00"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}

	t.Run("month mode", func(t *testing.T) {
		w := doJSON(t, srv.Handler(), http.MethodGet, "/api/availability?room_id=room-alpha&month="+month, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		var resp engine.MonthAvailability
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(resp.Days) < 28 {
			t.Errorf("days = %d, want a full month", len(resp.Days))
		}
		for _, d := range resp.Days {
			if d.Date == date && !d.HasReservations {
				t.Errorf("day %s should report reservations", date)
			}
		}
	})

	t.Run("date mode", func(t *testing.T) {
		w := doJSON(t, srv.Handler(), http.MethodGet, "/api/availability?room_id=room-alpha&date="+date, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		var resp engine.DaySlots
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		disabled := map[string]bool{}
		for _, slot := range resp.StartSlots {
			disabled[slot.Time] = slot.Disabled
		}
		if !disabled["10:00"] || !disabled["10:30"] {
			t.Error("booked starts should be disabled")
		}
		if disabled["11:00"] {
			t.Error("11:00 should be selectable after a 10:00-11:00 booking")
		}
	})

	t.Run("parameter validation", func(t *testing.T) {
		cases := []struct {
			query      string
			wantStatus int
		}{
			{"?month=" + month, http.StatusBadRequest},
			{"?room_id=room-alpha", http.StatusBadRequest},
			{"?room_id=room-alpha&month=" + month + "&date=" + date, http.StatusBadRequest},
			{"?room_id=room-nope&month=" + month, http.StatusNotFound},
			{"?room_id=room-alpha&month=2026-9", http.StatusBadRequest},
		}
		for _, c := range cases {
			w := doJSON(t, srv.Handler(), http.MethodGet, "/api/availability"+c.query, nil)
			if w.Code != c.wantStatus {
				t.Errorf("%s: status = %d, want %d", c.query, w.Code, c.wantStatus)
			}
		}
	})
}

func TestHandleSnapshot(t *testing.T) {
	srv := newTestServer(t, Options{})
	date := testDate(t)

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/reservations", createBody(date, "10:00", "11:00"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}

	w = doJSON(t, srv.Handler(), http.MethodGet, "/api/snapshot", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(snap.Rooms) != 2 {
		t.Errorf("rooms = %d, want 2", len(snap.Rooms))
	}
	if len(snap.Reservations) != 1 {
		t.Errorf("reservations = %d, want 1", len(snap.Reservations))
	}
}

func TestSnapshotCaching(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	srv := newTestServer(t, Options{Cache: cache, SnapshotTTL: time.Minute})
	date := testDate(t)

	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/snapshot", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !mr.Exists(snapshotCacheKey) {
		t.Fatal("snapshot was not cached")
	}

	// Within the TTL the cached body is served, so a write made in between
	// is not yet visible.
	w = doJSON(t, srv.Handler(), http.MethodPost, "/api/reservations", createBody(date, "10:00", "11:00"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}

	w = doJSON(t, srv.Handler(), http.MethodGet, "/api/snapshot", nil)
	var snap engine.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(snap.Reservations) != 0 {
		t.Errorf("cached snapshot has %d reservations, want 0", len(snap.Reservations))
	}

	mr.FastForward(2 * time.Minute)
	w = doJSON(t, srv.Handler(), http.MethodGet, "/api/snapshot", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(snap.Reservations) != 1 {
		t.Errorf("refreshed snapshot has %d reservations, want 1", len(snap.Reservations))
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, Options{RateLimit: rate.Limit(0.001), RateBurst: 2})

	for i := 0; i < 2; i++ {
		w := doJSON(t, srv.Handler(), http.MethodGet, "/api/rooms", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/rooms", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
}
