package engine

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"roomserve/internal/database"
	"roomserve/internal/models"
	"roomserve/internal/schedule"

	"github.com/rs/zerolog"
)

// Store is the persistence surface the engine depends on. *database.DB
// satisfies it; tests substitute mocks.
type Store interface {
	GetRooms() []models.Room
	GetRoom(id string) (models.Room, bool)
	ListReservations(ctx context.Context, f database.ReservationFilter) ([]models.Reservation, error)
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	CreateReservation(ctx context.Context, r *models.Reservation) error
	DeleteReservation(ctx context.Context, id string) error
}

// Publisher receives domain events. The in-process event bus satisfies it.
type Publisher interface {
	PublishJSON(eventType string, payload any) error
}

// Engine holds the reservation rules shared by every entry surface. The
// three adapters (REST, tool protocol, client snapshot) translate their
// transport shapes to these calls and never re-derive scheduling logic.
type Engine struct {
	store  Store
	bus    Publisher
	logger *zerolog.Logger
	now    func() time.Time
}

// New constructs an engine. bus may be nil when no event consumers exist.
func New(store Store, bus Publisher, logger *zerolog.Logger) *Engine {
	return &Engine{store: store, bus: bus, logger: logger, now: time.Now}
}

// CreateRequest is a booking proposal as it arrives from any surface, before
// validation.
type CreateRequest struct {
	RoomID    string
	UserName  string
	UserEmail string
	Date      string
	StartTime string
	EndTime   string
	Purpose   string
}

// ListRooms returns bookable rooms sorted by name.
func (e *Engine) ListRooms(ctx context.Context) []models.Room {
	return e.store.GetRooms()
}

// ListReservations returns reservations with optional date and room filters.
// With no date filter, only today-or-later reservations are returned.
func (e *Engine) ListReservations(ctx context.Context, date, roomID string) ([]models.Reservation, error) {
	filter := database.ReservationFilter{RoomID: roomID}
	if date != "" {
		d, err := schedule.ParseDate(date)
		if err != nil {
			return nil, validationf(err.Error())
		}
		filter.Date = d
	} else {
		filter.FromDate = e.today()
	}

	resvs, err := e.store.ListReservations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return resvs, nil
}

// CreateReservation runs the full proposal lifecycle: validate shape, resolve
// the room, check the schedule, persist. On success it returns the confirmed
// record and a human-readable confirmation summary; on rejection the error
// carries the first failing rule's reason.
//
// The overlap pre-check here is advisory: the store repeats it inside a
// write-locked transaction, so two concurrent proposals for the same room
// and interval can never both confirm.
func (e *Engine) CreateReservation(ctx context.Context, req CreateRequest) (*models.Reservation, string, error) {
	if err := validateCreateShape(req); err != nil {
		return nil, "", err
	}

	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, "", validationf(err.Error())
	}
	start, err := schedule.ParseClock(req.StartTime)
	if err != nil {
		return nil, "", validationf(err.Error())
	}
	end, err := schedule.ParseClock(req.EndTime)
	if err != nil {
		return nil, "", validationf(err.Error())
	}

	candidate, err := schedule.NewInterval(start, end)
	if err != nil {
		return nil, "", err
	}

	room, roomKnown := e.store.GetRoom(req.RoomID)

	var existing []schedule.Interval
	if roomKnown {
		current, err := e.store.ListReservations(ctx, database.ReservationFilter{
			Date:   date,
			RoomID: room.ID,
		})
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		for _, r := range current {
			existing = append(existing, schedule.Interval{Start: r.StartMin, End: r.EndMin})
		}
	}

	if err := schedule.CheckBookable(candidate, roomKnown, existing); err != nil {
		e.logger.Info().
			Str("room_id", req.RoomID).
			Str("date", date).
			Str("reason", err.Error()).
			Msg("reservation rejected")
		return nil, "", err
	}

	resv := &models.Reservation{
		RoomID:    room.ID,
		RoomName:  room.Name,
		UserName:  req.UserName,
		UserEmail: req.UserEmail,
		Date:      date,
		StartMin:  candidate.Start,
		EndMin:    candidate.End,
		StartTime: schedule.FormatClock(candidate.Start),
		EndTime:   schedule.FormatClock(candidate.End),
		Purpose:   req.Purpose,
	}

	if err := e.store.CreateReservation(ctx, resv); err != nil {
		if errors.Is(err, schedule.ErrOverlap) {
			// Lost the race to a concurrent create; same rejection as the
			// pre-check would have given.
			return nil, "", schedule.ErrOverlap
		}
		return nil, "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.logger.Info().
		Str("reservation_id", resv.ID).
		Str("room_id", resv.RoomID).
		Str("date", resv.Date).
		Str("time", resv.StartTime+"-"+resv.EndTime).
		Msg("reservation created")
	e.publish("reservation.created", resv)

	return resv, confirmationSummary(resv), nil
}

// CancelReservation deletes a reservation and returns a cancellation summary
// built from the record's prior values. The summary is captured before the
// delete since the row is gone afterwards.
func (e *Engine) CancelReservation(ctx context.Context, id string) (string, error) {
	resv, err := e.store.GetReservation(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return "", database.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	summary := cancellationSummary(resv)

	if err := e.store.DeleteReservation(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return "", database.ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.logger.Info().
		Str("reservation_id", id).
		Str("room_id", resv.RoomID).
		Msg("reservation cancelled")
	e.publish("reservation.cancelled", resv)

	return summary, nil
}

func (e *Engine) publish(eventType string, payload any) {
	if e.bus == nil {
		return
	}
	if err := e.bus.PublishJSON(eventType, payload); err != nil {
		e.logger.Warn().Err(err).Str("event", eventType).Msg("event publish failed")
	}
}

func (e *Engine) today() string {
	return e.now().Format("2006-01-02")
}

func validateCreateShape(req CreateRequest) error {
	switch {
	case req.RoomID == "":
		return validationf("room_id is required")
	case strings.TrimSpace(req.UserName) == "":
		return validationf("user_name is required")
	case req.Date == "":
		return validationf("date is required")
	case req.StartTime == "":
		return validationf("start_time is required")
	case req.EndTime == "":
		return validationf("end_time is required")
	}
	if req.UserEmail != "" {
		if _, err := mail.ParseAddress(req.UserEmail); err != nil {
			return validationf("user_email is not a valid address")
		}
	}
	return nil
}

func confirmationSummary(r *models.Reservation) string {
	var b strings.Builder
	b.WriteString("Reservation confirmed.\n")
	fmt.Fprintf(&b, "- Room: %s\n", r.RoomName)
	fmt.Fprintf(&b, "- Booked by: %s\n", r.UserName)
	fmt.Fprintf(&b, "- Date: %s\n", r.Date)
	fmt.Fprintf(&b, "- Time: %s ~ %s\n", r.StartTime, r.EndTime)
	if r.Purpose != "" {
		fmt.Fprintf(&b, "- Purpose: %s\n", r.Purpose)
	}
	fmt.Fprintf(&b, "- Reservation ID: %s", r.ID)
	return b.String()
}

func cancellationSummary(r *models.Reservation) string {
	var b strings.Builder
	b.WriteString("Reservation cancelled.\n")
	fmt.Fprintf(&b, "- Room: %s\n", r.RoomName)
	fmt.Fprintf(&b, "- Booked by: %s\n", r.UserName)
	fmt.Fprintf(&b, "- Date: %s\n", r.Date)
	fmt.Fprintf(&b, "- Time: %s ~ %s", r.StartTime, r.EndTime)
	return b.String()
}
