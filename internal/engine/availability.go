package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"roomserve/internal/database"
	"roomserve/internal/models"
	"roomserve/internal/schedule"
)

var monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

// DayAvailability says whether a calendar day can take any further booking.
type DayAvailability struct {
	Date            string `json:"date"`
	HasFreeSlot     bool   `json:"has_free_slot"`
	HasReservations bool   `json:"has_reservations"`
}

// SlotOption is one selectable picker entry. A start option is disabled when
// a booking of the minimum granularity could not begin there; an end option
// when one could not finish there.
type SlotOption struct {
	Time       string `json:"time"`
	DefaultEnd string `json:"default_end,omitempty"`
	Disabled   bool   `json:"disabled"`
}

// MonthAvailability is the per-day free-slot map for one room and month.
type MonthAvailability struct {
	RoomID string            `json:"room_id"`
	Month  string            `json:"month"`
	Days   []DayAvailability `json:"days"`
}

// DaySlots lists the remaining start and end options for one room and date.
type DaySlots struct {
	RoomID     string       `json:"room_id"`
	Date       string       `json:"date"`
	StartSlots []SlotOption `json:"start_slots"`
	EndSlots   []SlotOption `json:"end_slots"`
}

// MonthAvailability derives, for every day of the month, whether the room
// still has a bookable gap. Read-only: it works on a snapshot and may be
// slightly stale, which is acceptable for display.
func (e *Engine) MonthAvailability(ctx context.Context, roomID, month string) (*MonthAvailability, error) {
	if !monthRe.MatchString(month) {
		return nil, validationf(fmt.Sprintf("invalid month %q; expected YYYY-MM", month))
	}
	first, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, validationf(fmt.Sprintf("invalid month %q", month))
	}
	if _, ok := e.store.GetRoom(roomID); !ok {
		return nil, schedule.ErrRoomUnknown
	}

	resvs, err := e.store.ListReservations(ctx, database.ReservationFilter{
		RoomID:   roomID,
		FromDate: month + "-01",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	byDate := make(map[string][]schedule.Interval)
	for _, r := range resvs {
		if !strings.HasPrefix(r.Date, month+"-") {
			continue
		}
		byDate[r.Date] = append(byDate[r.Date], schedule.Interval{Start: r.StartMin, End: r.EndMin})
	}

	out := &MonthAvailability{RoomID: roomID, Month: month}
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		date := d.Format("2006-01-02")
		ivs := byDate[date]
		out.Days = append(out.Days, DayAvailability{
			Date:            date,
			HasFreeSlot:     schedule.DayHasFreeSlot(ivs),
			HasReservations: len(ivs) > 0,
		})
	}
	return out, nil
}

// DaySlots derives the remaining selectable start and end options for a room
// and date, with the one-hour default end pre-filled per start.
func (e *Engine) DaySlots(ctx context.Context, roomID, date string) (*DaySlots, error) {
	d, err := schedule.ParseDate(date)
	if err != nil {
		return nil, validationf(err.Error())
	}
	if _, ok := e.store.GetRoom(roomID); !ok {
		return nil, schedule.ErrRoomUnknown
	}

	resvs, err := e.store.ListReservations(ctx, database.ReservationFilter{RoomID: roomID, Date: d})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var existing []schedule.Interval
	for _, r := range resvs {
		existing = append(existing, schedule.Interval{Start: r.StartMin, End: r.EndMin})
	}

	out := &DaySlots{RoomID: roomID, Date: d}
	for _, s := range schedule.StartSlots() {
		probe := schedule.Interval{Start: s, End: s + schedule.SlotMinutes}
		out.StartSlots = append(out.StartSlots, SlotOption{
			Time:       schedule.FormatClock(s),
			DefaultEnd: schedule.FormatClock(schedule.DefaultEndFor(s)),
			Disabled:   anyOverlap(probe, existing),
		})
	}
	for _, t := range schedule.EndSlots() {
		probe := schedule.Interval{Start: t - schedule.SlotMinutes, End: t}
		out.EndSlots = append(out.EndSlots, SlotOption{
			Time:     schedule.FormatClock(t),
			Disabled: anyOverlap(probe, existing),
		})
	}
	return out, nil
}

// Snapshot bundles everything a client renders in one payload: the room
// catalog, the reservation list, today's merged timeline and the in-use flag
// per room. The client-direct surface serves this instead of letting the UI
// re-derive engine rules.
type Snapshot struct {
	GeneratedAt  time.Time            `json:"generated_at"`
	Today        string               `json:"today"`
	Rooms        []models.Room        `json:"rooms"`
	Reservations []models.Reservation `json:"reservations"`
	Timeline     []models.MergedBlock `json:"timeline"`
	InUse        map[string]bool      `json:"in_use"`
}

// Snapshot builds the client-direct payload. Read-only and safe to run in
// parallel with writes; a slightly stale view is acceptable.
func (e *Engine) Snapshot(ctx context.Context) (*Snapshot, error) {
	resvs, err := e.store.ListReservations(ctx, database.ReservationFilter{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := e.now()
	today := now.Format("2006-01-02")
	nowMin := now.Hour()*60 + now.Minute()

	var todays []models.Reservation
	inUse := make(map[string]bool)
	for _, r := range resvs {
		if r.Date != today {
			continue
		}
		todays = append(todays, r)
		if r.StartMin <= nowMin && nowMin < r.EndMin {
			inUse[r.RoomID] = true
		}
	}

	return &Snapshot{
		GeneratedAt:  now,
		Today:        today,
		Rooms:        e.store.GetRooms(),
		Reservations: resvs,
		Timeline:     schedule.MergeTimeline(todays),
		InUse:        inUse,
	}, nil
}

func anyOverlap(probe schedule.Interval, existing []schedule.Interval) bool {
	for _, iv := range existing {
		if probe.Overlaps(iv) {
			return true
		}
	}
	return false
}
