package models

import "time"

// Room is a bookable meeting room. The reservation engine only reads rooms;
// catalog changes happen out of band.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	Available bool      `json:"available"`
	Amenities []string  `json:"amenities"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Reservation is a confirmed booking of one room for one time range on one
// date. Times are minutes since midnight; the API renders them as HH:MM.
// Reservations are never mutated: changing one is cancel-then-recreate.
type Reservation struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	RoomName  string    `json:"room_name"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email,omitempty"`
	Date      string    `json:"date"` // YYYY-MM-DD
	StartMin  int       `json:"-"`
	EndMin    int       `json:"-"`
	StartTime string    `json:"start_time"` // HH:MM, derived from StartMin
	EndTime   string    `json:"end_time"`   // HH:MM, derived from EndMin
	Purpose   string    `json:"purpose,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// MergedBlock is a display-only aggregation of back-to-back reservations by
// the same booker in the same room on the same date. It carries every
// constituent reservation id so a cancel on the block can fan out; it is
// never stored and never reuses the primary id field for multiple ids.
type MergedBlock struct {
	RoomID    string   `json:"room_id"`
	RoomName  string   `json:"room_name"`
	UserName  string   `json:"user_name"`
	Date      string   `json:"date"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	IDs       []string `json:"reservation_ids"`
}
