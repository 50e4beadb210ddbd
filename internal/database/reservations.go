package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roomserve/internal/models"
	"roomserve/internal/schedule"

	"github.com/google/uuid"
)

// ReservationFilter narrows ListReservations. Zero values mean "no filter";
// FromDate is the today-or-later default applied when Date is empty.
type ReservationFilter struct {
	Date     string
	RoomID   string
	FromDate string
}

// ListReservations returns reservations matching the filter, sorted by
// (date, start time) ascending.
func (db *DB) ListReservations(ctx context.Context, f ReservationFilter) ([]models.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, room_id, room_name, user_name, user_email, date,
		       start_min, end_min, purpose, created_at
		FROM reservations WHERE 1=1`
	var args []any

	if f.Date != "" {
		query += " AND date = ?"
		args = append(args, f.Date)
	} else if f.FromDate != "" {
		query += " AND date >= ?"
		args = append(args, f.FromDate)
	}
	if f.RoomID != "" {
		query += " AND room_id = ?"
		args = append(args, f.RoomID)
	}
	query += " ORDER BY date, start_min"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var resvs []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		resvs = append(resvs, r)
	}
	return resvs, rows.Err()
}

// GetReservation returns a reservation by id, or ErrNotFound.
func (db *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := db.QueryRowContext(ctx, `
		SELECT id, room_id, room_name, user_name, user_email, date,
		       start_min, end_min, purpose, created_at
		FROM reservations WHERE id = ?`, id)

	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReservation inserts a reservation, assigning its id. The overlap
// check runs again inside an immediate (write-locked) transaction: the
// engine's pre-check is advisory only, since two concurrent creates can both
// pass it before either persists. A collision detected here surfaces as the
// same schedule.ErrOverlap the pre-check would have produced.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var clashing int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE room_id = ? AND date = ? AND start_min < ? AND end_min > ?`,
		r.RoomID, r.Date, r.EndMin, r.StartMin,
	).Scan(&clashing)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if clashing > 0 {
		return schedule.ErrOverlap
	}

	r.ID = uuid.New().String()
	r.CreatedAt = time.Now()

	var email, purpose any
	if r.UserEmail != "" {
		email = r.UserEmail
	}
	if r.Purpose != "" {
		purpose = r.Purpose
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reservations (
			id, room_id, room_name, user_name, user_email,
			date, start_min, end_min, purpose, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RoomID, r.RoomName, r.UserName, email,
		r.Date, r.StartMin, r.EndMin, purpose, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DeleteReservation removes a reservation entirely. No soft delete exists;
// cancellation destroys the row.
func (db *DB) DeleteReservation(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanReservation(row rowScanner) (models.Reservation, error) {
	var r models.Reservation
	var email, purpose sql.NullString
	err := row.Scan(
		&r.ID, &r.RoomID, &r.RoomName, &r.UserName, &email,
		&r.Date, &r.StartMin, &r.EndMin, &purpose, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reservation{}, err
		}
		return models.Reservation{}, fmt.Errorf("scan reservation: %w", err)
	}
	r.UserEmail = email.String
	r.Purpose = purpose.String
	r.StartTime = schedule.FormatClock(r.StartMin)
	r.EndTime = schedule.FormatClock(r.EndMin)
	return r, nil
}
