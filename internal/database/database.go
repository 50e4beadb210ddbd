package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"roomserve/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB represents the database connection and the room catalog cache.
type DB struct {
	*sql.DB
	roomsCache map[string]models.Room
	mu         sync.RWMutex
	logger     *zerolog.Logger
}

// ErrNotFound is returned when a lookup target does not exist.
var ErrNotFound = errors.New("not found")

const queryTimeout = 5 * time.Second

// NewDB initializes a new database connection and creates tables if they
// don't exist.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode with a busy timeout, and immediate transactions so the
	// check-then-insert in CreateReservation takes the write lock up front
	// rather than racing for it at commit.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{
		DB:         db,
		roomsCache: make(map[string]models.Room),
		logger:     logger,
	}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := instance.LoadRooms(context.Background()); err != nil {
		logger.Error().Err(err).Msg("failed to load rooms into cache")
		// Not fatal: the catalog may be seeded after startup.
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			capacity INTEGER NOT NULL DEFAULT 1,
			available BOOLEAN NOT NULL DEFAULT 1,
			amenities TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			room_name TEXT NOT NULL,
			user_name TEXT NOT NULL,
			user_email TEXT,
			date TEXT NOT NULL,
			start_min INTEGER NOT NULL,
			end_min INTEGER NOT NULL,
			purpose TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(room_id) REFERENCES rooms(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_reservations_room_date ON reservations(room_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_date_start ON reservations(date, start_min)`,
		`CREATE INDEX IF NOT EXISTS idx_rooms_available ON rooms(available)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// LoadRooms refreshes the in-process room catalog cache.
func (db *DB) LoadRooms(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, capacity, available, amenities, created_at
		FROM rooms`)
	if err != nil {
		return fmt.Errorf("load rooms: %w", err)
	}
	defer rows.Close()

	cache := make(map[string]models.Room)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return err
		}
		cache[room.ID] = room
	}
	if err := rows.Err(); err != nil {
		return err
	}

	db.mu.Lock()
	db.roomsCache = cache
	db.mu.Unlock()
	return nil
}

// GetRooms returns bookable rooms sorted by name. Served from the cache.
func (db *DB) GetRooms() []models.Room {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rooms := make([]models.Room, 0, len(db.roomsCache))
	for _, r := range db.roomsCache {
		if r.Available {
			rooms = append(rooms, r)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms
}

// GetRoom returns a room by id regardless of its availability flag.
func (db *DB) GetRoom(id string) (models.Room, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	room, ok := db.roomsCache[id]
	return room, ok
}

// SeedRooms inserts the given rooms if the catalog is empty. Used on first
// start so a fresh deployment has something to book.
func (db *DB) SeedRooms(ctx context.Context, rooms []models.Room) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&count); err != nil {
		return fmt.Errorf("count rooms: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, r := range rooms {
		amenities, err := json.Marshal(r.Amenities)
		if err != nil {
			return fmt.Errorf("marshal amenities: %w", err)
		}
		if _, err := db.ExecContext(ctx, `
			INSERT INTO rooms (id, name, capacity, available, amenities)
			VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.Name, r.Capacity, r.Available, string(amenities),
		); err != nil {
			return fmt.Errorf("seed room %s: %w", r.Name, err)
		}
	}

	db.logger.Info().Int("count", len(rooms)).Msg("room catalog seeded")
	return db.LoadRooms(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (models.Room, error) {
	var r models.Room
	var amenities string
	if err := row.Scan(&r.ID, &r.Name, &r.Capacity, &r.Available, &amenities, &r.CreatedAt); err != nil {
		return models.Room{}, fmt.Errorf("scan room: %w", err)
	}
	if err := json.Unmarshal([]byte(amenities), &r.Amenities); err != nil {
		return models.Room{}, fmt.Errorf("decode amenities: %w", err)
	}
	return r, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
