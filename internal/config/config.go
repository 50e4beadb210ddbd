package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"roomserve/internal/models"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int     `yaml:"port"`
		RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
		RateBurst       int     `yaml:"rate_burst"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Enabled            bool   `yaml:"enabled"`
		Address            string `yaml:"address"`
		Password           string `yaml:"password"`
		DB                 int    `yaml:"db"`
		SnapshotTTLSeconds int    `yaml:"snapshot_ttl_seconds"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Rooms []RoomSeed `yaml:"rooms"`
}

// RoomSeed describes one catalog entry loaded at startup. Seeding only runs
// against an empty catalog; it never overwrites existing rooms.
type RoomSeed struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Capacity  int      `yaml:"capacity"`
	Available *bool    `yaml:"available"`
	Amenities []string `yaml:"amenities"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/roomserve.db"
	}
	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8081
	}
	if cfg.Monitoring.PrometheusPort == 0 {
		cfg.Monitoring.PrometheusPort = 9090
	}

	for i, room := range cfg.Rooms {
		if room.ID == "" || room.Name == "" {
			return nil, fmt.Errorf("rooms[%d]: id and name are required", i)
		}
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SeedRooms converts the configured catalog entries to room records.
// Availability defaults to true when unset.
func (c *Config) SeedRooms() []models.Room {
	rooms := make([]models.Room, 0, len(c.Rooms))
	for _, seed := range c.Rooms {
		available := true
		if seed.Available != nil {
			available = *seed.Available
		}
		rooms = append(rooms, models.Room{
			ID:        seed.ID,
			Name:      seed.Name,
			Capacity:  seed.Capacity,
			Available: available,
			Amenities: seed.Amenities,
		})
	}
	return rooms
}

// BackupInterval returns the configured backup cadence, daily by default.
func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// SnapshotTTL returns the snapshot cache lifetime with a short default.
func (c *Config) SnapshotTTL() time.Duration {
	if c.Redis.SnapshotTTLSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Redis.SnapshotTTLSeconds) * time.Second
}
