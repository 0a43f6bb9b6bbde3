// Package config reads server settings from the environment and the trip
// roster from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/billbatista/acasinha-trip/member"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultPassSecret signs passes when PASS_SECRET is unset. It is public.
const DefaultPassSecret = "acasinha-trip-dev-secret"

type Config struct {
	Port        int    `env:"PORT" envDefault:"5000"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"trip.db"`
	RosterFile  string `env:"ROSTER_FILE" envDefault:"roster.yaml"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`

	AdminCode  string `env:"ADMIN_CODE" envDefault:"1130"`
	PassSecret string `env:"PASS_SECRET" envDefault:"acasinha-trip-dev-secret"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	QuipTimezone string `env:"QUIP_TIMEZONE" envDefault:"Asia/Tokyo"`

	EventBuffer int `env:"EVENT_BUFFER" envDefault:"100"`

	// Filled by Load after parsing.
	Roster   member.Roster
	Location *time.Location
}

var (
	ErrUnknownDriver      = errors.New("unknown store driver")
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required for the postgres driver")
)

// Load reads .env when present, then the environment, then the roster file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	switch cfg.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, ErrMissingDatabaseURL
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.StoreDriver)
	}

	loc, err := time.LoadLocation(cfg.QuipTimezone)
	if err != nil {
		return Config{}, fmt.Errorf("loading timezone %s: %w", cfg.QuipTimezone, err)
	}
	cfg.Location = loc

	roster, err := LoadRoster(cfg.RosterFile)
	if err != nil {
		return Config{}, err
	}
	cfg.Roster = roster

	return cfg, nil
}

// Warnings lists settings that are safe for local use only.
func (c Config) Warnings() []string {
	var warnings []string
	if c.PassSecret == DefaultPassSecret {
		warnings = append(warnings, "PASS_SECRET is the built-in default; anyone can forge member passes")
	}
	return warnings
}

// LoadRoster reads the roster YAML. A missing file yields the default roster.
func LoadRoster(path string) (member.Roster, error) {
	if path == "" {
		return member.DefaultRoster(), nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return member.DefaultRoster(), nil
	}
	if err != nil {
		return member.Roster{}, fmt.Errorf("reading roster: %w", err)
	}

	roster := member.DefaultRoster()
	roster.Photos = nil
	roster.Titles = nil
	if err := yaml.Unmarshal(raw, &roster); err != nil {
		return member.Roster{}, fmt.Errorf("parsing roster %s: %w", path, err)
	}
	if roster.Titles == nil {
		roster.Titles = map[string]string{}
	}
	if roster.Photos == nil {
		roster.Photos = map[string]string{}
	}
	if err := roster.Validate(); err != nil {
		return member.Roster{}, fmt.Errorf("invalid roster %s: %w", path, err)
	}
	return roster, nil
}
