// Package config loads process settings from an optional .env file and the environment.
package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/example/studyquest/internal/database"
)

// Prefix is prepended to every environment key
const Prefix = "STUDYQUEST_"

// Config holds every setting of the studyquest server
type Config struct {
	DBDriver           string        `env:"DB_DRIVER" envDefault:"sqlite3"`
	DBDSN              string        `env:"DB_DSN" envDefault:"data/studyquest.db"`
	HTTPAddr           string        `env:"HTTP_ADDR" envDefault:":8080"`
	JWTSecret          string        `env:"JWT_SECRET"`
	Timezone           string        `env:"TIMEZONE" envDefault:"UTC"`
	TelegramBotToken   string        `env:"TELEGRAM_BOT_TOKEN"`
	ReminderStartHour  int           `env:"REMINDER_START_HOUR" envDefault:"8"`
	ReminderEndHour    int           `env:"REMINDER_END_HOUR" envDefault:"20"`
	SyncRatePerSecond  float64       `env:"SYNC_RATE_PER_SECOND" envDefault:"2"`
	SyncBurst          int           `env:"SYNC_BURST" envDefault:"5"`
	SyncBatchRetention time.Duration `env:"SYNC_BATCH_RETENTION" envDefault:"720h"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat          string        `env:"LOG_FORMAT" envDefault:"text"`

	loc *time.Location
}

// Load reads envFile (or ./.env when envFile is empty and the file exists)
// and then decodes the process environment.
func Load(envFile string) (*Config, error) {
	switch {
	case envFile != "":
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.Wrapf(err, "failed to load env file %s", envFile)
		}
	default:
		if _, err := os.Stat(".env"); err == nil {
			if err := godotenv.Load(); err != nil {
				return nil, errors.Wrap(err, "failed to load .env")
			}
		}
	}
	return parse(env.Options{Prefix: Prefix})
}

// FromMap decodes settings from an explicit environment instead of the process one
func FromMap(environ map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every setting and resolves the time zone.
// All problems are reported together.
func (c *Config) Validate() error {
	var problems []string

	if c.DBDriver != database.DriverSQLite && c.DBDriver != database.DriverPostgres {
		problems = append(problems, "DB_DRIVER must be sqlite3 or postgres")
	}
	if c.DBDSN == "" {
		problems = append(problems, "DB_DSN is required")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		problems = append(problems, "TIMEZONE is not a known time zone")
	} else {
		c.loc = loc
	}
	if c.ReminderStartHour < 0 || c.ReminderStartHour > 23 || c.ReminderEndHour < 0 || c.ReminderEndHour > 23 {
		problems = append(problems, "REMINDER_START_HOUR and REMINDER_END_HOUR must be between 0 and 23")
	} else if c.ReminderStartHour > c.ReminderEndHour {
		problems = append(problems, "REMINDER_START_HOUR must not be after REMINDER_END_HOUR")
	}
	if c.SyncRatePerSecond <= 0 {
		problems = append(problems, "SYNC_RATE_PER_SECOND must be positive")
	}
	if c.SyncBurst < 1 {
		problems = append(problems, "SYNC_BURST must be at least 1")
	}
	if c.SyncBatchRetention < 0 {
		problems = append(problems, "SYNC_BATCH_RETENTION must not be negative")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		problems = append(problems, "LOG_LEVEL must be debug, info, warn or error")
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		problems = append(problems, "LOG_FORMAT must be text or json")
	}

	if len(problems) > 0 {
		return errors.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location is the time zone used for day and week keys
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// RequireServe checks the settings only the HTTP server needs
func (c *Config) RequireServe() error {
	if c.JWTSecret == "" {
		return errors.New("invalid configuration: JWT_SECRET is required to serve")
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

// NewLogger builds the process logger writing to w
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
