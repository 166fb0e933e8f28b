// Package config loads runtime settings from defaults, an optional YAML file,
// and DAYPLAN_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("config: invalid")

type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type HTTP struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Auth struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type Calendar struct {
	Freshness time.Duration `yaml:"freshness"`
}

type Sync struct {
	BatchSize   int           `yaml:"batch_size"`
	MaxRetries  int           `yaml:"max_retries"`
	Interval    time.Duration `yaml:"interval"`
	MirrorURL   string        `yaml:"mirror_url"`
	MirrorToken string        `yaml:"mirror_token"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Planner struct {
	UserID        string `yaml:"user_id"`
	Timezone      string `yaml:"timezone"`
	DefaultEnergy int    `yaml:"default_energy"`
	DefaultFocus  int    `yaml:"default_focus"`
	WorkStart     string `yaml:"work_start"`
	WorkEnd       string `yaml:"work_end"`
}

// UI tunes the terminal client. SlotLead is how early a slot start is
// announced.
type UI struct {
	SchedulerBuffer      int           `yaml:"scheduler_buffer"`
	RefreshInterval      time.Duration `yaml:"refresh_interval"`
	SlotLead             time.Duration `yaml:"slot_lead"`
	DesktopNotifications bool          `yaml:"desktop_notifications"`
}

type Config struct {
	Database Database `yaml:"database"`
	HTTP     HTTP     `yaml:"http"`
	Auth     Auth     `yaml:"auth"`
	Calendar Calendar `yaml:"calendar"`
	Sync     Sync     `yaml:"sync"`
	Log      Log      `yaml:"log"`
	Planner  Planner  `yaml:"planner"`
	UI       UI       `yaml:"ui"`
}

func Default() Config {
	return Config{
		Database: Database{Driver: "sqlite3", DSN: "dayplan.db"},
		HTTP:     HTTP{Addr: ":8080", AllowedOrigins: []string{"*"}, ShutdownTimeout: 10 * time.Second},
		Auth:     Auth{TokenTTL: 24 * time.Hour},
		Calendar: Calendar{Freshness: 5 * time.Minute},
		Sync:     Sync{BatchSize: 20, MaxRetries: 3, Interval: 30 * time.Second},
		Log:      Log{Level: "info", Format: "text"},
		Planner:  Planner{UserID: "local", Timezone: "UTC", DefaultEnergy: 3, DefaultFocus: 3, WorkStart: "09:00", WorkEnd: "17:00"},
		UI:       UI{SchedulerBuffer: 64, RefreshInterval: time.Minute, SlotLead: 2 * time.Minute},
	}
}

// Load reads path over the defaults when the file exists, then applies the
// environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	cfg = FromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func FromEnv(base Config) Config {
	cfg := base
	if v, ok := getEnvString("DAYPLAN_DB_DRIVER"); ok {
		cfg.Database.Driver = v
	}
	if v, ok := getEnvString("DAYPLAN_DB_DSN"); ok {
		cfg.Database.DSN = v
	}
	if v, ok := getEnvString("DAYPLAN_HTTP_ADDR"); ok {
		cfg.HTTP.Addr = v
	}
	if v, ok := getEnvString("DAYPLAN_HTTP_ALLOWED_ORIGINS"); ok {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v, ok := getEnvString("DAYPLAN_AUTH_SECRET"); ok {
		cfg.Auth.Secret = v
	}
	if v, ok := getEnvDuration("DAYPLAN_AUTH_TOKEN_TTL"); ok && v > 0 {
		cfg.Auth.TokenTTL = v
	}
	if v, ok := getEnvDuration("DAYPLAN_CALENDAR_FRESHNESS"); ok && v > 0 {
		cfg.Calendar.Freshness = v
	}
	if v, ok := getEnvInt("DAYPLAN_SYNC_BATCH_SIZE"); ok && v > 0 {
		cfg.Sync.BatchSize = v
	}
	if v, ok := getEnvInt("DAYPLAN_SYNC_MAX_RETRIES"); ok && v > 0 {
		cfg.Sync.MaxRetries = v
	}
	if v, ok := getEnvDuration("DAYPLAN_SYNC_INTERVAL"); ok && v > 0 {
		cfg.Sync.Interval = v
	}
	if v, ok := getEnvString("DAYPLAN_MIRROR_URL"); ok {
		cfg.Sync.MirrorURL = v
	}
	if v, ok := getEnvString("DAYPLAN_MIRROR_TOKEN"); ok {
		cfg.Sync.MirrorToken = v
	}
	if v, ok := getEnvString("DAYPLAN_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := getEnvString("DAYPLAN_LOG_FORMAT"); ok {
		cfg.Log.Format = v
	}
	if v, ok := getEnvString("DAYPLAN_USER"); ok {
		cfg.Planner.UserID = v
	}
	if v, ok := getEnvString("DAYPLAN_TIMEZONE"); ok {
		cfg.Planner.Timezone = v
	}
	if v, ok := getEnvInt("DAYPLAN_DEFAULT_ENERGY"); ok && v > 0 {
		cfg.Planner.DefaultEnergy = v
	}
	if v, ok := getEnvInt("DAYPLAN_DEFAULT_FOCUS"); ok && v > 0 {
		cfg.Planner.DefaultFocus = v
	}
	if v, ok := getEnvInt("DAYPLAN_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.UI.SchedulerBuffer = v
	}
	if v, ok := getEnvDuration("DAYPLAN_SLOT_LEAD"); ok && v >= 0 {
		cfg.UI.SlotLead = v
	}
	if v, ok := getEnvBool("DAYPLAN_DESKTOP_NOTIFICATIONS"); ok {
		cfg.UI.DesktopNotifications = v
	}
	if v, ok := getEnvBool("DAYPLAN_HTTP_ALLOW_ALL_ORIGINS"); ok && v {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}
	return cfg
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("%w: database driver %q", ErrInvalid, c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("%w: database dsn is required", ErrInvalid)
	}
	if c.Planner.DefaultEnergy < 1 || c.Planner.DefaultEnergy > 5 {
		return fmt.Errorf("%w: default energy %d", ErrInvalid, c.Planner.DefaultEnergy)
	}
	if c.Planner.DefaultFocus < 1 || c.Planner.DefaultFocus > 5 {
		return fmt.Errorf("%w: default focus %d", ErrInvalid, c.Planner.DefaultFocus)
	}
	if _, err := time.LoadLocation(c.Planner.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q", ErrInvalid, c.Planner.Timezone)
	}
	if c.Sync.BatchSize <= 0 || c.Sync.MaxRetries <= 0 {
		return fmt.Errorf("%w: sync batch size and max retries must be positive", ErrInvalid)
	}
	return nil
}

// Location resolves Planner.Timezone; Validate guarantees it loads.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Planner.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvDuration(name string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
