// Package config loads the server configuration from a YAML file with
// environment overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ReservaConfig holds the booking platform connection settings.
type ReservaConfig struct {
	BaseURL    string `yaml:"base_url"`
	BusinessID string `yaml:"business_id"`
}

// RemoteLockConfig holds the lock platform connection and provisioning
// settings.
type RemoteLockConfig struct {
	BaseURL     string `yaml:"base_url"`
	AccessToken string `yaml:"access_token"`

	// minutes the door opens before the reserved start
	BufferMin int `yaml:"buffer_min"`
	// days ahead recurring access is expanded
	DayRange int `yaml:"day_range"`
	// placeholder exception distance when a horizon yields none
	ExceptionDays int `yaml:"exception_days"`
	// guests whose access ended this long ago get deleted
	ExpiredDays int `yaml:"expired_days"`
}

// ReportConfig holds the report cache lifetimes in seconds.
type ReportConfig struct {
	LocalTTLSeconds  int `yaml:"local_ttl_seconds"`
	RemoteTTLSeconds int `yaml:"remote_ttl_seconds"`
}

// ScheduleConfig holds the cron specs for the periodic batches.
type ScheduleConfig struct {
	RecurringSyncSpec string `yaml:"recurring_sync"`
	CleanupSpec       string `yaml:"cleanup"`
	SnapshotSpec      string `yaml:"snapshot"`
}

// Config is the whole server configuration.
type Config struct {
	ListenAddr   string `yaml:"listen_addr"`
	DatabasePath string `yaml:"database_path"`
	RosterPath   string `yaml:"roster_path"`
	WebhookToken string `yaml:"webhook_token"`

	// months of usage snapshots kept by the monthly batch
	SnapshotMonths int `yaml:"snapshot_months"`

	Reserva    ReservaConfig    `yaml:"reserva"`
	RemoteLock RemoteLockConfig `yaml:"remotelock"`
	Report     ReportConfig     `yaml:"report"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
}

// Default returns the configuration defaults applied under the file.
func Default() Config {
	return Config{
		ListenAddr:     ":8080",
		DatabasePath:   "reservalock.db",
		RosterPath:     "roster.csv",
		SnapshotMonths: 24,
		Reserva: ReservaConfig{
			BaseURL: "https://reserva.be",
		},
		RemoteLock: RemoteLockConfig{
			BaseURL:       "https://api.remotelock.jp",
			BufferMin:     30,
			DayRange:      90,
			ExceptionDays: 365,
			ExpiredDays:   30,
		},
		Report: ReportConfig{
			LocalTTLSeconds:  3600,
			RemoteTTLSeconds: 43200,
		},
		Schedule: ScheduleConfig{
			RecurringSyncSpec: "0 0 4 * * *",
			CleanupSpec:       "0 30 4 * * *",
			SnapshotSpec:      "0 0 5 1 * *",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies
// environment overrides. A missing file leaves the defaults in place.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyEnv(&cfg)

	if cfg.WebhookToken == "" {
		return Config{}, fmt.Errorf("webhook token not configured")
	}
	return cfg, nil
}

// applyEnv overrides file values with RESERVALOCK_* environment
// variables, keeping secrets out of the config file.
func applyEnv(cfg *Config) {
	setString(&cfg.ListenAddr, "RESERVALOCK_LISTEN_ADDR")
	setString(&cfg.DatabasePath, "RESERVALOCK_DATABASE_PATH")
	setString(&cfg.RosterPath, "RESERVALOCK_ROSTER_PATH")
	setString(&cfg.WebhookToken, "RESERVALOCK_WEBHOOK_TOKEN")
	setString(&cfg.Reserva.BaseURL, "RESERVALOCK_RESERVA_URL")
	setString(&cfg.Reserva.BusinessID, "RESERVALOCK_RESERVA_BUSINESS_ID")
	setString(&cfg.RemoteLock.BaseURL, "RESERVALOCK_REMOTELOCK_URL")
	setString(&cfg.RemoteLock.AccessToken, "RESERVALOCK_REMOTELOCK_TOKEN")
	setInt(&cfg.RemoteLock.BufferMin, "RESERVALOCK_BUFFER_MIN")
	setInt(&cfg.RemoteLock.DayRange, "RESERVALOCK_DAY_RANGE")
	setInt(&cfg.RemoteLock.ExpiredDays, "RESERVALOCK_EXPIRED_DAYS")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// LocalTTL returns the report cache's in-process lifetime.
func (c ReportConfig) LocalTTL() time.Duration {
	return time.Duration(c.LocalTTLSeconds) * time.Second
}

// RemoteTTL returns the report cache's durable-tier lifetime.
func (c ReportConfig) RemoteTTL() time.Duration {
	return time.Duration(c.RemoteTTLSeconds) * time.Second
}
