// Package config holds the configuration passed explicitly to the store,
// the mail transport, the scheduler and the HTTP server.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// AppName is used for the config directory and env prefix.
const AppName = "imparable"

// EnvPrefix prefixes every environment override, e.g. IMPARABLE_MAIL_TRANSPORT.
const EnvPrefix = "IMPARABLE"

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Mail      MailConfig      `mapstructure:"mail"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address. Default: ":8080"
	Addr string `mapstructure:"addr"`
	// ReadTimeout bounds reading a request. Default: 15s
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects the document store.
type StorageConfig struct {
	// Backend is one of badger, sqlite, postgres. Default: badger
	Backend string `mapstructure:"backend"`
	// Path is the Badger directory. Default: $XDG_DATA_HOME/imparable/db
	Path string `mapstructure:"path"`
	// DSN is the SQL data source for sqlite and postgres.
	DSN string `mapstructure:"dsn"`
}

// MailConfig configures outgoing email.
type MailConfig struct {
	// Transport is one of smtp, webhook, log. Default: log
	Transport string `mapstructure:"transport"`
	// From is the sender address.
	From string `mapstructure:"from"`
	// FromName is the display name. Default: "Imparable App"
	FromName string `mapstructure:"from_name"`
	// AppName appears in templates. Default: "Imparable"
	AppName string        `mapstructure:"app_name"`
	SMTP    SMTPConfig    `mapstructure:"smtp"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// SMTPConfig configures the SMTP transport.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// PasswordRef names a keyring entry ("keyring:<key>") used when Password is empty.
	PasswordRef string `mapstructure:"password_ref"`
	// ImplicitTLS dials TLS directly (port 465) instead of STARTTLS.
	ImplicitTLS bool `mapstructure:"implicit_tls"`
	// StartTLS upgrades a plain connection before auth. Ignored with ImplicitTLS. Default: true
	StartTLS bool `mapstructure:"starttls"`
}

// WebhookConfig configures the HTTP mail API transport.
type WebhookConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// SchedulerConfig configures the deadline check.
type SchedulerConfig struct {
	// Enabled registers the cron job when serving. Default: true
	Enabled bool `mapstructure:"enabled"`
	// Cron is a six-field cron spec with seconds. Default: "0 0 9 * * *"
	Cron string `mapstructure:"cron"`
	// Timezone is the reference zone for calendar days. Default: "Local"
	Timezone string `mapstructure:"timezone"`
	// Workers bounds concurrent objective processing. Default: 4
	Workers int `mapstructure:"workers"`
	// Dedup skips a reminder already sent for the same objective, category and day.
	// Default: false
	Dedup bool `mapstructure:"dedup"`
}

// HTTPConfig configures outbound HTTP calls.
type HTTPConfig struct {
	// Timeout is the per-request timeout. Default: 30s
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the maximum number of attempts. Default: 3
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelays are waited before each attempt. Default: [0s, 5s, 30s]
	RetryDelays []time.Duration `mapstructure:"retry_delays"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend: "badger",
			Path:    filepath.Join(xdg.DataHome, AppName, "db"),
		},
		Mail: MailConfig{
			Transport: "log",
			From:      "no-reply@imparable.app",
			FromName:  "Imparable App",
			AppName:   "Imparable",
			SMTP: SMTPConfig{
				Port:     587,
				StartTLS: true,
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Cron:     "0 0 9 * * *",
			Timezone: "Local",
			Workers:  4,
		},
		HTTP: HTTPConfig{
			Timeout:     30 * time.Second,
			MaxRetries:  3,
			RetryDelays: []time.Duration{0, 5 * time.Second, 30 * time.Second},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Location resolves the scheduler's reference timezone.
func (c *Config) Location() (*time.Location, error) {
	switch strings.TrimSpace(c.Scheduler.Timezone) {
	case "", "Local", "local":
		return time.Local, nil
	default:
		loc, err := time.LoadLocation(c.Scheduler.Timezone)
		if err != nil {
			return nil, fmt.Errorf("scheduler.timezone: %w", err)
		}
		return loc, nil
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "badger":
	case "sqlite", "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the %s backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}

	switch c.Mail.Transport {
	case "log":
	case "smtp":
		if c.Mail.SMTP.Host == "" {
			return fmt.Errorf("mail.smtp.host is required for the smtp transport")
		}
	case "webhook":
		if c.Mail.Webhook.URL == "" {
			return fmt.Errorf("mail.webhook.url is required for the webhook transport")
		}
	default:
		return fmt.Errorf("mail.transport: unknown transport %q", c.Mail.Transport)
	}

	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("scheduler.workers must be at least 1, got %d", c.Scheduler.Workers)
	}
	if c.Scheduler.Enabled && strings.TrimSpace(c.Scheduler.Cron) == "" {
		return fmt.Errorf("scheduler.cron is required when the scheduler is enabled")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
