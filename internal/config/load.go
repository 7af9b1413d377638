package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from defaults, an optional YAML file and
// IMPARABLE_* environment variables, in increasing priority. Variables from a
// .env file in the working directory are loaded first and never override the
// real environment. A missing config file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *fs.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Mail.SMTP.Password == "" && cfg.Mail.SMTP.PasswordRef != "" {
		secret, err := ResolveSecret(cfg.Mail.SMTP.PasswordRef)
		if err != nil {
			return nil, fmt.Errorf("mail.smtp.password_ref: %w", err)
		}
		cfg.Mail.SMTP.Password = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.dsn", d.Storage.DSN)

	v.SetDefault("mail.transport", d.Mail.Transport)
	v.SetDefault("mail.from", d.Mail.From)
	v.SetDefault("mail.from_name", d.Mail.FromName)
	v.SetDefault("mail.app_name", d.Mail.AppName)
	v.SetDefault("mail.smtp.host", d.Mail.SMTP.Host)
	v.SetDefault("mail.smtp.port", d.Mail.SMTP.Port)
	v.SetDefault("mail.smtp.username", d.Mail.SMTP.Username)
	v.SetDefault("mail.smtp.password", d.Mail.SMTP.Password)
	v.SetDefault("mail.smtp.password_ref", d.Mail.SMTP.PasswordRef)
	v.SetDefault("mail.smtp.implicit_tls", d.Mail.SMTP.ImplicitTLS)
	v.SetDefault("mail.smtp.starttls", d.Mail.SMTP.StartTLS)
	v.SetDefault("mail.webhook.url", d.Mail.Webhook.URL)
	v.SetDefault("mail.webhook.api_key", d.Mail.Webhook.APIKey)

	v.SetDefault("scheduler.enabled", d.Scheduler.Enabled)
	v.SetDefault("scheduler.cron", d.Scheduler.Cron)
	v.SetDefault("scheduler.timezone", d.Scheduler.Timezone)
	v.SetDefault("scheduler.workers", d.Scheduler.Workers)
	v.SetDefault("scheduler.dedup", d.Scheduler.Dedup)

	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.max_retries", d.HTTP.MaxRetries)
	v.SetDefault("http.retry_delays", d.HTTP.RetryDelays)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
}

