// Package runtime assembles the configuration, store, mail transport and
// services a CLI command runs against.
package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/imparable/imparable/internal/config"
	"github.com/imparable/imparable/internal/logging"
	"github.com/imparable/imparable/internal/mail"
	"github.com/imparable/imparable/internal/output"
	"github.com/imparable/imparable/internal/scheduler"
	"github.com/imparable/imparable/internal/service"
	"github.com/imparable/imparable/internal/storage"
)

// Context holds everything a command needs.
type Context struct {
	Config    *config.Config
	Store     storage.Store
	Sender    mail.Sender
	Formatter *output.Formatter
	Location  *time.Location
	Clock     func() time.Time

	Checker    *scheduler.DeadlineChecker
	Notifier   *scheduler.CompletionNotifier
	Objectives *service.Objectives
	Users      *service.Users

	Debug bool
}

// Options configures the runtime context.
type Options struct {
	ConfigPath string
	// InMemory replaces the configured store with an in-memory Badger database.
	InMemory  bool
	Format    output.Format
	ColorMode output.ColorMode
	Debug     bool
}

// DefaultOptions returns default runtime options.
func DefaultOptions() Options {
	return Options{
		Format:    output.FormatCLI,
		ColorMode: output.ColorAuto,
	}
}

// New loads configuration and opens the store and mail transport.
func New(ctx context.Context, opts Options) (*Context, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg, opts)
}

// NewWithConfig is New with an already loaded configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config, opts Options) (*Context, error) {
	logCfg := logging.Config{Level: logging.ParseLevel(cfg.Log.Level), JSON: cfg.Log.JSON}
	if opts.Debug {
		logCfg = logging.DebugConfig()
	}
	logging.Init(logCfg)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	storeCfg := storage.Config{Backend: cfg.Storage.Backend, Path: cfg.Storage.Path, DSN: cfg.Storage.DSN}
	if opts.InMemory {
		storeCfg = storage.Config{Backend: storage.BackendBadger}
	}
	store, err := storage.Open(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", storeCfg.Backend, err)
	}

	sender, err := mail.NewSender(cfg.Mail, cfg.HTTP)
	if err != nil {
		store.Close()
		return nil, err
	}

	formatter := output.NewFormatter()
	formatter.Format = opts.Format
	formatter.ColorMode = opts.ColorMode

	c := &Context{
		Config:    cfg,
		Store:     store,
		Formatter: formatter,
		Location:  loc,
		Clock:     time.Now,
		Debug:     opts.Debug,
	}
	c.UseSender(sender)
	return c, nil
}

// UseSender swaps the mail transport and rebuilds everything that sends.
// The check command's --dry-run passes a RecordingSender.
func (c *Context) UseSender(sender mail.Sender) {
	c.Sender = sender
	c.Checker = scheduler.NewDeadlineChecker(c.Store, sender, scheduler.Options{
		Location: c.Location,
		Workers:  c.Config.Scheduler.Workers,
		Dedup:    c.Config.Scheduler.Dedup,
		AppName:  c.Config.Mail.AppName,
		Clock:    c.Clock,
	})
	c.Notifier = scheduler.NewCompletionNotifier(sender, c.Config.Mail.AppName)
	c.Objectives = service.NewObjectives(c.Store, c.Notifier, c.Location, c.Clock)
	c.Users = service.NewUsers(c.Store)
}

// Close closes the store. Calling it again is a no-op.
func (c *Context) Close() error {
	if c.Store == nil {
		return nil
	}
	err := c.Store.Close()
	c.Store = nil
	return err
}

// CLIFormatter returns a CLI formatter in the configured timezone.
func (c *Context) CLIFormatter() *output.CLIFormatter {
	f := output.NewCLIFormatter(c.Formatter)
	f.Location = c.Location
	f.Now = c.Clock
	return f
}

// JSONFormatter returns a JSON formatter in the configured timezone.
func (c *Context) JSONFormatter() *output.JSONFormatter {
	f := output.NewJSONFormatter(c.Formatter)
	f.Location = c.Location
	f.Now = c.Clock
	return f
}

// IsJSON returns true if output format is JSON.
func (c *Context) IsJSON() bool {
	return c.Formatter.Format == output.FormatJSON
}
