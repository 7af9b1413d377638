package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imparable/imparable/internal/config"
	"github.com/imparable/imparable/internal/mail"
	"github.com/imparable/imparable/internal/model"
	"github.com/imparable/imparable/internal/output"
)

func newContext(t *testing.T, cfg *config.Config) *Context {
	t.Helper()
	opts := DefaultOptions()
	opts.InMemory = true
	c, err := NewWithConfig(context.Background(), cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, output.FormatCLI, opts.Format)
	assert.Equal(t, output.ColorAuto, opts.ColorMode)
	assert.False(t, opts.InMemory)
	assert.False(t, opts.Debug)
}

func TestNewWithConfig(t *testing.T) {
	c := newContext(t, config.Default())

	assert.NotNil(t, c.Store)
	assert.IsType(t, &mail.LogSender{}, c.Sender)
	assert.NotNil(t, c.Checker)
	assert.NotNil(t, c.Notifier)
	assert.NotNil(t, c.Objectives)
	assert.NotNil(t, c.Users)
	assert.Equal(t, time.Local, c.Location)
	assert.False(t, c.IsJSON())
	assert.NoError(t, c.Store.Ping(context.Background()))
}

func TestNewWithConfigTimezone(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduler.Timezone = "Europe/Madrid"
	c := newContext(t, cfg)
	assert.Equal(t, "Europe/Madrid", c.Location.String())
	assert.Equal(t, c.Location, c.CLIFormatter().Location)
	assert.Equal(t, c.Location, c.JSONFormatter().Location)

	cfg = config.Default()
	cfg.Scheduler.Timezone = "Mars/Olympus"
	_, err := NewWithConfig(context.Background(), cfg, Options{InMemory: true})
	assert.Error(t, err)
}

func TestNewWithConfigBadTransport(t *testing.T) {
	cfg := config.Default()
	cfg.Mail.Transport = "pigeon"
	_, err := NewWithConfig(context.Background(), cfg, Options{InMemory: true})
	assert.Error(t, err)
}

func TestUseSender(t *testing.T) {
	c := newContext(t, config.Default())
	ctx := context.Background()

	u := model.NewUser("ana@example.com", model.RoleUser)
	require.NoError(t, c.Store.SaveUser(ctx, u))
	deadline := time.Now().In(c.Location)
	require.NoError(t, c.Store.SaveObjective(ctx, model.NewObjective(u.ID, "Ship", nil, &deadline)))

	rec := mail.NewRecordingSender()
	c.UseSender(rec)

	report, err := c.Checker.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.EmailsSent)
	require.Len(t, rec.Sent(), 1)
	assert.Equal(t, "ana@example.com", rec.Sent()[0].To)
}

func TestCloseTwice(t *testing.T) {
	c := newContext(t, config.Default())
	require.NoError(t, c.Close())
	assert.Nil(t, c.Store)
	assert.NoError(t, c.Close())
}
