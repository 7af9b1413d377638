package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imparable/imparable/internal/config"
	"github.com/imparable/imparable/internal/mail"
	"github.com/imparable/imparable/internal/model"
	"github.com/imparable/imparable/internal/scheduler"
	"github.com/imparable/imparable/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Metrics Tests
// =============================================================================

func category(c model.Category) *model.Category { return &c }

func TestMetricsRecordRun(t *testing.T) {
	m := NewMetrics()
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	m.RecordRun(model.RunReport{
		Success:    true,
		EmailsSent: 2,
		Timestamp:  at,
		Results: []model.ResultRecord{
			{EmailCategory: category(model.CategoryDueToday), EmailSent: true},
			{EmailCategory: category(model.CategoryDueToday), EmailSent: true},
			{EmailCategory: category(model.CategoryOverdueWeekly), Error: "smtp: 550 mailbox unavailable"},
			{EmailCategory: nil},
		},
	}, 1500*time.Millisecond)
	m.RecordRun(model.RunReport{Success: false, Timestamp: at.Add(time.Hour)}, time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.RunsTotal)
	assert.Equal(t, int64(1), snap.RunsFailedTotal)
	assert.Equal(t, int64(2), snap.EmailsSentTotal)
	assert.Equal(t, int64(1), snap.DispatchFailuresTotal)
	assert.Equal(t, int64(2), snap.SentByCategory[model.CategoryDueToday])
	assert.Equal(t, "deadline check failed", snap.LastError)
	require.NotNil(t, snap.LastRunAt)
	assert.Equal(t, at.Add(time.Hour), *snap.LastRunAt)
	assert.Equal(t, 0, snap.LastRunEmails)

	data, err := m.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"emails_sent_total": 2`)

	m.Reset()
	snap = m.Snapshot()
	assert.Zero(t, snap.RunsTotal)
	assert.Nil(t, snap.LastRunAt)
	assert.Empty(t, snap.SentByCategory)
}

// =============================================================================
// HealthChecker Tests
// =============================================================================

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker("1.2.3")
	ctx := context.Background()

	status := h.Check(ctx)
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.GreaterOrEqual(t, status.Goroutines, 1)
	assert.Empty(t, status.Checks)
	assert.Nil(t, status.NextRun)

	h.AddCheck("store", func(context.Context) error { return errors.New("db closed") })
	h.AddCheck("mail", func(context.Context) error { return nil })

	status = h.Check(ctx)
	assert.Equal(t, StatusUnhealthy, status.Status)
	require.Len(t, status.Checks, 2)
	assert.Equal(t, "mail", status.Checks[0].Name)
	assert.Equal(t, "db closed", status.Checks[1].Error)
	assert.False(t, h.IsHealthy(ctx))

	h.AddCheck("store", func(context.Context) error { return nil })
	assert.True(t, h.IsHealthy(ctx))

	next := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	h.SetNextRun(func() time.Time { return next })
	require.NotNil(t, h.Check(ctx).NextRun)
	assert.Equal(t, next, *h.Check(ctx).NextRun)
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
		{48 * time.Hour, "2d"},
		{50 * time.Hour, "2d 2h"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatUptime(tt.d))
		})
	}
}

// =============================================================================
// PIDFile Tests
// =============================================================================

func TestPIDFile(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "run", "test.pid"))

	_, err := pf.Read()
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.Zero(t, pf.RunningPID())

	require.NoError(t, pf.Write())
	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.Equal(t, os.Getpid(), pf.RunningPID())

	status := GetStatus(pf)
	assert.True(t, status.Running)
	assert.Equal(t, pf.Path(), status.PIDFile)

	require.NoError(t, pf.Remove())
	require.NoError(t, pf.Remove())
	assert.False(t, GetStatus(pf).Running)
}

func TestPIDFileGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o644))

	pf := NewPIDFile(path)
	_, err := pf.Read()
	assert.Error(t, err)
	assert.Zero(t, pf.RunningPID())
}

func TestStopNotRunning(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "none.pid"))
	assert.ErrorIs(t, Stop(pf, time.Second), ErrNotRunning)
}

func TestDefaultPIDPath(t *testing.T) {
	assert.Equal(t, PIDFileName, filepath.Base(DefaultPIDPath()))
	assert.Equal(t, DefaultPIDPath(), NewPIDFile("").Path())
}

// =============================================================================
// Daemon Tests
// =============================================================================

type pingStore struct {
	storage.Store
	err error
}

func (s pingStore) Ping(context.Context) error { return s.err }

func newDaemon(t *testing.T, store storage.Store, sched config.SchedulerConfig) *Daemon {
	t.Helper()
	if store == nil {
		db, err := storage.OpenBadger(storage.Options{InMemory: true})
		require.NoError(t, err)
		s := storage.NewBadgerStore(db)
		t.Cleanup(func() { s.Close() })
		store = s
	}
	sender := mail.NewRecordingSender()
	return New(Options{
		Server:    config.ServerConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second},
		Scheduler: sched,
		Store:     store,
		Checker:   scheduler.NewDeadlineChecker(store, sender, scheduler.Options{Location: time.UTC}),
		Notifier:  scheduler.NewCompletionNotifier(sender, "Imparable"),
		Location:  time.UTC,
		Version:   "test",
		PIDFile:   NewPIDFile(filepath.Join(t.TempDir(), "imparable.pid")),
	})
}

func TestHealthzEndpoint(t *testing.T) {
	d := newDaemon(t, nil, config.SchedulerConfig{})

	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, StatusHealthy, status.Status)
	require.Len(t, status.Checks, 1)
	assert.Equal(t, "store", status.Checks[0].Name)
}

func TestHealthzUnhealthyStore(t *testing.T) {
	db, err := storage.OpenBadger(storage.Options{InMemory: true})
	require.NoError(t, err)
	store := storage.NewBadgerStore(db)
	t.Cleanup(func() { store.Close() })

	d := newDaemon(t, pingStore{Store: store, err: errors.New("unreachable")}, config.SchedulerConfig{})

	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unreachable")
}

func TestMetricsEndpointCountsAPIRuns(t *testing.T) {
	d := newDaemon(t, nil, config.SchedulerConfig{})

	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/deadlines/check", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var snap MetricsSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.RunsTotal)
	assert.Equal(t, int64(1), d.Metrics().Snapshot().RunsTotal)
}

func TestLastRunEndpoint(t *testing.T) {
	d := newDaemon(t, nil, config.SchedulerConfig{})

	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/deadlines/last", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no scheduled deadline check")
}

func TestRunServesAndShutsDown(t *testing.T) {
	d := newDaemon(t, nil, config.SchedulerConfig{Enabled: true, Cron: scheduler.DefaultSpec})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case <-d.Ready():
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + d.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Len(t, d.Scheduler().Entries(), 1)
	assert.Equal(t, os.Getpid(), d.opts.PIDFile.RunningPID())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Zero(t, d.opts.PIDFile.RunningPID())
}

func TestRunRefusesSecondServer(t *testing.T) {
	d := newDaemon(t, nil, config.SchedulerConfig{})
	// A live process other than this one holds the PID file.
	require.NoError(t, os.WriteFile(d.opts.PIDFile.Path(), []byte(strconv.Itoa(os.Getppid())), 0o644))

	err := d.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestRunBadCron(t *testing.T) {
	d := newDaemon(t, nil, config.SchedulerConfig{Enabled: true, Cron: "every tuesday"})
	assert.Error(t, d.Run(context.Background()))
}
