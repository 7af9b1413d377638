// Package daemon runs the HTTP API and the cron-driven deadline check in one
// long-lived process and shuts both down on a signal.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imparable/imparable/internal/api"
	"github.com/imparable/imparable/internal/config"
	"github.com/imparable/imparable/internal/logging"
	"github.com/imparable/imparable/internal/scheduler"
	"github.com/imparable/imparable/internal/storage"
)

// Options wires a Daemon.
type Options struct {
	Server    config.ServerConfig
	Scheduler config.SchedulerConfig
	Store     storage.Store
	Checker   *scheduler.DeadlineChecker
	Notifier  *scheduler.CompletionNotifier
	Location  *time.Location
	Clock     func() time.Time
	Version   string
	// PIDFile is written while serving. Nil disables it.
	PIDFile *PIDFile
}

// Daemon owns the HTTP server and the scheduler.
type Daemon struct {
	opts      Options
	router    *gin.Engine
	scheduler *scheduler.Scheduler
	metrics   *Metrics
	health    *HealthChecker

	mu    sync.Mutex
	addr  net.Addr
	ready chan struct{}
}

// New builds the router and scheduler and registers /healthz and /metrics.
func New(opts Options) *Daemon {
	if opts.Server.ShutdownTimeout <= 0 {
		opts.Server.ShutdownTimeout = 10 * time.Second
	}
	d := &Daemon{
		opts:      opts,
		scheduler: scheduler.NewScheduler(opts.Location),
		metrics:   NewMetrics(),
		health:    NewHealthChecker(opts.Version),
		ready:     make(chan struct{}),
	}

	d.scheduler.OnReport(d.metrics.RecordRun)
	d.health.AddCheck("store", opts.Store.Ping)
	d.health.SetNextRun(d.scheduler.NextRun)

	d.router = api.NewRouter(api.NewApp(api.Options{
		Store:    opts.Store,
		Checker:  opts.Checker,
		Notifier: opts.Notifier,
		Location: opts.Location,
		Clock:    opts.Clock,
		OnRun:    d.metrics.RecordRun,
	}))
	d.router.GET("/healthz", d.handleHealth)
	d.router.GET("/metrics", d.handleMetrics)
	d.router.GET("/api/deadlines/last", d.handleLastRun)
	return d
}

// Handler returns the HTTP handler, for tests and embedding.
func (d *Daemon) Handler() http.Handler { return d.router }

// Metrics returns the run counters.
func (d *Daemon) Metrics() *Metrics { return d.metrics }

// Scheduler returns the cron scheduler.
func (d *Daemon) Scheduler() *scheduler.Scheduler { return d.scheduler }

// Ready is closed once the server is listening.
func (d *Daemon) Ready() <-chan struct{} { return d.ready }

// Addr is the bound listen address, valid after Ready.
func (d *Daemon) Addr() net.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addr
}

// Run serves until ctx is cancelled or SIGINT, SIGTERM or SIGHUP arrives,
// then shuts the server down and stops the scheduler.
func (d *Daemon) Run(ctx context.Context) error {
	if pf := d.opts.PIDFile; pf != nil {
		if pid := pf.RunningPID(); pid > 0 && pid != os.Getpid() {
			return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		if err := pf.Write(); err != nil {
			return err
		}
		defer func() {
			if err := pf.Remove(); err != nil {
				logging.Warn("failed to remove PID file", logging.KeyError, err, logging.KeyPath, pf.Path())
			}
		}()
	}

	if d.opts.Scheduler.Enabled {
		if _, err := d.scheduler.ScheduleDeadlineCheck(d.opts.Scheduler.Cron, d.opts.Checker); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", d.opts.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.opts.Server.Addr, err)
	}
	d.mu.Lock()
	d.addr = ln.Addr()
	d.mu.Unlock()

	srv := &http.Server{
		Handler:           d.router,
		ReadHeaderTimeout: d.opts.Server.ReadTimeout,
		ReadTimeout:       d.opts.Server.ReadTimeout,
	}

	d.scheduler.Start()
	defer d.scheduler.Stop()

	errc := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	close(d.ready)
	logging.Info("server listening", "addr", ln.Addr().String(), "next_run", d.scheduler.NextRun())

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	select {
	case <-sigCtx.Done():
		logging.Info("shutting down", "reason", context.Cause(sigCtx))
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.opts.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (d *Daemon) handleHealth(c *gin.Context) {
	status := d.health.Check(c.Request.Context())
	code := http.StatusOK
	if status.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (d *Daemon) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, d.metrics.Snapshot())
}

// handleLastRun returns the report of the most recent cron-triggered check.
func (d *Daemon) handleLastRun(c *gin.Context) {
	report, ok := d.scheduler.LastReport()
	if !ok {
		c.JSON(http.StatusNotFound, api.APIResponse{Error: "no scheduled deadline check has run yet"})
		return
	}
	api.HandleSuccess(c, report, nil)
}

// Status describes a server found through its PID file.
type Status struct {
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
	PIDFile string `json:"pid_file"`
}

// GetStatus reports whether a server holds pf.
func GetStatus(pf *PIDFile) Status {
	pid := pf.RunningPID()
	return Status{Running: pid > 0, PID: pid, PIDFile: pf.Path()}
}

// Stop asks the server holding pf to shut down and waits up to timeout for it to exit.
func Stop(pf *PIDFile, timeout time.Duration) error {
	pid := pf.RunningPID()
	if pid == 0 {
		return ErrNotRunning
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server (pid %d) did not exit within %s", pid, timeout)
}
