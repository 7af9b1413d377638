// Package api exposes the deadline check, completion notices and objective
// management over HTTP using gin.
package api

import (
	"time"

	"github.com/imparable/imparable/internal/model"
	"github.com/imparable/imparable/internal/scheduler"
	"github.com/imparable/imparable/internal/service"
	"github.com/imparable/imparable/internal/storage"
)

// App is what handlers need from the running service.
type App interface {
	Store() storage.Store
	Checker() *scheduler.DeadlineChecker
	Notifier() *scheduler.CompletionNotifier
	Objectives() *service.Objectives
	Users() *service.Users
	Location() *time.Location
	Now() time.Time
	// RecordRun is told about every deadline check triggered over HTTP.
	RecordRun(report model.RunReport, elapsed time.Duration)
}

// Options configures the App returned by NewApp.
type Options struct {
	Store    storage.Store
	Checker  *scheduler.DeadlineChecker
	Notifier *scheduler.CompletionNotifier
	Location *time.Location
	Clock    func() time.Time
	OnRun    func(model.RunReport, time.Duration)
}

type app struct {
	opts       Options
	objectives *service.Objectives
	users      *service.Users
}

// NewApp wraps opts as an App, filling in time.Local and time.Now.
func NewApp(opts Options) App {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &app{
		opts:       opts,
		objectives: service.NewObjectives(opts.Store, opts.Notifier, opts.Location, opts.Clock),
		users:      service.NewUsers(opts.Store),
	}
}

func (a *app) Store() storage.Store                    { return a.opts.Store }
func (a *app) Checker() *scheduler.DeadlineChecker     { return a.opts.Checker }
func (a *app) Notifier() *scheduler.CompletionNotifier { return a.opts.Notifier }
func (a *app) Objectives() *service.Objectives      { return a.objectives }
func (a *app) Users() *service.Users                { return a.users }
func (a *app) Location() *time.Location                { return a.opts.Location }
func (a *app) Now() time.Time                          { return a.opts.Clock() }

func (a *app) RecordRun(report model.RunReport, elapsed time.Duration) {
	if a.opts.OnRun != nil {
		a.opts.OnRun(report, elapsed)
	}
}
