package daemon

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/imparable/imparable/internal/model"
)

// Metrics counts deadline-check runs and their deliveries.
type Metrics struct {
	runs             atomic.Int64
	runsFailed       atomic.Int64
	emailsSent       atomic.Int64
	dispatchFailures atomic.Int64

	mu              sync.RWMutex
	lastRunAt       time.Time
	lastRunDuration time.Duration
	lastRunEmails   int
	lastError       string
	lastErrorAt     time.Time
	sentByCategory  map[model.Category]int64
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{sentByCategory: make(map[model.Category]int64)}
}

// MetricsSnapshot is a point-in-time view of Metrics.
type MetricsSnapshot struct {
	RunsTotal             int64                    `json:"runs_total"`
	RunsFailedTotal       int64                    `json:"runs_failed_total"`
	EmailsSentTotal       int64                    `json:"emails_sent_total"`
	DispatchFailuresTotal int64                    `json:"dispatch_failures_total"`
	LastRunAt             *time.Time               `json:"last_run_at,omitempty"`
	LastRunDurationMs     int64                    `json:"last_run_duration_ms"`
	LastRunEmails         int                      `json:"last_run_emails"`
	LastError             string                   `json:"last_error,omitempty"`
	LastErrorAt           *time.Time               `json:"last_error_at,omitempty"`
	SentByCategory        map[model.Category]int64 `json:"sent_by_category,omitempty"`
}

// RecordRun folds one report into the counters. It has the signature of
// Scheduler.OnReport and api.Options.OnRun.
func (m *Metrics) RecordRun(report model.RunReport, elapsed time.Duration) {
	m.runs.Add(1)
	m.emailsSent.Add(int64(report.EmailsSent))
	failures := report.Failures()
	m.dispatchFailures.Add(int64(failures))
	if !report.Success {
		m.runsFailed.Add(1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRunAt = report.Timestamp
	m.lastRunDuration = elapsed
	m.lastRunEmails = report.EmailsSent
	for _, r := range report.Results {
		if r.EmailSent && r.EmailCategory != nil {
			m.sentByCategory[*r.EmailCategory]++
		}
		if r.Error != "" {
			m.lastError = r.Error
			m.lastErrorAt = report.Timestamp
		}
	}
	if !report.Success {
		m.lastError = "deadline check failed"
		m.lastErrorAt = report.Timestamp
	}
}

// Snapshot returns a copy of the current values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		RunsTotal:             m.runs.Load(),
		RunsFailedTotal:       m.runsFailed.Load(),
		EmailsSentTotal:       m.emailsSent.Load(),
		DispatchFailuresTotal: m.dispatchFailures.Load(),
		LastRunDurationMs:     m.lastRunDuration.Milliseconds(),
		LastRunEmails:         m.lastRunEmails,
		LastError:             m.lastError,
		SentByCategory:        make(map[model.Category]int64, len(m.sentByCategory)),
	}
	if !m.lastRunAt.IsZero() {
		t := m.lastRunAt
		snap.LastRunAt = &t
	}
	if !m.lastErrorAt.IsZero() {
		t := m.lastErrorAt
		snap.LastErrorAt = &t
	}
	for k, v := range m.sentByCategory {
		snap.SentByCategory[k] = v
	}
	return snap
}

// JSON returns the snapshot as indented JSON.
func (m *Metrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m.Snapshot(), "", "  ")
}

// Reset zeroes every counter.
func (m *Metrics) Reset() {
	m.runs.Store(0)
	m.runsFailed.Store(0)
	m.emailsSent.Store(0)
	m.dispatchFailures.Store(0)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRunAt = time.Time{}
	m.lastRunDuration = 0
	m.lastRunEmails = 0
	m.lastError = ""
	m.lastErrorAt = time.Time{}
	m.sentByCategory = make(map[model.Category]int64)
}
