// Package metrics provides application-level metrics collection
// using atomic counters.
package metrics

import (
	"sync/atomic"
	"time"
)

// Service names used for per-service call counters.
const (
	ServiceBackend = "backend"
	ServiceChat    = "chat"
	ServiceRates   = "rates"
)

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// Remote service calls
	callsTotal   atomic.Int64
	callErrors   atomic.Int64
	latencyNanos atomic.Int64

	backendCalls atomic.Int64
	chatCalls    atomic.Int64
	ratesCalls   atomic.Int64

	// Registration runs
	runsStarted   atomic.Int64
	runsSucceeded atomic.Int64
	runsFailed    atomic.Int64
	runsRejected  atomic.Int64

	// Best-effort steps that failed and were skipped
	advisoryFailures atomic.Int64

	// Access tokens restored by reconciliation
	tokensRestored atomic.Int64
}

// Global is the global metrics instance.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordServiceCall records a remote call with its duration and outcome.
func (m *Metrics) RecordServiceCall(service string, duration time.Duration, err error) {
	m.callsTotal.Add(1)
	m.latencyNanos.Add(duration.Nanoseconds())
	if err != nil {
		m.callErrors.Add(1)
	}

	switch service {
	case ServiceBackend:
		m.backendCalls.Add(1)
	case ServiceChat:
		m.chatCalls.Add(1)
	case ServiceRates:
		m.ratesCalls.Add(1)
	}
}

// RecordRunStarted counts a registration run that acquired the run guard.
func (m *Metrics) RecordRunStarted() {
	m.runsStarted.Add(1)
}

// RecordRunFinished counts a completed run by outcome.
func (m *Metrics) RecordRunFinished(err error) {
	if err != nil {
		m.runsFailed.Add(1)
		return
	}
	m.runsSucceeded.Add(1)
}

// RecordRunRejected counts a run refused because another was in flight.
func (m *Metrics) RecordRunRejected() {
	m.runsRejected.Add(1)
}

// RecordAdvisoryFailure counts a swallowed best-effort failure.
func (m *Metrics) RecordAdvisoryFailure() {
	m.advisoryFailures.Add(1)
}

// RecordTokensRestored adds n reconciled access tokens.
func (m *Metrics) RecordTokensRestored(n int) {
	m.tokensRestored.Add(int64(n))
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	CallsTotal       int64 `json:"calls_total"`
	CallErrors       int64 `json:"call_errors"`
	LatencyNanos     int64 `json:"latency_nanos"`
	BackendCalls     int64 `json:"backend_calls"`
	ChatCalls        int64 `json:"chat_calls"`
	RatesCalls       int64 `json:"rates_calls"`
	RunsStarted      int64 `json:"runs_started"`
	RunsSucceeded    int64 `json:"runs_succeeded"`
	RunsFailed       int64 `json:"runs_failed"`
	RunsRejected     int64 `json:"runs_rejected"`
	AdvisoryFailures int64 `json:"advisory_failures"`
	TokensRestored   int64 `json:"tokens_restored"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		CallsTotal:       m.callsTotal.Load(),
		CallErrors:       m.callErrors.Load(),
		LatencyNanos:     m.latencyNanos.Load(),
		BackendCalls:     m.backendCalls.Load(),
		ChatCalls:        m.chatCalls.Load(),
		RatesCalls:       m.ratesCalls.Load(),
		RunsStarted:      m.runsStarted.Load(),
		RunsSucceeded:    m.runsSucceeded.Load(),
		RunsFailed:       m.runsFailed.Load(),
		RunsRejected:     m.runsRejected.Load(),
		AdvisoryFailures: m.advisoryFailures.Load(),
		TokensRestored:   m.tokensRestored.Load(),
	}
}

// LatencyAvgMs returns the average call latency in milliseconds.
// Returns 0 if no calls have been made.
func (m *Metrics) LatencyAvgMs() float64 {
	calls := m.callsTotal.Load()
	if calls == 0 {
		return 0
	}
	return float64(m.latencyNanos.Load()) / float64(calls) / 1e6
}

// Reset resets all metrics to zero.
func (m *Metrics) Reset() {
	m.callsTotal.Store(0)
	m.callErrors.Store(0)
	m.latencyNanos.Store(0)
	m.backendCalls.Store(0)
	m.chatCalls.Store(0)
	m.ratesCalls.Store(0)
	m.runsStarted.Store(0)
	m.runsSucceeded.Store(0)
	m.runsFailed.Store(0)
	m.runsRejected.Store(0)
	m.advisoryFailures.Store(0)
	m.tokensRestored.Store(0)
}
