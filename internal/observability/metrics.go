package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for HTTP traffic and the
// SLA engine.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	slaCount     map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		slaCount:     make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordEvaluation counts one compliance evaluation pass.
func (m *Metrics) RecordEvaluation() { m.incr("sla_evaluations") }

// RecordTransition counts a metric reaching a terminal state.
func (m *Metrics) RecordTransition(state string) { m.incr("sla_transition|" + state) }

// RecordAlert counts a breach alert raised or upgraded.
func (m *Metrics) RecordAlert(level string) { m.incr("sla_alert|" + level) }

// RecordSweepError counts a ticket the sweep failed to evaluate.
func (m *Metrics) RecordSweepError() { m.incr("sla_sweep_errors") }

func (m *Metrics) incr(key string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slaCount[key]++
}

// SLACounter returns the current value of an engine counter, for tests and
// the health endpoint.
func (m *Metrics) SLACounter(key string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slaCount[key]
}
