package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/servicedesk/internal/sla"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	sweeps       SweepCounters
}

// SweepCounters accumulate SLA monitor results.
type SweepCounters struct {
	Runs          int64     `json:"runs"`
	Scanned       int64     `json:"scanned"`
	Updated       int64     `json:"updated"`
	Breaches      int64     `json:"breaches"`
	Failed        int64     `json:"failed"`
	Stale         int64     `json:"stale"`
	LastAtRisk    int       `json:"last_at_risk"`
	LastElapsedMs int64     `json:"last_elapsed_ms"`
	LastRunAt     time.Time `json:"last_run_at"`
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Requests map[string]int64 `json:"requests"`
	Errors   map[string]int64 `json:"errors"`
	Sweeps   SweepCounters    `json:"sla_sweeps"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
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

// RecordSweep folds one monitor pass into the sweep counters.
func (m *Metrics) RecordSweep(result sla.SweepResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps.Runs++
	m.sweeps.Scanned += int64(result.Scanned)
	m.sweeps.Updated += int64(result.UpdatedCount)
	m.sweeps.Breaches += int64(len(result.BreachEvents))
	m.sweeps.Failed += int64(result.Failed)
	m.sweeps.Stale += int64(result.Stale)
	m.sweeps.LastAtRisk = result.AtRisk
	m.sweeps.LastElapsedMs = elapsed.Milliseconds()
	m.sweeps.LastRunAt = time.Now()
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{Requests: map[string]int64{}, Errors: map[string]int64{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		Requests: make(map[string]int64, len(m.requestCount)),
		Errors:   make(map[string]int64, len(m.errorCount)),
		Sweeps:   m.sweeps,
	}
	for k, v := range m.requestCount {
		snap.Requests[k] = v
	}
	for k, v := range m.errorCount {
		snap.Errors[k] = v
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
