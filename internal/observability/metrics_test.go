package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/sla"
)

func TestMetrics_RecordSweep(t *testing.T) {
	m := NewMetrics()
	m.RecordSweep(sla.SweepResult{
		Scanned:      10,
		UpdatedCount: 3,
		AtRisk:       2,
		Failed:       1,
		BreachEvents: []events.SLABreached{{}, {}},
	}, 40*time.Millisecond)
	m.RecordSweep(sla.SweepResult{Scanned: 5, Stale: 1}, 10*time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Sweeps.Runs)
	assert.Equal(t, int64(15), snap.Sweeps.Scanned)
	assert.Equal(t, int64(3), snap.Sweeps.Updated)
	assert.Equal(t, int64(2), snap.Sweeps.Breaches)
	assert.Equal(t, int64(1), snap.Sweeps.Failed)
	assert.Equal(t, int64(1), snap.Sweeps.Stale)
	assert.Equal(t, 0, snap.Sweeps.LastAtRisk)
	assert.Equal(t, int64(10), snap.Sweeps.LastElapsedMs)
}

func TestMetrics_SnapshotIsCopy(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "GET", 200, time.Millisecond)
	m.RecordError("/tickets", "POST", "VALIDATION_FAILED")

	snap := m.Snapshot()
	snap.Requests["/tickets|GET|200"] = 99

	again := m.Snapshot()
	assert.Equal(t, int64(1), again.Requests["/tickets|GET|200"])
	assert.Equal(t, int64(1), again.Errors["/tickets|POST|VALIDATION_FAILED"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordSweep(sla.SweepResult{}, 0)
	assert.Empty(t, m.Snapshot().Requests)
}
