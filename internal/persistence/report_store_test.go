package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/sla"
)

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	setErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	val, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func TestReportStore_SaveAndLoad(t *testing.T) {
	fake := newFakeRedis()
	store := &ReportStore{client: fake, ttl: 48 * time.Hour}
	report := sla.Report{Date: "2024-03-04", Total: 4, Breached: 1, CompliancePercent: 75}

	require.NoError(t, store.SaveDailyReport(context.Background(), report))
	assert.Equal(t, 48*time.Hour, fake.ttls["sla:report:2024-03-04"])

	got, ok, err := store.DailyReport(context.Background(), "2024-03-04")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 75.0, got.CompliancePercent)

	latest, ok, err := store.DailyReport(context.Background(), "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-03-04", latest.Date)
}

func TestReportStore_Missing(t *testing.T) {
	store := &ReportStore{client: newFakeRedis()}
	_, ok, err := store.DailyReport(context.Background(), "2020-01-01")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReportStore_SetError(t *testing.T) {
	fake := newFakeRedis()
	fake.setErr = errors.New("READONLY")
	store := &ReportStore{client: fake}
	err := store.SaveDailyReport(context.Background(), sla.Report{Date: "2024-03-04"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READONLY")
}

func TestReportStore_Unconfigured(t *testing.T) {
	store := NewReportStore(nil, time.Hour)
	assert.Error(t, store.SaveDailyReport(context.Background(), sla.Report{}))
}
