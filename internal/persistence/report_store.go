package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/servicedesk/internal/sla"
)

const (
	reportKeyPrefix = "sla:report:"
	latestReportKey = reportKeyPrefix + "latest"
)

type reportClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// ReportStore keeps daily SLA reports in Redis as JSON.
type ReportStore struct {
	client reportClient
	ttl    time.Duration
}

// NewReportStore builds a store on an existing Redis connection.
func NewReportStore(r *Redis, ttl time.Duration) *ReportStore {
	var client reportClient
	if r != nil && r.Client != nil {
		client = r.Client
	}
	return &ReportStore{client: client, ttl: ttl}
}

// SaveDailyReport writes the report under its date and as the latest report.
func (s *ReportStore) SaveDailyReport(ctx context.Context, report sla.Report) error {
	if s.client == nil {
		return errors.New("redis client not configured")
	}
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := s.client.Set(ctx, reportKeyPrefix+report.Date, body, s.ttl).Err(); err != nil {
		return fmt.Errorf("store report %s: %w", report.Date, err)
	}
	return s.client.Set(ctx, latestReportKey, body, s.ttl).Err()
}

// DailyReport loads the report for date (YYYY-MM-DD) or the latest one when
// date is empty. The boolean is false when nothing is stored.
func (s *ReportStore) DailyReport(ctx context.Context, date string) (sla.Report, bool, error) {
	if s.client == nil {
		return sla.Report{}, false, errors.New("redis client not configured")
	}
	key := latestReportKey
	if date != "" {
		key = reportKeyPrefix + date
	}
	body, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return sla.Report{}, false, nil
	}
	if err != nil {
		return sla.Report{}, false, err
	}
	var report sla.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return sla.Report{}, false, fmt.Errorf("decode report: %w", err)
	}
	return report, true, nil
}
