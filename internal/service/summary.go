package service

import (
	"context"
	"sort"
	"time"

	"vigil/internal/entity"
	"vigil/internal/repository"

	"github.com/google/uuid"
)

const (
	SummaryWindow24h = "24h"
	SummaryWindow7d  = "7d"

	topSourceIPLimit       = 10
	eventTypeBreakdownSize = 20
)

type TimeBucket struct {
	Bucket time.Time `json:"bucket"`
	Count  int64     `json:"count"`
}

type SecuritySummary struct {
	Window               string                 `json:"window"`
	FailedLoginsOverTime []TimeBucket           `json:"failedLoginsOverTime"`
	TopSourceIPs         []repository.IPCount   `json:"topSourceIps"`
	EventTypeBreakdown   []repository.TypeCount `json:"eventTypeBreakdown"`
}

type UserSecuritySummary struct {
	LastLoginAt    *time.Time `json:"lastLoginAt"`
	FailedLogins7d int64      `json:"failedLogins7d"`
	OpenAlerts     int64      `json:"openAlerts"`
}

type SummaryService struct {
	events repository.AuditEventRepository
	alerts repository.AlertRepository
	clock  Clock
}

func NewSummaryService(events repository.AuditEventRepository, alerts repository.AlertRepository, clock Clock) *SummaryService {
	return &SummaryService{events: events, alerts: alerts, clock: clock}
}

// Summarize aggregates the trailing window for the admin dashboard.
// Failed logins bucket by hour for 24h and by day for 7d; empty buckets
// are omitted and the series is ascending by bucket start.
func (s *SummaryService) Summarize(ctx context.Context, window string) (*SecuritySummary, error) {
	var lookback time.Duration
	var bucket func(time.Time) time.Time
	switch window {
	case SummaryWindow24h:
		lookback = 24 * time.Hour
		bucket = hourBucket
	case SummaryWindow7d:
		lookback = 7 * 24 * time.Hour
		bucket = dayBucket
	default:
		return nil, ErrInvalidInput
	}
	since := s.now().Add(-lookback)

	failureTimes, err := s.events.FailureTimesSince(ctx, since)
	if err != nil {
		return nil, err
	}
	topIPs, err := s.events.TopFailureIPsSince(ctx, since, topSourceIPLimit)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.events.CountByTypeSince(ctx, since, eventTypeBreakdownSize)
	if err != nil {
		return nil, err
	}

	return &SecuritySummary{
		Window:               window,
		FailedLoginsOverTime: bucketize(failureTimes, bucket),
		TopSourceIPs:         topIPs,
		EventTypeBreakdown:   breakdown,
	}, nil
}

// SelfSummary is the self-scoped view: most recent successful login,
// failed logins over the trailing 7 days and the caller's open alerts.
func (s *SummaryService) SelfSummary(ctx context.Context, userID uuid.UUID) (*UserSecuritySummary, error) {
	lastLogin, err := s.events.LastByUserAndType(ctx, userID, entity.EventLoginSuccess)
	if err != nil {
		return nil, err
	}
	failures, err := s.events.CountByUserAndTypeSince(ctx, userID, entity.EventLoginFailure, s.now().Add(-7*24*time.Hour))
	if err != nil {
		return nil, err
	}
	openAlerts, err := s.alerts.CountOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &UserSecuritySummary{
		FailedLogins7d: failures,
		OpenAlerts:     openAlerts,
	}
	if lastLogin != nil {
		summary.LastLoginAt = &lastLogin.CreatedAt
	}
	return summary, nil
}

func bucketize(times []time.Time, bucket func(time.Time) time.Time) []TimeBucket {
	counts := make(map[time.Time]int64)
	for _, t := range times {
		counts[bucket(t)]++
	}
	buckets := make([]TimeBucket, 0, len(counts))
	for start, count := range counts {
		buckets = append(buckets, TimeBucket{Bucket: start, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Bucket.Before(buckets[j].Bucket)
	})
	return buckets
}

func hourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

func dayBucket(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *SummaryService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}
