package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vigil/internal/entity"
	"vigil/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	bruteForceWindow    = 10 * time.Minute
	bruteForceThreshold = 5
)

// Rule is one detection heuristic. Evaluate returns a non-nil alert when
// the rule fires; rule failures never propagate past the engine.
type Rule interface {
	Name() string
	Triggers(eventType entity.AuditEventType) bool
	Evaluate(ctx context.Context, event *entity.AuditEvent) (*entity.Alert, error)
}

// Engine runs every rule gated by the event's type and persists the
// resulting alerts. It is strictly advisory: evaluation errors are logged
// and swallowed so detection can never change an authentication outcome.
type Engine struct {
	rules  []Rule
	alerts *AlertService
	log    *logrus.Logger
}

func NewEngine(alerts *AlertService, log *logrus.Logger, rules ...Rule) *Engine {
	return &Engine{rules: rules, alerts: alerts, log: log}
}

func (e *Engine) Evaluate(ctx context.Context, event *entity.AuditEvent) bool {
	if e == nil || event == nil {
		return false
	}
	created := false
	for _, rule := range e.rules {
		if !rule.Triggers(event.EventType) {
			continue
		}
		alert, err := rule.Evaluate(ctx, event)
		if err != nil {
			e.logError(rule, event, err)
			continue
		}
		if alert == nil {
			continue
		}
		if _, err := e.alerts.Create(ctx, CreateAlertInput{
			UserID:       alert.UserID,
			AuditEventID: alert.AuditEventID,
			Type:         alert.Type,
			Severity:     alert.Severity,
			Description:  alert.Description,
		}); err != nil {
			e.logError(rule, event, err)
			continue
		}
		created = true
	}
	return created
}

func (e *Engine) logError(rule Rule, event *entity.AuditEvent, err error) {
	if e.log == nil {
		return
	}
	e.log.WithError(err).
		WithField("rule", rule.Name()).
		WithField("event_id", event.ID).
		Error("detection rule failed")
}

// BruteForceRule flags >= Threshold LOGIN_FAILURE events within the
// trailing Window, scoped by user id and source IP when known (both
// applied as AND filters). Repeated qualifying failures re-trigger the
// rule; there is no suppression window.
type BruteForceRule struct {
	Events    repository.AuditEventRepository
	Clock     Clock
	Window    time.Duration
	Threshold int64
}

func NewBruteForceRule(events repository.AuditEventRepository, clock Clock) *BruteForceRule {
	return &BruteForceRule{
		Events:    events,
		Clock:     clock,
		Window:    bruteForceWindow,
		Threshold: bruteForceThreshold,
	}
}

func (r *BruteForceRule) Name() string {
	return "brute_force"
}

func (r *BruteForceRule) Triggers(eventType entity.AuditEventType) bool {
	return eventType == entity.EventLoginFailure
}

func (r *BruteForceRule) Evaluate(ctx context.Context, event *entity.AuditEvent) (*entity.Alert, error) {
	since := r.now().Add(-r.window())
	count, err := r.Events.CountFailuresSince(ctx, event.UserID, event.IPAddress, since)
	if err != nil {
		return nil, err
	}
	if count < r.threshold() {
		return nil, nil
	}

	eventID := event.ID
	return &entity.Alert{
		UserID:       event.UserID,
		AuditEventID: &eventID,
		Type:         entity.AlertBruteForce,
		Severity:     entity.SeverityHigh,
		Description:  r.describe(event, count),
	}, nil
}

func (r *BruteForceRule) describe(event *entity.AuditEvent, count int64) string {
	description := fmt.Sprintf("%d failed login attempts within %s", count, r.window())
	if account := accountFromEvent(event); account != "" {
		description += " against " + account
	}
	if event.IPAddress != nil && *event.IPAddress != "" {
		description += " from IP " + *event.IPAddress
	}
	return description
}

func (r *BruteForceRule) now() time.Time {
	if r.Clock == nil {
		return time.Now()
	}
	return r.Clock.Now()
}

func (r *BruteForceRule) window() time.Duration {
	if r.Window <= 0 {
		return bruteForceWindow
	}
	return r.Window
}

func (r *BruteForceRule) threshold() int64 {
	if r.Threshold <= 0 {
		return bruteForceThreshold
	}
	return r.Threshold
}

// accountFromEvent pulls the targeted account out of the event metadata,
// falling back to the user id. Login failures record the attempted email
// even when no account matches it.
func accountFromEvent(event *entity.AuditEvent) string {
	if len(event.Metadata) > 0 {
		var metadata map[string]any
		if err := json.Unmarshal(event.Metadata, &metadata); err == nil {
			if email, ok := metadata["email"].(string); ok && email != "" {
				return email
			}
		}
	}
	if event.UserID != nil {
		return "user " + event.UserID.String()
	}
	return ""
}
