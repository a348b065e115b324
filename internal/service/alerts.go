package service

import (
	"context"
	"strings"
	"time"

	"vigil/internal/entity"
	"vigil/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultReportDescription = "User reported suspicious account activity"

// AlertNotifier delivers out-of-band notifications for alerts. Delivery
// is best-effort; failures are logged and never surfaced.
type AlertNotifier interface {
	Notify(ctx context.Context, alert *entity.Alert) error
}

type CreateAlertInput struct {
	UserID       *uuid.UUID
	AuditEventID *uuid.UUID
	Type         entity.AlertType
	Severity     entity.AlertSeverity
	Description  string
}

type AlertService struct {
	alerts   repository.AlertRepository
	events   repository.AuditEventRepository
	notifier AlertNotifier
	clock    Clock
	log      *logrus.Logger
}

func NewAlertService(
	alerts repository.AlertRepository,
	events repository.AuditEventRepository,
	notifier AlertNotifier,
	clock Clock,
	log *logrus.Logger,
) *AlertService {
	return &AlertService{
		alerts:   alerts,
		events:   events,
		notifier: notifier,
		clock:    clock,
		log:      log,
	}
}

func (s *AlertService) Create(ctx context.Context, input CreateAlertInput) (*entity.Alert, error) {
	if _, ok := entity.ParseAlertType(string(input.Type)); !ok {
		return nil, ErrInvalidInput
	}
	if _, ok := entity.ParseAlertSeverity(string(input.Severity)); !ok {
		return nil, ErrInvalidInput
	}

	alert := &entity.Alert{
		UserID:       input.UserID,
		AuditEventID: input.AuditEventID,
		Type:         input.Type,
		Severity:     input.Severity,
		Status:       entity.AlertOpen,
		Description:  input.Description,
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}

	if alert.Severity == entity.SeverityHigh {
		s.notify(ctx, alert)
	}
	return alert, nil
}

// List applies permissive filtering: a filter value outside its
// enumeration yields an empty result set rather than an error.
func (s *AlertService) List(ctx context.Context, status, severity, alertType string) ([]entity.Alert, error) {
	var filters repository.AlertFilters
	if status != "" {
		value, ok := entity.ParseAlertStatus(status)
		if !ok {
			return []entity.Alert{}, nil
		}
		filters.Status = value
	}
	if severity != "" {
		value, ok := entity.ParseAlertSeverity(severity)
		if !ok {
			return []entity.Alert{}, nil
		}
		filters.Severity = value
	}
	if alertType != "" {
		value, ok := entity.ParseAlertType(alertType)
		if !ok {
			return []entity.Alert{}, nil
		}
		filters.Type = value
	}
	return s.alerts.List(ctx, filters)
}

// Transition moves an alert through its lifecycle. ResolvedAt is set
// exactly when the target status is RESOLVED and cleared otherwise; a
// transition into the current status is an idempotent no-op.
func (s *AlertService) Transition(ctx context.Context, alertID uuid.UUID, status string) (*entity.Alert, error) {
	target, ok := entity.ParseAlertStatus(status)
	if !ok {
		return nil, ErrInvalidInput
	}

	alert, err := s.alerts.FindByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, ErrNotFound
	}
	if alert.Status == target {
		return alert, nil
	}

	var resolvedAt *time.Time
	if target == entity.AlertResolved {
		now := s.now()
		resolvedAt = &now
	}
	if err := s.alerts.UpdateStatus(ctx, alert.ID, target, resolvedAt); err != nil {
		return nil, err
	}

	alert.Status = target
	alert.ResolvedAt = resolvedAt
	return alert, nil
}

// Report is the user-facing creation path. A supplied activity id must
// reference an event owned by the reporting user; anything else is a
// NotFound, deliberately indistinguishable from an absent record.
func (s *AlertService) Report(ctx context.Context, userID uuid.UUID, activityID *uuid.UUID, note string) (*entity.Alert, error) {
	var eventID *uuid.UUID
	if activityID != nil {
		event, err := s.events.FindOwned(ctx, *activityID, userID)
		if err != nil {
			return nil, err
		}
		if event == nil {
			return nil, ErrNotFound
		}
		eventID = &event.ID
	}

	description := strings.TrimSpace(note)
	if description == "" {
		description = defaultReportDescription
	}

	return s.Create(ctx, CreateAlertInput{
		UserID:       &userID,
		AuditEventID: eventID,
		Type:         entity.AlertSuspiciousActivity,
		Severity:     entity.SeverityHigh,
		Description:  description,
	})
}

func (s *AlertService) notify(ctx context.Context, alert *entity.Alert) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, alert); err != nil && s.log != nil {
		s.log.WithError(err).
			WithField("alert_id", alert.ID).
			Warn("alert notification failed")
	}
}

func (s *AlertService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}
