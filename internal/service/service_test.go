package service

import (
	"context"
	"testing"
	"time"

	"vigil/internal/entity"
	"vigil/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type fixture struct {
	db     *gorm.DB
	users  repository.UserRepository
	events repository.AuditEventRepository
	alerts repository.AlertRepository

	recorder *Recorder
	alertSvc *AlertService
	engine   *Engine
	query    *QueryService
	summary  *SummaryService

	clock fixedClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entity.User{},
		&entity.Session{},
		&entity.MFASecret{},
		&entity.AuditEvent{},
		&entity.Alert{},
	))

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	clock := fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	events := repository.NewAuditEventRepository(db)
	alerts := repository.NewAlertRepository(db)

	alertSvc := NewAlertService(alerts, events, nil, clock, log)
	return &fixture{
		db:       db,
		users:    repository.NewUserRepository(db),
		events:   events,
		alerts:   alerts,
		recorder: NewRecorder(events, log),
		alertSvc: alertSvc,
		engine: NewEngine(alertSvc, log,
			&BruteForceRule{Events: events, Clock: clock},
		),
		query:   NewQueryService(events),
		summary: NewSummaryService(events, alerts, clock),
		clock:   clock,
	}
}

func (f *fixture) createUser(t *testing.T, email string, firstName, lastName string) *entity.User {
	t.Helper()
	user := &entity.User{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      entity.UserRoleUser,
		IsActive:  true,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *fixture) createEvent(
	t *testing.T,
	userID *uuid.UUID,
	eventType entity.AuditEventType,
	ipAddress *string,
	createdAt time.Time,
) *entity.AuditEvent {
	t.Helper()
	event := &entity.AuditEvent{
		UserID:    userID,
		EventType: eventType,
		IPAddress: ipAddress,
		CreatedAt: createdAt,
	}
	require.NoError(t, f.events.Create(context.Background(), event))
	return event
}

func (f *fixture) createAlert(
	t *testing.T,
	userID *uuid.UUID,
	eventID *uuid.UUID,
	alertType entity.AlertType,
	severity entity.AlertSeverity,
) *entity.Alert {
	t.Helper()
	alert := &entity.Alert{
		UserID:       userID,
		AuditEventID: eventID,
		Type:         alertType,
		Severity:     severity,
		Status:       entity.AlertOpen,
		Description:  "test alert",
	}
	require.NoError(t, f.alerts.Create(context.Background(), alert))
	return alert
}

func strPtr(value string) *string {
	return &value
}
