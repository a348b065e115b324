package dto

import (
	"testing"
	"time"

	"vigil/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxAlertSeverity(t *testing.T) {
	alerts := []entity.Alert{
		{Severity: entity.SeverityLow},
		{Severity: entity.SeverityHigh},
		{Severity: entity.SeverityMedium},
	}
	assert.Equal(t, entity.SeverityHigh, MaxAlertSeverity(alerts))
	assert.Equal(t, entity.SeverityLow, MaxAlertSeverity(alerts[:1]))
	assert.Equal(t, entity.AlertSeverity(""), MaxAlertSeverity(nil))
}

func TestAuditEventResponseDerivesSeverity(t *testing.T) {
	userID := uuid.New()
	event := &entity.AuditEvent{
		ID:        uuid.New(),
		UserID:    &userID,
		User:      &entity.User{Email: "derive@example.com"},
		EventType: entity.EventLoginFailure,
		Alerts: []entity.Alert{
			{ID: uuid.New(), Severity: entity.SeverityLow, Type: entity.AlertBruteForce, Status: entity.AlertOpen},
			{ID: uuid.New(), Severity: entity.SeverityHigh, Type: entity.AlertBruteForce, Status: entity.AlertOpen},
		},
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	response := AuditEventResponseFromEntity(event)
	require.NotNil(t, response.Severity)
	assert.Equal(t, "HIGH", *response.Severity)
	assert.Equal(t, "derive@example.com", response.UserEmail)
	assert.Len(t, response.Alerts, 2)
}

func TestAuditEventResponseWithoutAlerts(t *testing.T) {
	event := &entity.AuditEvent{
		ID:        uuid.New(),
		EventType: entity.EventLogout,
	}

	response := AuditEventResponseFromEntity(event)
	assert.Nil(t, response.Severity)
	assert.Nil(t, response.UserID)
	assert.NotNil(t, response.Alerts)
	assert.Empty(t, response.Alerts)
}
