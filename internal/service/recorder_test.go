package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"vigil/internal/entity"
	"vigil/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPersistsEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "record@example.com", "Re", "Cord")

	event, err := f.recorder.Record(ctx, RecordInput{
		UserID:    &user.ID,
		EventType: entity.EventLoginSuccess,
		IPAddress: strPtr("10.0.0.1"),
		UserAgent: strPtr("curl/8.0"),
		Metadata:  map[string]any{"email": "record@example.com"},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, event.ID)

	stored, err := f.events.FindByID(ctx, event.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, entity.EventLoginSuccess, stored.EventType)
	assert.Equal(t, "10.0.0.1", *stored.IPAddress)
	assert.Equal(t, "curl/8.0", *stored.UserAgent)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(stored.Metadata, &metadata))
	assert.Equal(t, "record@example.com", metadata["email"])
}

func TestRecordRejectsUnknownEventType(t *testing.T) {
	f := newFixture(t)

	_, err := f.recorder.Record(context.Background(), RecordInput{
		EventType: entity.AuditEventType("ACCOUNT_DELETED"),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecordAllowsAnonymousEvents(t *testing.T) {
	f := newFixture(t)

	event, err := f.recorder.Record(context.Background(), RecordInput{
		EventType: entity.EventLoginFailure,
		Metadata:  map[string]any{"email": "ghost@example.com", "reason": "unknown_account"},
	})
	require.NoError(t, err)
	assert.Nil(t, event.UserID)
}

type failingEventRepo struct {
	repository.AuditEventRepository
}

func (failingEventRepo) Create(ctx context.Context, event *entity.AuditEvent) error {
	return errors.New("storage unavailable")
}

func TestRecordBestEffortSwallowsWriteFailure(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	recorder := NewRecorder(failingEventRepo{}, log)

	event := recorder.RecordBestEffort(context.Background(), RecordInput{
		EventType: entity.EventLogout,
	})
	assert.Nil(t, event)
}
