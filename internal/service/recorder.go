package service

import (
	"context"
	"encoding/json"

	"vigil/internal/entity"
	"vigil/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type RecordInput struct {
	UserID      *uuid.UUID
	EventType   entity.AuditEventType
	IPAddress   *string
	UserAgent   *string
	GeoLocation *string
	Metadata    map[string]any
}

// Recorder appends immutable audit events. Record surfaces storage
// failures; RecordBestEffort swallows them so the auth flow is never
// blocked by telemetry.
type Recorder struct {
	events repository.AuditEventRepository
	log    *logrus.Logger
}

func NewRecorder(events repository.AuditEventRepository, log *logrus.Logger) *Recorder {
	return &Recorder{events: events, log: log}
}

func (r *Recorder) Record(ctx context.Context, input RecordInput) (*entity.AuditEvent, error) {
	if _, ok := entity.ParseAuditEventType(string(input.EventType)); !ok {
		return nil, ErrInvalidInput
	}

	var payload datatypes.JSON
	if input.Metadata != nil {
		bytes, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, err
		}
		payload = datatypes.JSON(bytes)
	}

	event := &entity.AuditEvent{
		UserID:      input.UserID,
		EventType:   input.EventType,
		IPAddress:   input.IPAddress,
		UserAgent:   input.UserAgent,
		GeoLocation: input.GeoLocation,
		Metadata:    payload,
	}
	if err := r.events.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// RecordBestEffort returns nil when the write fails; the condition is
// logged and the caller proceeds.
func (r *Recorder) RecordBestEffort(ctx context.Context, input RecordInput) *entity.AuditEvent {
	event, err := r.Record(ctx, input)
	if err != nil {
		if r.log != nil {
			r.log.WithError(err).
				WithField("event_type", input.EventType).
				Warn("audit event write failed")
		}
		return nil
	}
	return event
}
