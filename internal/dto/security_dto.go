package dto

import (
	"encoding/json"
	"time"

	"vigil/internal/entity"
)

type AlertResponse struct {
	ID           string     `json:"id"`
	UserID       *string    `json:"user_id,omitempty"`
	AuditEventID *string    `json:"audit_event_id,omitempty"`
	Type         string     `json:"type"`
	Severity     string     `json:"severity"`
	Status       string     `json:"status"`
	Description  string     `json:"description"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

func AlertResponseFromEntity(alert *entity.Alert) AlertResponse {
	response := AlertResponse{
		ID:          alert.ID.String(),
		Type:        string(alert.Type),
		Severity:    string(alert.Severity),
		Status:      string(alert.Status),
		Description: alert.Description,
		CreatedAt:   alert.CreatedAt,
		ResolvedAt:  alert.ResolvedAt,
	}
	if alert.UserID != nil {
		id := alert.UserID.String()
		response.UserID = &id
	}
	if alert.AuditEventID != nil {
		id := alert.AuditEventID.String()
		response.AuditEventID = &id
	}
	return response
}

func AlertResponsesFromEntities(alerts []entity.Alert) []AlertResponse {
	responses := make([]AlertResponse, 0, len(alerts))
	for i := range alerts {
		responses = append(responses, AlertResponseFromEntity(&alerts[i]))
	}
	return responses
}

type AuditEventResponse struct {
	ID          string          `json:"id"`
	UserID      *string         `json:"user_id,omitempty"`
	UserEmail   string          `json:"user_email,omitempty"`
	EventType   string          `json:"event_type"`
	IPAddress   *string         `json:"ip_address,omitempty"`
	UserAgent   *string         `json:"user_agent,omitempty"`
	GeoLocation *string         `json:"geo_location,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Severity    *string         `json:"severity,omitempty"`
	Alerts      []AlertResponse `json:"alerts"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AuditEventResponseFromEntity derives the displayed severity at read
// time as the maximum severity across the event's linked alerts; an
// event with no alerts carries none.
func AuditEventResponseFromEntity(event *entity.AuditEvent) AuditEventResponse {
	response := AuditEventResponse{
		ID:          event.ID.String(),
		EventType:   string(event.EventType),
		IPAddress:   event.IPAddress,
		UserAgent:   event.UserAgent,
		GeoLocation: event.GeoLocation,
		Metadata:    json.RawMessage(event.Metadata),
		Alerts:      AlertResponsesFromEntities(event.Alerts),
		CreatedAt:   event.CreatedAt,
	}
	if event.UserID != nil {
		id := event.UserID.String()
		response.UserID = &id
	}
	if event.User != nil {
		response.UserEmail = event.User.Email
	}
	if severity := MaxAlertSeverity(event.Alerts); severity != "" {
		value := string(severity)
		response.Severity = &value
	}
	return response
}

func AuditEventResponsesFromEntities(events []entity.AuditEvent) []AuditEventResponse {
	responses := make([]AuditEventResponse, 0, len(events))
	for i := range events {
		responses = append(responses, AuditEventResponseFromEntity(&events[i]))
	}
	return responses
}

// MaxAlertSeverity ranks HIGH over MEDIUM over LOW and returns the empty
// severity when no alerts are linked.
func MaxAlertSeverity(alerts []entity.Alert) entity.AlertSeverity {
	var max entity.AlertSeverity
	for _, alert := range alerts {
		if alert.Severity.Rank() > max.Rank() {
			max = alert.Severity
		}
	}
	return max
}

type AuditEventPageResponse struct {
	Rows       []AuditEventResponse `json:"rows"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

type AlertTransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

type ReportIncidentRequest struct {
	ActivityID *string `json:"activityId" validate:"omitempty,uuid"`
	Note       string  `json:"note" validate:"omitempty,max=2000"`
}
