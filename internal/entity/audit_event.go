package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditEventType string

const (
	EventLoginSuccess   AuditEventType = "LOGIN_SUCCESS"
	EventLoginFailure   AuditEventType = "LOGIN_FAILURE"
	EventLogout         AuditEventType = "LOGOUT"
	EventPasswordChange AuditEventType = "PASSWORD_CHANGE"
	EventMFAChallenge   AuditEventType = "MFA_CHALLENGE"
	EventMFASuccess     AuditEventType = "MFA_SUCCESS"
	EventMFAFailure     AuditEventType = "MFA_FAILURE"
)

func ParseAuditEventType(value string) (AuditEventType, bool) {
	switch AuditEventType(value) {
	case EventLoginSuccess, EventLoginFailure, EventLogout, EventPasswordChange,
		EventMFAChallenge, EventMFASuccess, EventMFAFailure:
		return AuditEventType(value), true
	}
	return "", false
}

// AuditEvent is an append-only record of one authentication-relevant
// action. Rows are never updated or deleted after creation.
type AuditEvent struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserID *uuid.UUID `gorm:"type:uuid;index"`
	User   *User      `gorm:"constraint:OnDelete:SET NULL"`

	EventType AuditEventType `gorm:"type:varchar(32);not null;index"`

	IPAddress   *string `gorm:"type:varchar(45);index"`
	UserAgent   *string `gorm:"type:text"`
	GeoLocation *string `gorm:"type:varchar(255)"`

	Metadata datatypes.JSON

	Alerts []Alert `gorm:"foreignKey:AuditEventID"`

	CreatedAt time.Time `gorm:"index"`
}

func (e *AuditEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
