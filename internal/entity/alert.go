package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AlertType string

const (
	AlertBruteForce          AlertType = "BRUTE_FORCE"
	AlertNewDevice           AlertType = "NEW_DEVICE"
	AlertImpossibleTravel    AlertType = "IMPOSSIBLE_TRAVEL"
	AlertMultiAccountFailure AlertType = "MULTI_ACCOUNT_FAILURE"
	AlertSuspiciousMFA       AlertType = "SUSPICIOUS_MFA"
	AlertSuspiciousActivity  AlertType = "SUSPICIOUS_ACTIVITY"
	AlertOther               AlertType = "OTHER"
)

func ParseAlertType(value string) (AlertType, bool) {
	switch AlertType(value) {
	case AlertBruteForce, AlertNewDevice, AlertImpossibleTravel,
		AlertMultiAccountFailure, AlertSuspiciousMFA, AlertSuspiciousActivity, AlertOther:
		return AlertType(value), true
	}
	return "", false
}

type AlertSeverity string

const (
	SeverityLow    AlertSeverity = "LOW"
	SeverityMedium AlertSeverity = "MEDIUM"
	SeverityHigh   AlertSeverity = "HIGH"
)

func ParseAlertSeverity(value string) (AlertSeverity, bool) {
	switch AlertSeverity(value) {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return AlertSeverity(value), true
	}
	return "", false
}

// Rank orders severities for max-severity derivation across linked
// alerts: HIGH(3) > MEDIUM(2) > LOW(1); unknown ranks 0.
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

type AlertStatus string

const (
	AlertOpen         AlertStatus = "OPEN"
	AlertAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertResolved     AlertStatus = "RESOLVED"
)

func ParseAlertStatus(value string) (AlertStatus, bool) {
	switch AlertStatus(value) {
	case AlertOpen, AlertAcknowledged, AlertResolved:
		return AlertStatus(value), true
	}
	return "", false
}

// Alert is a mutable incident record. Status moves between OPEN,
// ACKNOWLEDGED and RESOLVED; ResolvedAt is set exactly while the status
// is RESOLVED and cleared on reopen.
type Alert struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserID *uuid.UUID `gorm:"type:uuid;index"`
	User   *User      `gorm:"constraint:OnDelete:SET NULL"`

	AuditEventID *uuid.UUID  `gorm:"type:uuid;index"`
	AuditEvent   *AuditEvent `gorm:"constraint:OnDelete:SET NULL"`

	Type        AlertType     `gorm:"type:varchar(32);not null"`
	Severity    AlertSeverity `gorm:"type:varchar(16);not null"`
	Status      AlertStatus   `gorm:"type:varchar(16);not null;index"`
	Description string        `gorm:"type:text;not null"`

	CreatedAt  time.Time
	ResolvedAt *time.Time
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
