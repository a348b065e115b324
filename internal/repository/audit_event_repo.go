package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"vigil/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventFilters narrows audit event listings. All fields are optional and
// combined with AND; EventTypes is OR within itself.
type EventFilters struct {
	EventTypes []entity.AuditEventType
	UserID     *uuid.UUID
	IPAddress  string
	Search     string
	Severity   entity.AlertSeverity
	From       *time.Time
	To         *time.Time
}

type TypeCount struct {
	EventType entity.AuditEventType `json:"eventType"`
	Count     int64                 `json:"count"`
}

type IPCount struct {
	IPAddress string `json:"ipAddress"`
	Count     int64  `json:"count"`
}

// AuditEventRepository is append-only on the write side: events are
// created once and never updated or deleted.
type AuditEventRepository interface {
	Create(ctx context.Context, event *entity.AuditEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.AuditEvent, error)
	FindOwned(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*entity.AuditEvent, error)
	List(ctx context.Context, filters EventFilters, limit, offset int) ([]entity.AuditEvent, int64, error)
	ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.AuditEvent, error)
	CountFailuresSince(ctx context.Context, userID *uuid.UUID, ipAddress *string, since time.Time) (int64, error)
	CountByUserAndTypeSince(ctx context.Context, userID uuid.UUID, eventType entity.AuditEventType, since time.Time) (int64, error)
	LastByUserAndType(ctx context.Context, userID uuid.UUID, eventType entity.AuditEventType) (*entity.AuditEvent, error)
	FailureTimesSince(ctx context.Context, since time.Time) ([]time.Time, error)
	TopFailureIPsSince(ctx context.Context, since time.Time, limit int) ([]IPCount, error)
	CountByTypeSince(ctx context.Context, since time.Time, limit int) ([]TypeCount, error)
}

type auditEventRepository struct {
	db *gorm.DB
}

func NewAuditEventRepository(db *gorm.DB) AuditEventRepository {
	return &auditEventRepository{db: db}
}

func (r *auditEventRepository) Create(ctx context.Context, event *entity.AuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *auditEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.AuditEvent, error) {
	var event entity.AuditEvent
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&event).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &event, err
}

func (r *auditEventRepository) FindOwned(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*entity.AuditEvent, error) {
	var event entity.AuditEvent
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&event).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &event, err
}

func (r *auditEventRepository) List(ctx context.Context, filters EventFilters, limit, offset int) ([]entity.AuditEvent, int64, error) {
	query := r.applyFilters(r.db.WithContext(ctx).Model(&entity.AuditEvent{}), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []entity.AuditEvent
	err := query.
		Preload("User").
		Preload("Alerts").
		Order("audit_events.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *auditEventRepository) ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.AuditEvent, error) {
	var events []entity.AuditEvent
	err := r.db.WithContext(ctx).
		Preload("Alerts").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// CountFailuresSince scopes the count by whichever identifying dimensions
// are known: user id and source IP narrow the count when present, both
// applied as AND filters.
func (r *auditEventRepository) CountFailuresSince(ctx context.Context, userID *uuid.UUID, ipAddress *string, since time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&entity.AuditEvent{}).
		Where("event_type = ? AND created_at >= ?", entity.EventLoginFailure, since)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if ipAddress != nil && *ipAddress != "" {
		query = query.Where("ip_address = ?", *ipAddress)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *auditEventRepository) CountByUserAndTypeSince(ctx context.Context, userID uuid.UUID, eventType entity.AuditEventType, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.AuditEvent{}).
		Where("user_id = ? AND event_type = ? AND created_at >= ?", userID, eventType, since).
		Count(&count).Error
	return count, err
}

func (r *auditEventRepository) LastByUserAndType(ctx context.Context, userID uuid.UUID, eventType entity.AuditEventType) (*entity.AuditEvent, error) {
	var event entity.AuditEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND event_type = ?", userID, eventType).
		Order("created_at DESC").
		First(&event).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &event, err
}

func (r *auditEventRepository) FailureTimesSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).
		Model(&entity.AuditEvent{}).
		Where("event_type = ? AND created_at >= ?", entity.EventLoginFailure, since).
		Order("created_at ASC").
		Pluck("created_at", &times).Error
	return times, err
}

func (r *auditEventRepository) TopFailureIPsSince(ctx context.Context, since time.Time, limit int) ([]IPCount, error) {
	var rows []IPCount
	err := r.db.WithContext(ctx).
		Model(&entity.AuditEvent{}).
		Select("ip_address, COUNT(*) AS count").
		Where("event_type = ? AND created_at >= ? AND ip_address IS NOT NULL", entity.EventLoginFailure, since).
		Group("ip_address").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *auditEventRepository) CountByTypeSince(ctx context.Context, since time.Time, limit int) ([]TypeCount, error) {
	var rows []TypeCount
	err := r.db.WithContext(ctx).
		Model(&entity.AuditEvent{}).
		Select("event_type, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("event_type").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *auditEventRepository) applyFilters(query *gorm.DB, filters EventFilters) *gorm.DB {
	if len(filters.EventTypes) > 0 {
		query = query.Where("audit_events.event_type IN ?", filters.EventTypes)
	}
	if filters.UserID != nil {
		query = query.Where("audit_events.user_id = ?", *filters.UserID)
	}
	if filters.IPAddress != "" {
		query = query.Where("audit_events.ip_address LIKE ?", "%"+filters.IPAddress+"%")
	}
	if filters.Search != "" {
		needle := "%" + strings.ToLower(filters.Search) + "%"
		query = query.
			Joins("LEFT JOIN users ON users.id = audit_events.user_id").
			Where("LOWER(users.email) LIKE ? OR LOWER(users.first_name) LIKE ? OR LOWER(users.last_name) LIKE ?",
				needle, needle, needle)
	}
	if filters.Severity != "" {
		query = query.Where("audit_events.id IN (?)",
			r.db.Model(&entity.Alert{}).
				Select("audit_event_id").
				Where("severity = ? AND audit_event_id IS NOT NULL", filters.Severity))
	}
	if filters.From != nil {
		query = query.Where("audit_events.created_at >= ?", *filters.From)
	}
	if filters.To != nil {
		query = query.Where("audit_events.created_at <= ?", *filters.To)
	}
	return query
}
