package repository

import (
	"context"
	"errors"
	"time"

	"vigil/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AlertFilters struct {
	Status   entity.AlertStatus
	Severity entity.AlertSeverity
	Type     entity.AlertType
}

type AlertRepository interface {
	Create(ctx context.Context, alert *entity.Alert) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Alert, error)
	List(ctx context.Context, filters AlertFilters) ([]entity.Alert, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.AlertStatus, resolvedAt *time.Time) error
	CountOpenByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type alertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) Create(ctx context.Context, alert *entity.Alert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *alertRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Alert, error) {
	var alert entity.Alert
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&alert).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &alert, err
}

func (r *alertRepository) List(ctx context.Context, filters AlertFilters) ([]entity.Alert, error) {
	query := r.db.WithContext(ctx).Model(&entity.Alert{})
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Severity != "" {
		query = query.Where("severity = ?", filters.Severity)
	}
	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}

	var alerts []entity.Alert
	err := query.
		Preload("User").
		Order("created_at DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *alertRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.AlertStatus, resolvedAt *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.Alert{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"resolved_at": resolvedAt,
		}).Error
}

func (r *alertRepository) CountOpenByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Alert{}).
		Where("user_id = ? AND status = ?", userID, entity.AlertOpen).
		Count(&count).Error
	return count, err
}
