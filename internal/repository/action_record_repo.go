package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/labelgrid/labelgrid-api/internal/models"
)

// ActionRecordRepository persists the durable action history.
type ActionRecordRepository interface {
	Create(ctx context.Context, record *models.ActionRecord) error
	UpdateProcessingTime(ctx context.Context, actionID string, ms int) error
	ListByUser(ctx context.Context, userID string) ([]models.ActionRecord, error)
	ListAll(ctx context.Context) ([]models.ActionRecord, error)
	Count(ctx context.Context) (int64, error)
}

type actionRecordRepository struct {
	db *gorm.DB
}

// NewActionRecordRepository constructs the action record repository.
func NewActionRecordRepository(db *gorm.DB) ActionRecordRepository {
	return &actionRecordRepository{db: db}
}

func (r *actionRecordRepository) Create(ctx context.Context, record *models.ActionRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *actionRecordRepository) UpdateProcessingTime(ctx context.Context, actionID string, ms int) error {
	return r.db.WithContext(ctx).
		Model(&models.ActionRecord{}).
		Where("action_id = ?", actionID).
		UpdateColumn("server_processing_time_ms", ms).Error
}

func (r *actionRecordRepository) ListByUser(ctx context.Context, userID string) ([]models.ActionRecord, error) {
	var records []models.ActionRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp ASC").
		Find(&records).Error
	return records, err
}

func (r *actionRecordRepository) ListAll(ctx context.Context) ([]models.ActionRecord, error) {
	var records []models.ActionRecord
	err := r.db.WithContext(ctx).Order("timestamp ASC").Find(&records).Error
	return records, err
}

func (r *actionRecordRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ActionRecord{}).Count(&count).Error
	return count, err
}
