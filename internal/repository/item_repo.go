package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/labelgrid/labelgrid-api/internal/models"
)

// ItemRepository persists annotatable instances.
type ItemRepository interface {
	GetByInstanceID(ctx context.Context, instanceID string) (models.Item, error)
	List(ctx context.Context) ([]models.Item, error)
	Count(ctx context.Context) (int64, error)
	UpsertBatch(ctx context.Context, items []models.Item) error
	IncrementDisplayed(ctx context.Context, instanceID string) error
	SetMedia(ctx context.Context, instanceID, mediaURL, mediaType string) error
}

type itemRepository struct {
	db *gorm.DB
}

// NewItemRepository constructs the item repository.
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) GetByInstanceID(ctx context.Context, instanceID string) (models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).Where("instance_id = ?", instanceID).First(&item).Error
	return item, err
}

func (r *itemRepository) List(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).Order("id ASC").Find(&items).Error
	return items, err
}

func (r *itemRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Item{}).Count(&count).Error
	return count, err
}

func (r *itemRepository) UpsertBatch(ctx context.Context, items []models.Item) error {
	if len(items) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "instance_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "context", "media_url", "media_type"}),
	}).Create(&items).Error
}

func (r *itemRepository) IncrementDisplayed(ctx context.Context, instanceID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("instance_id = ?", instanceID).
		UpdateColumn("displayed_count", gorm.Expr("displayed_count + 1")).Error
}

func (r *itemRepository) SetMedia(ctx context.Context, instanceID, mediaURL, mediaType string) error {
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("instance_id = ?", instanceID).
		Updates(map[string]any{"media_url": mediaURL, "media_type": mediaType}).Error
}
