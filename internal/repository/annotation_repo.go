package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/labelgrid/labelgrid-api/internal/models"
)

// AnnotationRepository persists the current label state per annotator.
type AnnotationRepository interface {
	Get(ctx context.Context, userID, instanceID, schemaName, labelName string) (models.Annotation, error)
	Upsert(ctx context.Context, annotation *models.Annotation) error
	Delete(ctx context.Context, userID, instanceID, schemaName, labelName string) error
	ListByUser(ctx context.Context, userID string) ([]models.Annotation, error)
	Count(ctx context.Context) (int64, error)
}

type annotationRepository struct {
	db *gorm.DB
}

// NewAnnotationRepository constructs the annotation repository.
func NewAnnotationRepository(db *gorm.DB) AnnotationRepository {
	return &annotationRepository{db: db}
}

func (r *annotationRepository) Get(ctx context.Context, userID, instanceID, schemaName, labelName string) (models.Annotation, error) {
	var annotation models.Annotation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND instance_id = ? AND schema_name = ? AND label_name = ?",
			userID, instanceID, schemaName, labelName).
		First(&annotation).Error
	return annotation, err
}

func (r *annotationRepository) Upsert(ctx context.Context, annotation *models.Annotation) error {
	var existing models.Annotation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND instance_id = ? AND schema_name = ? AND label_name = ?",
			annotation.UserID, annotation.InstanceID, annotation.SchemaName, annotation.LabelName).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(annotation).Error
	}
	if err != nil {
		return err
	}

	annotation.ID = existing.ID
	annotation.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(annotation).Error
}

func (r *annotationRepository) Delete(ctx context.Context, userID, instanceID, schemaName, labelName string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND instance_id = ? AND schema_name = ? AND label_name = ?",
			userID, instanceID, schemaName, labelName).
		Delete(&models.Annotation{}).Error
}

func (r *annotationRepository) ListByUser(ctx context.Context, userID string) ([]models.Annotation, error) {
	var annotations []models.Annotation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&annotations).Error
	return annotations, err
}

func (r *annotationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Annotation{}).Count(&count).Error
	return count, err
}
