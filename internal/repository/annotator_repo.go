package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/labelgrid/labelgrid-api/internal/models"
)

// AnnotatorRepository persists annotator accounts and workflow state.
type AnnotatorRepository interface {
	GetByUserID(ctx context.Context, userID string) (models.Annotator, error)
	Create(ctx context.Context, annotator *models.Annotator) error
	Update(ctx context.Context, annotator *models.Annotator) error
	List(ctx context.Context) ([]models.Annotator, error)
	CountByPhase(ctx context.Context) (map[string]int64, error)
	Delete(ctx context.Context, userID string) error
}

type annotatorRepository struct {
	db *gorm.DB
}

// NewAnnotatorRepository constructs the annotator repository.
func NewAnnotatorRepository(db *gorm.DB) AnnotatorRepository {
	return &annotatorRepository{db: db}
}

func (r *annotatorRepository) GetByUserID(ctx context.Context, userID string) (models.Annotator, error) {
	var annotator models.Annotator
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&annotator).Error
	return annotator, err
}

func (r *annotatorRepository) Create(ctx context.Context, annotator *models.Annotator) error {
	return r.db.WithContext(ctx).Create(annotator).Error
}

func (r *annotatorRepository) Update(ctx context.Context, annotator *models.Annotator) error {
	return r.db.WithContext(ctx).Save(annotator).Error
}

func (r *annotatorRepository) List(ctx context.Context) ([]models.Annotator, error) {
	var annotators []models.Annotator
	err := r.db.WithContext(ctx).Order("user_id ASC").Find(&annotators).Error
	return annotators, err
}

func (r *annotatorRepository) CountByPhase(ctx context.Context) (map[string]int64, error) {
	type phaseCount struct {
		Phase string
		Count int64
	}

	var rows []phaseCount
	err := r.db.WithContext(ctx).
		Model(&models.Annotator{}).
		Select("phase, COUNT(*) as count").
		Group("phase").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Phase] = row.Count
	}
	return counts, nil
}

// Delete removes the annotator together with their annotations and action
// history, the whole-user-state deletion path.
func (r *annotatorRepository) Delete(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.Annotation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.ActionRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.TrainingProgress{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&models.Annotator{}).Error
	})
}
