package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/labelgrid/labelgrid-api/internal/models"
)

// TrainingRepository persists per-annotator training progress.
type TrainingRepository interface {
	GetOrCreate(ctx context.Context, userID string, totalQuestions int) (models.TrainingProgress, error)
	Update(ctx context.Context, progress *models.TrainingProgress) error
	ListAll(ctx context.Context) ([]models.TrainingProgress, error)
}

type trainingRepository struct {
	db *gorm.DB
}

// NewTrainingRepository constructs the training repository.
func NewTrainingRepository(db *gorm.DB) TrainingRepository {
	return &trainingRepository{db: db}
}

func (r *trainingRepository) GetOrCreate(ctx context.Context, userID string, totalQuestions int) (models.TrainingProgress, error) {
	var progress models.TrainingProgress
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = models.TrainingProgress{UserID: userID, TotalQuestions: totalQuestions}
		if createErr := r.db.WithContext(ctx).Create(&progress).Error; createErr != nil {
			return models.TrainingProgress{}, createErr
		}
		return progress, nil
	}
	return progress, err
}

func (r *trainingRepository) Update(ctx context.Context, progress *models.TrainingProgress) error {
	return r.db.WithContext(ctx).Save(progress).Error
}

func (r *trainingRepository) ListAll(ctx context.Context) ([]models.TrainingProgress, error) {
	var progresses []models.TrainingProgress
	err := r.db.WithContext(ctx).Find(&progresses).Error
	return progresses, err
}
