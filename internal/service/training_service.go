package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/labelgrid/labelgrid-api/internal/dto"
	"github.com/labelgrid/labelgrid-api/internal/models"
	"github.com/labelgrid/labelgrid-api/internal/repository"
	"github.com/labelgrid/labelgrid-api/internal/taskcfg"
)

// TrainingService runs annotators through the gold-labelled training
// questions. A run completes once every question has been answered; the
// pass rate over all attempts decides whether the annotator moves on or
// starts the questions over.
type TrainingService interface {
	Question(ctx context.Context, userID string) (dto.TrainingQuestionResponse, error)
	Answer(ctx context.Context, userID, answer string) (dto.TrainingResultResponse, error)
}

type trainingService struct {
	annotators repository.AnnotatorRepository
	training   repository.TrainingRepository
	task       taskcfg.TaskConfig
	logger     zerolog.Logger
}

// NewTrainingService constructs the training service.
func NewTrainingService(
	annotators repository.AnnotatorRepository,
	training repository.TrainingRepository,
	task taskcfg.TaskConfig,
	logger zerolog.Logger,
) TrainingService {
	return &trainingService{
		annotators: annotators,
		training:   training,
		task:       task,
		logger:     logger.With().Str("component", "training_service").Logger(),
	}
}

func (s *trainingService) Question(ctx context.Context, userID string) (dto.TrainingQuestionResponse, error) {
	if !s.task.Training.Enabled {
		return dto.TrainingQuestionResponse{}, fmt.Errorf("training is not enabled for this task: %w", ErrTrainingIncomplete)
	}

	progress, err := s.training.GetOrCreate(ctx, userID, len(s.task.Training.Questions))
	if err != nil {
		return dto.TrainingQuestionResponse{}, err
	}

	if progress.Passed || progress.CurrentIndex >= len(s.task.Training.Questions) {
		return dto.TrainingQuestionResponse{
			Index:     progress.CurrentIndex,
			Total:     len(s.task.Training.Questions),
			Completed: true,
			Passed:    progress.Passed,
		}, nil
	}

	question := s.task.Training.Questions[progress.CurrentIndex]
	return dto.TrainingQuestionResponse{
		Index:      progress.CurrentIndex,
		Total:      len(s.task.Training.Questions),
		Text:       question.Text,
		SchemaName: question.SchemaName,
		Options:    question.Options,
	}, nil
}

func (s *trainingService) Answer(ctx context.Context, userID, answer string) (dto.TrainingResultResponse, error) {
	if !s.task.Training.Enabled {
		return dto.TrainingResultResponse{}, fmt.Errorf("training is not enabled for this task: %w", ErrTrainingIncomplete)
	}

	progress, err := s.training.GetOrCreate(ctx, userID, len(s.task.Training.Questions))
	if err != nil {
		return dto.TrainingResultResponse{}, err
	}

	total := len(s.task.Training.Questions)
	if progress.Passed {
		return dto.TrainingResultResponse{}, fmt.Errorf("training already passed: %w", ErrInvalidTransition)
	}
	if progress.CurrentIndex >= total {
		return dto.TrainingResultResponse{}, fmt.Errorf("no training question pending: %w", ErrNotFound)
	}

	question := s.task.Training.Questions[progress.CurrentIndex]
	correct := strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(question.GoldLabel))

	progress.AttemptCount++
	if correct {
		progress.CorrectCount++
	}
	progress.CurrentIndex++
	progress.TotalQuestions = total

	result := dto.TrainingResultResponse{
		Correct:      correct,
		CurrentIndex: progress.CurrentIndex,
		Total:        total,
		CorrectCount: progress.CorrectCount,
		AttemptCount: progress.AttemptCount,
	}
	if !correct {
		result.Explanation = question.Explanation
	}

	result.PassRate = progress.PassRate()

	if progress.CurrentIndex >= total {
		result.Completed = true
		if result.PassRate >= s.task.Training.PassThreshold {
			progress.Passed = true
			if err := s.promote(ctx, userID); err != nil {
				return dto.TrainingResultResponse{}, err
			}
			s.logger.Info().Str("user_id", userID).Float64("pass_rate", result.PassRate).Msg("annotator passed training")
		} else {
			// Failed runs start over; the attempt history is kept so
			// repeated guessing drags the pass rate down.
			progress.CurrentIndex = 0
			progress.CorrectCount = 0
			result.CurrentIndex = 0
			s.logger.Info().Str("user_id", userID).Float64("pass_rate", result.PassRate).Msg("annotator failed training run")
		}
	}

	result.Passed = progress.Passed

	if err := s.training.Update(ctx, &progress); err != nil {
		return dto.TrainingResultResponse{}, err
	}
	return result, nil
}

func (s *trainingService) promote(ctx context.Context, userID string) error {
	annotator, err := s.annotators.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if annotator.Phase != models.PhaseTraining {
		return nil
	}
	annotator.Phase = models.PhaseAnnotation
	return s.annotators.Update(ctx, &annotator)
}
