package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/labelgrid/labelgrid-api/internal/dto"
	"github.com/labelgrid/labelgrid-api/internal/models"
	"github.com/labelgrid/labelgrid-api/internal/repository"
	"github.com/labelgrid/labelgrid-api/internal/taskcfg"
)

// WorkflowService drives an annotator through the study phases and their
// assigned item order. Annotators are created lazily on first contact.
type WorkflowService interface {
	State(ctx context.Context, userID string) (dto.WorkflowStateResponse, error)
	Consent(ctx context.Context, userID string, agreed bool) (dto.WorkflowStateResponse, error)
	Advance(ctx context.Context, userID string) (dto.WorkflowStateResponse, error)
	CurrentItem(ctx context.Context, userID string) (dto.ItemResponse, error)
	NextItem(ctx context.Context, userID string) (dto.ItemResponse, error)
	PrevItem(ctx context.Context, userID string) (dto.ItemResponse, error)
	GotoItem(ctx context.Context, userID string, index int) (dto.ItemResponse, error)
}

type workflowService struct {
	annotators repository.AnnotatorRepository
	items      repository.ItemRepository
	training   repository.TrainingRepository
	task       taskcfg.TaskConfig
	logger     zerolog.Logger
}

// NewWorkflowService constructs the workflow service.
func NewWorkflowService(
	annotators repository.AnnotatorRepository,
	items repository.ItemRepository,
	training repository.TrainingRepository,
	task taskcfg.TaskConfig,
	logger zerolog.Logger,
) WorkflowService {
	return &workflowService{
		annotators: annotators,
		items:      items,
		training:   training,
		task:       task,
		logger:     logger.With().Str("component", "workflow_service").Logger(),
	}
}

// phaseEnabled reports whether a phase participates in this task's workflow.
// Consent, instructions, training and post-study can all be toggled off;
// annotation and done are always present.
func (s *workflowService) phaseEnabled(phase string) bool {
	switch phase {
	case models.PhaseConsent:
		return s.task.Phases.Consent
	case models.PhaseInstructions:
		return s.task.Phases.Instructions
	case models.PhaseTraining:
		return s.task.Training.Enabled
	case models.PhasePostStudy:
		return s.task.Phases.PostStudy
	default:
		return true
	}
}

func (s *workflowService) firstPhase() string {
	for _, phase := range models.PhaseOrder {
		if s.phaseEnabled(phase) {
			return phase
		}
	}
	return models.PhaseAnnotation
}

func (s *workflowService) nextPhase(current string) (string, error) {
	index := models.PhaseIndex(current)
	if index < 0 {
		return "", fmt.Errorf("unknown phase %q: %w", current, ErrInvalidTransition)
	}
	for i := index + 1; i < len(models.PhaseOrder); i++ {
		if s.phaseEnabled(models.PhaseOrder[i]) {
			return models.PhaseOrder[i], nil
		}
	}
	return "", fmt.Errorf("phase %q is terminal: %w", current, ErrInvalidTransition)
}

func (s *workflowService) getOrCreate(ctx context.Context, userID string) (models.Annotator, error) {
	annotator, err := s.annotators.GetByUserID(ctx, userID)
	if err == nil {
		return annotator, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, ErrNotFound) {
		return models.Annotator{}, err
	}

	annotator = models.Annotator{
		UserID:      userID,
		DisplayName: userID,
		Phase:       s.firstPhase(),
	}
	if err := s.annotators.Create(ctx, &annotator); err != nil {
		return models.Annotator{}, err
	}

	s.logger.Info().Str("user_id", userID).Str("phase", annotator.Phase).Msg("registered annotator")
	return annotator, nil
}

func (s *workflowService) State(ctx context.Context, userID string) (dto.WorkflowStateResponse, error) {
	annotator, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return dto.WorkflowStateResponse{}, err
	}
	return s.stateResponse(ctx, annotator)
}

func (s *workflowService) Consent(ctx context.Context, userID string, agreed bool) (dto.WorkflowStateResponse, error) {
	annotator, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return dto.WorkflowStateResponse{}, err
	}

	if annotator.Phase != models.PhaseConsent {
		return dto.WorkflowStateResponse{}, fmt.Errorf("consent can only be recorded in the consent phase: %w", ErrInvalidTransition)
	}
	if !agreed {
		return dto.WorkflowStateResponse{}, ErrConsentRequired
	}

	annotator.Consented = true
	next, err := s.nextPhase(annotator.Phase)
	if err != nil {
		return dto.WorkflowStateResponse{}, err
	}
	annotator.Phase = next

	if err := s.annotators.Update(ctx, &annotator); err != nil {
		return dto.WorkflowStateResponse{}, err
	}
	return s.stateResponse(ctx, annotator)
}

func (s *workflowService) Advance(ctx context.Context, userID string) (dto.WorkflowStateResponse, error) {
	annotator, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return dto.WorkflowStateResponse{}, err
	}

	switch annotator.Phase {
	case models.PhaseConsent:
		if !annotator.Consented {
			return dto.WorkflowStateResponse{}, ErrConsentRequired
		}
	case models.PhaseTraining:
		progress, err := s.training.GetOrCreate(ctx, userID, len(s.task.Training.Questions))
		if err != nil {
			return dto.WorkflowStateResponse{}, err
		}
		if !progress.Passed {
			return dto.WorkflowStateResponse{}, ErrTrainingIncomplete
		}
	}

	next, err := s.nextPhase(annotator.Phase)
	if err != nil {
		return dto.WorkflowStateResponse{}, err
	}
	annotator.Phase = next

	if err := s.annotators.Update(ctx, &annotator); err != nil {
		return dto.WorkflowStateResponse{}, err
	}

	s.logger.Info().Str("user_id", userID).Str("phase", next).Msg("annotator advanced")
	return s.stateResponse(ctx, annotator)
}

func (s *workflowService) stateResponse(ctx context.Context, annotator models.Annotator) (dto.WorkflowStateResponse, error) {
	total, err := s.items.Count(ctx)
	if err != nil {
		return dto.WorkflowStateResponse{}, err
	}

	return dto.WorkflowStateResponse{
		UserID:    annotator.UserID,
		Phase:     annotator.Phase,
		Consented: annotator.Consented,
		Cursor:    annotator.Cursor,
		Total:     int(total),
	}, nil
}

func (s *workflowService) CurrentItem(ctx context.Context, userID string) (dto.ItemResponse, error) {
	return s.moveCursor(ctx, userID, func(cursor, total int) (int, error) {
		return cursor, nil
	})
}

func (s *workflowService) NextItem(ctx context.Context, userID string) (dto.ItemResponse, error) {
	return s.moveCursor(ctx, userID, func(cursor, total int) (int, error) {
		if cursor+1 >= total {
			return 0, fmt.Errorf("already at the last item: %w", ErrNotFound)
		}
		return cursor + 1, nil
	})
}

func (s *workflowService) PrevItem(ctx context.Context, userID string) (dto.ItemResponse, error) {
	return s.moveCursor(ctx, userID, func(cursor, total int) (int, error) {
		if cursor <= 0 {
			return 0, fmt.Errorf("already at the first item: %w", ErrNotFound)
		}
		return cursor - 1, nil
	})
}

func (s *workflowService) GotoItem(ctx context.Context, userID string, index int) (dto.ItemResponse, error) {
	return s.moveCursor(ctx, userID, func(cursor, total int) (int, error) {
		if index < 0 || index >= total {
			return 0, fmt.Errorf("item index %d out of range: %w", index, ErrNotFound)
		}
		return index, nil
	})
}

func (s *workflowService) moveCursor(ctx context.Context, userID string, move func(cursor, total int) (int, error)) (dto.ItemResponse, error) {
	annotator, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return dto.ItemResponse{}, err
	}

	if annotator.Phase != models.PhaseAnnotation {
		return dto.ItemResponse{}, fmt.Errorf("items are only served in the annotation phase: %w", ErrInvalidTransition)
	}

	items, err := s.items.List(ctx)
	if err != nil {
		return dto.ItemResponse{}, err
	}
	if len(items) == 0 {
		return dto.ItemResponse{}, fmt.Errorf("no items loaded: %w", ErrNotFound)
	}

	cursor, err := move(annotator.Cursor, len(items))
	if err != nil {
		return dto.ItemResponse{}, err
	}
	if cursor >= len(items) {
		cursor = len(items) - 1
	}

	if cursor != annotator.Cursor {
		annotator.Cursor = cursor
		if err := s.annotators.Update(ctx, &annotator); err != nil {
			return dto.ItemResponse{}, err
		}
	}

	item := items[cursor]
	if err := s.items.IncrementDisplayed(ctx, item.InstanceID); err != nil {
		s.logger.Warn().Err(err).Str("instance_id", item.InstanceID).Msg("failed to bump displayed count")
	}

	return dto.ItemResponse{
		InstanceID: item.InstanceID,
		Text:       item.Text,
		Context:    item.Context,
		MediaURL:   item.MediaURL,
		MediaType:  item.MediaType,
		Position:   cursor,
		Total:      len(items),
	}, nil
}
