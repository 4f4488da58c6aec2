package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/labelgrid/labelgrid-api/internal/dto"
	"github.com/labelgrid/labelgrid-api/internal/history"
	"github.com/labelgrid/labelgrid-api/internal/models"
	"github.com/labelgrid/labelgrid-api/internal/repository"
	"github.com/labelgrid/labelgrid-api/internal/taskcfg"
)

// ActionPublisher delivers recorded actions to interested observers (the
// live admin feed and, through it, other API nodes).
type ActionPublisher interface {
	Publish(ctx context.Context, action history.AnnotationAction)
}

// AnnotationService applies annotation edits and maintains the per-user
// action history.
type AnnotationService interface {
	Submit(ctx context.Context, userID string, req dto.AnnotationSubmitRequest) (dto.AnnotationActionResponse, error)
	Remove(ctx context.Context, userID string, req dto.AnnotationDeleteRequest) (dto.AnnotationActionResponse, error)
	// FinishRequest back-fills the final request duration onto the most
	// recently recorded action for the user.
	FinishRequest(ctx context.Context, userID string, elapsed time.Duration)
}

type annotationService struct {
	annotations repository.AnnotationRepository
	items       repository.ItemRepository
	actions     repository.ActionRecordRepository
	manager     *history.Manager
	store       *history.Store
	task        taskcfg.TaskConfig
	publisher   ActionPublisher
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewAnnotationService constructs the annotation service.
func NewAnnotationService(
	annotations repository.AnnotationRepository,
	items repository.ItemRepository,
	actions repository.ActionRecordRepository,
	manager *history.Manager,
	store *history.Store,
	task taskcfg.TaskConfig,
	publisher ActionPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) AnnotationService {
	return &annotationService{
		annotations: annotations,
		items:       items,
		actions:     actions,
		manager:     manager,
		store:       store,
		task:        task,
		publisher:   publisher,
		validator:   validate,
		logger:      logger.With().Str("component", "annotation_service").Logger(),
	}
}

func (s *annotationService) Submit(ctx context.Context, userID string, req dto.AnnotationSubmitRequest) (dto.AnnotationActionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AnnotationActionResponse{}, err
	}

	if _, err := s.items.GetByInstanceID(ctx, req.InstanceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound) {
			return dto.AnnotationActionResponse{}, fmt.Errorf("instance %s: %w", req.InstanceID, ErrNotFound)
		}
		return dto.AnnotationActionResponse{}, err
	}

	// Resolve the label union once, here at the ingestion boundary.
	label := models.ResolveLabel(req.SchemaName, req.LabelName, req.Value)
	if label.Kind == models.LabelKindStructured {
		if _, ok := s.task.Scheme(label.Schema); !ok {
			return dto.AnnotationActionResponse{}, fmt.Errorf("scheme %s: %w", label.Schema, ErrUnknownScheme)
		}
	}

	schemaName, labelName := label.Schema, label.Name
	if label.Kind == models.LabelKindRaw {
		schemaName, labelName = "raw", label.Raw
	}

	var oldValue any
	actionType := history.ActionAddLabel
	existing, err := s.annotations.Get(ctx, userID, req.InstanceID, schemaName, labelName)
	switch {
	case err == nil:
		oldValue = existing.DecodedValue()
		actionType = history.ActionUpdateLabel
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, ErrNotFound):
	default:
		return dto.AnnotationActionResponse{}, err
	}

	if req.SpanData != nil {
		if actionType == history.ActionAddLabel {
			actionType = history.ActionAddSpan
		} else {
			actionType = history.ActionUpdateSpan
		}
	}

	annotation := models.Annotation{
		UserID:     userID,
		InstanceID: req.InstanceID,
		SchemaName: schemaName,
		LabelName:  labelName,
		Value:      marshalValue(req.Value),
		IsSpan:     req.SpanData != nil,
		TimeSpent:  req.TimeSpent,
	}
	if err := s.annotations.Upsert(ctx, &annotation); err != nil {
		return dto.AnnotationActionResponse{}, err
	}

	action := s.recordAction(ctx, history.CreateActionInput{
		UserID:          userID,
		InstanceID:      req.InstanceID,
		ActionType:      actionType,
		SchemaName:      schemaName,
		LabelName:       labelName,
		OldValue:        oldValue,
		NewValue:        req.Value,
		SpanData:        req.SpanData,
		SessionID:       req.SessionID,
		ClientTimestamp: req.ClientTimestamp,
	})

	return actionResponse(action), nil
}

func (s *annotationService) Remove(ctx context.Context, userID string, req dto.AnnotationDeleteRequest) (dto.AnnotationActionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AnnotationActionResponse{}, err
	}

	existing, err := s.annotations.Get(ctx, userID, req.InstanceID, req.SchemaName, req.LabelName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound) {
			return dto.AnnotationActionResponse{}, fmt.Errorf("annotation: %w", ErrNotFound)
		}
		return dto.AnnotationActionResponse{}, err
	}

	if err := s.annotations.Delete(ctx, userID, req.InstanceID, req.SchemaName, req.LabelName); err != nil {
		return dto.AnnotationActionResponse{}, err
	}

	actionType := history.ActionDeleteLabel
	if existing.IsSpan {
		actionType = history.ActionDeleteSpan
	}

	action := s.recordAction(ctx, history.CreateActionInput{
		UserID:     userID,
		InstanceID: req.InstanceID,
		ActionType: actionType,
		SchemaName: req.SchemaName,
		LabelName:  req.LabelName,
		OldValue:   existing.DecodedValue(),
		SessionID:  req.SessionID,
	})

	return actionResponse(action), nil
}

func (s *annotationService) FinishRequest(ctx context.Context, userID string, elapsed time.Duration) {
	ms := int(elapsed.Milliseconds())
	actionID, ok := s.store.BackfillProcessingTime(userID, ms)
	if !ok {
		return
	}

	if err := s.actions.UpdateProcessingTime(ctx, actionID, ms); err != nil {
		s.logger.Warn().Err(err).Str("action_id", actionID).Msg("failed to persist processing time")
	}
}

func (s *annotationService) recordAction(ctx context.Context, in history.CreateActionInput) history.AnnotationAction {
	action := s.manager.CreateAction(in)
	s.store.Append(action)

	record := models.NewActionRecord(action)
	if err := s.actions.Create(ctx, &record); err != nil {
		s.logger.Error().Err(err).Str("action_id", action.ActionID).Msg("failed to persist action record")
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, action)
	}

	return action
}

func actionResponse(action history.AnnotationAction) dto.AnnotationActionResponse {
	return dto.AnnotationActionResponse{
		ActionID:   action.ActionID,
		ActionType: action.ActionType,
		InstanceID: action.InstanceID,
		SchemaName: action.SchemaName,
		LabelName:  action.LabelName,
		Timestamp:  action.Timestamp,
	}
}

func marshalValue(value any) datatypes.JSON {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return datatypes.JSON(payload)
}
