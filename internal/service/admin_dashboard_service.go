package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/labelgrid/labelgrid-api/internal/dto"
	"github.com/labelgrid/labelgrid-api/internal/history"
	"github.com/labelgrid/labelgrid-api/internal/repository"
	"github.com/labelgrid/labelgrid-api/internal/taskcfg"
)

const (
	// Caps applied to the action lists embedded in admin responses.
	maxHistoryActions    = 100
	maxSuspiciousActions = 10
)

// AdminDashboardService aggregates per-user history and state into the
// statistics the admin dashboard renders. Every call recomputes from the
// live history store; nothing here is cached.
type AdminDashboardService interface {
	Annotators(ctx context.Context) (dto.AnnotatorsResponse, error)
	AnnotationHistory(ctx context.Context, query dto.AnnotationHistoryQuery) (dto.AnnotationHistoryResponse, error)
	SuspiciousActivity(ctx context.Context) (dto.SuspiciousActivityResponse, error)
}

type adminDashboardService struct {
	annotators  repository.AnnotatorRepository
	annotations repository.AnnotationRepository
	training    repository.TrainingRepository
	manager     *history.Manager
	store       *history.Store
	suspicion   taskcfg.SuspicionConfig
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAdminDashboardService constructs the dashboard service.
func NewAdminDashboardService(
	annotators repository.AnnotatorRepository,
	annotations repository.AnnotationRepository,
	training repository.TrainingRepository,
	manager *history.Manager,
	store *history.Store,
	suspicion taskcfg.SuspicionConfig,
	logger zerolog.Logger,
) AdminDashboardService {
	if suspicion.FastThresholdMS <= 0 {
		suspicion.FastThresholdMS = history.DefaultFastThresholdMS
	}
	if suspicion.BurstThresholdSeconds <= 0 {
		suspicion.BurstThresholdSeconds = history.DefaultBurstThresholdSeconds
	}

	return &adminDashboardService{
		annotators:  annotators,
		annotations: annotations,
		training:    training,
		manager:     manager,
		store:       store,
		suspicion:   suspicion,
		logger:      logger.With().Str("component", "admin_dashboard_service").Logger(),
		now:         time.Now,
	}
}

func (s *adminDashboardService) Annotators(ctx context.Context) (dto.AnnotatorsResponse, error) {
	tracer := otel.Tracer("github.com/labelgrid/labelgrid-api/internal/service/admin_dashboard")
	ctx, span := tracer.Start(ctx, "dashboard.annotators")
	defer span.End()

	annotators, err := s.annotators.List(ctx)
	if err != nil {
		return dto.AnnotatorsResponse{}, err
	}

	response := dto.AnnotatorsResponse{
		TotalAnnotators: len(annotators),
		Annotators:      make([]dto.AnnotatorTiming, 0, len(annotators)),
	}

	scoreTotal := 0.0
	for _, annotator := range annotators {
		timing, err := s.annotatorTiming(ctx, annotator.UserID, annotator.DisplayName, annotator.Phase)
		if err != nil {
			return dto.AnnotatorsResponse{}, err
		}

		response.Annotators = append(response.Annotators, timing)
		scoreTotal += timing.SuspiciousActivity.SuspiciousScore

		switch timing.SuspiciousActivity.SuspiciousLevel {
		case history.LevelLow:
			response.Summary.Low++
		case history.LevelMedium:
			response.Summary.Medium++
		case history.LevelHigh, history.LevelVeryHigh:
			response.Summary.High++
		default:
			// Annotators with no recorded actions carry an empty level;
			// the summary counts them alongside Normal.
			response.Summary.Normal++
		}
	}

	if len(annotators) > 0 {
		response.Summary.AverageSuspiciousScore = scoreTotal / float64(len(annotators))
	}

	span.SetAttributes(attribute.Int("dashboard.annotator_count", len(annotators)))
	return response, nil
}

func (s *adminDashboardService) annotatorTiming(ctx context.Context, userID, displayName, phase string) (dto.AnnotatorTiming, error) {
	annotations, err := s.annotations.ListByUser(ctx, userID)
	if err != nil {
		return dto.AnnotatorTiming{}, err
	}

	totalSeconds := 0.0
	for _, annotation := range annotations {
		totalSeconds += parseTimeSpent(annotation.TimeSpent)
	}

	count := len(annotations)
	averageSeconds := 0.0
	perHour := 0.0
	if count > 0 && totalSeconds > 0 {
		averageSeconds = totalSeconds / float64(count)
		perHour = float64(count) * 3600 / totalSeconds
	}

	actions := s.store.Actions(userID)
	progress, err := s.training.GetOrCreate(ctx, userID, 0)
	if err != nil {
		return dto.AnnotatorTiming{}, err
	}

	return dto.AnnotatorTiming{
		UserID:             userID,
		DisplayName:        displayName,
		Phase:              phase,
		TotalAnnotations:   count,
		TotalTimeSeconds:   totalSeconds,
		AverageTimeSeconds: averageSeconds,
		AnnotationsPerHour: perHour,
		PerformanceMetrics: s.manager.CalculatePerformanceMetrics(actions),
		SuspiciousActivity: s.manager.DetectSuspiciousActivity(actions, s.suspicion.FastThresholdMS, s.suspicion.BurstThresholdSeconds),
		Training: dto.TrainingStats{
			CorrectCount:   progress.CorrectCount,
			AttemptCount:   progress.AttemptCount,
			PassRate:       progress.PassRate(),
			CurrentIndex:   progress.CurrentIndex,
			TotalQuestions: progress.TotalQuestions,
			Passed:         progress.Passed,
		},
	}, nil
}

func (s *adminDashboardService) AnnotationHistory(ctx context.Context, query dto.AnnotationHistoryQuery) (dto.AnnotationHistoryResponse, error) {
	tracer := otel.Tracer("github.com/labelgrid/labelgrid-api/internal/service/admin_dashboard")
	ctx, span := tracer.Start(ctx, "dashboard.annotation_history")
	defer span.End()

	var actions []history.AnnotationAction
	scope := "all annotators"

	if query.UserID != "" {
		if _, err := s.annotators.GetByUserID(ctx, query.UserID); err != nil {
			return dto.AnnotationHistoryResponse{}, fmt.Errorf("annotator %s: %w", query.UserID, ErrNotFound)
		}
		actions = s.store.Actions(query.UserID)
		scope = fmt.Sprintf("user %s", query.UserID)
	} else {
		// Merging several users' streams requires re-establishing the
		// chronological order the metrics functions expect.
		for _, userActions := range s.store.All() {
			actions = append(actions, userActions...)
		}
		sort.SliceStable(actions, func(i, j int) bool {
			return actions[i].Timestamp.Before(actions[j].Timestamp)
		})
	}

	if query.InstanceID != "" {
		actions = s.manager.ActionsByInstance(actions, query.InstanceID)
		scope += fmt.Sprintf(", instance %s", query.InstanceID)
	}

	if query.Minutes > 0 {
		end := s.now()
		start := end.Add(-time.Duration(query.Minutes) * time.Minute)
		actions = s.manager.ActionsByTimeRange(actions, start, end)
		scope += fmt.Sprintf(", last %dm", query.Minutes)
	}

	actionTypes := make(map[string]int)
	for _, action := range actions {
		actionTypes[action.ActionType]++
	}

	response := dto.AnnotationHistoryResponse{
		Context:      scope,
		TotalActions: len(actions),
		Actions:      tail(actions, maxHistoryActions),
		Summary: dto.HistorySummary{
			ActionTypes:        actionTypes,
			TimeDistribution:   timeDistribution(actions),
			PerformanceMetrics: s.manager.CalculatePerformanceMetrics(actions),
		},
	}

	span.SetAttributes(attribute.Int("dashboard.action_count", len(actions)))
	return response, nil
}

func (s *adminDashboardService) SuspiciousActivity(ctx context.Context) (dto.SuspiciousActivityResponse, error) {
	tracer := otel.Tracer("github.com/labelgrid/labelgrid-api/internal/service/admin_dashboard")
	_, span := tracer.Start(ctx, "dashboard.suspicious_activity")
	defer span.End()

	histories := s.store.All()
	users := make([]string, 0, len(histories))
	for userID := range histories {
		users = append(users, userID)
	}
	sort.Strings(users)

	response := dto.SuspiciousActivityResponse{
		SuspiciousActivity: make([]dto.UserSuspiciousActivity, 0),
	}

	for _, userID := range users {
		analysis := s.manager.DetectSuspiciousActivity(histories[userID], s.suspicion.FastThresholdMS, s.suspicion.BurstThresholdSeconds)
		if len(analysis.SuspiciousActions) == 0 {
			continue
		}

		response.SuspiciousActivity = append(response.SuspiciousActivity, dto.UserSuspiciousActivity{
			UserID:                 userID,
			SuspiciousActionsCount: len(analysis.SuspiciousActions),
			SuspiciousActions:      tail(analysis.SuspiciousActions, maxSuspiciousActions),
		})
	}

	response.TotalUsersWithSuspiciousActivity = len(response.SuspiciousActivity)
	span.SetAttributes(attribute.Int("dashboard.flagged_users", response.TotalUsersWithSuspiciousActivity))
	return response, nil
}

// tail returns up to limit elements from the end of the slice. The source
// list is chronological, so the tail holds the most recent actions.
func tail(actions []history.AnnotationAction, limit int) []history.AnnotationAction {
	if len(actions) <= limit {
		return append([]history.AnnotationAction(nil), actions...)
	}
	return append([]history.AnnotationAction(nil), actions[len(actions)-limit:]...)
}

// timeDistribution buckets actions by hour of day into a sparse map.
func timeDistribution(actions []history.AnnotationAction) map[string]int {
	distribution := make(map[string]int)
	for _, action := range actions {
		key := fmt.Sprintf("%02d:00", action.Timestamp.Hour())
		distribution[key]++
	}
	return distribution
}

var timeSpentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([dhms])`)

// parseTimeSpent extracts a duration in seconds from client-recorded time
// strings such as "0d 0h 2m 5s" or "Time spent: 1h 3m". Unparseable input
// contributes zero.
func parseTimeSpent(value string) float64 {
	total := 0.0
	for _, match := range timeSpentPattern.FindAllStringSubmatch(value, -1) {
		amount, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		switch match[2] {
		case "d":
			total += amount * 86400
		case "h":
			total += amount * 3600
		case "m":
			total += amount * 60
		case "s":
			total += amount
		}
	}
	return total
}
