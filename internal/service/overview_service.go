package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/labelgrid/labelgrid-api/internal/dto"
	"github.com/labelgrid/labelgrid-api/internal/history"
	"github.com/labelgrid/labelgrid-api/internal/models"
	"github.com/labelgrid/labelgrid-api/internal/repository"
)

// OverviewService builds the platform-wide roll-up shown on the admin
// landing page. The result is cached in Redis because it touches every
// table; a nil cache client disables caching.
type OverviewService interface {
	Overview(ctx context.Context) (dto.OverviewResponse, error)
}

type overviewService struct {
	annotators  repository.AnnotatorRepository
	items       repository.ItemRepository
	annotations repository.AnnotationRepository
	store       *history.Store
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewOverviewService constructs the overview service.
func NewOverviewService(
	annotators repository.AnnotatorRepository,
	items repository.ItemRepository,
	annotations repository.AnnotationRepository,
	store *history.Store,
	cache *redis.Client,
	ttl time.Duration,
	logger zerolog.Logger,
) OverviewService {
	return &overviewService{
		annotators:  annotators,
		items:       items,
		annotations: annotations,
		store:       store,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "overview_service").Logger(),
		now:         time.Now,
	}
}

func (s *overviewService) Overview(ctx context.Context) (dto.OverviewResponse, error) {
	const cacheKey = "overview:summary"
	tracer := otel.Tracer("github.com/labelgrid/labelgrid-api/internal/service/overview")
	ctx, span := tracer.Start(ctx, "overview.aggregate")
	span.SetAttributes(attribute.String("overview.cache_key", cacheKey))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.OverviewResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("overview.cache_hit", true))
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read overview cache")
			span.RecordError(err)
		}
	}

	byPhase, err := s.annotators.CountByPhase(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_annotators_failed")
		return dto.OverviewResponse{}, err
	}

	itemCount, err := s.items.Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_items_failed")
		return dto.OverviewResponse{}, err
	}

	annotationCount, err := s.annotations.Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_annotations_failed")
		return dto.OverviewResponse{}, err
	}

	summary := s.buildOverview(byPhase, itemCount, annotationCount)
	span.SetAttributes(
		attribute.Int64("overview.total_annotators", summary.TotalAnnotators),
		attribute.Int64("overview.total_items", summary.TotalItems),
	)

	if s.cache != nil {
		payload, err := json.Marshal(summary)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store overview cache")
				span.RecordError(err)
			}
		}
	}

	return summary, nil
}

func (s *overviewService) buildOverview(byPhase map[string]int64, itemCount, annotationCount int64) dto.OverviewResponse {
	total := int64(0)
	phases := make(map[string]int64, len(models.PhaseOrder))
	for _, phase := range models.PhaseOrder {
		count := byPhase[phase]
		phases[phase] = count
		total += count
	}
	done := byPhase[models.PhaseDone]

	completion := 0.0
	if total > 0 {
		completion = float64(done) / float64(total) * 100
	}

	return dto.OverviewResponse{
		TotalAnnotators:   total,
		AnnotatorsByPhase: phases,
		TotalItems:        itemCount,
		TotalAnnotations:  annotationCount,
		TotalActions:      int64(s.store.TotalActions()),
		CompletionRate:    completion,
		GeneratedAt:       s.now(),
		CacheHit:          false,
	}
}
