package dto

import (
	"time"

	"github.com/labelgrid/labelgrid-api/internal/history"
)

// TrainingStats summarises an annotator's training run for the dashboard.
type TrainingStats struct {
	CorrectCount   int     `json:"correct_count"`
	AttemptCount   int     `json:"attempt_count"`
	PassRate       float64 `json:"pass_rate"`
	CurrentIndex   int     `json:"current_index"`
	TotalQuestions int     `json:"total_questions"`
	Passed         bool    `json:"passed"`
}

// AnnotatorTiming is the per-annotator record returned by the annotators
// endpoint: basic timing, the embedded performance metrics and suspicion
// analysis, and training sub-statistics.
type AnnotatorTiming struct {
	UserID             string                     `json:"user_id"`
	DisplayName        string                     `json:"display_name"`
	Phase              string                     `json:"phase"`
	TotalAnnotations   int                        `json:"total_annotations"`
	TotalTimeSeconds   float64                    `json:"total_time_seconds"`
	AverageTimeSeconds float64                    `json:"average_time_seconds"`
	AnnotationsPerHour float64                    `json:"annotations_per_hour"`
	PerformanceMetrics history.PerformanceMetrics `json:"performance_metrics"`
	SuspiciousActivity history.SuspiciousActivity `json:"suspicious_activity"`
	Training           TrainingStats              `json:"training"`
}

// AnnotatorsSummary aggregates suspicion levels across all annotators.
// High and Very High are folded into the single "high" bucket.
type AnnotatorsSummary struct {
	Normal                 int     `json:"normal"`
	Low                    int     `json:"low"`
	Medium                 int     `json:"medium"`
	High                   int     `json:"high"`
	AverageSuspiciousScore float64 `json:"average_suspicious_score"`
}

// AnnotatorsResponse is the payload of GET /admin/api/annotators.
type AnnotatorsResponse struct {
	TotalAnnotators int               `json:"total_annotators"`
	Annotators      []AnnotatorTiming `json:"annotators"`
	Summary         AnnotatorsSummary `json:"summary"`
}

// AnnotationHistoryQuery narrows the history endpoint's action stream.
type AnnotationHistoryQuery struct {
	UserID     string
	InstanceID string
	Minutes    int
}

// HistorySummary accompanies a filtered action stream.
type HistorySummary struct {
	ActionTypes        map[string]int             `json:"action_types"`
	TimeDistribution   map[string]int             `json:"time_distribution"`
	PerformanceMetrics history.PerformanceMetrics `json:"performance_metrics"`
}

// AnnotationHistoryResponse is the payload of GET /admin/api/annotation_history.
type AnnotationHistoryResponse struct {
	Context      string                     `json:"context"`
	TotalActions int                        `json:"total_actions"`
	Actions      []history.AnnotationAction `json:"actions"`
	Summary      HistorySummary             `json:"summary"`
}

// UserSuspiciousActivity is one entry in the suspicious-activity roll-up.
// SuspiciousActions is capped to the 10 most recent flagged actions.
type UserSuspiciousActivity struct {
	UserID                 string                     `json:"user_id"`
	SuspiciousActionsCount int                        `json:"suspicious_actions_count"`
	SuspiciousActions      []history.AnnotationAction `json:"suspicious_actions"`
}

// SuspiciousActivityResponse is the payload of GET /admin/api/suspicious_activity.
type SuspiciousActivityResponse struct {
	TotalUsersWithSuspiciousActivity int                      `json:"total_users_with_suspicious_activity"`
	SuspiciousActivity               []UserSuspiciousActivity `json:"suspicious_activity"`
}

// OverviewResponse is the Redis-cached platform roll-up.
type OverviewResponse struct {
	TotalAnnotators   int64            `json:"total_annotators"`
	AnnotatorsByPhase map[string]int64 `json:"annotators_by_phase"`
	TotalItems        int64            `json:"total_items"`
	TotalAnnotations  int64            `json:"total_annotations"`
	TotalActions      int64            `json:"total_actions"`
	CompletionRate    float64          `json:"completion_rate"`
	GeneratedAt       time.Time        `json:"generated_at"`
	CacheHit          bool             `json:"cache_hit"`
}

// MediaUploadResponse reports a stored media asset.
type MediaUploadResponse struct {
	InstanceID string `json:"instance_id"`
	MediaURL   string `json:"media_url"`
	MediaType  string `json:"media_type"`
}
