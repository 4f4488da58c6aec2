package history

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Default thresholds for the suspicious-activity heuristics.
const (
	DefaultFastThresholdMS       = 500
	DefaultBurstThresholdSeconds = 2.0
)

// Suspicion levels reported by DetectSuspiciousActivity.
const (
	LevelNormal   = "Normal"
	LevelLow      = "Low"
	LevelMedium   = "Medium"
	LevelHigh     = "High"
	LevelVeryHigh = "Very High"
)

// PerformanceMetrics summarises server-side processing cost and pace for a
// sequence of actions.
type PerformanceMetrics struct {
	TotalActions          int     `json:"total_actions"`
	TotalProcessingTimeMS int     `json:"total_processing_time_ms"`
	AverageActionTimeMS   float64 `json:"average_action_time_ms"`
	FastestActionTimeMS   int     `json:"fastest_action_time_ms"`
	SlowestActionTimeMS   int     `json:"slowest_action_time_ms"`
	ActionsPerMinute      float64 `json:"actions_per_minute"`
}

// SuspiciousActivity is the result of the fraud/quality heuristics. An
// action flagged by both passes appears once in SuspiciousActions but is
// counted in both FastActionsCount and BurstActionsCount.
//
// SuspiciousLevel is left empty (and therefore absent from the JSON form)
// when the input was empty; the non-empty path always sets it.
type SuspiciousActivity struct {
	SuspiciousActions      []AnnotationAction `json:"suspicious_actions"`
	FastActionsCount       int                `json:"fast_actions_count"`
	BurstActionsCount      int                `json:"burst_actions_count"`
	FastActionsPercentage  float64            `json:"fast_actions_percentage"`
	BurstActionsPercentage float64            `json:"burst_actions_percentage"`
	SuspiciousScore        float64            `json:"suspicious_score"`
	SuspiciousLevel        string             `json:"suspicious_level,omitempty"`
}

// Manager provides pure, stateless transformations over ordered sequences
// of AnnotationAction. All methods are deterministic functions of their
// inputs and safe to call concurrently on independent slices.
type Manager struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewManager constructs a history manager with an injected logger.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		logger: logger.With().Str("component", "annotation_history").Logger(),
		now:    time.Now,
	}
}

// CreateActionInput carries the fields of a new action record. SessionID
// defaults to "unknown" and Metadata to an empty map when unset.
type CreateActionInput struct {
	UserID                 string
	InstanceID             string
	ActionType             string
	SchemaName             string
	LabelName              string
	OldValue               any
	NewValue               any
	SpanData               *SpanData
	SessionID              string
	ClientTimestamp        *time.Time
	ServerProcessingTimeMS int
	Metadata               map[string]any
}

// CreateAction produces a new record with a fresh action id and the current
// server time. The action type is not checked against the known set.
func (m *Manager) CreateAction(in CreateActionInput) AnnotationAction {
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = "unknown"
	}

	metadata := in.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	action := AnnotationAction{
		ActionID:               uuid.NewString(),
		Timestamp:              m.now(),
		UserID:                 in.UserID,
		InstanceID:             in.InstanceID,
		ActionType:             in.ActionType,
		SchemaName:             in.SchemaName,
		LabelName:              in.LabelName,
		OldValue:               in.OldValue,
		NewValue:               in.NewValue,
		SpanData:               in.SpanData,
		SessionID:              sessionID,
		ClientTimestamp:        in.ClientTimestamp,
		ServerProcessingTimeMS: in.ServerProcessingTimeMS,
		Metadata:               metadata,
	}

	m.logger.Debug().
		Str("action_id", action.ActionID).
		Str("user_id", action.UserID).
		Str("action_type", action.ActionType).
		Msg("annotation action recorded")

	return action
}

// CalculatePerformanceMetrics computes the six summary fields over the
// given actions. The caller must pass actions in chronological order:
// ActionsPerMinute uses the first and last element without sorting, so an
// out-of-order slice silently produces a wrong rate.
func (m *Manager) CalculatePerformanceMetrics(actions []AnnotationAction) PerformanceMetrics {
	if len(actions) == 0 {
		return PerformanceMetrics{}
	}

	total := 0
	fastest := actions[0].ServerProcessingTimeMS
	slowest := actions[0].ServerProcessingTimeMS
	for _, action := range actions {
		total += action.ServerProcessingTimeMS
		if action.ServerProcessingTimeMS < fastest {
			fastest = action.ServerProcessingTimeMS
		}
		if action.ServerProcessingTimeMS > slowest {
			slowest = action.ServerProcessingTimeMS
		}
	}

	perMinute := 0.0
	if len(actions) > 1 {
		spanMinutes := actions[len(actions)-1].Timestamp.Sub(actions[0].Timestamp).Minutes()
		if spanMinutes > 0 {
			perMinute = float64(len(actions)) / spanMinutes
		}
	}

	return PerformanceMetrics{
		TotalActions:          len(actions),
		TotalProcessingTimeMS: total,
		AverageActionTimeMS:   float64(total) / float64(len(actions)),
		FastestActionTimeMS:   fastest,
		SlowestActionTimeMS:   slowest,
		ActionsPerMinute:      perMinute,
	}
}

// DetectSuspiciousActivity runs the fast-action and burst-action passes and
// folds the results into a weighted suspicion score. An action is "fast"
// when its processing time is below fastThresholdMS, and "burst" when it
// follows its predecessor by less than burstThresholdSeconds.
func (m *Manager) DetectSuspiciousActivity(actions []AnnotationAction, fastThresholdMS int, burstThresholdSeconds float64) SuspiciousActivity {
	if len(actions) == 0 {
		return SuspiciousActivity{SuspiciousActions: []AnnotationAction{}}
	}

	suspicious := make([]AnnotationAction, 0)
	flagged := make(map[string]bool, len(actions))

	fastCount := 0
	for _, action := range actions {
		if action.ServerProcessingTimeMS < fastThresholdMS {
			fastCount++
			suspicious = append(suspicious, action)
			flagged[action.ActionID] = true
		}
	}

	burstCount := 0
	for i := 1; i < len(actions); i++ {
		gap := actions[i].Timestamp.Sub(actions[i-1].Timestamp).Seconds()
		if gap < burstThresholdSeconds {
			burstCount++
			if !flagged[actions[i].ActionID] {
				suspicious = append(suspicious, actions[i])
				flagged[actions[i].ActionID] = true
			}
		}
	}

	total := float64(len(actions))
	fastPct := 100 * float64(fastCount) / total
	burstPct := 100 * float64(burstCount) / total

	// Fast actions weigh more than bursts.
	score := 0.6*fastPct + 0.4*burstPct
	if score > 100 {
		score = 100
	}

	return SuspiciousActivity{
		SuspiciousActions:      suspicious,
		FastActionsCount:       fastCount,
		BurstActionsCount:      burstCount,
		FastActionsPercentage:  fastPct,
		BurstActionsPercentage: burstPct,
		SuspiciousScore:        score,
		SuspiciousLevel:        levelForScore(score),
	}
}

// ActionsByTimeRange filters to actions with start <= timestamp <= end,
// preserving order.
func (m *Manager) ActionsByTimeRange(actions []AnnotationAction, start, end time.Time) []AnnotationAction {
	result := make([]AnnotationAction, 0, len(actions))
	for _, action := range actions {
		if action.Timestamp.Before(start) || action.Timestamp.After(end) {
			continue
		}
		result = append(result, action)
	}
	return result
}

// ActionsByInstance filters to actions on the given instance, preserving order.
func (m *Manager) ActionsByInstance(actions []AnnotationAction, instanceID string) []AnnotationAction {
	result := make([]AnnotationAction, 0, len(actions))
	for _, action := range actions {
		if action.InstanceID == instanceID {
			result = append(result, action)
		}
	}
	return result
}

// ActionsByType filters to actions of the given type, preserving order.
func (m *Manager) ActionsByType(actions []AnnotationAction, actionType string) []AnnotationAction {
	result := make([]AnnotationAction, 0, len(actions))
	for _, action := range actions {
		if action.ActionType == actionType {
			result = append(result, action)
		}
	}
	return result
}

// levelForScore buckets a suspicion score. Boundaries are right-exclusive
// on the lower bound: a score of exactly 10 is Low, not Normal.
func levelForScore(score float64) string {
	switch {
	case score < 10:
		return LevelNormal
	case score < 30:
		return LevelLow
	case score < 60:
		return LevelMedium
	case score < 80:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}
