package history

import (
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(zerolog.New(io.Discard))
}

func actionAt(ts time.Time, processingMS int) AnnotationAction {
	return AnnotationAction{
		ActionID:               "act-" + ts.Format(time.RFC3339Nano),
		Timestamp:              ts,
		UserID:                 "user-1",
		InstanceID:             "inst-1",
		ActionType:             ActionAddLabel,
		SchemaName:             "sentiment",
		LabelName:              "positive",
		SessionID:              "session-1",
		ServerProcessingTimeMS: processingMS,
		Metadata:               map[string]any{},
	}
}

func TestCreateActionDefaults(t *testing.T) {
	manager := testManager()
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	manager.now = func() time.Time { return fixed }

	action := manager.CreateAction(CreateActionInput{
		UserID:     "user-1",
		InstanceID: "inst-9",
		ActionType: ActionAddLabel,
		SchemaName: "sentiment",
		LabelName:  "positive",
		NewValue:   "positive",
	})

	require.NotEmpty(t, action.ActionID)
	require.Equal(t, fixed, action.Timestamp)
	require.Equal(t, "unknown", action.SessionID)
	require.NotNil(t, action.Metadata)
	require.Empty(t, action.Metadata)

	other := manager.CreateAction(CreateActionInput{UserID: "user-1"})
	require.NotEqual(t, action.ActionID, other.ActionID)
}

func TestCreateActionAcceptsUnknownType(t *testing.T) {
	manager := testManager()

	action := manager.CreateAction(CreateActionInput{
		UserID:     "user-1",
		ActionType: "bulk_import",
	})

	require.Equal(t, "bulk_import", action.ActionType)
}

func TestCalculatePerformanceMetricsEmpty(t *testing.T) {
	metrics := testManager().CalculatePerformanceMetrics(nil)

	require.Zero(t, metrics.TotalActions)
	require.Zero(t, metrics.TotalProcessingTimeMS)
	require.Zero(t, metrics.AverageActionTimeMS)
	require.Zero(t, metrics.FastestActionTimeMS)
	require.Zero(t, metrics.SlowestActionTimeMS)
	require.Zero(t, metrics.ActionsPerMinute)
}

func TestCalculatePerformanceMetricsBounds(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	actions := []AnnotationAction{
		actionAt(base, 120),
		actionAt(base.Add(10*time.Second), 450),
		actionAt(base.Add(25*time.Second), 90),
		actionAt(base.Add(40*time.Second), 300),
	}

	metrics := testManager().CalculatePerformanceMetrics(actions)

	require.Equal(t, 4, metrics.TotalActions)
	require.Equal(t, 960, metrics.TotalProcessingTimeMS)
	require.Equal(t, 90, metrics.FastestActionTimeMS)
	require.Equal(t, 450, metrics.SlowestActionTimeMS)
	require.InDelta(t, 240.0, metrics.AverageActionTimeMS, 1e-9)
	require.LessOrEqual(t, float64(metrics.FastestActionTimeMS), metrics.AverageActionTimeMS)
	require.LessOrEqual(t, metrics.AverageActionTimeMS, float64(metrics.SlowestActionTimeMS))
}

func TestCalculatePerformanceMetricsSingleAction(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	metrics := testManager().CalculatePerformanceMetrics([]AnnotationAction{actionAt(base, 200)})

	require.Equal(t, 1, metrics.TotalActions)
	require.Zero(t, metrics.ActionsPerMinute)
}

func TestActionsPerMinuteEvenSpacing(t *testing.T) {
	// 10 actions 6 seconds apart span 54s = 0.9 minutes.
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	actions := make([]AnnotationAction, 0, 10)
	for i := 0; i < 10; i++ {
		actions = append(actions, actionAt(base.Add(time.Duration(i)*6*time.Second), 600))
	}

	metrics := testManager().CalculatePerformanceMetrics(actions)

	require.InDelta(t, 10.0/0.9, metrics.ActionsPerMinute, 1e-9)
}

func TestActionsPerMinuteZeroSpan(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	actions := []AnnotationAction{actionAt(base, 600), actionAt(base, 600)}

	metrics := testManager().CalculatePerformanceMetrics(actions)

	require.Zero(t, metrics.ActionsPerMinute)
}

func TestDetectSuspiciousActivityEmpty(t *testing.T) {
	analysis := testManager().DetectSuspiciousActivity(nil, DefaultFastThresholdMS, DefaultBurstThresholdSeconds)

	require.Empty(t, analysis.SuspiciousActions)
	require.Zero(t, analysis.FastActionsCount)
	require.Zero(t, analysis.BurstActionsCount)
	require.Zero(t, analysis.FastActionsPercentage)
	require.Zero(t, analysis.BurstActionsPercentage)
	require.Zero(t, analysis.SuspiciousScore)
	require.Empty(t, analysis.SuspiciousLevel)
}

func TestDetectSuspiciousActivityFastOnly(t *testing.T) {
	// All fast, spaced beyond the burst window: 0.6*100 + 0.4*0 = 60.
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	actions := make([]AnnotationAction, 0, 5)
	for i := 0; i < 5; i++ {
		actions = append(actions, actionAt(base.Add(time.Duration(i)*10*time.Second), 50))
	}

	analysis := testManager().DetectSuspiciousActivity(actions, 500, 2)

	require.Equal(t, 5, analysis.FastActionsCount)
	require.Zero(t, analysis.BurstActionsCount)
	require.InDelta(t, 100.0, analysis.FastActionsPercentage, 1e-9)
	require.InDelta(t, 60.0, analysis.SuspiciousScore, 1e-9)
	require.Equal(t, LevelHigh, analysis.SuspiciousLevel)
	require.Len(t, analysis.SuspiciousActions, 5)
}

func TestDetectSuspiciousActivityBurstOnly(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	actions := []AnnotationAction{
		actionAt(base, 600),
		actionAt(base.Add(500*time.Millisecond), 700),
		actionAt(base.Add(1*time.Second), 800),
	}

	analysis := testManager().DetectSuspiciousActivity(actions, 500, 2)

	require.Zero(t, analysis.FastActionsCount)
	require.Equal(t, 2, analysis.BurstActionsCount)
	require.Len(t, analysis.SuspiciousActions, 2)
}

func TestDetectSuspiciousActivityOverlapCountsOnce(t *testing.T) {
	// Both actions are fast and the second is also a burst: it must appear
	// once in the suspicious list but in both counters.
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	actions := []AnnotationAction{
		actionAt(base, 50),
		actionAt(base.Add(time.Second), 50),
	}

	analysis := testManager().DetectSuspiciousActivity(actions, 500, 2)

	require.Equal(t, 2, analysis.FastActionsCount)
	require.Equal(t, 1, analysis.BurstActionsCount)
	require.Len(t, analysis.SuspiciousActions, 2)
}

func TestSuspicionScoreBounded(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	actions := make([]AnnotationAction, 0, 20)
	for i := 0; i < 20; i++ {
		actions = append(actions, actionAt(base.Add(time.Duration(i)*100*time.Millisecond), 10))
	}

	analysis := testManager().DetectSuspiciousActivity(actions, 500, 2)

	require.GreaterOrEqual(t, analysis.SuspiciousScore, 0.0)
	require.LessOrEqual(t, analysis.SuspiciousScore, 100.0)
	require.Equal(t, LevelVeryHigh, analysis.SuspiciousLevel)
}

func TestLevelForScoreBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		level string
	}{
		{0, LevelNormal},
		{9.999, LevelNormal},
		{10, LevelLow},
		{29.999, LevelLow},
		{30, LevelMedium},
		{59.999, LevelMedium},
		{60, LevelHigh},
		{79.999, LevelHigh},
		{80, LevelVeryHigh},
		{100, LevelVeryHigh},
	}

	for _, tc := range cases {
		require.Equal(t, tc.level, levelForScore(tc.score), "score %v", tc.score)
	}
}

func TestFiltersPreserveOrder(t *testing.T) {
	manager := testManager()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	first := actionAt(base, 100)
	first.InstanceID = "X"
	second := actionAt(base.Add(time.Minute), 100)
	second.InstanceID = "Y"
	second.ActionType = ActionUpdateLabel
	third := actionAt(base.Add(2*time.Minute), 100)
	third.InstanceID = "X"
	actions := []AnnotationAction{first, second, third}

	byInstance := manager.ActionsByInstance(actions, "X")
	require.Len(t, byInstance, 2)
	require.Equal(t, first.ActionID, byInstance[0].ActionID)
	require.Equal(t, third.ActionID, byInstance[1].ActionID)

	all := manager.ActionsByInstance([]AnnotationAction{first, third}, "X")
	require.Len(t, all, 2)

	byType := manager.ActionsByType(actions, ActionUpdateLabel)
	require.Len(t, byType, 1)
	require.Equal(t, second.ActionID, byType[0].ActionID)

	byRange := manager.ActionsByTimeRange(actions, base, base.Add(time.Minute))
	require.Len(t, byRange, 2)
	require.Equal(t, first.ActionID, byRange[0].ActionID)
	require.Equal(t, second.ActionID, byRange[1].ActionID)
}
