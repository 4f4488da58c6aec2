package history

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestActionMapRoundTrip(t *testing.T) {
	clientTS := time.Date(2026, 3, 14, 9, 26, 52, 500000000, time.UTC)
	original := AnnotationAction{
		ActionID:   "a1b2c3",
		Timestamp:  time.Date(2026, 3, 14, 9, 26, 53, 123456789, time.UTC),
		UserID:     "user-7",
		InstanceID: "inst-42",
		ActionType: ActionAddSpan,
		SchemaName: "entities",
		LabelName:  "person",
		OldValue:   nil,
		NewValue:   "Ada Lovelace",
		SpanData:   &SpanData{Start: 14, End: 26, Title: "person"},
		SessionID:  "sess-1",
		ClientTimestamp: &clientTS,
		ServerProcessingTimeMS: 327,
		Metadata:               map[string]any{"user_agent": "Mozilla/5.0"},
	}

	restored, err := ActionFromMap(original.MarshalMap())
	require.NoError(t, err)

	require.Equal(t, original.ActionID, restored.ActionID)
	require.True(t, original.Timestamp.Equal(restored.Timestamp))
	require.Equal(t, original.UserID, restored.UserID)
	require.Equal(t, original.InstanceID, restored.InstanceID)
	require.Equal(t, original.ActionType, restored.ActionType)
	require.Equal(t, original.SchemaName, restored.SchemaName)
	require.Equal(t, original.LabelName, restored.LabelName)
	require.Equal(t, original.NewValue, restored.NewValue)
	require.Nil(t, restored.OldValue)
	require.NotNil(t, restored.SpanData)
	require.Equal(t, *original.SpanData, *restored.SpanData)
	require.Equal(t, original.SessionID, restored.SessionID)
	require.NotNil(t, restored.ClientTimestamp)
	require.True(t, clientTS.Equal(*restored.ClientTimestamp))
	require.Equal(t, original.ServerProcessingTimeMS, restored.ServerProcessingTimeMS)
	require.Equal(t, original.Metadata, restored.Metadata)
}

func TestActionMapRoundTripThroughJSON(t *testing.T) {
	original := AnnotationAction{
		ActionID:               "j1",
		Timestamp:              time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		UserID:                 "user-1",
		InstanceID:             "inst-1",
		ActionType:             ActionUpdateLabel,
		SchemaName:             "sentiment",
		LabelName:              "negative",
		OldValue:               "positive",
		NewValue:               "negative",
		SessionID:              "unknown",
		ServerProcessingTimeMS: 150,
		Metadata:               map[string]any{},
	}

	payload, err := json.Marshal(original.MarshalMap())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))

	restored, err := ActionFromMap(decoded)
	require.NoError(t, err)

	require.Equal(t, original.ActionID, restored.ActionID)
	require.True(t, original.Timestamp.Equal(restored.Timestamp))
	require.Equal(t, 150, restored.ServerProcessingTimeMS)
	require.Nil(t, restored.SpanData)
	require.Nil(t, restored.ClientTimestamp)
}

func TestActionFromMapRejectsBadTimestamp(t *testing.T) {
	_, err := ActionFromMap(map[string]any{"timestamp": "yesterday"})
	require.Error(t, err)
}

func TestSuspiciousLevelOmittedWhenEmpty(t *testing.T) {
	// The zero analysis keeps the level key out of its JSON form; the
	// populated analysis always carries one.
	payload, err := json.Marshal(SuspiciousActivity{SuspiciousActions: []AnnotationAction{}})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	_, present := decoded["suspicious_level"]
	require.False(t, present)

	payload, err = json.Marshal(SuspiciousActivity{SuspiciousLevel: LevelNormal})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, LevelNormal, decoded["suspicious_level"])
}
