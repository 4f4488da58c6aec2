package history

import (
	"fmt"
	"time"
)

// Action types recorded for annotation edits. The set is advisory:
// CreateAction accepts any string so that histories recorded by older
// deployments keep loading.
const (
	ActionAddLabel    = "add_label"
	ActionUpdateLabel = "update_label"
	ActionDeleteLabel = "delete_label"
	ActionAddSpan     = "add_span"
	ActionUpdateSpan  = "update_span"
	ActionDeleteSpan  = "delete_span"
)

// SpanData carries the structured payload of span-type actions.
type SpanData struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Title string `json:"title"`
}

// AnnotationAction is one immutable record of a single annotation edit.
// Records are append-only; the only field ever patched after creation is
// ServerProcessingTimeMS, back-filled once the enclosing request finishes.
type AnnotationAction struct {
	ActionID               string         `json:"action_id"`
	Timestamp              time.Time      `json:"timestamp"`
	UserID                 string         `json:"user_id"`
	InstanceID             string         `json:"instance_id"`
	ActionType             string         `json:"action_type"`
	SchemaName             string         `json:"schema_name"`
	LabelName              string         `json:"label_name"`
	OldValue               any            `json:"old_value"`
	NewValue               any            `json:"new_value"`
	SpanData               *SpanData      `json:"span_data"`
	SessionID              string         `json:"session_id"`
	ClientTimestamp        *time.Time     `json:"client_timestamp"`
	ServerProcessingTimeMS int            `json:"server_processing_time_ms"`
	Metadata               map[string]any `json:"metadata"`
}

// MarshalMap flattens the action into a plain map suitable for user-state
// serialization. Timestamps are rendered as RFC 3339 strings.
func (a AnnotationAction) MarshalMap() map[string]any {
	var clientTS any
	if a.ClientTimestamp != nil {
		clientTS = a.ClientTimestamp.Format(time.RFC3339Nano)
	}

	var span any
	if a.SpanData != nil {
		span = map[string]any{
			"start": a.SpanData.Start,
			"end":   a.SpanData.End,
			"title": a.SpanData.Title,
		}
	}

	metadata := a.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return map[string]any{
		"action_id":                 a.ActionID,
		"timestamp":                 a.Timestamp.Format(time.RFC3339Nano),
		"user_id":                   a.UserID,
		"instance_id":               a.InstanceID,
		"action_type":               a.ActionType,
		"schema_name":               a.SchemaName,
		"label_name":                a.LabelName,
		"old_value":                 a.OldValue,
		"new_value":                 a.NewValue,
		"span_data":                 span,
		"session_id":                a.SessionID,
		"client_timestamp":          clientTS,
		"server_processing_time_ms": a.ServerProcessingTimeMS,
		"metadata":                  metadata,
	}
}

// ActionFromMap rebuilds an action from its MarshalMap form. Numeric fields
// tolerate the float64 representation produced by a JSON round-trip.
func ActionFromMap(m map[string]any) (AnnotationAction, error) {
	timestamp, err := parseTimestamp(m["timestamp"])
	if err != nil {
		return AnnotationAction{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	action := AnnotationAction{
		ActionID:               stringField(m, "action_id"),
		Timestamp:              timestamp,
		UserID:                 stringField(m, "user_id"),
		InstanceID:             stringField(m, "instance_id"),
		ActionType:             stringField(m, "action_type"),
		SchemaName:             stringField(m, "schema_name"),
		LabelName:              stringField(m, "label_name"),
		OldValue:               m["old_value"],
		NewValue:               m["new_value"],
		SessionID:              stringField(m, "session_id"),
		ServerProcessingTimeMS: intField(m, "server_processing_time_ms"),
	}

	if raw, ok := m["client_timestamp"]; ok && raw != nil {
		parsed, err := parseTimestamp(raw)
		if err != nil {
			return AnnotationAction{}, fmt.Errorf("invalid client timestamp: %w", err)
		}
		action.ClientTimestamp = &parsed
	}

	if raw, ok := m["span_data"].(map[string]any); ok {
		action.SpanData = &SpanData{
			Start: intField(raw, "start"),
			End:   intField(raw, "end"),
			Title: stringField(raw, "title"),
		}
	}

	if raw, ok := m["metadata"].(map[string]any); ok {
		action.Metadata = raw
	} else {
		action.Metadata = map[string]any{}
	}

	return action, nil
}

func parseTimestamp(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		return time.Parse(time.RFC3339Nano, v)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", value)
	}
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
