package dto

import (
	"time"

	"github.com/labelgrid/labelgrid-api/internal/history"
)

// AnnotationSubmitRequest applies one annotation edit for the current item.
type AnnotationSubmitRequest struct {
	InstanceID      string            `json:"instance_id" validate:"required"`
	SchemaName      string            `json:"schema_name"`
	LabelName       string            `json:"label_name"`
	Value           any               `json:"value"`
	SpanData        *history.SpanData `json:"span_data"`
	TimeSpent       string            `json:"time_spent"`
	SessionID       string            `json:"session_id"`
	ClientTimestamp *time.Time        `json:"client_timestamp"`
}

// AnnotationDeleteRequest removes a previously applied label.
type AnnotationDeleteRequest struct {
	InstanceID string `json:"instance_id" validate:"required"`
	SchemaName string `json:"schema_name" validate:"required"`
	LabelName  string `json:"label_name" validate:"required"`
	SessionID  string `json:"session_id"`
}

// AnnotationActionResponse echoes the recorded action back to the client.
type AnnotationActionResponse struct {
	ActionID   string    `json:"action_id"`
	ActionType string    `json:"action_type"`
	InstanceID string    `json:"instance_id"`
	SchemaName string    `json:"schema_name"`
	LabelName  string    `json:"label_name"`
	Timestamp  time.Time `json:"timestamp"`
}

// ItemResponse serializes an item for annotators.
type ItemResponse struct {
	InstanceID string `json:"instance_id"`
	Text       string `json:"text"`
	Context    string `json:"context,omitempty"`
	MediaURL   string `json:"media_url,omitempty"`
	MediaType  string `json:"media_type,omitempty"`
	Position   int    `json:"position"`
	Total      int    `json:"total"`
}
