package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/labelgrid/labelgrid-api/internal/history"
)

// ActionRecord is the durable copy of an annotation action. The in-memory
// history store is rehydrated from these rows at startup; rows are deleted
// only as part of whole-user-state deletion.
type ActionRecord struct {
	ID                     uint              `gorm:"primaryKey" json:"id"`
	ActionID               string            `gorm:"size:64;uniqueIndex;not null" json:"action_id"`
	UserID                 string            `gorm:"size:255;index:idx_action_user;not null" json:"user_id"`
	InstanceID             string            `gorm:"size:255;index:idx_action_instance;not null" json:"instance_id"`
	ActionType             string            `gorm:"size:64;not null" json:"action_type"`
	SchemaName             string            `gorm:"size:255" json:"schema_name"`
	LabelName              string            `gorm:"size:255" json:"label_name"`
	OldValue               datatypes.JSON    `gorm:"type:json" json:"old_value"`
	NewValue               datatypes.JSON    `gorm:"type:json" json:"new_value"`
	SpanData               datatypes.JSON    `gorm:"type:json" json:"span_data"`
	SessionID              string            `gorm:"size:255" json:"session_id"`
	ClientTimestamp        *time.Time        `json:"client_timestamp"`
	ServerProcessingTimeMS int               `json:"server_processing_time_ms"`
	Metadata               datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	Timestamp              time.Time         `gorm:"index;not null" json:"timestamp"`
}

// NewActionRecord converts an in-memory action into its durable form.
func NewActionRecord(action history.AnnotationAction) ActionRecord {
	record := ActionRecord{
		ActionID:               action.ActionID,
		UserID:                 action.UserID,
		InstanceID:             action.InstanceID,
		ActionType:             action.ActionType,
		SchemaName:             action.SchemaName,
		LabelName:              action.LabelName,
		OldValue:               marshalJSON(action.OldValue),
		NewValue:               marshalJSON(action.NewValue),
		SessionID:              action.SessionID,
		ClientTimestamp:        action.ClientTimestamp,
		ServerProcessingTimeMS: action.ServerProcessingTimeMS,
		Metadata:               datatypes.JSONMap(action.Metadata),
		Timestamp:              action.Timestamp,
	}

	if action.SpanData != nil {
		record.SpanData = marshalJSON(action.SpanData)
	}

	return record
}

// ToAction rebuilds the in-memory action from a durable row.
func (r ActionRecord) ToAction() history.AnnotationAction {
	action := history.AnnotationAction{
		ActionID:               r.ActionID,
		Timestamp:              r.Timestamp,
		UserID:                 r.UserID,
		InstanceID:             r.InstanceID,
		ActionType:             r.ActionType,
		SchemaName:             r.SchemaName,
		LabelName:              r.LabelName,
		OldValue:               unmarshalJSON(r.OldValue),
		NewValue:               unmarshalJSON(r.NewValue),
		SessionID:              r.SessionID,
		ClientTimestamp:        r.ClientTimestamp,
		ServerProcessingTimeMS: r.ServerProcessingTimeMS,
		Metadata:               map[string]any(r.Metadata),
	}

	if action.Metadata == nil {
		action.Metadata = map[string]any{}
	}

	if len(r.SpanData) > 0 {
		var span history.SpanData
		if err := json.Unmarshal(r.SpanData, &span); err == nil {
			action.SpanData = &span
		}
	}

	return action
}

func marshalJSON(value any) datatypes.JSON {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return datatypes.JSON(payload)
}

func unmarshalJSON(payload datatypes.JSON) any {
	if len(payload) == 0 {
		return nil
	}
	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil
	}
	return value
}
