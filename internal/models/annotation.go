package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// LabelKind discriminates the two shapes a submitted label can take.
type LabelKind string

const (
	// LabelKindStructured is a label addressed by scheme and label name,
	// carrying an arbitrary JSON value (checkbox state, likert score,
	// span payload).
	LabelKindStructured LabelKind = "structured"
	// LabelKindRaw is a bare string label with no scheme context, as sent
	// by free-text and legacy clients.
	LabelKindRaw LabelKind = "raw"
)

// LabelValue is the resolved form of a submitted label. Resolution happens
// once at the ingestion boundary; downstream code switches on Kind instead
// of probing the payload shape.
type LabelValue struct {
	Kind   LabelKind
	Schema string
	Name   string
	Value  any
	Raw    string
}

// ResolveLabel classifies a submitted label payload. A payload with both a
// scheme and a label name is structured; anything else is treated as a raw
// string label.
func ResolveLabel(schema, name string, value any) LabelValue {
	if schema != "" && name != "" {
		return LabelValue{Kind: LabelKindStructured, Schema: schema, Name: name, Value: value}
	}

	raw := ""
	if s, ok := value.(string); ok {
		raw = s
	}
	return LabelValue{Kind: LabelKindRaw, Raw: raw}
}

// Annotation holds the current label state for one (annotator, item,
// scheme, label) tuple. History lives in ActionRecord; this row is always
// the latest value.
type Annotation struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     string         `gorm:"size:255;index:idx_annotation_user;not null" json:"user_id"`
	InstanceID string         `gorm:"size:255;index:idx_annotation_instance;not null" json:"instance_id"`
	SchemaName string         `gorm:"size:255;not null" json:"schema_name"`
	LabelName  string         `gorm:"size:255;not null" json:"label_name"`
	Value      datatypes.JSON `gorm:"type:json" json:"value"`
	// IsSpan marks annotations submitted with span data, so a later
	// deletion records the matching span action type.
	IsSpan    bool      `json:"is_span"`
	TimeSpent string    `gorm:"size:64" json:"time_spent"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DecodedValue unmarshals the stored label value, returning nil when empty.
func (a Annotation) DecodedValue() any {
	if len(a.Value) == 0 {
		return nil
	}
	var value any
	if err := json.Unmarshal(a.Value, &value); err != nil {
		return nil
	}
	return value
}
