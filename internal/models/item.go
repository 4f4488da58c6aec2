package models

import "time"

// Item is one annotatable instance loaded from a dataset file. Text has
// already been sanitized at the ingestion boundary.
type Item struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	InstanceID      string    `gorm:"size:255;uniqueIndex;not null" json:"instance_id"`
	Text            string    `gorm:"type:text" json:"text"`
	Context         string    `gorm:"type:text" json:"context"`
	MediaURL        string    `gorm:"size:512" json:"media_url"`
	MediaType       string    `gorm:"size:32" json:"media_type"`
	DisplayedCount  int       `json:"displayed_count"`
	AnnotationCount int       `json:"annotation_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
