package models

import (
	"time"

	"gorm.io/datatypes"
)

// Workflow phases an annotator moves through, in order.
const (
	PhaseConsent      = "consent"
	PhaseInstructions = "instructions"
	PhaseTraining     = "training"
	PhaseAnnotation   = "annotation"
	PhasePostStudy    = "post_study"
	PhaseDone         = "done"
)

// PhaseOrder lists the workflow phases in progression order.
var PhaseOrder = []string{
	PhaseConsent,
	PhaseInstructions,
	PhaseTraining,
	PhaseAnnotation,
	PhasePostStudy,
	PhaseDone,
}

// Annotator represents a study participant and their workflow state.
type Annotator struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        string         `gorm:"size:255;uniqueIndex;not null" json:"user_id"`
	DisplayName   string         `gorm:"size:255" json:"display_name"`
	Phase         string         `gorm:"size:32;not null;default:consent" json:"phase"`
	Consented     bool           `json:"consented"`
	Cursor        int            `json:"cursor"`
	AssignedOrder datatypes.JSON `gorm:"type:json" json:"assigned_order"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// PhaseIndex returns the position of a phase in the workflow, or -1.
func PhaseIndex(phase string) int {
	for i, p := range PhaseOrder {
		if p == phase {
			return i
		}
	}
	return -1
}
