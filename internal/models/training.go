package models

import "time"

// TrainingProgress tracks an annotator's run through the training phase.
type TrainingProgress struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         string    `gorm:"size:255;uniqueIndex;not null" json:"user_id"`
	CurrentIndex   int       `json:"current_index"`
	TotalQuestions int       `json:"total_questions"`
	CorrectCount   int       `json:"correct_count"`
	AttemptCount   int       `json:"attempt_count"`
	Passed         bool      `json:"passed"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PassRate returns the percentage of attempts answered correctly, 0 when
// nothing has been attempted yet.
func (t TrainingProgress) PassRate() float64 {
	if t.AttemptCount == 0 {
		return 0
	}
	return 100 * float64(t.CorrectCount) / float64(t.AttemptCount)
}
