package dto

// WorkflowStateResponse reports where an annotator stands in the study.
type WorkflowStateResponse struct {
	UserID    string `json:"user_id"`
	Phase     string `json:"phase"`
	Consented bool   `json:"consented"`
	Cursor    int    `json:"cursor"`
	Total     int    `json:"total_items"`
}

// ConsentRequest records the consent decision.
type ConsentRequest struct {
	Agreed bool `json:"agreed"`
}

// GotoItemRequest jumps the annotator's cursor to a specific position.
type GotoItemRequest struct {
	Index int `json:"index" validate:"gte=0"`
}

// TrainingQuestionResponse is the current training question for a user.
type TrainingQuestionResponse struct {
	Index      int      `json:"index"`
	Total      int      `json:"total"`
	Text       string   `json:"text"`
	SchemaName string   `json:"schema_name"`
	Options    []string `json:"options"`
	Completed  bool     `json:"completed"`
	Passed     bool     `json:"passed"`
}

// TrainingAnswerRequest submits an answer to the current training question.
type TrainingAnswerRequest struct {
	Answer string `json:"answer" validate:"required"`
}

// TrainingResultResponse reports the outcome of one training answer.
type TrainingResultResponse struct {
	Correct      bool    `json:"correct"`
	Explanation  string  `json:"explanation,omitempty"`
	CurrentIndex int     `json:"current_index"`
	Total        int     `json:"total"`
	CorrectCount int     `json:"correct_count"`
	AttemptCount int     `json:"attempt_count"`
	PassRate     float64 `json:"pass_rate"`
	Completed    bool    `json:"completed"`
	Passed       bool    `json:"passed"`
}
