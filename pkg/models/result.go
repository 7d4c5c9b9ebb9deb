package models

import "time"

// Result kinds. Each kind keeps one most-recent record per account.
const (
	ResultKindSubmission = "submission"
	ResultKindTest       = "test"
)

// SubmissionResult is the operator-visible record of the latest delivery attempt.
type SubmissionResult struct {
	Kind      string         `json:"kind"`
	AccountID string         `json:"account_id"`
	Timestamp time.Time      `json:"timestamp"`
	Success   bool           `json:"success"`
	Status    int            `json:"status"`
	Payload   map[string]any `json:"payload,omitempty"`
	Response  string         `json:"response,omitempty"`
	Message   string         `json:"message"`
	Context   ResultContext  `json:"context"`
}

// ResultContext identifies what a result was produced for.
type ResultContext struct {
	EntryID   string `json:"entry_id,omitempty"`
	FormID    string `json:"form_id,omitempty"`
	TokenHint string `json:"token_hint,omitempty"`
}
