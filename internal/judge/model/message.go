package model

import "time"

// JudgeMessage is the queue payload that triggers a judge run.
type JudgeMessage struct {
	SubmissionID string `json:"submission_id"`
	ProblemID    int64  `json:"problem_id"`
	UserID       int64  `json:"user_id"`
	Language     string `json:"language"`

	// Source holds the submitted code inline. When SourceKey is set the
	// code is fetched from object storage instead.
	Source    string `json:"source,omitempty"`
	SourceKey string `json:"source_key,omitempty"`

	// ContestID is zero for practice submissions.
	ContestID   int64     `json:"contest_id,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}
