package model

import "time"

// Judge lifecycle states exposed through the status endpoint.
const (
	StatusPending  = "pending"
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// JudgeStatus is the snapshot stored in the cache while a submission
// moves through the pipeline, and the final record once it finishes.
type JudgeStatus struct {
	SubmissionID string       `json:"submission_id"`
	State        string       `json:"state"`
	Report       *JudgeReport `json:"report,omitempty"`
	Error        string       `json:"error,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
