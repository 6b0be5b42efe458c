package stores

import (
	"time"
)

// RunStatus represents the final status of a recorded run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusAborted   RunStatus = "aborted"
)

// Run represents one orchestrator run.
type Run struct {
	ID          string     `json:"id"`
	Mode        string     `json:"mode"`
	Status      RunStatus  `json:"status"`
	TotalSteps  int        `json:"total_steps"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Summary     string     `json:"summary"` // JSON blob
}

// StepEvent represents one step outcome within a run.
type StepEvent struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	StepID     string    `json:"step_id"`
	Status     string    `json:"status"`
	Error      *string   `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
