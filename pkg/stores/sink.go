package stores

import (
	"context"
	"encoding/json"
	"time"

	"github.com/OpenTasmania/oj-server-sub001/pkg/engine"
)

// Sink adapts the SQLite store to the engine's EventSink interface.
type Sink struct {
	store *SQLiteStore
}

var _ engine.EventSink = (*Sink)(nil)

// NewSink creates an event sink backed by the given store.
func NewSink(store *SQLiteStore) *Sink {
	return &Sink{store: store}
}

// RunStarted records a new run in the running state.
func (s *Sink) RunStarted(ctx context.Context, runID string, mode engine.RunMode, totalSteps int) error {
	return s.store.CreateRun(ctx, &Run{
		ID:         runID,
		Mode:       string(mode),
		Status:     RunStatusRunning,
		TotalSteps: totalSteps,
		StartedAt:  time.Now(),
		Summary:    "{}",
	})
}

// StepExecuted records one step outcome.
func (s *Sink) StepExecuted(ctx context.Context, runID string, result engine.StepResult) error {
	var errText *string
	if result.Err != nil {
		msg := result.Err.Error()
		errText = &msg
	}
	return s.store.AppendStepEvent(ctx, &StepEvent{
		RunID:      runID,
		StepID:     result.StepID,
		Status:     string(result.Status),
		Error:      errText,
		DurationMS: result.Duration.Milliseconds(),
		Timestamp:  result.StartedAt,
	})
}

// RunFinished records the run's final status and summary.
func (s *Sink) RunFinished(ctx context.Context, runID string, summary *engine.OutcomeSummary) error {
	status := RunStatusCompleted
	switch {
	case summary.Aborted:
		status = RunStatusAborted
	case summary.Failed > 0:
		status = RunStatusFailed
	}

	var errText *string
	if summary.Err != nil {
		msg := summary.Err.Error()
		errText = &msg
	}

	blob, err := json.Marshal(summary)
	if err != nil {
		blob = []byte("{}")
	}

	return s.store.FinishRun(ctx, runID, status, errText, string(blob))
}
