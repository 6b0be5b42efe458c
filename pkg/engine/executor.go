package engine

import (
	"context"
	"fmt"
	"time"
)

// StepExecutor wraps one component operation with an idempotency check
// against the state store, an injectable re-run confirmation, and failure
// containment. Every component behaves uniformly at this boundary
// regardless of what its body does.
type StepExecutor struct {
	store   StateStore
	confirm ConfirmFunc
}

// StepRequest describes one step for execution.
type StepRequest struct {
	// ID is the step identifier recorded in the ledger.
	ID string

	// Description is a short human-readable step description.
	Description string

	// Category labels the step for metrics.
	Category string

	// Body is the component operation to invoke.
	Body func(ctx context.Context, run *ExecutionContext) error

	// Force re-executes the step even when the ledger reports it
	// completed, without asking for confirmation.
	Force bool

	// CheckLedger enables the idempotency check. Teardown steps disable
	// it: uninstalls run unconditionally.
	CheckLedger bool

	// RecordLedger marks the step completed on success. Teardown steps
	// disable it: ledger entries are never removed by teardown.
	RecordLedger bool

	// FailureCode is the error code attached to a contained failure.
	FailureCode string
}

// NewStepExecutor creates a step executor bound to a state store. A nil
// confirm function declines every re-run prompt, which is the required
// non-interactive default.
func NewStepExecutor(store StateStore, confirm ConfirmFunc) *StepExecutor {
	if confirm == nil {
		confirm = DeclineAll
	}
	return &StepExecutor{store: store, confirm: confirm}
}

// Execute runs one step and returns its tagged outcome. Failures raised by
// the step body are caught here and converted to a StepFailed result; they
// never propagate past this boundary. A ledger write failure after a
// successful body is reported as a failed step carrying a ledger error.
func (e *StepExecutor) Execute(ctx context.Context, run *ExecutionContext, req StepRequest) StepResult {
	result := StepResult{
		StepID:      req.ID,
		Description: req.Description,
		Category:    req.Category,
		StartedAt:   time.Now(),
	}

	if req.CheckLedger && !req.Force && e.store.IsCompleted(req.ID) {
		prompt := fmt.Sprintf("step %q is already completed; run it again?", req.ID)
		if !e.confirm(prompt) {
			result.Status = StepSkipped
			result.Duration = time.Since(result.StartedAt)
			return result
		}
	}

	if err := e.invoke(ctx, run, req); err != nil {
		result.Status = StepFailed
		result.Err = err
		result.Duration = time.Since(result.StartedAt)
		return result
	}

	if req.RecordLedger {
		if err := e.store.MarkCompleted(req.ID); err != nil {
			result.Status = StepFailed
			result.Err = NewLedgerError(
				fmt.Sprintf("step %q succeeded but could not be recorded", req.ID), err)
			result.Duration = time.Since(result.StartedAt)
			return result
		}
	}

	result.Status = StepCompleted
	result.Duration = time.Since(result.StartedAt)
	return result
}

// invoke calls the step body with panic containment.
func (e *StepExecutor) invoke(ctx context.Context, run *ExecutionContext, req StepRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewComponentError(fmt.Sprintf("step %q panicked: %v", req.ID, r), nil).
				WithCode(req.FailureCode).
				WithComponent(req.ID)
		}
	}()

	if bodyErr := req.Body(ctx, run); bodyErr != nil {
		code := req.FailureCode
		if code == "" {
			code = ErrCodeInstallFailed
		}
		return NewComponentError(fmt.Sprintf("step %q failed", req.ID), bodyErr).
			WithCode(code).
			WithComponent(req.ID)
	}
	return nil
}
