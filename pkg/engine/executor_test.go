package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestStepExecutor_CompletesAndRecords(t *testing.T) {
	store := newMemStore()
	executor := NewStepExecutor(store, nil)
	run := NewExecutionContext(nil)

	result := executor.Execute(context.Background(), run, StepRequest{
		ID:           "postgresql",
		Body:         func(context.Context, *ExecutionContext) error { return nil },
		CheckLedger:  true,
		RecordLedger: true,
	})

	if result.Status != StepCompleted {
		t.Fatalf("expected completed, got %s (err: %v)", result.Status, result.Err)
	}
	if !store.IsCompleted("postgresql") {
		t.Error("expected step to be recorded in the ledger")
	}
}

func TestStepExecutor_SkipsCompletedWhenDeclined(t *testing.T) {
	store := newMemStore()
	_ = store.MarkCompleted("postgresql")

	ran := false
	executor := NewStepExecutor(store, DeclineAll)
	result := executor.Execute(context.Background(), NewExecutionContext(nil), StepRequest{
		ID: "postgresql",
		Body: func(context.Context, *ExecutionContext) error {
			ran = true
			return nil
		},
		CheckLedger:  true,
		RecordLedger: true,
	})

	if result.Status != StepSkipped {
		t.Fatalf("expected skipped, got %s", result.Status)
	}
	if ran {
		t.Error("declined step must not execute its body")
	}
	if result.Err != nil {
		t.Errorf("a skip is not a failure, got error: %v", result.Err)
	}
}

func TestStepExecutor_RerunsCompletedWhenConfirmed(t *testing.T) {
	store := newMemStore()
	_ = store.MarkCompleted("postgresql")

	ran := false
	executor := NewStepExecutor(store, AcceptAll)
	result := executor.Execute(context.Background(), NewExecutionContext(nil), StepRequest{
		ID: "postgresql",
		Body: func(context.Context, *ExecutionContext) error {
			ran = true
			return nil
		},
		CheckLedger:  true,
		RecordLedger: true,
	})

	if result.Status != StepCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if !ran {
		t.Error("confirmed step must execute its body")
	}
}

func TestStepExecutor_ForceBypassesConfirmation(t *testing.T) {
	store := newMemStore()
	_ = store.MarkCompleted("postgresql")

	prompted := false
	confirm := func(string) bool {
		prompted = true
		return false
	}

	executor := NewStepExecutor(store, confirm)
	result := executor.Execute(context.Background(), NewExecutionContext(nil), StepRequest{
		ID:           "postgresql",
		Body:         func(context.Context, *ExecutionContext) error { return nil },
		Force:        true,
		CheckLedger:  true,
		RecordLedger: true,
	})

	if result.Status != StepCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if prompted {
		t.Error("force must not prompt for confirmation")
	}
}

func TestStepExecutor_BodyFailureContained(t *testing.T) {
	store := newMemStore()
	executor := NewStepExecutor(store, nil)

	bodyErr := fmt.Errorf("apt-get exploded")
	result := executor.Execute(context.Background(), NewExecutionContext(nil), StepRequest{
		ID:           "osrm",
		Body:         func(context.Context, *ExecutionContext) error { return bodyErr },
		CheckLedger:  true,
		RecordLedger: true,
		FailureCode:  ErrCodeInstallFailed,
	})

	if result.Status != StepFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if !errors.Is(result.Err, bodyErr) {
		t.Errorf("expected cause to be wrapped, got: %v", result.Err)
	}
	if !errors.Is(result.Err, &Error{Kind: ErrorKindComponent, Code: ErrCodeInstallFailed}) {
		t.Errorf("expected INSTALL_FAILED component error, got: %v", result.Err)
	}
	if store.IsCompleted("osrm") {
		t.Error("failed step must not be recorded as completed")
	}
}

func TestStepExecutor_PanicContained(t *testing.T) {
	store := newMemStore()
	executor := NewStepExecutor(store, nil)

	result := executor.Execute(context.Background(), NewExecutionContext(nil), StepRequest{
		ID:           "renderd",
		Body:         func(context.Context, *ExecutionContext) error { panic("nil map write") },
		CheckLedger:  true,
		RecordLedger: true,
		FailureCode:  ErrCodeInstallFailed,
	})

	if result.Status != StepFailed {
		t.Fatalf("expected panic to become a failed step, got %s", result.Status)
	}
	if !IsComponent(result.Err) {
		t.Errorf("expected component error, got: %v", result.Err)
	}
}

func TestStepExecutor_LedgerWriteFailure(t *testing.T) {
	store := newMemStore()
	store.markErr = fmt.Errorf("disk full")
	executor := NewStepExecutor(store, nil)

	result := executor.Execute(context.Background(), NewExecutionContext(nil), StepRequest{
		ID:           "apache",
		Body:         func(context.Context, *ExecutionContext) error { return nil },
		CheckLedger:  true,
		RecordLedger: true,
	})

	if result.Status != StepFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if !IsLedger(result.Err) {
		t.Errorf("expected ledger error for unrecordable success, got: %v", result.Err)
	}
}

func TestStepExecutor_LedgerChecksDisabled(t *testing.T) {
	store := newMemStore()
	_ = store.MarkCompleted("apache")

	ran := false
	executor := NewStepExecutor(store, DeclineAll)
	result := executor.Execute(context.Background(), NewExecutionContext(nil), StepRequest{
		ID: "apache",
		Body: func(context.Context, *ExecutionContext) error {
			ran = true
			return nil
		},
		CheckLedger:  false,
		RecordLedger: false,
	})

	if result.Status != StepCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if !ran {
		t.Error("step with ledger checks disabled must always run")
	}
}
