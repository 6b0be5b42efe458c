package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/OpenTasmania/oj-server-sub001/pkg/telemetry"
)

// Orchestrator resolves execution plans via the registry and drives them
// through the step executor. It offers configure, status, dry-run, and
// teardown modes plus explicit state clearing.
type Orchestrator struct {
	registry   *Registry
	opener     StoreOpener
	hooks      *Hooks
	confirm    ConfirmFunc
	capability ProvisionCapability
	sink       EventSink
	flags      map[string]bool

	log     *telemetry.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer

	continueOnError bool

	mu    sync.Mutex
	state RunState
}

// Options configures an Orchestrator.
type Options struct {
	// Registry holds the registered components. Required.
	Registry *Registry

	// Store opens the state ledger for the duration of a run. Required.
	Store StoreOpener

	// Hooks is the lifecycle hook registry. Optional.
	Hooks *Hooks

	// Confirm is the injected re-run confirmation. A nil value declines
	// every prompt, the deterministic non-interactive default.
	Confirm ConfirmFunc

	// Capability is handed to provisioning hooks. Optional.
	Capability ProvisionCapability

	// Events receives run history events. Optional.
	Events EventSink

	// Flags seed every run's ExecutionContext feature flags.
	Flags map[string]bool

	// Logger, Metrics, and Tracer are the telemetry surfaces. Nil values
	// are replaced with no-op instances.
	Logger  *telemetry.Logger
	Metrics *telemetry.Metrics
	Tracer  *telemetry.Tracer

	// ContinueOnError keeps a run going past a failed step instead of the
	// default fail-fast behavior.
	ContinueOnError bool
}

// NewOrchestrator creates an orchestrator from the given options.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Registry == nil {
		return nil, NewRegistrationError("orchestrator requires a registry", nil).
			WithCode(ErrCodeInternal)
	}
	if opts.Store == nil {
		return nil, NewLedgerError("orchestrator requires a state store opener", nil).
			WithCode(ErrCodeInternal)
	}

	log := opts.Logger
	if log == nil {
		var err error
		log, err = telemetry.NewLogger(telemetry.LoggingConfig{Level: "info", Format: "json", Output: "stderr"})
		if err != nil {
			return nil, fmt.Errorf("default logger: %w", err)
		}
	}

	metrics := opts.Metrics
	if metrics == nil {
		var err error
		metrics, err = telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: false})
		if err != nil {
			return nil, fmt.Errorf("default metrics: %w", err)
		}
	}

	hooks := opts.Hooks
	if hooks == nil {
		hooks = NewHooks()
	}

	return &Orchestrator{
		registry:        opts.Registry,
		opener:          opts.Store,
		hooks:           hooks,
		confirm:         opts.Confirm,
		capability:      opts.Capability,
		sink:            opts.Events,
		flags:           opts.Flags,
		log:             log.NewComponentLogger("engine"),
		metrics:         metrics,
		tracer:          opts.Tracer,
		continueOnError: opts.ContinueOnError,
		state:           RunStateIdle,
	}, nil
}

// State returns the orchestrator's current run state.
func (o *Orchestrator) State() RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s RunState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// acquire reserves the orchestrator for a run. A second in-process run
// fails fast, mirroring the cross-process ledger lock.
func (o *Orchestrator) acquire() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != RunStateIdle {
		return NewLedgerError("run already in progress", nil).WithCode(ErrCodeRunActive)
	}
	o.state = RunStatePlanResolved
	return nil
}

// Configure resolves the plan for the requested components (all registered
// components when names is empty), opens and validates the state store, and
// drives each component's Install through the step executor. Execution is
// fail-fast unless the orchestrator was built with ContinueOnError.
//
// Component and hook failures are contained and reported in the summary;
// only registry resolution and ledger acquisition failures are returned as
// errors.
func (o *Orchestrator) Configure(ctx context.Context, names []string, force bool) (*OutcomeSummary, error) {
	return o.run(ctx, RunModeConfigure, names, force, false)
}

// Teardown resolves the plan for the requested components, reverses it, and
// drives each component's Uninstall through the step executor. Ledger
// entries are not removed: clearing state is an explicit, separate
// operation.
func (o *Orchestrator) Teardown(ctx context.Context, names []string, purge bool) (*OutcomeSummary, error) {
	return o.run(ctx, RunModeTeardown, names, false, purge)
}

func (o *Orchestrator) run(ctx context.Context, mode RunMode, names []string, force, purge bool) (*OutcomeSummary, error) {
	if err := o.acquire(); err != nil {
		return nil, err
	}
	defer o.setState(RunStateIdle)

	plan, err := o.registry.Resolve(names)
	if err != nil {
		return nil, err
	}
	if mode == RunModeTeardown {
		plan = plan.Reversed()
	}

	store, err := o.opener.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			o.log.WithError(cerr).Warn("failed to close state store")
		}
	}()

	reset, err := store.ValidateOrReset()
	if err != nil {
		return nil, err
	}
	if reset {
		o.metrics.RecordLedgerReset()
		o.log.Warn("ledger fingerprint drift detected, completion state reset")
	}

	run := NewExecutionContext(o.flags)
	run.RunID = uuid.New().String()
	run.Mode = mode
	run.Purge = purge
	if purge {
		run.SetFlag("purge", true)
	}

	summary := &OutcomeSummary{
		RunID:     run.RunID,
		Mode:      mode,
		StartedAt: time.Now(),
	}

	log := o.log.WithRunID(run.RunID)
	log.Infof("starting %s run with %d steps", mode, len(plan.Steps))
	o.metrics.RecordRunStarted(string(mode))

	if o.tracer != nil {
		var runSpan trace.Span
		ctx, runSpan = o.tracer.StartRunSpan(ctx, run.RunID, string(mode))
		defer runSpan.End()
	}

	o.setState(RunStateRunning)
	o.recordRunStarted(ctx, run.RunID, mode, len(plan.Steps))

	if ctx.Err() != nil {
		return o.cancel(ctx, run, summary, log), nil
	}

	if err := o.hooks.Fire(ctx, run, AfterConfigLoad); err != nil {
		return o.abort(ctx, run, summary, log, AfterConfigLoad, err), nil
	}
	if err := o.hooks.Fire(ctx, run, BeforeManifestApply); err != nil {
		return o.abort(ctx, run, summary, log, BeforeManifestApply, err), nil
	}

	executor := NewStepExecutor(store, o.confirm)

	for _, step := range plan.Steps {
		// The only cancellation granularity offered: a canceled context
		// stops the run before the next step begins. A step already
		// started runs to completion.
		if ctx.Err() != nil {
			return o.cancel(ctx, run, summary, log), nil
		}

		component, err := o.registry.Get(step.Name)
		if err != nil {
			// Unreachable: the plan was resolved from this registry.
			return nil, err
		}

		if mode == RunModeConfigure {
			if err := o.hooks.FireProvision(ctx, run, BeforeResourceProvision, o.capability); err != nil {
				return o.abort(ctx, run, summary, log, BeforeResourceProvision, err), nil
			}
		}

		result := o.executeStep(ctx, executor, run, step, component, mode, force)
		summary.add(result)
		o.recordStep(ctx, run.RunID, result)

		if result.Status == StepCompleted {
			run.recordCompleted(result.StepID)
			if mode == RunModeConfigure {
				if err := o.hooks.FireProvision(ctx, run, AfterResourceProvision, o.capability); err != nil {
					return o.abort(ctx, run, summary, log, AfterResourceProvision, err), nil
				}
			}
		}

		if result.Status == StepFailed && !o.continueOnError {
			log.WithStepID(result.StepID).WithError(result.Err).Error("step failed, halting run")
			break
		}
	}

	if summary.Failed == 0 {
		if err := o.hooks.Fire(ctx, run, OnComplete); err != nil {
			return o.abort(ctx, run, summary, log, OnComplete, err), nil
		}
	} else {
		run.setFailure(lastFailure(summary))
		o.fireOnError(ctx, run, log)
	}

	summary.Success = summary.Failed == 0
	summary.Duration = time.Since(summary.StartedAt)

	if summary.Success {
		o.setState(RunStateCompleted)
		log.Infof("%s run completed: %d completed, %d skipped", mode, summary.Completed, summary.Skipped)
	} else {
		o.setState(RunStateAborted)
		log.Errorf("%s run failed: %d completed, %d skipped, %d failed", mode, summary.Completed, summary.Skipped, summary.Failed)
	}

	o.metrics.RecordRunCompleted(string(mode), runStatusLabel(summary), summary.Duration)
	o.recordRunFinished(ctx, summary, log)
	return summary, nil
}

// executeStep runs a single plan step through the executor with a tracing
// span and structured logging around it.
func (o *Orchestrator) executeStep(
	ctx context.Context,
	executor *StepExecutor,
	run *ExecutionContext,
	step PlanStep,
	component Configurator,
	mode RunMode,
	force bool,
) StepResult {
	body := component.Install
	failureCode := ErrCodeInstallFailed
	checkLedger := true
	recordLedger := true
	if mode == RunModeTeardown {
		body = component.Uninstall
		failureCode = ErrCodeUninstallFailed
		checkLedger = false
		recordLedger = false
	}

	stepCtx := ctx
	var span trace.Span
	if o.tracer != nil {
		stepCtx, span = o.tracer.StartStepSpan(ctx, step.Name, step.Category)
	}

	log := o.log.WithRunID(run.RunID).WithStepID(step.Name)
	log.Debugf("executing step: %s", step.Description)

	result := executor.Execute(stepCtx, run, StepRequest{
		ID:           step.Name,
		Description:  step.Description,
		Category:     step.Category,
		Body:         body,
		Force:        force,
		CheckLedger:  checkLedger,
		RecordLedger: recordLedger,
		FailureCode:  failureCode,
	})

	if span != nil {
		span.SetAttributes(telemetry.AttrStepStatus.String(string(result.Status)))
		if result.Err != nil {
			telemetry.RecordError(span, result.Err)
		} else {
			telemetry.RecordSuccess(span)
		}
		span.End()
	}

	switch result.Status {
	case StepCompleted:
		log.Infof("step completed in %s", result.Duration)
	case StepSkipped:
		log.Info("step already completed, skipped")
	case StepFailed:
		log.WithError(result.Err).Error("step failed")
	}

	o.metrics.RecordStep(string(result.Status), result.Category, result.Duration)
	return result
}

// abort handles a lifecycle hook failure: the run stops, OnError hooks fire
// as a best-effort notification for already-completed components, and the
// failure is reported on the summary rather than propagated.
func (o *Orchestrator) abort(
	ctx context.Context,
	run *ExecutionContext,
	summary *OutcomeSummary,
	log *telemetry.Logger,
	point LifecyclePoint,
	err error,
) *OutcomeSummary {
	log.WithError(err).Errorf("lifecycle hook failed at %s, aborting run", point)
	o.metrics.RecordHookFailure(string(point))

	run.setFailure(err)
	o.fireOnError(ctx, run, log)

	summary.Aborted = true
	summary.Success = false
	summary.Err = err
	summary.Duration = time.Since(summary.StartedAt)
	o.setState(RunStateAborted)
	o.metrics.RecordRunCompleted(string(summary.Mode), "aborted", summary.Duration)
	o.recordRunFinished(ctx, summary, log)
	return summary
}

// cancel handles context cancellation between steps: the run stops without
// beginning the next step, OnError hooks fire, and the summary reports an
// aborted run carrying the context error. Notification and history
// recording run on a detached context so they are not themselves canceled.
func (o *Orchestrator) cancel(
	ctx context.Context,
	run *ExecutionContext,
	summary *OutcomeSummary,
	log *telemetry.Logger,
) *OutcomeSummary {
	err := fmt.Errorf("run canceled: %w", ctx.Err())
	log.WithError(err).Warn("run canceled, not beginning the next step")

	base := context.WithoutCancel(ctx)
	run.setFailure(err)
	o.fireOnError(base, run, log)

	summary.Aborted = true
	summary.Success = false
	summary.Err = err
	summary.Duration = time.Since(summary.StartedAt)
	o.setState(RunStateAborted)
	o.metrics.RecordRunCompleted(string(summary.Mode), "aborted", summary.Duration)
	o.recordRunFinished(base, summary, log)
	return summary
}

// fireOnError runs the OnError hooks, logging but otherwise ignoring their
// failures: error notification is best-effort by design.
func (o *Orchestrator) fireOnError(ctx context.Context, run *ExecutionContext, log *telemetry.Logger) {
	if err := o.hooks.Fire(ctx, run, OnError); err != nil {
		log.WithError(err).Warn("on_error hook failed")
	}
}

// Status probes each requested component's live installation state. The
// completion ledger is bypassed entirely: the answer reflects the system as
// it is, which may disagree with the ledger if the system changed
// out-of-band. Probe failures are joined into the returned error; the
// corresponding map entries report false.
func (o *Orchestrator) Status(ctx context.Context, names []string) (map[string]bool, error) {
	plan, err := o.registry.Resolve(names)
	if err != nil {
		return nil, err
	}

	run := NewExecutionContext(o.flags)
	run.RunID = uuid.New().String()

	status := make(map[string]bool, len(plan.Steps))
	var probeErrs []error
	for _, step := range plan.Steps {
		component, err := o.registry.Get(step.Name)
		if err != nil {
			return nil, err
		}
		installed, err := component.IsInstalled(ctx, run)
		if err != nil {
			status[step.Name] = false
			probeErrs = append(probeErrs, NewComponentError(
				fmt.Sprintf("probe for %q failed", step.Name), err).
				WithCode(ErrCodeProbeFailed).
				WithComponent(step.Name))
			continue
		}
		status[step.Name] = installed
	}

	return status, errors.Join(probeErrs...)
}

// DryRun resolves and returns the execution plan for the requested
// components without executing anything or touching the ledger.
func (o *Orchestrator) DryRun(names []string) ([]PlanStep, error) {
	plan, err := o.registry.Resolve(names)
	if err != nil {
		return nil, err
	}
	return plan.Steps, nil
}

// ClearState truncates the ledger's entries and rewrites its header with
// the current fingerprint and a reset timestamp.
func (o *Orchestrator) ClearState() error {
	store, err := o.opener.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			o.log.WithError(cerr).Warn("failed to close state store")
		}
	}()
	return store.Clear()
}

func (o *Orchestrator) recordRunStarted(ctx context.Context, runID string, mode RunMode, total int) {
	if o.sink == nil {
		return
	}
	if err := o.sink.RunStarted(ctx, runID, mode, total); err != nil {
		o.log.WithError(err).Warn("failed to record run start")
	}
}

func (o *Orchestrator) recordStep(ctx context.Context, runID string, result StepResult) {
	if o.sink == nil {
		return
	}
	if err := o.sink.StepExecuted(ctx, runID, result); err != nil {
		o.log.WithError(err).Warn("failed to record step event")
	}
}

func (o *Orchestrator) recordRunFinished(ctx context.Context, summary *OutcomeSummary, log *telemetry.Logger) {
	if o.sink == nil {
		return
	}
	if err := o.sink.RunFinished(ctx, summary.RunID, summary); err != nil {
		log.WithError(err).Warn("failed to record run finish")
	}
}

func lastFailure(summary *OutcomeSummary) error {
	for i := len(summary.Results) - 1; i >= 0; i-- {
		if summary.Results[i].Status == StepFailed {
			return summary.Results[i].Err
		}
	}
	return nil
}

func runStatusLabel(summary *OutcomeSummary) string {
	switch {
	case summary.Aborted:
		return "aborted"
	case summary.Failed > 0:
		return "failed"
	default:
		return "completed"
	}
}
