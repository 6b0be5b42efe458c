package engine

import (
	"time"
)

// ComponentDescriptor describes a registered component. Descriptors are
// created at registration time and immutable thereafter.
type ComponentDescriptor struct {
	// Name is the unique component name.
	Name string `json:"name"`

	// Dependencies are the names of components that must be configured
	// before this one. Every name must resolve to a registered component.
	Dependencies []string `json:"dependencies"`

	// Description is a short human-readable description.
	Description string `json:"description,omitempty"`

	// Category groups related components (database, webserver, routing, ...).
	Category string `json:"category,omitempty"`
}

// PlanStep is one entry of a resolved execution plan.
type PlanStep struct {
	// Name is the component name.
	Name string `json:"name"`

	// Description is the component description at resolution time.
	Description string `json:"description,omitempty"`

	// Category is the component category at resolution time.
	Category string `json:"category,omitempty"`
}

// ExecutionPlan is a dependency-respecting processing order: every
// dependency precedes its dependents. Plans are computed on demand and
// never persisted.
type ExecutionPlan struct {
	Steps []PlanStep `json:"steps"`
}

// Names returns the plan's component names in execution order.
func (p *ExecutionPlan) Names() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return names
}

// Reversed returns a copy of the plan with the step order reversed.
// Teardown processes components in exactly the reverse configure order.
func (p *ExecutionPlan) Reversed() *ExecutionPlan {
	steps := make([]PlanStep, len(p.Steps))
	for i, s := range p.Steps {
		steps[len(p.Steps)-1-i] = s
	}
	return &ExecutionPlan{Steps: steps}
}

// StepStatus is the tagged outcome of one step execution.
type StepStatus string

const (
	// StepCompleted means the step body ran and succeeded.
	StepCompleted StepStatus = "completed"

	// StepSkipped means the step was already completed and the re-run
	// confirmation was declined. Not a failure.
	StepSkipped StepStatus = "skipped"

	// StepFailed means the step body raised a failure.
	StepFailed StepStatus = "failed"
)

// StepResult is the outcome of one step execution.
type StepResult struct {
	// StepID is the step identifier (the component name).
	StepID string `json:"step_id"`

	// Description is the step description.
	Description string `json:"description,omitempty"`

	// Category is the component category, used for metrics labelling.
	Category string `json:"category,omitempty"`

	// Status is the tagged outcome.
	Status StepStatus `json:"status"`

	// Err holds the failure when Status is StepFailed.
	Err error `json:"-"`

	// StartedAt is when the step began.
	StartedAt time.Time `json:"started_at"`

	// Duration is how long the step took.
	Duration time.Duration `json:"duration"`
}

// RunMode distinguishes configure from teardown runs.
type RunMode string

const (
	RunModeConfigure RunMode = "configure"
	RunModeTeardown  RunMode = "teardown"
)

// RunState is the orchestrator's run state machine:
// Idle -> PlanResolved -> Running -> {Completed | Aborted} -> Idle.
type RunState string

const (
	RunStateIdle         RunState = "idle"
	RunStatePlanResolved RunState = "plan_resolved"
	RunStateRunning      RunState = "running"
	RunStateCompleted    RunState = "completed"
	RunStateAborted      RunState = "aborted"
)

// OutcomeSummary aggregates the per-step outcomes of one run.
type OutcomeSummary struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`

	// Mode is the run mode.
	Mode RunMode `json:"mode"`

	// Results holds per-step outcomes in execution order.
	Results []StepResult `json:"results"`

	// Completed, Skipped, and Failed count results by status.
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`

	// Success is true when no step failed and no hook aborted the run.
	Success bool `json:"success"`

	// Aborted is true when a lifecycle hook aborted the run.
	Aborted bool `json:"aborted"`

	// Err holds the hook failure that aborted the run, if any.
	Err error `json:"-"`

	// StartedAt and Duration cover the whole run.
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// add records a step result and updates the counters.
func (s *OutcomeSummary) add(r StepResult) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case StepCompleted:
		s.Completed++
	case StepSkipped:
		s.Skipped++
	case StepFailed:
		s.Failed++
	}
}

// NoAction reports whether the run performed no work: nothing completed,
// nothing failed, everything (if anything) skipped.
func (s *OutcomeSummary) NoAction() bool {
	return s.Completed == 0 && s.Failed == 0 && !s.Aborted
}

// ManifestFragment is a named piece of manifest state accumulated on the
// execution context during a run.
type ManifestFragment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}
