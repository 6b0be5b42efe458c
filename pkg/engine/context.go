package engine

// ExecutionContext is the mutable bag shared across one orchestrator run.
// It replaces the ambient globals of earlier designs: feature flags,
// accumulated manifest fragments, and run progress all travel through it
// explicitly, passed by reference to every configurator and hook.
//
// An ExecutionContext lives for exactly one run and is owned exclusively by
// that run. The engine is single-threaded, so no synchronization is needed.
type ExecutionContext struct {
	// RunID identifies the run this context belongs to.
	RunID string

	// Mode is the run mode.
	Mode RunMode

	// Purge indicates a teardown run should remove data, not just services.
	Purge bool

	flags     map[string]bool
	manifests []ManifestFragment
	completed []string
	failure   error
}

// NewExecutionContext creates an execution context seeded with the given
// feature flags. A nil flag map is allowed.
func NewExecutionContext(flags map[string]bool) *ExecutionContext {
	c := &ExecutionContext{
		flags: make(map[string]bool, len(flags)),
	}
	for k, v := range flags {
		c.flags[k] = v
	}
	return c
}

// SetFlag sets a feature flag for the remainder of the run.
func (c *ExecutionContext) SetFlag(name string, value bool) {
	c.flags[name] = value
}

// Flag reports whether a feature flag is set.
func (c *ExecutionContext) Flag(name string) bool {
	return c.flags[name]
}

// AddManifest appends a manifest fragment to the run's accumulated state.
func (c *ExecutionContext) AddManifest(f ManifestFragment) {
	c.manifests = append(c.manifests, f)
}

// Manifests returns the accumulated manifest fragments in insertion order.
func (c *ExecutionContext) Manifests() []ManifestFragment {
	out := make([]ManifestFragment, len(c.manifests))
	copy(out, c.manifests)
	return out
}

// recordCompleted notes that a step finished successfully during this run.
func (c *ExecutionContext) recordCompleted(stepID string) {
	c.completed = append(c.completed, stepID)
}

// CompletedSteps returns the step ids completed so far in this run, in
// completion order. OnError hooks use this to notify already-completed
// components after an abort.
func (c *ExecutionContext) CompletedSteps() []string {
	out := make([]string, len(c.completed))
	copy(out, c.completed)
	return out
}

// setFailure records the error that aborted the run.
func (c *ExecutionContext) setFailure(err error) {
	c.failure = err
}

// Failure returns the error that aborted the run, if any. Available to
// OnError hooks.
func (c *ExecutionContext) Failure() error {
	return c.failure
}
