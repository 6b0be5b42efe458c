package engine

import (
	"context"
)

// Configurator is the contract every installable component implements.
// The engine consumes components exclusively through this interface; what a
// body actually does (package installs, service restarts, file templating)
// is opaque to the core.
type Configurator interface {
	// Name returns the unique component name.
	Name() string

	// Dependencies returns the names of components that must be configured
	// before this one.
	Dependencies() []string

	// Install brings the component into its configured state.
	Install(ctx context.Context, run *ExecutionContext) error

	// Uninstall removes the component's configuration.
	Uninstall(ctx context.Context, run *ExecutionContext) error

	// IsInstalled probes the live system for the component's current state.
	// It must not consult the completion ledger.
	IsInstalled(ctx context.Context, run *ExecutionContext) (bool, error)
}

// Describer is an optional interface a Configurator may implement to
// provide a human-readable description.
type Describer interface {
	Description() string
}

// Categorizer is an optional interface a Configurator may implement to
// group itself with related components.
type Categorizer interface {
	Category() string
}

// StateStore is the persisted completion ledger consumed by the engine.
// Implementations must serialize all mutations under an exclusive
// acquisition of the backing resource and replace it atomically on write.
type StateStore interface {
	// ValidateOrReset compares the stored fingerprint header against the
	// current implementation fingerprint and resets the ledger (fresh
	// header, entries cleared) on mismatch or corruption. It reports
	// whether a reset occurred. A mismatched fingerprint is a defined
	// reset condition, not an error.
	ValidateOrReset() (reset bool, err error)

	// IsCompleted reports whether a step id is recorded as completed.
	IsCompleted(stepID string) bool

	// MarkCompleted appends a step id to the ledger. Idempotent: marking
	// an already-present id is a no-op.
	MarkCompleted(stepID string) error

	// ListCompleted returns the completed step ids in completion order.
	ListCompleted() []string

	// Clear truncates all entries and rewrites the header with the current
	// fingerprint and a reset timestamp.
	Clear() error

	// Close releases the store's lock. Safe to call more than once.
	Close() error
}

// StoreOpener acquires a StateStore for the duration of one run. Opening
// fails fast with a LOCKED ledger error when another run holds the store.
type StoreOpener interface {
	Open() (StateStore, error)
}

// StoreOpenerFunc adapts a function to the StoreOpener interface.
type StoreOpenerFunc func() (StateStore, error)

// Open implements StoreOpener.
func (f StoreOpenerFunc) Open() (StateStore, error) {
	return f()
}

// ConfirmFunc is the injected re-run confirmation. It receives a prompt and
// returns true when the step should run again. The core never blocks on a
// terminal: front ends supply interactive implementations, and a nil or
// declining ConfirmFunc yields deterministic skips.
type ConfirmFunc func(prompt string) bool

// DeclineAll is the non-interactive default: every re-run prompt is
// declined.
func DeclineAll(string) bool { return false }

// AcceptAll answers every re-run prompt affirmatively.
func AcceptAll(string) bool { return true }

// EventSink receives run and step events for durable history. A nil sink is
// valid; recording failures are logged, never fatal.
type EventSink interface {
	RunStarted(ctx context.Context, runID string, mode RunMode, totalSteps int) error
	StepExecuted(ctx context.Context, runID string, result StepResult) error
	RunFinished(ctx context.Context, runID string, summary *OutcomeSummary) error
}

// ProvisionCapability is handed to provisioning hooks. It mutates schema or
// manifest state on behalf of a hook without exposing the underlying
// storage.
type ProvisionCapability interface {
	// EnsureResource creates the named resource of the given kind if it
	// does not already exist.
	EnsureResource(ctx context.Context, kind, name string) error

	// ApplyManifest applies a manifest fragment.
	ApplyManifest(ctx context.Context, fragment ManifestFragment) error
}
