package engine

import (
	"context"
	"fmt"
)

// LifecyclePoint names a fixed extension point during a run.
type LifecyclePoint string

const (
	// AfterConfigLoad fires once the plan is resolved and the state store
	// is open and validated.
	AfterConfigLoad LifecyclePoint = "after_config_load"

	// BeforeManifestApply fires before the first step of a run executes.
	BeforeManifestApply LifecyclePoint = "before_manifest_apply"

	// BeforeResourceProvision fires before each step's body. Provisioning
	// hooks registered here receive the ProvisionCapability.
	BeforeResourceProvision LifecyclePoint = "before_resource_provision"

	// AfterResourceProvision fires after each step's body succeeds.
	AfterResourceProvision LifecyclePoint = "after_resource_provision"

	// OnComplete fires once after a run finishes without failure.
	OnComplete LifecyclePoint = "on_complete"

	// OnError fires as a best-effort notification after a run aborts. It
	// is not an automatic rollback; rollback is Uninstall's job.
	OnError LifecyclePoint = "on_error"
)

// HookFunc is a lifecycle callback. It receives the run's shared
// ExecutionContext.
type HookFunc func(ctx context.Context, run *ExecutionContext) error

// ProvisionHookFunc is a provisioning callback. In addition to the shared
// ExecutionContext it receives a capability for mutating schema and
// manifest state.
type ProvisionHookFunc func(ctx context.Context, run *ExecutionContext, cap ProvisionCapability) error

// Hooks is the ordered lifecycle hook registry. Hooks are registered at
// startup, strictly before any run begins, and fire in registration order.
type Hooks struct {
	general   map[LifecyclePoint][]HookFunc
	provision map[LifecyclePoint][]ProvisionHookFunc
}

// NewHooks creates an empty hook registry.
func NewHooks() *Hooks {
	return &Hooks{
		general:   make(map[LifecyclePoint][]HookFunc),
		provision: make(map[LifecyclePoint][]ProvisionHookFunc),
	}
}

// Register adds a hook at a non-provisioning lifecycle point.
func (h *Hooks) Register(point LifecyclePoint, fn HookFunc) error {
	switch point {
	case AfterConfigLoad, BeforeManifestApply, OnComplete, OnError:
		h.general[point] = append(h.general[point], fn)
		return nil
	case BeforeResourceProvision, AfterResourceProvision:
		return NewRegistrationError(
			fmt.Sprintf("lifecycle point %q requires RegisterProvision", point), nil).
			WithCode(ErrCodeInternal)
	default:
		return NewRegistrationError(fmt.Sprintf("unknown lifecycle point %q", point), nil).
			WithCode(ErrCodeInternal)
	}
}

// RegisterProvision adds a provisioning hook at a provisioning lifecycle
// point.
func (h *Hooks) RegisterProvision(point LifecyclePoint, fn ProvisionHookFunc) error {
	switch point {
	case BeforeResourceProvision, AfterResourceProvision:
		h.provision[point] = append(h.provision[point], fn)
		return nil
	default:
		return NewRegistrationError(
			fmt.Sprintf("lifecycle point %q does not take provisioning hooks", point), nil).
			WithCode(ErrCodeInternal)
	}
}

// Fire invokes the hooks registered at a non-provisioning point, in
// registration order. The first failure stops the sequence and is returned
// as a hook error.
func (h *Hooks) Fire(ctx context.Context, run *ExecutionContext, point LifecyclePoint) error {
	for i, fn := range h.general[point] {
		if err := fn(ctx, run); err != nil {
			return NewHookError(
				fmt.Sprintf("hook %d at %s failed", i, point), err).
				WithCode(ErrCodeHookFailed)
		}
	}
	return nil
}

// FireProvision invokes the provisioning hooks registered at a provisioning
// point, in registration order, handing each the capability.
func (h *Hooks) FireProvision(ctx context.Context, run *ExecutionContext, point LifecyclePoint, cap ProvisionCapability) error {
	for i, fn := range h.provision[point] {
		if err := fn(ctx, run, cap); err != nil {
			return NewHookError(
				fmt.Sprintf("provisioning hook %d at %s failed", i, point), err).
				WithCode(ErrCodeHookFailed)
		}
	}
	return nil
}

// ResourceSpec declares one resource for lazy provisioning. A resource with
// an empty Feature is required and always created; otherwise it is created
// only when the run's feature flag of that name is set.
type ResourceSpec struct {
	// Kind is the resource kind (table, schema, directory, ...).
	Kind string

	// Name is the resource name.
	Name string

	// Feature is the flag gating an optional resource. Empty means
	// required.
	Feature string
}

// LazyResources returns a provisioning hook implementing the lazy-resource
// policy: required resources are always ensured, optional resources only
// when the run marks their capability present. This avoids allocating
// schema or storage for data the deployment will never carry.
func LazyResources(resources []ResourceSpec) ProvisionHookFunc {
	return func(ctx context.Context, run *ExecutionContext, cap ProvisionCapability) error {
		for _, r := range resources {
			if r.Feature != "" && !run.Flag(r.Feature) {
				continue
			}
			if err := cap.EnsureResource(ctx, r.Kind, r.Name); err != nil {
				return fmt.Errorf("ensure %s %q: %w", r.Kind, r.Name, err)
			}
		}
		return nil
	}
}
