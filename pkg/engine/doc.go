// Package engine implements the orchestration core of the oj-server
// configuration system: a registry of named, dependency-aware configurators,
// a deterministic dependency resolver, an idempotent step executor backed by
// a persistent completion ledger, and a lifecycle hook system for
// cross-cutting extensions.
//
// The engine is deliberately single-threaded. Component bodies mutate shared,
// non-reentrant system state (package databases, service units), so the
// resolved plan is executed strictly sequentially even where the dependency
// graph would permit parallelism. Exclusion across concurrent invocations is
// enforced by the state store's lock: a second run against the same store
// fails fast instead of waiting.
//
// Execution flows Orchestrator -> Registry.Resolve -> ExecutionPlan ->
// StepExecutor per step, with lifecycle hooks firing around defined points.
package engine
