// Package telemetry provides structured logging, Prometheus metrics, and
// OpenTelemetry tracing for the oj-server configuration engine.
//
// Logging is built on zerolog and carried through context so that the engine,
// the state ledger, and the component catalog all emit consistently tagged
// events. Metrics cover run and step execution counts and durations plus
// ledger resets. Tracing produces one span per run with child spans per step.
package telemetry
