// Package stores provides the durable run-history store: every
// orchestrator run and step outcome is recorded in SQLite so operators can
// audit what was configured when, independently of the completion ledger.
package stores
