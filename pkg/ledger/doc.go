// Package ledger implements the persistent completion ledger backing the
// configuration engine's idempotency checks.
//
// The ledger is a plain text artifact: a header of #-prefixed metadata
// lines carrying a content fingerprint of the engine's own implementation
// and a format version, followed by one completed step identifier per line
// in completion order. When the engine's implementation changes, the stored
// fingerprint no longer matches and the ledger is reset rather than
// trusted, since a changed implementation may have changed step semantics.
//
// Every mutation writes a temporary file in the ledger's directory and then
// atomically renames it over the ledger, so a crash can never leave partial
// state. A lock file beside the ledger serializes runs: a second open fails
// fast instead of waiting.
package ledger
