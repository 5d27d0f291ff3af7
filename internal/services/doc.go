// Package services defines shared utilities consumed by the orchestrator core
// and its external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp task IDs, project IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can tell a stale
//     request (not found, inconsistent transition) apart from a collaborator
//     failure.
//   - FailureMessage, which normalizes an error into the single-line message
//     persisted on failed tasks.
package services
