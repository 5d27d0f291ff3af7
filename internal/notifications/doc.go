// Package notifications pushes orchestrator events to ntfy.
//
// The ntfy implementation is used when a topic URL is configured; otherwise
// NewService returns a no-op. Cycle summaries are sent for degraded cycles,
// and for every cycle when cycle_summary is enabled. Task failures are sent
// only when task_failures is enabled.
package notifications
