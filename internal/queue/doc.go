// Package queue is the task store for the orchestrator.
//
// A Task is one unit of work scoped to a project. Tasks move strictly forward
// along pending -> running -> completed|failed; pending tasks may also be
// cancelled. Every transition is guarded on the current status, so a
// mismatched call changes nothing and reports a *TransitionError instead of
// overwriting a terminal row.
//
// Two implementations share the TaskStore interface: Store persists tasks in
// the shared SQLite database, MemoryStore keeps them in process for tests and
// dry runs. Both order due tasks by priority (descending), scheduled_for
// (ascending) and creation order.
//
// Params are opaque to the store. The typed param structs and Decode helpers
// in params.go are used by the scheduler and executor at their boundaries.
package queue
