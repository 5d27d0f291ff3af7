// Package api is the service layer shared by the HTTP server and the CLI.
// It translates internal task and cycle models into transport-friendly
// DTOs, and it guards cycles and manual executions with a cross-process
// cycle lock.
//
// # Key Types
//
// Task: transport representation of a task with timestamps as RFC3339 strings.
//
// Service: task queries, task creation, manual execution, cancellation,
// priority intake and cycle runs.
//
// # Errors
//
// ErrCycleInProgress is returned when another process holds the cycle lock.
// HTTPStatus maps service errors onto status codes.
package api
