// Package logs reads the orchestrator log file for `postpilot logs`.
//
// Tail returns the last N lines or everything after a byte offset, and can
// wait for new lines in follow mode. A Filter narrows the output to one
// project, task or component and drops entries below a severity, for both
// JSON and console formatted logs.
package logs
