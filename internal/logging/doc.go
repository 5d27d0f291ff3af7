// Package logging builds postpilot's slog loggers.
//
// Two formats are supported: a console format that reads well in a terminal
// and journald ("ts LEVEL component: msg key=value"), and JSON for log
// shippers. Both can be written to stdout and <log_dir>/postpilot.log at the
// same time, which is what `postpilot logs` tails.
//
// Warnings and errors go through WarnWithContext and ErrorWithContext so
// every line carries event_type and error_hint. WithContext adds the task,
// project, stage and cycle tags found on a context.
package logging
