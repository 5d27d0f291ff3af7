// Package projects stores tenant records and their typed orchestrator
// configuration.
//
// The orchestrator only reads project configuration. OrchestratorConfig is
// decoded strictly from the JSON column: unknown keys and malformed posting
// times are rejected, and every missing key takes an explicit default.
package projects
