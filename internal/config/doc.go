// Package config loads, normalizes, and validates postpilot configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENROUTER_API_KEY and ANTHROPIC_API_KEY. The Config type centralizes every
// knob the daemon and CLI need: storage paths, the orchestrator's cycle
// schedule and weekly windows, and credentials for the content generator,
// publisher, and embedding collaborators.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a loaded operating timezone, and clear validation errors.
package config
