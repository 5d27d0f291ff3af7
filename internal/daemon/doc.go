// Package daemon coordinates the long-running postpilot process.
//
// It runs orchestration cycles on a cron schedule in the canonical operating
// timezone, serves the HTTP API, and takes a flock-based lock so only one
// daemon runs per data directory. Cycles themselves are serialized through
// the api package's cycle lock, which manual CLI runs share.
//
// Keep orchestration logic in the orchestrator package: the daemon focuses
// on startup, shutdown and timing.
package daemon
