// Package main hosts the postpilot CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon, triggers one-shot cycles,
// manages tasks, projects, content, media and feeds, and scaffolds
// configuration. One-shot commands open the database directly and share the
// cycle lock with the daemon, so a manual cycle never overlaps a scheduled
// one.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
