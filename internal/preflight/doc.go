// Package preflight checks that the directories and external services the
// orchestrator depends on are usable.
//
// Local checks (data and log directory access, credentials present) are cheap
// and run when the daemon starts. Probes make one real request per configured
// service and back `postpilot health --deep`.
package preflight
