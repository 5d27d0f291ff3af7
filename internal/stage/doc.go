// Package stage defines the contract between the executor and the handlers
// that perform each task type, plus the Health record handlers report.
package stage
