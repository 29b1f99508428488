// Package workflow advances queue items through the acquisition and
// assembly stages.
//
// The Manager polls the queue for pending or acquired runs, transitions
// them to their processing status, and feeds them into the registered
// stage handlers while capturing progress and failure metadata. A stage
// failure marks the run failed with its error message; the CLI can reset
// failed runs back to pending.
package workflow
