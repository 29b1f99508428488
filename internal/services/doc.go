// Package services defines shared utilities consumed by the workflow stage
// handlers and the acquisition pipeline.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, run IDs, stage names, and
//     channel identifiers for logging.
//   - Structured error markers plus the Wrap helper that keep the failure
//     taxonomy (transport, decode, reconciliation, assembly) consistent
//     across the pipeline.
//
// Use these helpers when wiring new stage logic so operational behaviour
// stays uniform across the pipeline.
package services
