// Package acquire orchestrates concurrent multi-channel image acquisition.
//
// A run issues one or two waves of fetch+normalize operations (two in
// anchored mode), joins each wave with a barrier that waits for every
// operation regardless of individual failures, and reduces the surviving
// per-channel capture times to a single canonical batch timestamp.
package acquire
