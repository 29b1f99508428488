// Package source fetches encoded channel images from the observation source
// API and extracts per-channel capture timestamps from response metadata.
//
// The source reports the true capture instant only through the filename in
// the Content-Disposition header; ParseFilenameTime decodes that micro-format
// best-effort so callers can silently fall back to the nominal request
// timestamp when it is absent or malformed.
package source
