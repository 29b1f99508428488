// Package config loads, normalizes, and validates helioframe configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and cross-checks the acquisition mode against
// the selected container schema. The Config type centralizes every knob the
// daemon and CLI need, so the channel set, output directories, and raster
// policy are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical mode/schema names, and clear validation errors.
package config
