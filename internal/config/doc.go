// Package config loads, normalizes, and validates bilicache configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and centralizes every knob the CLI needs:
// scan roots and source packages, ffmpeg invocation settings, export policy,
// and logging. Always obtain settings through this package so downstream code
// receives sanitized paths, canonical values, and clear validation errors.
package config
