// Package logging builds the slog loggers used across bilicache.
//
// Console output renders compact "<ts> LEVEL component: msg k=v" lines; the
// json format emits machine-readable records. Context helpers stamp job,
// entry, stage, and correlation identifiers onto every record without callers
// threading them by hand.
package logging
