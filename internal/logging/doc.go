// Package logging constructs the slog loggers used across transforma and
// provides shared attribute helpers so log field names stay consistent
// between components.
package logging
