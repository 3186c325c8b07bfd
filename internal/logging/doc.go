// Package logging assembles structured slog loggers and formatting helpers used
// across tagwarden.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so mutating runs automatically
// tag log lines with their run ID and operation. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
//
// WarnWithContext and ErrorWithContext enforce the event_type, error_hint, and
// impact fields so every warning says what happened and what to do next.
package logging
