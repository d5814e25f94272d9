// Package logging builds the slog loggers used across pixpress.
//
// It provides a single-line console handler for interactive runs and a JSON
// handler for machine consumption, with output optionally duplicated into a
// log file under the configured log directory.
package logging
