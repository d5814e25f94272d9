package logging

import "log/slog"

// Shared attribute keys so log lines stay grep-able across packages.
const (
	FieldComponent = "component"
	FieldBatchID   = "batch_id"
	FieldItemID    = "item_id"
	FieldSource    = "source"
	FieldError     = "error"
)

// WithComponent tags a logger with the subsystem emitting the records.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String(FieldComponent, component))
}
