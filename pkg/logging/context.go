package logging

import "log/slog"

// WithTx returns a logger pre-populated with the given transaction id,
// used by the buffer pool's transaction completion logging.
func WithTx(txID int64) *slog.Logger {
	return GetLogger().With("tx_id", txID)
}

// WithPage returns a logger pre-populated with a page identifier string.
func WithPage(pageID string) *slog.Logger {
	return GetLogger().With("page_id", pageID)
}

// WithLock returns a logger pre-populated with transaction and resource
// context, used by the lock manager's acquisition logging.
func WithLock(txID int64, resource string) *slog.Logger {
	return GetLogger().With("tx_id", txID, "resource", resource)
}

// WithComponent returns a logger pre-populated with a subsystem name.
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithError returns a logger pre-populated with an error field.
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}
