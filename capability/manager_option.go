package capability

import (
	"fmt"
	"log/slog"
	"time"
)

// Option is a function that allows configuring the Manager.
type Option func(*Manager) error

// WithLogger sets the logger used by the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		m.logger = logger.With("component", "capability")
		return nil
	}
}

// WithInitTimeout bounds the time each capability may spend initializing.
// A zero timeout disables the limit.
func WithInitTimeout(timeout time.Duration) Option {
	return func(m *Manager) error {
		if timeout < 0 {
			return fmt.Errorf("capability init timeout must not be negative, got %s", timeout)
		}
		m.initTimeout = timeout
		return nil
	}
}

// DefaultOptions returns the default Manager options.
func DefaultOptions() []Option {
	return []Option{
		WithLogger(slog.Default()),
		WithInitTimeout(10 * time.Second),
	}
}
