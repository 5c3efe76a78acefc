package rope

import "log/slog"

// Default pool configuration values.
const (
	// DefaultMaxPooledBuffer is the largest buffer capacity kept for reuse.
	DefaultMaxPooledBuffer = 64 * 1024

	// DefaultDeepTeardown is the pending-list length at which a teardown
	// is logged at debug level.
	DefaultDeepTeardown = 4096
)

// Option configures a Pool during creation.
type Option func(*Pool)

// WithRecycling controls whether freed nodes and buffers are reused.
// With recycling off, freed nodes stay tombstoned so any later retain or
// release of them panics with ErrReleased.
func WithRecycling(enabled bool) Option {
	return func(p *Pool) {
		p.recycle = enabled
	}
}

// WithMaxPooledBuffer sets the largest buffer capacity returned to the pool.
func WithMaxPooledBuffer(size int) Option {
	return func(p *Pool) {
		if size >= 0 {
			p.maxPooledBuffer = size
		}
	}
}

// WithDeepTeardown sets the pending-list length that triggers a debug log
// during destruction.
func WithDeepTeardown(depth int) Option {
	return func(p *Pool) {
		if depth > 0 {
			p.deepTeardown = depth
		}
	}
}

// WithLogger sets the logger used for debug diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}
