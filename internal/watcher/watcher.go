// Package watcher reports changes to individual files so callers can react
// to edits, such as re-rendering a template script.
//
// Files are watched through their parent directory. Editors that save by
// writing a temporary file and renaming it over the original still produce
// an event for the watched name. Bursts of events for one file are
// coalesced into a single delivery after a quiet period.
package watcher

import (
	"errors"
	"log/slog"
	"time"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("path is already being watched")
	ErrNotWatching     = errors.New("path is not being watched")
	ErrPathNotExist    = errors.New("path does not exist")
)

// Op is a set of file operations.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// String returns a human-readable representation of the operation set.
func (op Op) String() string {
	if op == 0 {
		return "NONE"
	}
	names := []struct {
		op   Op
		name string
	}{
		{OpCreate, "CREATE"},
		{OpWrite, "WRITE"},
		{OpRemove, "REMOVE"},
		{OpRename, "RENAME"},
		{OpChmod, "CHMOD"},
	}
	s := ""
	for _, n := range names {
		if op.Has(n.op) {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

// Has returns true if the operation set includes o.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event is a debounced change to a watched file.
type Event struct {
	// Path is the absolute path of the watched file.
	Path string

	// Op combines every operation seen during the debounce window.
	Op Op

	// Timestamp is when the last operation in the window was seen.
	Timestamp time.Time
}

// Handler handles a file event.
type Handler func(event Event) error

// Config holds watcher configuration options.
type Config struct {
	// DebounceDelay is the quiet period before an event is delivered.
	// Default: 100ms
	DebounceDelay time.Duration

	// BufferSize is the capacity of the event and error channels.
	// Default: 16
	BufferSize int

	// IgnoreChmod drops events that only change permissions.
	// Default: true
	IgnoreChmod bool

	Logger *slog.Logger
}

// DefaultConfig returns a Config with the defaults above.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
		BufferSize:    16,
		IgnoreChmod:   true,
		Logger:        slog.New(slog.DiscardHandler),
	}
}

// Option configures a watcher.
type Option func(*Config)

// WithDebounceDelay sets the debounce delay. Zero delivers every event.
func WithDebounceDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.DebounceDelay = d
		}
	}
}

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.BufferSize = size
		}
	}
}

// WithIgnoreChmod controls whether permission-only changes are reported.
func WithIgnoreChmod(ignore bool) Option {
	return func(c *Config) {
		c.IgnoreChmod = ignore
	}
}

// WithLogger sets the logger used for dropped events and watch errors.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
