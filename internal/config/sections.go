package config

import (
	"errors"
	"strings"
	"time"
)

// Section accessor methods return snapshot structs. Mutating the returned
// struct does not modify the underlying configuration. Use Config.Set()
// to update configuration values.

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string

	// Format is text or json.
	Format string
}

// PoolConfig mirrors the rope pool options.
type PoolConfig struct {
	// Recycling returns freed nodes and buffers to the pool for reuse.
	Recycling bool

	// MaxPooledBuffer is the largest buffer capacity kept for reuse.
	MaxPooledBuffer int

	// DeepTeardown is the pending-list length above which teardown is
	// logged at debug level.
	DeepTeardown int
}

// StressConfig drives the stress command.
type StressConfig struct {
	// Appends is the number of single-byte appends per rope.
	Appends int

	// Rounds is how many times each shape is built and verified.
	Rounds int

	// Shape is left, right or balanced.
	Shape string

	// MetricsAddr serves Prometheus metrics while running when non-empty.
	MetricsAddr string
}

// RenderConfig drives the render command and the Lua sandbox.
type RenderConfig struct {
	Timeout        time.Duration
	OperationLimit int64
	// MaxLength bounds the ropes a script builds, in bytes; 0 means no
	// bound beyond the int range.
	MaxLength int
	// Output is the destination file; empty means stdout.
	Output        string
	WatchDebounce time.Duration
}

// Stress shapes.
const (
	ShapeLeft     = "left"
	ShapeRight    = "right"
	ShapeBalanced = "balanced"
)

// Shapes lists the accepted stress shapes.
var Shapes = []string{ShapeLeft, ShapeRight, ShapeBalanced}

// Logging returns type-safe access to logging settings.
func (c *Config) Logging() LoggingConfig {
	return LoggingConfig{
		Level:  c.getStringOr("logging.level", "info"),
		Format: c.getStringOr("logging.format", "text"),
	}
}

// Pool returns type-safe access to rope pool settings.
func (c *Config) Pool() PoolConfig {
	return PoolConfig{
		Recycling:       c.getBoolOr("pool.recycling", true),
		MaxPooledBuffer: c.getIntOr("pool.maxPooledBuffer", 64*1024),
		DeepTeardown:    c.getIntOr("pool.deepTeardown", 4096),
	}
}

// Stress returns type-safe access to stress run settings.
func (c *Config) Stress() StressConfig {
	return StressConfig{
		Appends:     c.getIntOr("stress.appends", 100_000),
		Rounds:      c.getIntOr("stress.rounds", 1),
		Shape:       c.getStringOr("stress.shape", ShapeLeft),
		MetricsAddr: c.getStringOr("stress.metricsAddr", ""),
	}
}

// Render returns type-safe access to template rendering settings.
func (c *Config) Render() RenderConfig {
	return RenderConfig{
		Timeout:        c.getDurationOr("render.timeout", 5*time.Second),
		OperationLimit: int64(c.getIntOr("render.operationLimit", 1_000_000)),
		MaxLength:      c.getIntOr("render.maxLength", 64<<20),
		Output:         c.getStringOr("render.output", ""),
		WatchDebounce:  c.getDurationOr("render.watchDebounce", 100*time.Millisecond),
	}
}

// Validate checks every known setting for type and range problems and
// returns them joined, or nil.
func (c *Config) Validate() error {
	var errs []error

	check := func(err error) {
		if err != nil && !errors.Is(err, ErrSettingNotFound) {
			errs = append(errs, err)
		}
	}
	oneOf := func(path string, allowed ...string) {
		v, err := c.GetString(path)
		check(err)
		if err != nil {
			return
		}
		for _, a := range allowed {
			if strings.EqualFold(v, a) {
				return
			}
		}
		errs = append(errs, &ValidationError{
			Path:    path,
			Message: "must be one of " + strings.Join(allowed, ", "),
			Value:   v,
		})
	}
	atLeast := func(path string, min int) {
		v, err := c.GetInt(path)
		check(err)
		if err == nil && v < min {
			errs = append(errs, &ValidationError{Path: path, Message: "too small", Value: v})
		}
	}
	duration := func(path string) {
		v, err := c.GetDuration(path)
		check(err)
		if err == nil && v < 0 {
			errs = append(errs, &ValidationError{Path: path, Message: "must not be negative", Value: v})
		}
	}

	oneOf("logging.level", "debug", "info", "warn", "warning", "error")
	oneOf("logging.format", "text", "json")
	oneOf("stress.shape", Shapes...)
	atLeast("stress.appends", 0)
	atLeast("stress.rounds", 1)
	atLeast("pool.maxPooledBuffer", 0)
	atLeast("pool.deepTeardown", 0)
	atLeast("render.operationLimit", 0)
	atLeast("render.maxLength", 0)
	duration("render.timeout")
	duration("render.watchDebounce")
	_, err := c.GetBool("pool.recycling")
	check(err)
	_, err = c.GetString("stress.metricsAddr")
	check(err)
	_, err = c.GetString("render.output")
	check(err)

	return errors.Join(errs...)
}

// These helpers fall back to defaultValue on any error. Validate reports
// the type errors they hide.

func (c *Config) getStringOr(path string, defaultValue string) string {
	v, err := c.GetString(path)
	if err != nil {
		return defaultValue
	}
	return v
}

func (c *Config) getIntOr(path string, defaultValue int) int {
	v, err := c.GetInt(path)
	if err != nil {
		return defaultValue
	}
	return v
}

func (c *Config) getBoolOr(path string, defaultValue bool) bool {
	v, err := c.GetBool(path)
	if err != nil {
		return defaultValue
	}
	return v
}

func (c *Config) getDurationOr(path string, defaultValue time.Duration) time.Duration {
	v, err := c.GetDuration(path)
	if err != nil {
		return defaultValue
	}
	return v
}
