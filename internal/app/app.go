// Package app wires picorope's configuration, logging, rope pool,
// metrics and Lua renderer together for the command-line tool.
package app

import (
	"io"
	"log/slog"
	"os"

	"github.com/dshills/picorope/internal/config"
	"github.com/dshills/picorope/internal/engine/rope"
	"github.com/dshills/picorope/internal/telemetry"
)

// PoolName labels the application pool in exported metrics.
const PoolName = "app"

// Application owns the components shared by the commands.
type Application struct {
	config *config.Config
	logger *slog.Logger
	pool   *rope.Pool
	stdout io.Writer
	stderr io.Writer

	collector *telemetry.Collector
}

// Options configures the application beyond what the config holds.
type Options struct {
	// Logger overrides the logger built from the logging settings.
	Logger *slog.Logger
	// Stdout receives rendered output. Defaults to os.Stdout.
	Stdout io.Writer
	// Stderr receives logs and script print output. Defaults to os.Stderr.
	Stderr io.Writer
}

// New creates an Application from a loaded config.
func New(cfg *config.Config, opts Options) (*Application, error) {
	app := &Application{
		config: cfg,
		logger: opts.Logger,
		stdout: opts.Stdout,
		stderr: opts.Stderr,
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}

	if app.logger == nil {
		lc := cfg.Logging()
		logger, err := NewLogger(LoggerConfig{
			Level:     ParseLogLevel(lc.Level),
			Format:    lc.Format,
			Output:    app.stderr,
			Component: "picorope",
		})
		if err != nil {
			return nil, &ComponentError{Component: "logging", Action: "init", Err: err}
		}
		app.logger = logger
	}

	app.pool = NewPool(cfg.Pool(), app.logger.With(slog.String("pool", PoolName)))
	app.collector = telemetry.NewCollector(PoolName, app.pool)
	return app, nil
}

// NewPool creates a rope pool from pool settings.
func NewPool(pc config.PoolConfig, logger *slog.Logger) *rope.Pool {
	return rope.NewPool(
		rope.WithRecycling(pc.Recycling),
		rope.WithMaxPooledBuffer(pc.MaxPooledBuffer),
		rope.WithDeepTeardown(pc.DeepTeardown),
		rope.WithLogger(logger),
	)
}

// Config returns the application configuration.
func (app *Application) Config() *config.Config {
	return app.config
}

// Logger returns the application logger.
func (app *Application) Logger() *slog.Logger {
	return app.logger
}

// Pool returns the application rope pool.
func (app *Application) Pool() *rope.Pool {
	return app.pool
}

// Collector returns the metrics collector for the application pool.
func (app *Application) Collector() *telemetry.Collector {
	return app.collector
}
