package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dshills/picorope/internal/config"
	"github.com/dshills/picorope/internal/plugin/lua"
	"github.com/dshills/picorope/internal/watcher"
)

// Render runs the Lua template at script and writes its result to the
// configured output file, or to stdout when none is set.
func (app *Application) Render(ctx context.Context, script string, rc config.RenderConfig) error {
	r, err := lua.RenderFile(ctx, script,
		lua.WithPool(app.pool),
		lua.WithExecutionTimeout(rc.Timeout),
		lua.WithOperationLimit(rc.OperationLimit),
		lua.WithMaxLength(rc.MaxLength),
		lua.WithOutput(app.stderr),
		lua.WithLogger(app.logger.With(slog.String("script", script))),
	)
	if err != nil {
		return fmt.Errorf("render %s: %w", script, err)
	}
	defer r.Release()

	if rc.Output == "" {
		if _, err := r.WriteTo(app.stdout); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}
	if err := writeFileAtomic(rc.Output, r); err != nil {
		return fmt.Errorf("write %s: %w", rc.Output, err)
	}
	app.logger.Info("rendered",
		slog.String("script", script),
		slog.String("output", rc.Output),
		slog.Int("bytes", r.Len()))
	return nil
}

// Watch renders script once, then again after every change until ctx is
// done. Render failures after the first are logged and do not stop it.
// The script is watched before the first render, so an edit made while
// it runs still triggers a render.
func (app *Application) Watch(ctx context.Context, script string, rc config.RenderConfig) error {
	w, err := watcher.New(
		watcher.WithDebounceDelay(rc.WatchDebounce),
		watcher.WithLogger(app.logger),
	)
	if err != nil {
		return &ComponentError{Component: "watcher", Action: "init", Err: err}
	}
	defer w.Close()

	if err := w.Watch(script); err != nil {
		return &ComponentError{Component: "watcher", Action: "watch " + script, Err: err}
	}

	if err := app.Render(ctx, script, rc); err != nil {
		return err
	}
	app.logger.Info("watching", slog.String("script", script))

	err = w.Run(ctx, func(ev watcher.Event) error {
		if ev.Op.Has(watcher.OpRemove) && !fileExists(ev.Path) {
			app.logger.Warn("script removed", slog.String("script", ev.Path))
			return nil
		}
		app.logger.Debug("script changed", slog.String("script", ev.Path), slog.String("op", ev.Op.String()))
		return app.Render(ctx, script, rc)
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// writeFileAtomic writes src to a temporary file beside path and renames
// it into place, so watchers of path never see a partial file.
func writeFileAtomic(path string, src io.WriterTo) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := src.WriteTo(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
