package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"math/rand/v2"
	"time"

	"github.com/dshills/picorope/internal/config"
	"github.com/dshills/picorope/internal/engine/rope"
	"github.com/dshills/picorope/internal/telemetry"
)

// Stress phases reported to the phase histogram.
const (
	PhaseBuild   = "build"
	PhaseVerify  = "verify"
	PhaseRelease = "release"
)

// samplesPerRound is the number of At and Substr samples per round.
const samplesPerRound = 256

// cancelCheckInterval is how many appends run between context checks.
const cancelCheckInterval = 4096

// StressReport summarises a stress run.
type StressReport struct {
	Shape   string
	Appends int
	Rounds  int

	// Depth and Leaves describe the last tree built.
	Depth  int
	Leaves int

	Build   time.Duration
	Verify  time.Duration
	Release time.Duration

	// Stats is the pool snapshot taken after the last release.
	Stats rope.Stats
}

// RunStress builds ropes of the configured shape by single-byte appends,
// checks them against a reference, releases them and confirms the pool
// holds nothing more than it did before the run.
func (app *Application) RunStress(ctx context.Context, sc config.StressConfig) (*StressReport, error) {
	build, ok := shapeBuilders[sc.Shape]
	if !ok {
		return nil, fmt.Errorf("%w: shape %q", ErrInvalidOption, sc.Shape)
	}
	if sc.Appends < 0 || sc.Rounds < 1 {
		return nil, fmt.Errorf("%w: appends=%d rounds=%d", ErrInvalidOption, sc.Appends, sc.Rounds)
	}

	metrics := telemetry.NewStressMetrics()
	stopMetrics, err := app.serveMetrics(ctx, sc.MetricsAddr, metrics)
	if err != nil {
		return nil, err
	}

	report, runErr := app.stress(ctx, sc, build, metrics)
	if err := stopMetrics(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return report, runErr
}

func (app *Application) stress(ctx context.Context, sc config.StressConfig, build shapeBuilder, metrics *telemetry.StressMetrics) (*StressReport, error) {
	log := app.logger.With(slog.String("shape", sc.Shape))
	ref := referenceText(sc.Appends)
	report := &StressReport{Shape: sc.Shape, Appends: sc.Appends, Rounds: sc.Rounds}
	baseline := app.pool.Stats()

	for round := 1; round <= sc.Rounds; round++ {
		start := time.Now()
		r, err := build(ctx, app.pool, ref)
		if err != nil {
			return report, err
		}
		elapsed := time.Since(start)
		metrics.ObservePhase(sc.Shape, PhaseBuild, elapsed)
		report.Build += elapsed
		report.Depth = r.Depth()
		report.Leaves = r.LeafCount()

		start = time.Now()
		err = verify(r, ref, sc.Shape, round)
		elapsed = time.Since(start)
		metrics.ObservePhase(sc.Shape, PhaseVerify, elapsed)
		report.Verify += elapsed

		start = time.Now()
		r.Release()
		elapsed = time.Since(start)
		metrics.ObservePhase(sc.Shape, PhaseRelease, elapsed)
		report.Release += elapsed

		if err == nil {
			err = checkLeaks(baseline, app.pool.Stats(), sc.Shape, round)
		}
		if err != nil {
			metrics.RecordFailure(sc.Shape)
			log.Error("stress round failed", slog.Int("round", round), slog.Any("error", err))
			return report, err
		}

		log.Debug("stress round passed",
			slog.Int("round", round),
			slog.Int("depth", report.Depth),
			slog.Duration("build", report.Build))
	}

	report.Stats = app.pool.Stats()
	log.Info("stress run complete",
		slog.Int("appends", sc.Appends),
		slog.Int("rounds", sc.Rounds),
		slog.Int("depth", report.Depth),
		slog.Uint64("max_pending", report.Stats.MaxPending),
		slog.Duration("build", report.Build),
		slog.Duration("verify", report.Verify),
		slog.Duration("release", report.Release))
	return report, nil
}

// serveMetrics starts the metrics endpoint when addr is set. The returned
// function stops it and reports any serve failure.
func (app *Application) serveMetrics(ctx context.Context, addr string, metrics *telemetry.StressMetrics) (func() error, error) {
	if addr == "" {
		return func() error { return nil }, nil
	}

	collectors := append(metrics.Collectors(), app.collector)
	reg, err := telemetry.NewRegistry(collectors...)
	if err != nil {
		return nil, &ComponentError{Component: "metrics", Action: "register", Err: err}
	}

	serveCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		err := telemetry.Serve(serveCtx, addr, reg, app.logger)
		if err != nil {
			app.logger.Error("metrics server failed", slog.Any("error", err))
		}
		done <- err
	}()

	return func() error {
		cancel()
		if err := <-done; err != nil {
			return &ComponentError{Component: "metrics", Action: "serve", Err: err}
		}
		return nil
	}, nil
}

type shapeBuilder func(ctx context.Context, p *rope.Pool, ref []byte) (*rope.Rope, error)

var shapeBuilders = map[string]shapeBuilder{
	config.ShapeLeft:     buildLeft,
	config.ShapeRight:    buildRight,
	config.ShapeBalanced: buildBalanced,
}

// referenceText returns n bytes cycling through the lowercase alphabet.
func referenceText(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a' + byte(i%26)
	}
	return b
}

// buildLeft appends one byte at a time, giving a left-leaning chain.
func buildLeft(ctx context.Context, p *rope.Pool, ref []byte) (*rope.Rope, error) {
	r := p.New()
	for i := range ref {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				r.Release()
				return nil, err
			}
		}
		next := r.AppendString(string(ref[i : i+1]))
		r.Release()
		r = next
	}
	return r, nil
}

// buildRight prepends one byte at a time, giving a right-leaning chain.
func buildRight(ctx context.Context, p *rope.Pool, ref []byte) (*rope.Rope, error) {
	r := p.New()
	for i := len(ref) - 1; i >= 0; i-- {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				r.Release()
				return nil, err
			}
		}
		leaf := p.FromBytes(ref[i : i+1])
		next := leaf.Append(r)
		leaf.Release()
		r.Release()
		r = next
	}
	return r, nil
}

// buildBalanced joins single-byte leaves pairwise, level by level.
func buildBalanced(ctx context.Context, p *rope.Pool, ref []byte) (*rope.Rope, error) {
	if len(ref) == 0 {
		return p.New(), nil
	}
	level := make([]*rope.Rope, len(ref))
	for i := range ref {
		level[i] = p.FromString(string(ref[i : i+1]))
	}
	for len(level) > 1 {
		if err := ctx.Err(); err != nil {
			for _, r := range level {
				r.Release()
			}
			return nil, err
		}
		next := level[:0]
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				break
			}
			joined := level[i].Append(level[i+1])
			level[i].Release()
			level[i+1].Release()
			next = append(next, joined)
		}
		level = next
	}
	return level[0], nil
}

// expectedDepth returns the tree height each shape must produce.
func expectedDepth(shape string, n int) int {
	if n == 0 {
		return 0
	}
	if shape == config.ShapeBalanced {
		return bits.Len(uint(n-1)) + 1
	}
	return n
}

// verify samples r with At and Substr before flattening it with Bytes, so
// the samples walk the unflattened tree.
func verify(r *rope.Rope, ref []byte, shape string, round int) error {
	fail := func(check string, err error) error {
		return &VerifyError{Shape: shape, Round: round, Check: check, Err: err}
	}
	n := len(ref)

	if r.Len() != n {
		return fail("len", fmt.Errorf("%w: got %d want %d", ErrVerifyFailed, r.Len(), n))
	}
	if got, want := r.Depth(), expectedDepth(shape, n); got != want {
		return fail("depth", fmt.Errorf("%w: got %d want %d", ErrVerifyFailed, got, want))
	}

	if n > 0 {
		rng := rand.New(rand.NewPCG(uint64(round), uint64(n)))
		for range samplesPerRound {
			pos := rng.IntN(n)
			b, err := r.At(pos)
			if err != nil {
				return fail("at", err)
			}
			if b != ref[pos] {
				return fail("at", fmt.Errorf("%w: at(%d) = %q want %q", ErrVerifyFailed, pos, b, ref[pos]))
			}

			length := rng.IntN(n - pos + 1)
			sub, err := r.Substr(pos, length)
			if err != nil {
				return fail("substr", err)
			}
			ok := bytes.Equal(sub.Bytes(), ref[pos:pos+length])
			sub.Release()
			if !ok {
				return fail("substr", fmt.Errorf("%w: substr(%d, %d)", ErrVerifyFailed, pos, length))
			}
		}
	}

	if _, err := r.At(n); !errors.Is(err, rope.ErrOutOfRange) {
		return fail("at", fmt.Errorf("%w: at(len) returned %v", ErrVerifyFailed, err))
	}
	if !bytes.Equal(r.Bytes(), ref) {
		return fail("bytes", ErrVerifyFailed)
	}
	return nil
}

// checkLeaks compares live counts against the snapshot taken before the run.
func checkLeaks(before, after rope.Stats, shape string, round int) error {
	if after.LiveNodes() == before.LiveNodes() && after.LiveBuffers() == before.LiveBuffers() {
		return nil
	}
	return &VerifyError{
		Shape: shape,
		Round: round,
		Check: "leak",
		Err: fmt.Errorf("%w: %d nodes and %d buffers still live",
			ErrLeak,
			after.LiveNodes()-before.LiveNodes(),
			after.LiveBuffers()-before.LiveBuffers()),
	}
}
