// Package replay drives recorded event logs through the capture pipeline.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/tracepad/internal/capture"
	"github.com/verte-zerg/tracepad/internal/clock"
	"github.com/verte-zerg/tracepad/internal/gateway"
	"github.com/verte-zerg/tracepad/internal/input"
	"github.com/verte-zerg/tracepad/internal/model"
	"github.com/verte-zerg/tracepad/internal/pipeline"
	"github.com/verte-zerg/tracepad/internal/trajectory"
)

// DefaultConcurrency bounds how many logs are replayed at once.
const DefaultConcurrency = 4

// Sink stores session outcomes.
type Sink interface {
	InsertOutcome(ctx context.Context, out model.SessionOutcome) (int64, error)
}

// Options configure a replay run.
type Options struct {
	Capture   model.CaptureConfig
	Pattern   model.PatternConfig
	Mode      model.Mode
	Seed      int64
	Submitter gateway.Submitter
	Sink      Sink
	Logger    *slog.Logger
	// Start is the virtual wall time of the first event.
	Start        time.Time
	NewSessionID func() string
}

// Result summarises one replayed log.
type Result struct {
	Name     string
	Events   int
	Outcomes []model.SessionOutcome
	Counters capture.Counters
	Score    int
}

// Run replays events on a virtual clock. Batches are submitted synchronously.
func Run(ctx context.Context, name string, events []input.Event, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("log", name))
	submitter := opts.Submitter
	if submitter == nil {
		submitter = gateway.Discard{}
	}
	start := opts.Start
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}

	sched := clock.NewVirtual(start)
	p, err := pipeline.New(pipeline.Options{
		Scheduler:    sched,
		Logger:       logger,
		Capture:      opts.Capture,
		Pattern:      opts.Pattern,
		Mode:         opts.Mode,
		Picker:       trajectory.NewSeededPicker(opts.Seed),
		NewSessionID: opts.NewSessionID,
	})
	if err != nil {
		return Result{}, err
	}
	defer func() {
		_ = p.Close()
	}()

	res := Result{Name: name, Events: len(events)}
	for i, e := range events {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		sched.AdvanceTo(start.Add(e.Offset()))
		switch e.Kind {
		case input.KindResize:
			p.Resize(e.Width)
		case input.KindMode:
			if err := p.SwitchMode(e.Mode); err != nil {
				logger.Warn("mode switch ignored", slog.Int("event", i), slog.Any("error", err))
			}
		case input.KindPress:
			p.Press(e.Point())
		case input.KindMove:
			p.Move(e.Point())
		case input.KindToggle:
			p.Toggle(e.Point())
		case input.KindReset:
			p.Reset()
		case input.KindRelease:
			batch, ok := p.Release()
			if !ok {
				continue
			}
			out, err := submit(ctx, submitter, p, batch)
			if err != nil {
				return res, err
			}
			res.Outcomes = append(res.Outcomes, out)
			if opts.Sink != nil {
				if _, err := opts.Sink.InsertOutcome(ctx, out); err != nil {
					return res, fmt.Errorf("failed to store outcome: %w", err)
				}
			}
		}
	}
	// Let pending abandonment, settle and animation timers run out.
	for {
		next, ok := sched.NextDeadline()
		if !ok {
			break
		}
		sched.AdvanceTo(next)
	}
	res.Counters = p.Snapshot().Counters
	if pt, ok := p.Task().(interface{ Score() int }); ok {
		res.Score = pt.Score()
	}
	logger.Info("replay finished",
		slog.Int("events", res.Events),
		slog.Int("batches", len(res.Outcomes)),
		slog.Int("abandoned", res.Counters.Abandoned))
	return res, nil
}

// submit sends batch and feeds the outcome back to the pipeline. Only context
// cancellation aborts the replay; gateway failures become failed outcomes.
func submit(ctx context.Context, s gateway.Submitter, p *pipeline.Pipeline, batch model.Batch) (model.SessionOutcome, error) {
	res, err := s.Submit(ctx, batch)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return model.SessionOutcome{}, ctx.Err()
	}
	return p.Complete(batch, res, err), nil
}

// RunFile reads and replays one log.
func RunFile(ctx context.Context, path string, opts Options) (Result, error) {
	events, err := input.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	return Run(ctx, filepath.Base(path), events, opts)
}

// RunFiles replays logs concurrently, each on its own pipeline. Results keep
// the order of paths.
func RunFiles(ctx context.Context, paths []string, opts Options, concurrency int) ([]Result, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	results := make([]Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, path := range paths {
		g.Go(func() error {
			res, err := RunFile(ctx, path, opts)
			if err != nil {
				return fmt.Errorf("replay %s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
