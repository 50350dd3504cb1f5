package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campaneros/TQGenLevelAnalysis/internal/event"
	"github.com/campaneros/TQGenLevelAnalysis/internal/frame"
	"github.com/campaneros/TQGenLevelAnalysis/internal/logging"
	"github.com/campaneros/TQGenLevelAnalysis/internal/stage"
	"github.com/campaneros/TQGenLevelAnalysis/internal/telemetry"
	"github.com/campaneros/TQGenLevelAnalysis/sink"
	"github.com/campaneros/TQGenLevelAnalysis/source"
)

// HeaderRunID carries the engine run id on every result frame.
const HeaderRunID = "run-id"

// ErrSink marks a failed push. Sink failures stop the run whatever the
// event policy says.
var ErrSink = errors.New("sink")

// OnError is what the runner does with an event that failed to decode or
// to produce.
type OnError string

const (
	OnErrorFail OnError = "fail"
	OnErrorLog  OnError = "log"
)

func ParseOnError(s string) (OnError, error) {
	switch OnError(s) {
	case "", OnErrorFail:
		return OnErrorFail, nil
	case OnErrorLog:
		return OnErrorLog, nil
	}
	return "", fmt.Errorf("pipeline: on_error %q (want fail|log)", s)
}

// Stats counts events seen by a run.
type Stats struct {
	Processed int64
	Failed    int64
}

type Runner struct {
	source source.Adapter
	sinks  []sink.Adapter
	stage  *stage.Stage
	cond   event.Conditions

	workers int
	policy  OnError
	runID   string
	metrics *telemetry.Metrics
	log     *slog.Logger

	processed atomic.Int64
	failed    atomic.Int64
}

func NewRunner(st *stage.Stage, cond event.Conditions) *Runner {
	if cond == nil {
		cond = event.Store{}
	}
	return &Runner{
		stage:   st,
		cond:    cond,
		workers: runtime.GOMAXPROCS(0),
		policy:  OnErrorFail,
		metrics: telemetry.Default,
	}
}

func (r *Runner) AddSink(s sink.Adapter)    { r.sinks = append(r.sinks, s) }
func (r *Runner) SetSource(s source.Adapter) { r.source = s }
func (r *Runner) SetPolicy(p OnError)       { r.policy = p }
func (r *Runner) SetRunID(id string)        { r.runID = id }

func (r *Runner) SetMetrics(m *telemetry.Metrics) { r.metrics = m }
func (r *Runner) SetLogger(l *slog.Logger)       { r.log = l }

// SetWorkers sets the pool size; n <= 0 keeps the GOMAXPROCS default.
func (r *Runner) SetWorkers(n int) {
	if n > 0 {
		r.workers = n
	}
}

func (r *Runner) Stage() *stage.Stage { return r.stage }

func (r *Runner) Stats() Stats {
	return Stats{Processed: r.processed.Load(), Failed: r.failed.Load()}
}

func (r *Runner) logger() *slog.Logger {
	if r.log != nil {
		return r.log
	}
	return logging.L()
}

// Run pumps the source through the worker pool until the source drains, a
// fatal error occurs or ctx ends. Cancellation of ctx is not an error.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return errors.New("runner: no source configured")
	}
	if r.stage == nil {
		return errors.New("runner: no stage configured")
	}
	log := r.logger().With("run_id", r.runID)

	g, gctx := errgroup.WithContext(ctx)
	frames := make(chan *frame.Frame, r.workers)

	g.Go(func() error {
		defer close(frames)
		return r.source.Run(gctx, func(c context.Context, f *frame.Frame) error {
			select {
			case frames <- f:
				return nil
			case <-c.Done():
				return c.Err()
			}
		})
	})

	for range r.workers {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case f, ok := <-frames:
					if !ok {
						return nil
					}
					if err := r.handle(log, f); err != nil {
						return err
					}
				}
			}
		})
	}

	err := g.Wait()
	st := r.Stats()
	log.Info("pipeline finished", "processed", st.Processed, "failed", st.Failed)
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (r *Runner) handle(log *slog.Logger, f *frame.Frame) error {
	start := time.Now()
	err := r.process(f)
	r.processed.Add(1)
	if err == nil {
		r.metrics.ObserveEvent(telemetry.ResultOK, time.Since(start))
		f.Complete()
		return nil
	}
	r.failed.Add(1)
	r.metrics.ObserveEvent(telemetry.ResultFailed, time.Since(start))
	if errors.Is(err, ErrSink) || r.policy == OnErrorFail {
		// left incomplete so the source replays it
		return err
	}
	log.Error("event failed", "checkpoint", f.Checkpoint.String(), "err", err)
	f.Complete()
	return nil
}

func (r *Runner) process(f *frame.Frame) error {
	ev, err := event.Decode(f.Value)
	if err != nil {
		return fmt.Errorf("%s: %w", f.Checkpoint, err)
	}
	if err := r.stage.Produce(ev, r.cond); err != nil {
		return err
	}
	out, err := event.Encode(ev.Result())
	if err != nil {
		return fmt.Errorf("event %s: encode: %w", ev.ID, err)
	}
	res := &frame.Frame{
		Key:        []byte(ev.ID.String()),
		Value:      out,
		Ts:         time.Now(),
		Checkpoint: f.Checkpoint,
	}
	if r.runID != "" {
		res.Headers = map[string][]byte{HeaderRunID: []byte(r.runID)}
	}
	for _, s := range r.sinks {
		if err := s.Push(res); err != nil {
			return fmt.Errorf("%w: event %s: %w", ErrSink, ev.ID, err)
		}
	}
	return nil
}

// Close releases the source and every sink.
func (r *Runner) Close() error {
	var errs []error
	if r.source != nil {
		errs = append(errs, r.source.Close())
	}
	for _, s := range r.sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
