package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/campaneros/TQGenLevelAnalysis/internal/electron"
	"github.com/campaneros/TQGenLevelAnalysis/internal/event"
	"github.com/campaneros/TQGenLevelAnalysis/internal/frame"
	"github.com/campaneros/TQGenLevelAnalysis/internal/modifier"
	"github.com/campaneros/TQGenLevelAnalysis/internal/stage"
	"github.com/campaneros/TQGenLevelAnalysis/internal/telemetry"
	"github.com/campaneros/TQGenLevelAnalysis/sink"
	"github.com/campaneros/TQGenLevelAnalysis/source"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type sliceSource struct {
	frames []*frame.Frame
	block  bool
}

func (s *sliceSource) Configure(any) error { return nil }
func (s *sliceSource) Close() error        { return nil }
func (s *sliceSource) Run(ctx context.Context, emit source.EmitFunc) error {
	for _, f := range s.frames {
		if err := emit(ctx, f); err != nil {
			return err
		}
	}
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

type captureSink struct {
	mu     sync.Mutex
	pushed map[string]*frame.Frame
	fail   error
}

func (c *captureSink) Configure(any) error { return nil }
func (c *captureSink) Close() error        { return nil }
func (c *captureSink) Push(f *frame.Frame) error {
	if c.fail != nil {
		return c.fail
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pushed == nil {
		c.pushed = map[string]*frame.Frame{}
	}
	c.pushed[string(f.Key)] = f
	return nil
}

func encodeEvent(t *testing.T, n uint64, input string, energies ...float64) *frame.Frame {
	t.Helper()
	coll := make(electron.Collection, len(energies))
	for i, e := range energies {
		coll[i] = electron.Electron{RawEnergy: e, Energy: e}
	}
	raw, err := json.Marshal(event.Record{
		ID:          event.ID{Run: 1, Lumi: 2, Event: n},
		Collections: map[string]electron.Collection{input: coll},
	})
	if err != nil {
		t.Fatal(err)
	}
	return &frame.Frame{Value: raw, Checkpoint: frame.Checkpoint{Source: "test", Offset: int64(n)}}
}

func offsetStage(t *testing.T, v float64) *stage.Stage {
	t.Helper()
	s, err := modifier.SettingsFromMap(map[string]any{modifier.NameKey: modifier.EnergyOffsetName, "offset": v})
	if err != nil {
		t.Fatal(err)
	}
	st, err := stage.New(stage.Config{PrimaryInput: "slimmedElectrons", PrimaryTransform: &s}, nil, stage.WithLogger(discard))
	if err != nil {
		t.Fatalf("stage.New: %v", err)
	}
	return st
}

func newTestRunner(t *testing.T, src *sliceSource, sinks ...sink.Adapter) *Runner {
	r := NewRunner(offsetStage(t, 0.5), nil)
	r.SetSource(src)
	r.SetLogger(discard)
	r.SetMetrics(telemetry.NewMetrics(prometheus.NewRegistry()))
	r.SetWorkers(4)
	for _, s := range sinks {
		r.AddSink(s)
	}
	return r
}

func decodeResult(t *testing.T, f *frame.Frame) []float64 {
	t.Helper()
	var rec event.Record
	if err := json.Unmarshal(f.Value, &rec); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	coll, ok := rec.Collections["regressionForEle:regressedElectrons"]
	if !ok {
		t.Fatalf("missing product in %s", f.Value)
	}
	out := make([]float64, len(coll))
	for i, e := range coll {
		out[i] = e.Energy
	}
	return out
}

func TestRunner_CorrectsEveryEvent(t *testing.T) {
	src := &sliceSource{}
	for n := uint64(1); n <= 20; n++ {
		src.frames = append(src.frames, encodeEvent(t, n, "slimmedElectrons", 10, 20.5, float64(n)))
	}
	cs := &captureSink{}
	r := newTestRunner(t, src, cs)
	r.SetRunID("run-42")

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st := r.Stats(); st.Processed != 20 || st.Failed != 0 {
		t.Fatalf("stats: %+v", st)
	}
	if len(cs.pushed) != 20 {
		t.Fatalf("want 20 results, got %d", len(cs.pushed))
	}
	for n := uint64(1); n <= 20; n++ {
		key := fmt.Sprintf("1:2:%d", n)
		f, ok := cs.pushed[key]
		if !ok {
			t.Fatalf("no result for %s", key)
		}
		want := []float64{10.5, 21.0, float64(n) + 0.5}
		if diff := cmp.Diff(want, decodeResult(t, f)); diff != "" {
			t.Fatalf("event %s (-want +got):\n%s", key, diff)
		}
		if string(f.Headers[HeaderRunID]) != "run-42" {
			t.Fatalf("run id header: %q", f.Headers[HeaderRunID])
		}
		if f.Checkpoint.Offset != int64(n) {
			t.Fatalf("checkpoint not carried: %v", f.Checkpoint)
		}
	}
}

func TestRunner_FailPolicyStopsOnEventError(t *testing.T) {
	src := &sliceSource{frames: []*frame.Frame{encodeEvent(t, 1, "otherElectrons", 1)}}
	r := newTestRunner(t, src, &captureSink{})

	err := r.Run(context.Background())
	var ee *stage.EventError
	if !errors.As(err, &ee) {
		t.Fatalf("want EventError, got %v", err)
	}
	if ee.Slot != stage.SlotPrimary || ee.Event.Event != 1 || !errors.Is(err, event.ErrProductNotFound) {
		t.Fatalf("unexpected error: %+v", ee)
	}
}

func TestRunner_LogPolicyContinues(t *testing.T) {
	src := &sliceSource{frames: []*frame.Frame{
		encodeEvent(t, 1, "slimmedElectrons", 1),
		{Value: []byte("not json")},
		encodeEvent(t, 3, "otherElectrons", 1),
		encodeEvent(t, 4, "slimmedElectrons", 2),
	}}
	cs := &captureSink{}
	r := newTestRunner(t, src, cs)
	r.SetPolicy(OnErrorLog)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st := r.Stats(); st.Processed != 4 || st.Failed != 2 {
		t.Fatalf("stats: %+v", st)
	}
	if _, ok := cs.pushed["1:2:3"]; ok {
		t.Fatal("failed event was published")
	}
	if len(cs.pushed) != 2 {
		t.Fatalf("want 2 results, got %d", len(cs.pushed))
	}
}

func TestRunner_SinkFailureIsFatal(t *testing.T) {
	boom := errors.New("broker down")
	src := &sliceSource{frames: []*frame.Frame{encodeEvent(t, 1, "slimmedElectrons", 1)}}
	r := newTestRunner(t, src, &captureSink{fail: boom})
	r.SetPolicy(OnErrorLog)

	err := r.Run(context.Background())
	if !errors.Is(err, ErrSink) || !errors.Is(err, boom) {
		t.Fatalf("want sink error, got %v", err)
	}
}

func TestRunner_CancelIsClean(t *testing.T) {
	src := &sliceSource{frames: []*frame.Frame{encodeEvent(t, 1, "slimmedElectrons", 1)}, block: true}
	cs := &captureSink{}
	r := newTestRunner(t, src, cs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for r.Stats().Processed < 1 {
		select {
		case <-deadline:
			t.Fatal("event never processed")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run after cancel: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func withDone(f *frame.Frame, done *atomic.Int64) *frame.Frame {
	f.Done = func() { done.Add(1) }
	return f
}

func TestRunner_CompletesFramesOnlyWhenFinished(t *testing.T) {
	t.Run("published and skipped", func(t *testing.T) {
		var done atomic.Int64
		src := &sliceSource{frames: []*frame.Frame{
			withDone(encodeEvent(t, 1, "slimmedElectrons", 1), &done),
			withDone(&frame.Frame{Value: []byte("not json")}, &done),
		}}
		r := newTestRunner(t, src, &captureSink{})
		r.SetPolicy(OnErrorLog)
		if err := r.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if done.Load() != 2 {
			t.Fatalf("completed %d frames, want 2", done.Load())
		}
	})
	t.Run("sink failure", func(t *testing.T) {
		var done atomic.Int64
		src := &sliceSource{frames: []*frame.Frame{withDone(encodeEvent(t, 1, "slimmedElectrons", 1), &done)}}
		r := newTestRunner(t, src, &captureSink{fail: errors.New("broker down")})
		if err := r.Run(context.Background()); err == nil {
			t.Fatal("expected sink error")
		}
		if done.Load() != 0 {
			t.Fatal("undelivered frame was completed")
		}
	})
	t.Run("event failure under fail policy", func(t *testing.T) {
		var done atomic.Int64
		src := &sliceSource{frames: []*frame.Frame{withDone(encodeEvent(t, 1, "otherElectrons", 1), &done)}}
		r := newTestRunner(t, src, &captureSink{})
		if err := r.Run(context.Background()); err == nil {
			t.Fatal("expected event error")
		}
		if done.Load() != 0 {
			t.Fatal("failed frame was completed")
		}
	})
}

func TestRunner_RequiresSource(t *testing.T) {
	r := NewRunner(offsetStage(t, 0), nil)
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error without source")
	}
}

func TestParseOnError(t *testing.T) {
	for in, want := range map[string]OnError{"": OnErrorFail, "fail": OnErrorFail, "log": OnErrorLog} {
		got, err := ParseOnError(in)
		if err != nil || got != want {
			t.Fatalf("ParseOnError(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOnError("retry"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCompile_FileSourceEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pipeline.yml", `schema_version: v1
source:
  kind: file
  path: events.jsonl
stage:
  config: regresser.yml
  conditions: conditions.yml
workers: 2
on_error: log
sinks: [stdout]
`)
	writeFile(t, dir, "regresser.yml", `primary-input: slimmedElectrons
primary-transform-config:
  modifier-name: EnergyScale
  barrel-label: eb_mean
  endcap-label: ee_mean
`)
	writeFile(t, dir, "conditions.yml", "eb_mean: 2\nee_mean: 3\n")
	writeFile(t, dir, "events.jsonl", `{"id":{"run":1,"lumi":1,"event":7},"collections":{"slimmedElectrons":[{"raw_energy":10,"eta":0.5},{"raw_energy":10,"eta":2.0}]}}
`)

	r, err := Compile(filepath.Join(dir, "pipeline.yml"))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer r.Close()
	if r.policy != OnErrorLog || r.workers != 2 {
		t.Fatalf("policy %q workers %d", r.policy, r.workers)
	}
	if r.Stage().Layout() != stage.PrimaryOnly {
		t.Fatalf("layout %s", r.Stage().Layout())
	}

	cs := &captureSink{}
	r.sinks = []sink.Adapter{cs}
	r.SetLogger(discard)
	r.SetMetrics(telemetry.NewMetrics(prometheus.NewRegistry()))
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	f, ok := cs.pushed["1:1:7"]
	if !ok {
		t.Fatalf("no result: %v", cs.pushed)
	}
	if diff := cmp.Diff([]float64{20, 30}, decodeResult(t, f)); diff != "" {
		t.Fatalf("energies (-want +got):\n%s", diff)
	}
}

func TestCompile_Rejects(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "regresser.yml", "primary-input: slimmedElectrons\n")
	writeFile(t, dir, "events.jsonl", "")
	cases := map[string]string{
		"unknown source": "source: { kind: carrier-pigeon }\nstage: { config: regresser.yml }\nsinks: [stdout]\n",
		"unknown sink":   "source: { kind: file, path: events.jsonl }\nstage: { config: regresser.yml }\nsinks: [fax]\n",
		"no sinks":       "source: { kind: file, path: events.jsonl }\nstage: { config: regresser.yml }\n",
		"bad policy":     "source: { kind: file, path: events.jsonl }\nstage: { config: regresser.yml }\non_error: retry\nsinks: [stdout]\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			writeFile(t, dir, "pipeline.yml", body)
			if r, err := Compile(filepath.Join(dir, "pipeline.yml")); err == nil {
				r.Close()
				t.Fatal("expected error")
			}
		})
	}
}

type closeCounter struct {
	sliceSource
	closed *atomic.Int64
}

func (c *closeCounter) Close() error {
	c.closed.Add(1)
	return nil
}

func TestCompile_ClosesUnconfiguredSource(t *testing.T) {
	var closed atomic.Int64
	source.Register("unconfigurable", func() source.Adapter { return &closeCounter{closed: &closed} })

	dir := t.TempDir()
	writeFile(t, dir, "regresser.yml", "primary-input: slimmedElectrons\n")
	writeFile(t, dir, "pipeline.yml", "source: { kind: unconfigurable }\nstage: { config: regresser.yml }\nsinks: [stdout]\n")

	if r, err := Compile(filepath.Join(dir, "pipeline.yml")); err == nil {
		r.Close()
		t.Fatal("expected error")
	}
	if got := closed.Load(); got != 1 {
		t.Fatalf("source closed %d times", got)
	}
}
