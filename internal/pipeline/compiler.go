package pipeline

import (
	"fmt"

	"github.com/campaneros/TQGenLevelAnalysis/internal/config"
	"github.com/campaneros/TQGenLevelAnalysis/internal/modifier"
	"github.com/campaneros/TQGenLevelAnalysis/internal/spec"
	"github.com/campaneros/TQGenLevelAnalysis/internal/stage"
	"github.com/campaneros/TQGenLevelAnalysis/internal/telemetry"
	"github.com/campaneros/TQGenLevelAnalysis/sink"
	sinkkafka "github.com/campaneros/TQGenLevelAnalysis/sink/kafka"
	"github.com/campaneros/TQGenLevelAnalysis/sink/stdout"
	"github.com/campaneros/TQGenLevelAnalysis/source"
	"github.com/campaneros/TQGenLevelAnalysis/source/file"
	_ "github.com/campaneros/TQGenLevelAnalysis/source/kafka"
)

// Compile reads a pipeline file and wires source, stage and sinks into a
// Runner. Nothing is consumed until Run.
func Compile(path string) (*Runner, error) {
	cfg, err := config.LoadPipelineSpec(path)
	if err != nil {
		return nil, err
	}
	st, err := buildStage(cfg)
	if err != nil {
		return nil, err
	}
	cond, err := config.LoadConditions(cfg.Stage.Conditions)
	if err != nil {
		return nil, err
	}
	policy, err := ParseOnError(cfg.OnError)
	if err != nil {
		return nil, err
	}

	r := NewRunner(st, cond)
	r.SetWorkers(cfg.Workers)
	r.SetPolicy(policy)

	src, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}
	r.SetSource(src)

	for _, name := range cfg.Sinks {
		s, err := buildSink(cfg, name)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		r.AddSink(s)
	}
	if len(r.sinks) == 0 {
		_ = r.Close()
		return nil, fmt.Errorf("pipeline: no sinks configured")
	}
	return r, nil
}

func buildStage(cfg spec.File) (*stage.Stage, error) {
	sc, err := config.LoadStageConfig(cfg.Stage.Config)
	if err != nil {
		return nil, err
	}
	opts := []stage.Option{stage.WithRecordObserver(telemetry.Default.Records)}
	if cfg.Debug.TraceRecords {
		opts = append(opts, stage.WithTrace(true))
	}
	return stage.New(sc, modifier.Default(), opts...)
}

func buildSource(cfg spec.File) (source.Adapter, error) {
	src, err := source.NewAdapter(cfg.Source.Kind)
	if err != nil {
		return nil, err
	}
	switch cfg.Source.Kind {
	case "file":
		err = src.Configure(file.Config{Path: cfg.Source.Path})
	case "kafka":
		kc, lerr := config.LoadKafkaConfig(cfg.Source.Config)
		if lerr != nil {
			err = lerr
			break
		}
		err = src.Configure(kc)
	default:
		err = fmt.Errorf("no config block for source %q", cfg.Source.Kind)
	}
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return src, nil
}

func buildSink(cfg spec.File, name string) (sink.Adapter, error) {
	s, err := sink.NewAdapter(name)
	if err != nil {
		return nil, err
	}
	switch name {
	case "stdout":
		err = s.Configure(stdout.Config{PrintCounter: cfg.Debug.PrintCounter})
	case "kafka":
		kc := cfg.SinkConfigs.Kafka
		err = s.Configure(sinkkafka.Config{
			Brokers: kc.Brokers,
			Topic:   kc.Topic,
			Acks:    kc.RequiredAcks,
			Version: kc.Version,
		})
	default:
		err = fmt.Errorf("no config block for sink %q", name)
	}
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
