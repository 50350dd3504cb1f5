// Package stage is the electron regression producer. It is assembled once
// from configuration into one or two slots, each binding an input
// collection, a correction plugin and an output collection, and is then
// run once per event.
package stage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/campaneros/TQGenLevelAnalysis/internal/electron"
	"github.com/campaneros/TQGenLevelAnalysis/internal/event"
	"github.com/campaneros/TQGenLevelAnalysis/internal/logging"
	"github.com/campaneros/TQGenLevelAnalysis/internal/modifier"
)

const (
	DefaultLabel    = "regressionForEle"
	PrimaryOutput   = "regressedElectrons"
	SecondaryOutput = "regressedLowPtElectrons"

	SlotPrimary   = "primary"
	SlotSecondary = "secondary"
)

// Layout is the slot arrangement chosen at construction.
type Layout int

const (
	PrimaryOnly Layout = iota + 1
	PrimaryAndSecondary
)

func (l Layout) String() string {
	switch l {
	case PrimaryOnly:
		return "primary-only"
	case PrimaryAndSecondary:
		return "primary+secondary"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

type slot struct {
	name    string
	input   event.Tag
	output  event.Tag
	modName string
	mod     modifier.Modifier
}

// SlotInfo describes an active slot.
type SlotInfo struct {
	Name     string
	Input    event.Tag
	Output   event.Tag
	Modifier string
}

// RecordObserver is told how many records a slot published for an event.
type RecordObserver func(slot string, n int)

type Option func(*Stage)

func WithLogger(l *slog.Logger) Option { return func(s *Stage) { s.log = l } }

func WithRecordObserver(fn RecordObserver) Option { return func(s *Stage) { s.observe = fn } }

// WithTrace forces record tracing on regardless of the config value.
func WithTrace(on bool) Option { return func(s *Stage) { s.trace = on } }

// Stage holds only construction-time state; Produce may be called
// concurrently for different events.
type Stage struct {
	label   string
	layout  Layout
	slots   []slot
	decl    *event.Declarations
	trace   bool
	log     *slog.Logger
	observe RecordObserver
}

// New assembles the stage. The registry resolves modifier-name values; nil
// means modifier.Default().
func New(cfg Config, reg *modifier.Registry, opts ...Option) (*Stage, error) {
	if reg == nil {
		reg = modifier.Default()
	}
	label := cfg.Label
	if label == "" {
		label = DefaultLabel
	}
	s := &Stage{
		label: label,
		decl:  event.NewDeclarations(label),
		trace: cfg.Trace,
	}
	for _, o := range opts {
		o(s)
	}

	if cfg.PrimaryInput == "" {
		return nil, &ConfigError{Field: KeyPrimaryInput, Err: ErrMissingInput}
	}
	primary, err := s.buildSlot(reg, SlotPrimary, KeyPrimaryInput, cfg.PrimaryInput, KeyPrimaryTransform, cfg.PrimaryTransform, PrimaryOutput)
	if err != nil {
		return nil, err
	}
	s.slots, s.layout = []slot{primary}, PrimaryOnly

	switch {
	case cfg.SecondaryInput != "" && cfg.SecondaryTransform != nil:
		secondary, err := s.buildSlot(reg, SlotSecondary, KeySecondaryInput, cfg.SecondaryInput, KeySecondaryTransform, cfg.SecondaryTransform, SecondaryOutput)
		if err != nil {
			return nil, err
		}
		s.slots, s.layout = append(s.slots, secondary), PrimaryAndSecondary
	case cfg.SecondaryInput != "":
		s.logger().Warn("secondary slot disabled: no transform config", "label", label, "input", cfg.SecondaryInput)
	case cfg.SecondaryTransform != nil:
		s.logger().Warn("secondary slot disabled: no input", "label", label)
	}

	s.logger().Info("regression stage assembled", "label", label, "layout", s.layout.String())
	return s, nil
}

func (s *Stage) buildSlot(reg *modifier.Registry, name, inKey, in, cfgKey string, settings *modifier.Settings, instance string) (slot, error) {
	tag, err := event.ParseTag(in)
	if err != nil {
		return slot{}, &ConfigError{Field: inKey, Err: err}
	}
	sl := slot{name: name, input: tag}
	s.decl.Consumes(tag)

	if settings == nil {
		// no transform block: records pass through untouched
		sl.mod, sl.modName = modifier.Identity{}, modifier.IdentityName
		s.logger().Warn("slot has no transform config; passing records through", "slot", name)
	} else {
		sl.mod, sl.modName, err = reg.New(*settings, s.decl)
		if err != nil {
			return slot{}, &ConfigError{Field: cfgKey, Err: err}
		}
	}

	if sl.output, err = s.decl.Produces(instance); err != nil {
		return slot{}, &ConfigError{Field: cfgKey, Err: err}
	}
	return sl, nil
}

func (s *Stage) logger() *slog.Logger {
	if s.log != nil {
		return s.log
	}
	return logging.L()
}

func (s *Stage) Label() string { return s.label }
func (s *Stage) Layout() Layout { return s.layout }
func (s *Stage) Declarations() *event.Declarations { return s.decl }

func (s *Stage) Slots() []SlotInfo {
	out := make([]SlotInfo, len(s.slots))
	for i, sl := range s.slots {
		out[i] = SlotInfo{Name: sl.name, Input: sl.input, Output: sl.output, Modifier: sl.modName}
	}
	return out
}

// Describe renders the assembled stage for humans.
func (s *Stage) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "label:  %s\n", s.label)
	fmt.Fprintf(&b, "layout: %s\n", s.layout)
	for _, sl := range s.slots {
		fmt.Fprintf(&b, "slot %-9s %s -> %s [%s]\n", sl.name+":", sl.input, sl.output, sl.modName)
	}
	if sc := s.decl.Scalars(); len(sc) > 0 {
		names := make([]string, len(sc))
		for i, t := range sc {
			names[i] = t.String()
		}
		fmt.Fprintf(&b, "scalars: %s\n", strings.Join(names, ", "))
	}
	return b.String()
}

// Produce runs every active slot on ev and puts their outputs. Outputs are
// committed only after all slots succeeded, so a failed event carries no
// products from this stage.
func (s *Stage) Produce(ev *event.Event, cond event.Conditions) error {
	staged := make([]electron.Collection, len(s.slots))
	for i := range s.slots {
		out, err := s.run(&s.slots[i], ev, cond)
		if err != nil {
			return err
		}
		staged[i] = out
	}
	for i := range s.slots {
		sl := &s.slots[i]
		if err := ev.Put(sl.output, staged[i]); err != nil {
			return &EventError{Event: ev.ID, Slot: sl.name, Index: -1, Err: err}
		}
		if s.observe != nil {
			s.observe(sl.name, len(staged[i]))
		}
	}
	return nil
}

func (s *Stage) run(sl *slot, ev *event.Event, cond event.Conditions) (electron.Collection, error) {
	in, err := ev.Get(sl.input)
	if err != nil {
		return nil, &EventError{Event: ev.ID, Slot: sl.name, Index: -1, Err: err}
	}
	corr, err := sl.mod.ForEvent(ev, cond)
	if err != nil {
		return nil, &EventError{Event: ev.ID, Slot: sl.name, Index: -1, Err: fmt.Errorf("%s: %w", sl.modName, err)}
	}

	out := make(electron.Collection, 0, len(in))
	for i, ele := range in {
		if s.trace {
			s.traceRecord(ev, sl, i, "pre", &ele)
		}
		if err := corr.Modify(&ele); err != nil {
			return nil, &EventError{Event: ev.ID, Slot: sl.name, Index: i, Err: fmt.Errorf("%s: %w", sl.modName, err)}
		}
		if s.trace {
			s.traceRecord(ev, sl, i, "post", &ele)
		}
		out = append(out, ele)
	}
	return out, nil
}

func (s *Stage) traceRecord(ev *event.Event, sl *slot, i int, phase string, ele *electron.Electron) {
	s.logger().Debug("electron regression",
		"event", ev.ID.Event,
		"slot", sl.name,
		"phase", phase,
		"index", i,
		"raw_energy", ele.RawEnergy,
		"energy", ele.Energy,
		"track_chi2", ele.TrackChi2,
		"p", ele.P,
	)
}
