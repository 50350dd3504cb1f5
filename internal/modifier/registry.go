package modifier

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/campaneros/TQGenLevelAnalysis/internal/event"
)

var (
	ErrUnknownModifier     = errors.New("modifier: unknown modifier")
	ErrMissingModifierName = errors.New("modifier: missing " + NameKey)
	ErrMissingSetting      = errors.New("modifier: missing setting")
)

// Registry maps modifier names to factories. It is populated at init and
// read-only afterwards.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry { return &Registry{factories: map[string]Factory{}} }

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// New resolves the modifier-name in s and builds the plugin.
func (r *Registry) New(s Settings, decl *event.Declarations) (Modifier, string, error) {
	name, err := s.Name()
	if err != nil {
		return nil, "", err
	}
	f, ok := r.factories[name]
	if !ok {
		return nil, name, fmt.Errorf("%w %q (known: %v)", ErrUnknownModifier, name, r.Names())
	}
	m, err := f(s, decl)
	if err != nil {
		return nil, name, fmt.Errorf("modifier %s: %w", name, err)
	}
	return m, name, nil
}

func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.factories))
}

var std = NewRegistry()

// Register adds a factory to the process-wide registry. Built-ins call it
// from init.
func Register(name string, f Factory) { std.Register(name, f) }

// Default returns the process-wide registry.
func Default() *Registry { return std }
