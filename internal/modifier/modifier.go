package modifier

import (
	"github.com/campaneros/TQGenLevelAnalysis/internal/electron"
	"github.com/campaneros/TQGenLevelAnalysis/internal/event"
)

// Corrector applies an event-configured correction to one record in place.
type Corrector interface {
	Modify(ele *electron.Electron) error
}

// CorrectorFunc adapts a function to Corrector.
type CorrectorFunc func(ele *electron.Electron) error

func (f CorrectorFunc) Modify(ele *electron.Electron) error { return f(ele) }

// Modifier is a correction plugin. ForEvent reads whatever per-event and
// conditions data the plugin needs and returns the Corrector for that event.
type Modifier interface {
	ForEvent(ev *event.Event, cond event.Conditions) (Corrector, error)
}

// Factory builds a Modifier from its settings block. Extra read
// dependencies (scalars, collections) are declared on decl.
type Factory func(s Settings, decl *event.Declarations) (Modifier, error)
