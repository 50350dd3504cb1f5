package sink

import (
	"fmt"

	"github.com/campaneros/TQGenLevelAnalysis/internal/frame"
)

// Adapter is the common behaviour every sink exposes. Push is called from
// several pipeline workers at once and must be safe for concurrent use.
type Adapter interface {
	Configure(any) error     // driver-specific YAML ⇒ struct
	Push(*frame.Frame) error // consume one result frame
	Close() error            // idempotent
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}
