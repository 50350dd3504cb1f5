package source

import (
	"context"
	"fmt"

	"github.com/campaneros/TQGenLevelAnalysis/internal/frame"
)

// EmitFunc hands one frame to the pipeline. It blocks while the pipeline
// is saturated and fails once ctx is done.
type EmitFunc func(context.Context, *frame.Frame) error

// Adapter is the common behaviour every source exposes.
type Adapter interface {
	Configure(any) error
	// Run emits frames until the source is exhausted (nil) or ctx ends.
	Run(context.Context, EmitFunc) error
	Close() error
}

// Factory builds an Adapter (file, kafka, …).
type Factory func() Adapter

var registry = map[string]Factory{}

// Register is called from each driver's init().
func Register(kind string, f Factory) {
	registry[kind] = f
}

func NewAdapter(kind string) (Adapter, error) {
	if f, ok := registry[kind]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("source: unsupported kind %q", kind)
}
