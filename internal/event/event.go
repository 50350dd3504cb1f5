// Package event models one unit of work handed to the regression stage:
// named electron collections, per-event scalars, and the products the stage
// publishes back. Nothing in this package is shared across events.
package event

import (
	"errors"
	"fmt"

	"github.com/campaneros/TQGenLevelAnalysis/internal/electron"
)

var (
	ErrProductNotFound  = errors.New("event: product not found")
	ErrDuplicateProduct = errors.New("event: product already put")
	ErrDuplicateInput   = errors.New("event: input key repeated")
)

// ID identifies an event within a dataset.
type ID struct {
	Run   uint64 `json:"run"`
	Lumi  uint64 `json:"lumi"`
	Event uint64 `json:"event"`
}

func (id ID) String() string { return fmt.Sprintf("%d:%d:%d", id.Run, id.Lumi, id.Event) }

type Event struct {
	ID ID

	collections map[string]electron.Collection
	scalars     map[string]float64
	products    map[string]electron.Collection
}

func New(id ID) *Event {
	return &Event{
		ID:          id,
		collections: map[string]electron.Collection{},
		scalars:     map[string]float64{},
		products:    map[string]electron.Collection{},
	}
}

// AddCollection stores an input collection under tag. Used by decoders and
// tests; the stage itself only reads inputs.
func (e *Event) AddCollection(tag Tag, c electron.Collection) {
	e.collections[tag.String()] = c
}

func (e *Event) AddScalar(tag Tag, v float64) {
	e.scalars[tag.String()] = v
}

// Get returns the input collection for tag. The returned slice belongs to
// the event and must not be modified.
func (e *Event) Get(tag Tag) (electron.Collection, error) {
	c, ok := e.collections[tag.String()]
	if !ok {
		return nil, fmt.Errorf("%w: collection %q", ErrProductNotFound, tag)
	}
	return c, nil
}

func (e *Event) Scalar(tag Tag) (float64, error) {
	v, ok := e.scalars[tag.String()]
	if !ok {
		return 0, fmt.Errorf("%w: scalar %q", ErrProductNotFound, tag)
	}
	return v, nil
}

// Put publishes c under tag. The event takes ownership of c.
func (e *Event) Put(tag Tag, c electron.Collection) error {
	key := tag.String()
	if _, ok := e.products[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateProduct, key)
	}
	e.products[key] = c
	return nil
}

// Products returns everything put so far, keyed by tag string.
func (e *Event) Products() map[string]electron.Collection { return e.products }
