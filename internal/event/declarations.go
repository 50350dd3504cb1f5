package event

import "fmt"

// Declarations records what a producer reads and writes. It is filled while
// the producer is constructed and frozen before the first event.
type Declarations struct {
	label   string
	inputs  []Tag
	scalars []Tag
	outputs []Tag
}

// NewDeclarations starts an empty declaration set for the producer label.
// Outputs are published as label:instance.
func NewDeclarations(label string) *Declarations {
	return &Declarations{label: label}
}

func (d *Declarations) Label() string { return d.label }

func (d *Declarations) Consumes(t Tag) { d.inputs = append(d.inputs, t) }

func (d *Declarations) ConsumesScalar(t Tag) { d.scalars = append(d.scalars, t) }

// Produces declares an output instance and returns the fully qualified tag
// it will be published under.
func (d *Declarations) Produces(instance string) (Tag, error) {
	t := Tag{Label: d.label, Instance: instance}
	for _, o := range d.outputs {
		if o == t {
			return Tag{}, fmt.Errorf("event: output %q declared twice", t)
		}
	}
	d.outputs = append(d.outputs, t)
	return t, nil
}

func (d *Declarations) Inputs() []Tag  { return append([]Tag(nil), d.inputs...) }
func (d *Declarations) Scalars() []Tag { return append([]Tag(nil), d.scalars...) }
func (d *Declarations) Outputs() []Tag { return append([]Tag(nil), d.outputs...) }
