package event

import (
	"errors"
	"fmt"
)

var ErrConditionNotFound = errors.New("event: condition not found")

// Conditions is the read-only, process-wide calibration store modifiers
// consult once per event.
type Conditions interface {
	Lookup(label string) (float64, error)
}

// Store is a Conditions backed by a map. It must not be written after it is
// handed to a running stage.
type Store map[string]float64

func (s Store) Lookup(label string) (float64, error) {
	v, ok := s[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrConditionNotFound, label)
	}
	return v, nil
}
