package stage

import (
	"errors"
	"fmt"

	"github.com/campaneros/TQGenLevelAnalysis/internal/event"
)

var ErrMissingInput = errors.New("stage: missing mandatory input")

// ConfigError is a construction-time failure. It is never retried.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("stage config: %v", e.Err)
	}
	return fmt.Sprintf("stage config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// EventError aborts one event. Index is the record position in the slot's
// input, or -1 when the failure is not tied to a record.
type EventError struct {
	Event event.ID
	Slot  string
	Index int
	Err   error
}

func (e *EventError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("stage: event %s slot %s: %v", e.Event, e.Slot, e.Err)
	}
	return fmt.Sprintf("stage: event %s slot %s record %d: %v", e.Event, e.Slot, e.Index, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }
