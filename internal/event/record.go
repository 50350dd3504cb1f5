package event

import (
	"encoding/json"
	"fmt"

	"github.com/campaneros/TQGenLevelAnalysis/internal/electron"
)

// Record is the JSON wire form of an event: one document per event on the
// way in (inputs) and on the way out (products).
type Record struct {
	ID          ID                             `json:"id"`
	Collections map[string]electron.Collection `json:"collections"`
	Scalars     map[string]float64             `json:"scalars,omitempty"`
}

// Decode parses one encoded event. Collection and scalar keys are parsed as
// tags so "label" and "label:" address the same product; a document that
// spells one tag two ways is rejected.
func Decode(raw []byte) (*Event, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("event: decode: %w", err)
	}
	ev := New(rec.ID)
	seen := make(map[string]string, len(rec.Collections))
	for k, c := range rec.Collections {
		tag, err := parseInputKey(seen, k)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", rec.ID, err)
		}
		ev.AddCollection(tag, c)
	}
	clear(seen)
	for k, v := range rec.Scalars {
		tag, err := parseInputKey(seen, k)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", rec.ID, err)
		}
		ev.AddScalar(tag, v)
	}
	return ev, nil
}

func parseInputKey(seen map[string]string, k string) (Tag, error) {
	tag, err := ParseTag(k)
	if err != nil {
		return Tag{}, err
	}
	norm := tag.String()
	if prev, ok := seen[norm]; ok {
		return Tag{}, fmt.Errorf("%w: %q and %q", ErrDuplicateInput, prev, k)
	}
	seen[norm] = k
	return tag, nil
}

// Result is the products of ev in wire form.
func (e *Event) Result() Record {
	out := make(map[string]electron.Collection, len(e.products))
	for k, c := range e.products {
		if c == nil {
			c = electron.Collection{}
		}
		out[k] = c
	}
	return Record{ID: e.ID, Collections: out}
}

func Encode(rec Record) ([]byte, error) {
	return json.Marshal(rec)
}
