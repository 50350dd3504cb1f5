package event

import (
	"fmt"
	"strings"
)

// Tag names a product in the event as label[:instance[:process]], e.g.
// "slimmedElectrons" or "regressionForEle:regressedElectrons".
type Tag struct {
	Label    string
	Instance string
	Process  string
}

func ParseTag(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return Tag{}, fmt.Errorf("event: malformed tag %q", s)
	}
	t := Tag{Label: parts[0]}
	if len(parts) > 1 {
		t.Instance = parts[1]
	}
	if len(parts) > 2 {
		t.Process = parts[2]
	}
	if t.Label == "" {
		return Tag{}, fmt.Errorf("event: tag %q has no label", s)
	}
	return t, nil
}

// MustTag is ParseTag for literals known to be valid.
func MustTag(s string) Tag {
	t, err := ParseTag(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Tag) String() string {
	switch {
	case t.Process != "":
		return t.Label + ":" + t.Instance + ":" + t.Process
	case t.Instance != "":
		return t.Label + ":" + t.Instance
	default:
		return t.Label
	}
}
