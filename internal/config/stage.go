package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/campaneros/TQGenLevelAnalysis/internal/event"
	"github.com/campaneros/TQGenLevelAnalysis/internal/stage"
)

// LoadStageConfig delegates to the stage loader.
func LoadStageConfig(path string) (stage.Config, error) {
	return stage.LoadConfig(path)
}

// LoadConditions reads a YAML file of numeric calibration constants. Nested
// maps flatten to dotted labels. An empty path yields an empty store.
func LoadConditions(path string) (event.Store, error) {
	store := event.Store{}
	if path == "" {
		return store, nil
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("conditions: %w", err)
		}
		return nil, err
	}
	for key, v := range k.All() {
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("conditions: %q is not numeric (%T)", key, v)
		}
		store[key] = f
	}
	return store, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
