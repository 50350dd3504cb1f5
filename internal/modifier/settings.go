package modifier

import (
	"fmt"

	"github.com/knadh/koanf/v2"
)

// NameKey is the settings key carrying the plugin implementation name.
const NameKey = "modifier-name"

// Settings is an opaque plugin configuration block.
type Settings struct {
	k *koanf.Koanf
}

// NewSettings wraps a koanf subtree, typically k.Cut("<block>").
func NewSettings(k *koanf.Koanf) Settings { return Settings{k: k} }

// SettingsFromMap builds Settings from flat or dotted keys.
func SettingsFromMap(m map[string]any) (Settings, error) {
	k := koanf.New(".")
	for key, v := range m {
		if err := k.Set(key, v); err != nil {
			return Settings{}, fmt.Errorf("modifier settings: %s: %w", key, err)
		}
	}
	return NewSettings(k), nil
}

func (s Settings) ko() *koanf.Koanf {
	if s.k == nil {
		return koanf.New(".")
	}
	return s.k
}

// Name returns the modifier-name value, or ErrMissingModifierName.
func (s Settings) Name() (string, error) {
	k := s.ko()
	if !k.Exists(NameKey) {
		return "", ErrMissingModifierName
	}
	name := k.String(NameKey)
	if name == "" {
		return "", ErrMissingModifierName
	}
	return name, nil
}

func (s Settings) Exists(key string) bool { return s.ko().Exists(key) }
func (s Settings) String(key string) string { return s.ko().String(key) }
func (s Settings) Float64(key string) float64 { return s.ko().Float64(key) }
func (s Settings) Bool(key string) bool { return s.ko().Bool(key) }
func (s Settings) Keys() []string { return s.ko().Keys() }
func (s Settings) Raw() map[string]interface{} { return s.ko().Raw() }

// RequireString returns the value for key or an error naming the key.
func (s Settings) RequireString(key string) (string, error) {
	if !s.Exists(key) || s.String(key) == "" {
		return "", fmt.Errorf("%w: %q", ErrMissingSetting, key)
	}
	return s.String(key), nil
}

func (s Settings) RequireFloat64(key string) (float64, error) {
	if !s.Exists(key) {
		return 0, fmt.Errorf("%w: %q", ErrMissingSetting, key)
	}
	return s.Float64(key), nil
}
