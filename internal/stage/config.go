package stage

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/campaneros/TQGenLevelAnalysis/internal/modifier"
)

// Configuration keys.
const (
	KeyLabel              = "label"
	KeyTrace              = "trace"
	KeyPrimaryInput       = "primary-input"
	KeyPrimaryTransform   = "primary-transform-config"
	KeySecondaryInput     = "secondary-input"
	KeySecondaryTransform = "secondary-transform-config"

	// EnvPrefix overrides file values, e.g. REGRESSER_STAGE__PRIMARY_INPUT.
	EnvPrefix = "REGRESSER_STAGE__"
)

// Config is the construction-time input of a Stage. A nil transform means
// the block was absent.
type Config struct {
	Label              string
	PrimaryInput       string
	PrimaryTransform   *modifier.Settings
	SecondaryInput     string
	SecondaryTransform *modifier.Settings
	Trace              bool
}

//go:embed stage.schema.json
var schemaJSON []byte

const schemaURL = "https://tqgenlevelanalysis.local/stage.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add stage schema: %w", err)
	}
	return c.Compile(schemaURL)
})

// ValidateDocument checks a raw YAML (or JSON) stage document against the
// embedded schema.
func ValidateDocument(raw []byte) error {
	var doc any
	if err := yamlv3.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return validateTree(doc)
}

func validateTree(doc any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	// round-trip so the validator sees JSON types only
	js, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var payload any
	if err := json.Unmarshal(js, &payload); err != nil {
		return err
	}
	return schema.Validate(payload)
}

// LoadConfig reads a stage YAML file, applies REGRESSER_STAGE__
// environment overrides, then validates the merged tree.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Config{}, err
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, "__", envValue), nil); err != nil {
		return Config{}, err
	}
	if err := validateTree(k.Raw()); err != nil {
		return Config{}, &ConfigError{Field: path, Err: err}
	}
	return FromKoanf(k), nil
}

// envValue maps the key through envKey and types boolean switches so the
// merged tree validates the same as a file value would.
func envValue(key, value string) (string, any) {
	k := envKey(key)
	if k == KeyTrace {
		if b, err := strconv.ParseBool(value); err == nil {
			return k, b
		}
	}
	return k, value
}

// envKey maps REGRESSER_STAGE__PRIMARY_INPUT to primary-input and
// REGRESSER_STAGE__PRIMARY_TRANSFORM_CONFIG__OFFSET to
// primary-transform-config.offset.
func envKey(s string) string {
	parts := strings.Split(strings.TrimPrefix(s, EnvPrefix), "__")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(strings.ToLower(p), "_", "-")
	}
	return strings.Join(parts, "__")
}

// FromKoanf extracts a Config from an already loaded tree.
func FromKoanf(k *koanf.Koanf) Config {
	cfg := Config{
		Label:          k.String(KeyLabel),
		PrimaryInput:   k.String(KeyPrimaryInput),
		SecondaryInput: k.String(KeySecondaryInput),
		Trace:          k.Bool(KeyTrace),
	}
	if k.Exists(KeyPrimaryTransform) {
		s := modifier.NewSettings(k.Cut(KeyPrimaryTransform))
		cfg.PrimaryTransform = &s
	}
	if k.Exists(KeySecondaryTransform) {
		s := modifier.NewSettings(k.Cut(KeySecondaryTransform))
		cfg.SecondaryTransform = &s
	}
	return cfg
}
