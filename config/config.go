// Package config provides application settings for gadget-assisted
// generation, loaded from an optional YAML file with environment variable
// overrides.
//
// Settings are created via Load() which handles:
// - YAML file parsing (the file is optional)
// - Environment variable overrides with validation
// - Default value application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings holds all application configuration.
type Settings struct {
	Model   ModelConfig   `yaml:"model"`
	Engine  EngineConfig  `yaml:"engine"`
	Gadgets []string      `yaml:"gadgets"`
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig holds generation model configuration.
type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	Temperature float64 `yaml:"temperature"`
}

// EngineConfig holds generation loop configuration.
type EngineConfig struct {
	MaxTokens          int `yaml:"max_tokens"`
	MinTokens          int `yaml:"min_tokens"`
	MaxParallelGadgets int `yaml:"max_parallel_gadgets"`
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// Default returns the settings used when no file and no overrides exist.
func Default() Settings {
	return Settings{
		Model: ModelConfig{
			Provider:    "openai",
			Name:        "gpt-4o-mini",
			Temperature: 0.0,
		},
		Engine: EngineConfig{
			MaxTokens:          1000,
			MaxParallelGadgets: 4,
		},
		Gadgets: []string{"calculator"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds Settings from defaults, an optional YAML file at path and
// environment variable overrides, in that order of precedence. An empty
// path skips the file entirely; a missing file at a non-empty path is an
// error.
func Load(path string) (Settings, error) {
	settings := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&settings); err != nil {
		return Settings{}, err
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Validate checks cross-field constraints the YAML schema cannot express.
func (s Settings) Validate() error {
	if s.Engine.MaxTokens <= 0 {
		return fmt.Errorf("engine.max_tokens must be positive, got %d", s.Engine.MaxTokens)
	}
	if s.Engine.MinTokens < 0 {
		return fmt.Errorf("engine.min_tokens must not be negative, got %d", s.Engine.MinTokens)
	}
	if s.Engine.MinTokens > s.Engine.MaxTokens {
		return fmt.Errorf("engine.min_tokens (%d) exceeds engine.max_tokens (%d)", s.Engine.MinTokens, s.Engine.MaxTokens)
	}
	if s.Model.Temperature < 0 || s.Model.Temperature > 2 {
		return fmt.Errorf("model.temperature must be in [0, 2], got %g", s.Model.Temperature)
	}
	switch s.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", s.Logging.Format)
	}
	return nil
}

// APIKeyEnv maps a provider to the environment variable carrying its key.
var apiKeyEnvs = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	envName, ok := apiKeyEnvs[strings.ToLower(provider)]
	if !ok {
		return "", fmt.Errorf("unknown provider: %q", provider)
	}
	key := os.Getenv(envName)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", envName)
	}
	return key, nil
}

func applyEnvOverrides(s *Settings) error {
	if v := os.Getenv("GADGETMESH_MODEL_PROVIDER"); v != "" {
		s.Model.Provider = v
	}
	if v := os.Getenv("GADGETMESH_MODEL_NAME"); v != "" {
		s.Model.Name = v
	}
	if v, err := getEnvFloat64("GADGETMESH_TEMPERATURE", s.Model.Temperature); err != nil {
		return err
	} else {
		s.Model.Temperature = v
	}
	if v, err := getEnvInt("GADGETMESH_MAX_TOKENS", s.Engine.MaxTokens); err != nil {
		return err
	} else {
		s.Engine.MaxTokens = v
	}
	if v, err := getEnvInt("GADGETMESH_MIN_TOKENS", s.Engine.MinTokens); err != nil {
		return err
	} else {
		s.Engine.MinTokens = v
	}
	if v, err := getEnvInt("GADGETMESH_MAX_PARALLEL_GADGETS", s.Engine.MaxParallelGadgets); err != nil {
		return err
	} else {
		s.Engine.MaxParallelGadgets = v
	}
	if v := os.Getenv("GADGETMESH_GADGETS"); v != "" {
		s.Gadgets = strings.Split(v, ",")
	}
	if v := os.Getenv("GADGETMESH_LOG_LEVEL"); v != "" {
		s.Logging.Level = v
	}
	if v := os.Getenv("GADGETMESH_LOG_FORMAT"); v != "" {
		s.Logging.Format = v
	}
	return nil
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}
