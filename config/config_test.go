package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	settings, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai", settings.Model.Provider)
	assert.Equal(t, 1000, settings.Engine.MaxTokens)
	assert.Equal(t, []string{"calculator"}, settings.Gadgets)
	assert.Equal(t, "info", settings.Logging.Level)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
model:
  provider: anthropic
  name: claude-sonnet-4-20250514
  temperature: 0.3
engine:
  max_tokens: 512
gadgets:
  - calculator
  - search
logging:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", settings.Model.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", settings.Model.Name)
	assert.InDelta(t, 0.3, settings.Model.Temperature, 1e-9)
	assert.Equal(t, 512, settings.Engine.MaxTokens)
	assert.Equal(t, []string{"calculator", "search"}, settings.Gadgets)
	assert.Equal(t, "text", settings.Logging.Format)
	// Untouched fields keep their defaults.
	assert.Equal(t, 4, settings.Engine.MaxParallelGadgets)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GADGETMESH_MODEL_NAME", "gpt-4o")
	t.Setenv("GADGETMESH_MAX_TOKENS", "256")
	t.Setenv("GADGETMESH_GADGETS", "calculator,datetime")

	settings, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", settings.Model.Name)
	assert.Equal(t, 256, settings.Engine.MaxTokens)
	assert.Equal(t, []string{"calculator", "datetime"}, settings.Gadgets)
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("GADGETMESH_MAX_TOKENS", "many")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GADGETMESH_MAX_TOKENS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		ok     bool
	}{
		{"defaults", func(*Settings) {}, true},
		{"zero max tokens", func(s *Settings) { s.Engine.MaxTokens = 0 }, false},
		{"negative min tokens", func(s *Settings) { s.Engine.MinTokens = -1 }, false},
		{"min exceeds max", func(s *Settings) { s.Engine.MinTokens = 2000 }, false},
		{"temperature too high", func(s *Settings) { s.Model.Temperature = 3 }, false},
		{"bad log format", func(s *Settings) { s.Logging.Format = "xml" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(&s)
			err := s.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAPIKeyFor(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	key, err := APIKeyFor("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)

	_, err = APIKeyFor("unknown")
	assert.Error(t, err)
}
