package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raphaelgruber/chatterm/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CHATTERM_CONFIG", "CHATTERM_PROVIDER", "CHATTERM_MODEL", "CHATTERM_IMAGE_MODEL",
		"CHATTERM_SYSTEM_PROMPT", "GEMINI_API_KEY", "GOOGLE_API_KEY", "GOOGLE_GENAI_USE_VERTEXAI",
		"GOOGLE_CLOUD_PROJECT", "GOOGLE_CLOUD_LOCATION", "OLLAMA_HOST", "OPENAI_API_KEY",
		"ANTHROPIC_API_KEY", "CHATTERM_REQUEST_TIMEOUT", "CHATTERM_SERVER_ADDR",
		"CHATTERM_LOG_FILE", "CHATTERM_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Model)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, chat.DefaultTexts(), cfg.Texts)
	assert.Equal(t, chat.DefaultClassifier(), cfg.Classifier())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHATTERM_PROVIDER", "OLLAMA")
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("CHATTERM_REQUEST_TIMEOUT", "45s")
	t.Setenv("CHATTERM_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "llama3.2", cfg.Model)
	assert.Equal(t, "http://gpu-box:11434", cfg.OllamaHost)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "chatterm.yaml")
	content := `
provider: openai
model: gpt-4.1
request_timeout: 30s
log_level: warn
messages:
  greeting: "Halo! Ada yang bisa saya bantu?"
intent:
  prefixes: ["paint "]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CHATTERM_MODEL", "gpt-4o")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.Model, "env wins over file")
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "Halo! Ada yang bisa saya bantu?", cfg.Texts.Greeting)
	assert.Equal(t, chat.DefaultTexts().ResetNotice, cfg.Texts.ResetNotice, "unset texts keep defaults")
	assert.Equal(t, []string{"paint "}, cfg.Intent.Prefixes)
	assert.Equal(t, chat.DefaultImagePhrases, cfg.Intent.Phrases)
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("provider: [unterminated"), 0o600))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"gemini with key", func(c *Config) { c.GeminiAPIKey = "k" }, false},
		{"gemini without key", func(c *Config) {}, true},
		{"gemini vertex with project", func(c *Config) { c.GeminiVertex = true; c.GCPProject = "p" }, false},
		{"gemini vertex without project", func(c *Config) { c.GeminiVertex = true }, true},
		{"openai without key", func(c *Config) { c.Provider = ProviderOpenAI }, true},
		{"anthropic with key", func(c *Config) { c.Provider = ProviderAnthropic; c.AnthropicAPIKey = "k" }, false},
		{"ollama", func(c *Config) { c.Provider = ProviderOllama }, false},
		{"bedrock", func(c *Config) { c.Provider = ProviderBedrock }, false},
		{"echo", func(c *Config) { c.Provider = ProviderEcho }, false},
		{"unknown provider", func(c *Config) { c.Provider = "palm" }, true},
		{"negative timeout", func(c *Config) { c.Provider = ProviderEcho; c.RequestTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("request completed", "request_id", "abc")

	assert.Contains(t, stderr.String(), "request completed")
	assert.NotContains(t, stderr.String(), "hidden")
	assert.True(t, strings.HasPrefix(file.String(), "{"), "file output is JSON")
	assert.Contains(t, file.String(), `"request_id":"abc"`)
}

func TestSetupLoggerFileOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatterm.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo, false)
	logger.Info("tui started")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tui started")
}
