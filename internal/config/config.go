// Package config resolves chatterm settings from defaults, an optional YAML
// file, and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/raphaelgruber/chatterm/internal/chat"
	"gopkg.in/yaml.v3"
)

// Provider selects the model backend.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
	ProviderEcho      Provider = "echo"
)

// Default models per provider, used when no model is configured.
var defaultModels = map[Provider]string{
	ProviderGemini:    "gemini-2.5-flash",
	ProviderOllama:    "llama3.2",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderBedrock:   "anthropic.claude-3-haiku-20240307-v1:0",
	ProviderEcho:      "echo",
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all configuration values.
type Config struct {
	// Model backend
	Provider     Provider `yaml:"provider"`
	Model        string   `yaml:"model"`
	ImageModel   string   `yaml:"image_model"`
	SystemPrompt string   `yaml:"system_prompt"`

	// Credentials and endpoints
	GeminiAPIKey    string `yaml:"-"`
	GeminiVertex    bool   `yaml:"gemini_vertex"`
	GCPProject      string `yaml:"gcp_project"`
	GCPLocation     string `yaml:"gcp_location"`
	OllamaHost      string `yaml:"ollama_host"`
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`

	// Per-request timeout for remote calls. Zero disables it.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Websocket server
	ServerAddr string `yaml:"server_addr"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`

	// Session behaviour
	Texts  chat.Texts   `yaml:"messages"`
	Intent IntentConfig `yaml:"intent"`
}

// IntentConfig overrides the image-request heuristics.
type IntentConfig struct {
	Prefixes []string `yaml:"prefixes"`
	Phrases  []string `yaml:"phrases"`
}

// fileConfig mirrors the YAML layout; log level is a string there.
type fileConfig struct {
	Config   `yaml:",inline"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Provider:       ProviderGemini,
		ImageModel:     "imagen-3.0-generate-002",
		GCPLocation:    "us-central1",
		OllamaHost:     "http://localhost:11434",
		RequestTimeout: 2 * time.Minute,
		ServerAddr:     "localhost:8585",
		LogFile:        "/tmp/chatterm.log",
		LogLevel:       slog.LevelInfo,
		Texts:          chat.DefaultTexts(),
		Intent: IntentConfig{
			Prefixes: chat.DefaultImagePrefixes,
			Phrases:  chat.DefaultImagePhrases,
		},
	}
}

// Load builds the configuration. path may be empty; otherwise the YAML file
// at path is merged over the defaults before environment variables apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CHATTERM_CONFIG")
	}
	if path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Provider]
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := fileConfig{Config: *cfg}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if fc.LogLevel != "" {
		fc.Config.LogLevel = parseLogLevel(fc.LogLevel)
	}

	*cfg = fc.Config
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Provider = Provider(strings.ToLower(getEnv("CHATTERM_PROVIDER", string(cfg.Provider))))
	cfg.Model = getEnv("CHATTERM_MODEL", cfg.Model)
	cfg.ImageModel = getEnv("CHATTERM_IMAGE_MODEL", cfg.ImageModel)
	cfg.SystemPrompt = getEnv("CHATTERM_SYSTEM_PROMPT", cfg.SystemPrompt)

	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", cfg.GeminiAPIKey))
	cfg.GeminiVertex = getBoolEnv("GOOGLE_GENAI_USE_VERTEXAI", cfg.GeminiVertex)
	cfg.GCPProject = getEnv("GOOGLE_CLOUD_PROJECT", cfg.GCPProject)
	cfg.GCPLocation = getEnv("GOOGLE_CLOUD_LOCATION", cfg.GCPLocation)
	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)

	if v := os.Getenv("CHATTERM_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}

	cfg.ServerAddr = getEnv("CHATTERM_SERVER_ADDR", cfg.ServerAddr)
	cfg.LogFile = getEnv("CHATTERM_LOG_FILE", cfg.LogFile)
	if v := os.Getenv("CHATTERM_LOG_LEVEL"); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
}

// Validate checks that the selected provider is known and has credentials.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiVertex {
			if c.GCPProject == "" {
				return fmt.Errorf("%w: GOOGLE_CLOUD_PROJECT required for Vertex AI", ErrInvalidConfig)
			}
		} else if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY required for provider %s", ErrInvalidConfig, c.Provider)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY required for provider %s", ErrInvalidConfig, c.Provider)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("%w: ANTHROPIC_API_KEY required for provider %s", ErrInvalidConfig, c.Provider)
		}
	case ProviderOllama, ProviderBedrock, ProviderEcho:
	default:
		return fmt.Errorf("%w: unsupported provider %q", ErrInvalidConfig, c.Provider)
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("%w: negative request timeout", ErrInvalidConfig)
	}
	return nil
}

// Classifier builds the intent classifier from the configured heuristics.
func (c Config) Classifier() chat.Classifier {
	return chat.Classifier{
		Prefixes: c.Intent.Prefixes,
		Phrases:  c.Intent.Phrases,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
