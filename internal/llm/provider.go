// Package llm provides the model collaborators behind a chat session:
// langchaingo providers, Gemini through genai, and an offline echo backend.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/chatterm/internal/chat"
	"github.com/raphaelgruber/chatterm/internal/config"
)

// New builds the collaborator for the configured provider.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (chat.Remote, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("provider", cfg.Provider, "model", cfg.Model)

	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := NewGemini(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.ProviderOllama, config.ProviderOpenAI, config.ProviderAnthropic, config.ProviderBedrock:
		m, err := NewModel(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.ProviderEcho:
		return NewEcho(40 * time.Millisecond), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
