package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/raphaelgruber/chatterm/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// Model wraps a langchaingo LLM as a chat collaborator.
// The conversation history lives here, client side, and is dropped by
// ResetConversation.
type Model struct {
	llm       llms.Model
	modelName string
	system    string
	logger    *slog.Logger

	mu      sync.Mutex
	history []llms.MessageContent
	gen     uint64 // bumped on reset; stale turns are not recorded
}

// NewModel creates a langchaingo-backed model for the configured provider.
func NewModel(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderBedrock:
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx)
		if awsErr != nil {
			return nil, fmt.Errorf("load AWS config: %w", awsErr)
		}
		model, err = bedrock.New(
			bedrock.WithModel(cfg.Model),
			bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return NewModelFromLLM(model, cfg.Model, cfg.SystemPrompt, logger), nil
}

// NewModelFromLLM wraps an existing langchaingo model.
func NewModelFromLLM(model llms.Model, modelName, systemPrompt string, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{
		llm:       model,
		modelName: modelName,
		system:    systemPrompt,
		logger:    logger,
	}
}

// StreamText sends prompt with the conversation so far and streams the reply.
// Providers that ignore the streaming option deliver the whole reply as one chunk.
func (m *Model) StreamText(ctx context.Context, prompt string, onChunk func(chunk string)) error {
	m.mu.Lock()
	gen := m.gen
	turn := llms.TextParts(llms.ChatMessageTypeHuman, prompt)
	messages := append(slices.Clone(m.history), turn)
	m.mu.Unlock()

	if m.system != "" {
		messages = append([]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, m.system)}, messages...)
	}

	var streamed bool
	resp, err := m.llm.GenerateContent(ctx, messages,
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			streamed = true
			onChunk(string(chunk))
			return nil
		}),
	)
	if err != nil {
		return wrapFatalError(fmt.Errorf("stream %s: %w", m.modelName, err))
	}
	if len(resp.Choices) == 0 {
		return errors.New("no response choices")
	}

	reply := resp.Choices[0].Content
	if !streamed && reply != "" {
		onChunk(reply)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		m.logger.Debug("conversation reset during stream, turn not recorded", "model", m.modelName)
		return nil
	}
	m.history = append(m.history, turn, llms.TextParts(llms.ChatMessageTypeAI, reply))
	return nil
}

// GenerateImage is not supported by text-only providers; it reports an empty
// result so the session shows its "could not generate" message.
func (m *Model) GenerateImage(ctx context.Context, prompt string) (string, error) {
	m.logger.Info("image generation not supported by provider", "model", m.modelName)
	return "", nil
}

// ResetConversation drops the client-side history.
func (m *Model) ResetConversation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
	m.gen++
}

// Turns returns the number of recorded messages in the history.
func (m *Model) Turns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}
