package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/raphaelgruber/chatterm/internal/config"
	"github.com/raphaelgruber/chatterm/internal/media"
	"google.golang.org/genai"
)

// Gemini serves text through a server-tracked genai chat session and
// images through the Imagen models.
type Gemini struct {
	client     *genai.Client
	model      string
	imageModel string
	chatConfig *genai.GenerateContentConfig
	logger     *slog.Logger

	mu   sync.Mutex
	chat *genai.Chat // nil until the first message or after a reset
}

// NewGemini creates a Gemini collaborator using the Gemini API or Vertex AI.
func NewGemini(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.GeminiVertex {
		cc = &genai.ClientConfig{
			Project:  cfg.GCPProject,
			Location: cfg.GCPLocation,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	var chatConfig *genai.GenerateContentConfig
	if cfg.SystemPrompt != "" {
		chatConfig = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(cfg.SystemPrompt, genai.RoleUser),
		}
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Gemini{
		client:     client,
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
		chatConfig: chatConfig,
		logger:     logger,
	}, nil
}

// session returns the live chat, creating it on first use.
func (g *Gemini) session(ctx context.Context) (*genai.Chat, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.chat != nil {
		return g.chat, nil
	}
	chat, err := g.client.Chats.Create(ctx, g.model, g.chatConfig, nil)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	g.chat = chat
	return chat, nil
}

// StreamText sends prompt into the chat session and streams the reply text.
func (g *Gemini) StreamText(ctx context.Context, prompt string, onChunk func(chunk string)) error {
	chat, err := g.session(ctx)
	if err != nil {
		return wrapFatalError(err)
	}

	// The lock is not held here; a reset swaps g.chat and this stream
	// finishes on the detached session.
	for resp, err := range chat.SendMessageStream(ctx, *genai.NewPartFromText(prompt)) {
		if err != nil {
			return wrapFatalError(fmt.Errorf("stream %s: %w", g.model, err))
		}
		if text := responseText(resp); text != "" {
			onChunk(text)
		}
	}
	return nil
}

// GenerateImage renders one image for prompt and returns it as a data URI.
// An empty string means the model returned nothing usable, for example when
// the prompt was filtered.
func (g *Gemini) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/png",
	})
	if err != nil {
		return "", wrapFatalError(fmt.Errorf("generate image %s: %w", g.imageModel, err))
	}

	image, filtered := firstImage(resp.GeneratedImages)
	for _, reason := range filtered {
		g.logger.Info("image filtered", "model", g.imageModel, "reason", reason)
	}
	return image, nil
}

// firstImage returns the first non-empty image as a data URI, defaulting the
// MIME type to PNG, and the filter reasons of any images skipped before it.
func firstImage(images []*genai.GeneratedImage) (string, []string) {
	var filtered []string
	for _, gi := range images {
		if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			if gi != nil && gi.RAIFilteredReason != "" {
				filtered = append(filtered, gi.RAIFilteredReason)
			}
			continue
		}
		mimeType := gi.Image.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return media.EncodeDataURI(mimeType, gi.Image.ImageBytes), filtered
	}
	return "", filtered
}

// ResetConversation discards the chat session; the next message starts a new one.
func (g *Gemini) ResetConversation() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chat = nil
}

// responseText joins the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}
