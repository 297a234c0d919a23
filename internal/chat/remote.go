package chat

import (
	"context"
	"strings"
)

// Remote is the model collaborator a Controller dispatches to.
//
// StreamText delivers zero or more chunks to onChunk, in order, before it
// returns. Implementations must not hold internal locks while calling
// onChunk. GenerateImage returns an encoded image (a data URI) or "" when
// the model produced nothing. ResetConversation drops any server-side context.
type Remote interface {
	StreamText(ctx context.Context, prompt string, onChunk func(chunk string)) error
	GenerateImage(ctx context.Context, prompt string) (string, error)
	ResetConversation()
}

// Texts holds the user-facing strings the controller writes into the log.
type Texts struct {
	Greeting        string `yaml:"greeting"`
	ResetNotice     string `yaml:"reset_notice"`
	Generating      string `yaml:"generating"`
	ImageCaption    string `yaml:"image_caption"` // one %s verb for the prompt
	ImageFailed     string `yaml:"image_failed"`
	ConnectionError string `yaml:"connection_error"`
}

// DefaultTexts returns the built-in English strings.
func DefaultTexts() Texts {
	return Texts{
		Greeting:        "Hello. I can help you chat or generate images. Try asking: 'Explain goroutines' or 'Draw a neon cat'.",
		ResetNotice:     "Session cleared. Ready for a new topic.",
		Generating:      "Generating image...",
		ImageCaption:    `Here is your image for: "%s"`,
		ImageFailed:     "I couldn't generate an image for that prompt. Please try again.",
		ConnectionError: "An error occurred connecting to the model. Please try again.",
	}
}

// withDefaults fills empty fields from DefaultTexts.
func (t Texts) withDefaults() Texts {
	d := DefaultTexts()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&t.Greeting, d.Greeting)
	fill(&t.ResetNotice, d.ResetNotice)
	fill(&t.Generating, d.Generating)
	fill(&t.ImageCaption, d.ImageCaption)
	fill(&t.ImageFailed, d.ImageFailed)
	fill(&t.ConnectionError, d.ConnectionError)
	return t
}

// streamFold accumulates streamed chunks in arrival order.
// Each Add returns the full text received so far, which is applied to the
// placeholder as a full replacement.
type streamFold struct {
	b      strings.Builder
	chunks int
}

func (f *streamFold) Add(chunk string) string {
	f.b.WriteString(chunk)
	f.chunks++
	return f.b.String()
}
