package llm

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"time"

	"github.com/raphaelgruber/chatterm/internal/media"
)

// Echo is an offline collaborator. It streams back the prompt word by word
// and renders a solid-colour swatch for image requests. It needs no network
// or credentials, which makes it useful for demos and tests.
type Echo struct {
	// Delay between streamed words.
	Delay time.Duration

	mu    sync.Mutex
	turns int
}

// NewEcho creates an Echo collaborator.
func NewEcho(delay time.Duration) *Echo {
	return &Echo{Delay: delay}
}

// StreamText replies with the prompt, one word per chunk.
func (e *Echo) StreamText(ctx context.Context, prompt string, onChunk func(chunk string)) error {
	e.mu.Lock()
	e.turns++
	turn := e.turns
	e.mu.Unlock()

	reply := fmt.Sprintf("(turn %d) You said: %s", turn, prompt)
	words := strings.SplitAfter(reply, " ")
	for _, w := range words {
		if e.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.Delay):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		onChunk(w)
	}
	return nil
}

// GenerateImage returns a small PNG whose colour is derived from the prompt.
func (e *Echo) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h := fnv.New32a()
	h.Write([]byte(prompt))
	sum := h.Sum32()
	fill := color.RGBA{R: uint8(sum >> 16), G: uint8(sum >> 8), B: uint8(sum), A: 0xff}

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode swatch: %w", err)
	}
	return media.EncodeDataURI("image/png", buf.Bytes()), nil
}

// ResetConversation restarts the turn counter.
func (e *Echo) ResetConversation() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.turns = 0
}
