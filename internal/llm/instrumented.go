package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/raphaelgruber/chatterm/internal/chat"
	"github.com/raphaelgruber/chatterm/internal/metrics"
)

// Instrumented decorates a collaborator with a per-call timeout, timing logs
// and metrics.
type Instrumented struct {
	next    chat.Remote
	metrics *metrics.Collector
	timeout time.Duration
	logger  *slog.Logger
}

// Compile-time check that Instrumented implements chat.Remote.
var _ chat.Remote = (*Instrumented)(nil)

// Instrument wraps next. A zero timeout leaves the caller's context untouched.
func Instrument(next chat.Remote, collector *metrics.Collector, timeout time.Duration, logger *slog.Logger) *Instrumented {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Instrumented{next: next, metrics: collector, timeout: timeout, logger: logger}
}

func (i *Instrumented) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if i.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, i.timeout)
}

// StreamText forwards to the wrapped collaborator, counting chunks and bytes.
func (i *Instrumented) StreamText(ctx context.Context, prompt string, onChunk func(chunk string)) error {
	ctx, cancel := i.withTimeout(ctx)
	defer cancel()

	var chunks, bytes int64
	start := time.Now()
	err := i.next.StreamText(ctx, prompt, func(chunk string) {
		chunks++
		bytes += int64(len(chunk))
		onChunk(chunk)
	})
	duration := time.Since(start)
	i.metrics.Record(metrics.OpTextStream, duration, chunks, bytes, err != nil)

	if err != nil {
		i.logger.Warn("text stream failed", "prompt_len", len(prompt), "chunks", chunks, "duration_ms", duration.Milliseconds(), "error", err)
		return err
	}
	i.logger.Debug("text stream complete", "prompt_len", len(prompt), "chunks", chunks, "bytes", bytes, "duration_ms", duration.Milliseconds())
	return nil
}

// GenerateImage forwards to the wrapped collaborator.
func (i *Instrumented) GenerateImage(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := i.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	image, err := i.next.GenerateImage(ctx, prompt)
	duration := time.Since(start)

	var items int64
	if image != "" {
		items = 1
	}
	i.metrics.Record(metrics.OpImageGenerate, duration, items, int64(len(image)), err != nil)

	if err != nil {
		i.logger.Warn("image generation failed", "prompt_len", len(prompt), "duration_ms", duration.Milliseconds(), "error", err)
		return "", err
	}
	i.logger.Debug("image generation complete", "prompt_len", len(prompt), "empty", image == "", "duration_ms", duration.Milliseconds())
	return image, nil
}

// ResetConversation forwards to the wrapped collaborator.
func (i *Instrumented) ResetConversation() {
	i.metrics.RecordReset()
	i.next.ResetConversation()
}

// Metrics returns the collector this wrapper records into.
func (i *Instrumented) Metrics() *metrics.Collector {
	return i.metrics
}
