package cli

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/raphaelgruber/chatterm/internal/config"
	"github.com/raphaelgruber/chatterm/internal/llm"
)

// fatalReporter turns auth, quota and billing failures into a one-time hint.
// With a nil out the hint is held until flush, for screens that own the terminal.
type fatalReporter struct {
	provider config.Provider
	out      io.Writer

	mu      sync.Mutex
	cause   error
	printed bool
}

func newFatalReporter(provider config.Provider, out io.Writer) *fatalReporter {
	return &fatalReporter{provider: provider, out: out}
}

// observe is installed as the session failure hook.
func (r *fatalReporter) observe(err error) {
	if !errors.Is(err, llm.ErrFatalAPI) {
		return
	}
	logger.Warn("provider rejected the request", "provider", r.provider, "hint", credentialHint(r.provider), "error", err)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cause == nil {
		r.cause = err
	}
	if r.out != nil {
		r.printLocked(r.out)
	}
}

// flush prints a held hint to w.
func (r *fatalReporter) flush(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cause != nil {
		r.printLocked(w)
	}
}

func (r *fatalReporter) printLocked(w io.Writer) {
	if r.printed {
		return
	}
	r.printed = true
	fmt.Fprintf(w, "Hint: the %s provider rejected the request. %s\n", r.provider, credentialHint(r.provider))
}

func credentialHint(p config.Provider) string {
	switch p {
	case config.ProviderGemini:
		return "Check GEMINI_API_KEY (or GOOGLE_CLOUD_PROJECT for Vertex AI) and the project's quota."
	case config.ProviderOpenAI:
		return "Check OPENAI_API_KEY and the account's billing and rate limits."
	case config.ProviderAnthropic:
		return "Check ANTHROPIC_API_KEY and the account's credit balance."
	case config.ProviderBedrock:
		return "Check the AWS credentials and that the model is enabled in this region."
	default:
		return "Check the provider's credentials and quota."
	}
}
