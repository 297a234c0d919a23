package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/chatterm/internal/chat"
	"github.com/raphaelgruber/chatterm/internal/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	askStats      bool
	askTranscript string
	askImageDir   string
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Send one prompt and stream the reply to stdout",
	Long: `Send one prompt and stream the reply to stdout.

Prompts that ask for a picture are sent to the image model; the image is
described on stdout and saved when --image-dir is set.

Examples:
  chatterm ask "Explain goroutines in two sentences"
  chatterm ask "draw a lighthouse at dusk" --image-dir ./images
  chatterm ask "hello" --stats`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askStats, "stats", false, "print request metrics to stderr when done")
	askCmd.Flags().StringVarP(&askTranscript, "transcript", "t", "", "write the exchange to this file (.md or .json)")
	askCmd.Flags().StringVar(&askImageDir, "image-dir", "", "save a generated image to this directory")
}

func runAsk(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, instrumented, err := newSession(ctx, newFatalReporter(cfg.Provider, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	styled := false
	if f, ok := out.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}

	imageMode := cfg.Classifier().Classify(prompt) == chat.ModeImage
	if imageMode {
		fmt.Fprintln(cmd.ErrOrStderr(), cfg.Texts.Generating)
	}

	streamer := &replyStreamer{out: out, quiet: imageMode}
	unsubscribe := session.Subscribe(streamer.observe)
	reply, err := session.Ask(ctx, prompt)
	unsubscribe()
	if err != nil {
		return err
	}

	if err := streamer.finish(reply, styled, askImageDir); err != nil {
		return err
	}

	if askStats {
		enc := json.NewEncoder(cmd.ErrOrStderr())
		enc.SetIndent("", "  ")
		if err := enc.Encode(instrumented.Metrics().Snapshot()); err != nil {
			return fmt.Errorf("encode stats: %w", err)
		}
	}

	return writeTranscript(askTranscript, session.Snapshot())
}

// replyStreamer prints a text reply incrementally as snapshots arrive.
type replyStreamer struct {
	out     io.Writer
	quiet   bool // image requests print nothing until settled
	printed string
}

// observe prints the unseen suffix of a streaming text reply. It runs
// under the session lock, so it only writes.
func (s *replyStreamer) observe(snap models.Snapshot) {
	last, ok := snap.Last()
	if s.quiet || !ok || last.Role != models.RoleModel || last.IsError || last.HasImage() {
		return
	}
	if !snap.IsLoading || !strings.HasPrefix(last.Text, s.printed) {
		return
	}
	if rest := last.Text[len(s.printed):]; rest != "" {
		fmt.Fprint(s.out, rest)
		s.printed = last.Text
	}
}

// finish prints whatever the stream did not cover and reports failures.
func (s *replyStreamer) finish(reply models.Message, styled bool, imageDir string) error {
	if reply.Role != models.RoleModel {
		return errors.New("no reply received")
	}
	if reply.IsError {
		if s.printed != "" {
			fmt.Fprintln(s.out)
		}
		return errors.New(reply.Text)
	}

	if reply.HasImage() {
		if styled {
			reply.Text = lipgloss.NewStyle().Bold(true).Render(reply.Text)
		}
		printReply(s.out, reply, imageDir)
		return nil
	}

	if strings.HasPrefix(reply.Text, s.printed) {
		fmt.Fprint(s.out, reply.Text[len(s.printed):])
	} else {
		fmt.Fprint(s.out, "\n"+reply.Text)
	}
	fmt.Fprintln(s.out)
	return nil
}
