package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/raphaelgruber/chatterm/internal/chat"
	"github.com/raphaelgruber/chatterm/internal/media"
	"github.com/raphaelgruber/chatterm/internal/models"
	"github.com/raphaelgruber/chatterm/internal/transcript"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	chatTranscript string
	chatImageDir   string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session.

Type a message and press Enter. Replies stream in as they are generated.
Ctrl+R clears the conversation, Ctrl+C quits.

When stdin is not a terminal, each input line is sent as one message and
the replies are printed as plain text.

Examples:
  chatterm chat
  chatterm chat --image-dir ./images --transcript session.md
  printf 'hello\ndraw a fox\n' | chatterm chat`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatTranscript, "transcript", "t", "", "write the conversation to this file on exit (.md or .json)")
	chatCmd.Flags().StringVar(&chatImageDir, "image-dir", "", "save generated images to this directory")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))

	// The terminal UI owns the screen, so its hint waits until it exits.
	hints := newFatalReporter(cfg.Provider, cmd.ErrOrStderr())
	if interactive {
		hints = newFatalReporter(cfg.Provider, nil)
	}

	session, _, err := newSession(ctx, hints)
	if err != nil {
		return err
	}

	if interactive {
		err = runChatUI(ctx, session)
		hints.flush(cmd.ErrOrStderr())
	} else {
		err = runLineChat(ctx, session, os.Stdin, cmd.OutOrStdout())
	}
	if err != nil {
		return err
	}

	return writeTranscript(chatTranscript, session.Snapshot())
}

func runChatUI(ctx context.Context, session *chat.Controller) error {
	model := newChatModel(ctx, session, session.Snapshot(), chatImageDir)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	unsubscribe := session.Subscribe(func(snap models.Snapshot) {
		p.Send(snapshotMsg(snap))
	})
	defer unsubscribe()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, tea.ErrInterrupted) {
		return fmt.Errorf("chat ui: %w", err)
	}
	return nil
}

// runLineChat sends one message per input line and prints each settled reply.
func runLineChat(ctx context.Context, session *chat.Controller, in io.Reader, out io.Writer) error {
	if greeting, ok := session.Snapshot().Last(); ok {
		fmt.Fprintln(out, greeting.Text)
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		reply, err := session.Ask(ctx, scanner.Text())
		if errors.Is(err, chat.ErrEmptyInput) {
			continue
		}
		if err != nil {
			return err
		}

		printReply(out, reply, chatImageDir)
	}
	return scanner.Err()
}

// printReply writes a settled model message as plain text.
func printReply(out io.Writer, reply models.Message, imageDir string) {
	if reply.IsError {
		fmt.Fprintf(out, "! %s\n", reply.Text)
		return
	}
	fmt.Fprintln(out, reply.Text)
	if !reply.HasImage() {
		return
	}

	line := "[image: " + media.Describe(reply.Image) + "]"
	if imageDir != "" {
		if path, err := media.Save(imageDir, reply.ID, reply.Image); err != nil {
			logger.Warn("save image failed", "id", reply.ID, "error", err)
		} else {
			line += " saved to " + path
		}
	}
	fmt.Fprintln(out, line)
}

func writeTranscript(path string, snap models.Snapshot) error {
	if path == "" {
		return nil
	}
	if err := transcript.WriteFile(path, snap, transcript.Options{InlineImages: true}); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	logger.Info("transcript written", "path", path, "messages", len(snap.Messages))
	return nil
}
