package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/raphaelgruber/chatterm/internal/chat"
	"github.com/raphaelgruber/chatterm/internal/client"
	"github.com/spf13/cobra"
)

var (
	sendServer   string
	sendReset    bool
	sendImageDir string
)

var sendCmd = &cobra.Command{
	Use:   "send [prompt]",
	Short: "Send a prompt to a session started with 'chatterm serve'",
	Long: `Send a prompt to a running 'chatterm serve' session and stream the reply.

The reply is shared: every client connected to the server sees it.

Examples:
  chatterm send "hello"
  chatterm send --server ws://10.0.0.5:8585/ws "draw a fox"
  chatterm send --reset`,
	Annotations: map[string]string{remoteAnnotation: "true"},
	RunE:        runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendServer, "server", "", "websocket URL of the session (default $CHATTERM_SERVER_URL or ws://localhost:8585/ws)")
	sendCmd.Flags().BoolVar(&sendReset, "reset", false, "clear the served conversation first")
	sendCmd.Flags().StringVar(&sendImageDir, "image-dir", "", "save a generated image to this directory")
}

func runSend(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")
	if prompt == "" && !sendReset {
		return fmt.Errorf("a prompt or --reset is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(sendServer)
	logger.Debug("sending to served session", "endpoint", c.Endpoint())

	if sendReset {
		snap, err := c.Reset(ctx)
		if err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		if last, ok := snap.Last(); ok {
			fmt.Fprintln(cmd.ErrOrStderr(), last.Text)
		}
	}
	if prompt == "" {
		return nil
	}

	streamer := &replyStreamer{
		out:   cmd.OutOrStdout(),
		quiet: cfg.Classifier().Classify(prompt) == chat.ModeImage,
	}
	reply, err := c.Ask(ctx, prompt, streamer.observe)
	if err != nil {
		return err
	}
	return streamer.finish(reply, false, sendImageDir)
}
