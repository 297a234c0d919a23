package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/raphaelgruber/chatterm/internal/server"
	"github.com/raphaelgruber/chatterm/internal/tools"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat session over a websocket",
	Long: `Serve one shared chat session over a websocket.

Clients connect to /ws and receive the full conversation snapshot after
every change. They send {"type":"submit","text":"..."} to ask and
{"type":"reset"} to start a new topic. /health and /stats are plain HTTP.

Examples:
  chatterm serve
  chatterm serve --addr :9000`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{consoleLogAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		session, instrumented, err := newSession(ctx, newFatalReporter(cfg.Provider, nil))
		if err != nil {
			return err
		}

		addr := cfg.ServerAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		return server.NewHTTP(session, instrumented.Metrics(), logger).ListenAndServe(ctx, addr)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server on stdio exposing the chat session as tools",
	Long: `Run an MCP server on stdio.

Tools: chat_send, chat_reset, chat_transcript, chat_status.
Logs go to stderr and the log file; stdout carries the protocol.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{consoleLogAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		session, _, err := newSession(ctx, newFatalReporter(cfg.Provider, nil))
		if err != nil {
			return err
		}

		srv := server.NewMCP(Version, logger)
		srv.Setup(&tools.Dependencies{Session: session, Logger: logger})
		logger.Info("server ready, awaiting connections")

		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		logger.Info("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, localhost:8585)")
}
