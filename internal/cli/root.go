// Package cli provides the command-line interface for chatterm.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/raphaelgruber/chatterm/internal/chat"
	"github.com/raphaelgruber/chatterm/internal/config"
	"github.com/raphaelgruber/chatterm/internal/llm"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configPath string

	// Global config and logger, set up before every command
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
)

// Command annotations read by the root pre-run hook.
const (
	// consoleLogAnnotation marks commands whose logs may also go to stderr.
	// Commands that draw to the terminal leave it unset.
	consoleLogAnnotation = "console-log"

	// remoteAnnotation marks commands that talk to a served session and
	// need no model credentials.
	remoteAnnotation = "remote"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chatterm",
	Short: "Chat with a language model from the terminal",
	Long: `Chatterm is a single-session chat client for language models.

Replies stream in as they are generated. Prompts that ask for a picture
("draw a fox", "generate image of a lighthouse") are sent to the image
model instead. The same session can be driven from the terminal UI, a
one-shot command, a websocket, or an MCP client.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		// A missing .env is normal.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}
		if _, remote := cmd.Annotations[remoteAnnotation]; !remote {
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		_, console := cmd.Annotations[consoleLogAnnotation]
		logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel, console)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// newSession builds the configured collaborator, wraps it with metrics and the
// request timeout, and seeds a session controller with it. Remote failures are
// passed to hints, which prints a credential hint for fatal provider errors.
func newSession(ctx context.Context, hints *fatalReporter) (*chat.Controller, *llm.Instrumented, error) {
	remote, err := llm.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init model: %w", err)
	}
	instrumented := llm.Instrument(remote, nil, cfg.RequestTimeout, logger)

	session := chat.NewController(instrumented,
		chat.WithClassifier(cfg.Classifier()),
		chat.WithTexts(cfg.Texts),
		chat.WithLogger(logger),
		chat.WithFailureHook(hints.observe),
	)
	logger.Info("session ready", "provider", cfg.Provider, "model", cfg.Model)
	return session, instrumented, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (default $CHATTERM_CONFIG)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "chatterm", Version)
	},
}
