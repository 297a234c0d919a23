// Package tools provides MCP tool handlers and registration.
package tools

import (
	"context"
	"log/slog"

	"github.com/raphaelgruber/chatterm/internal/models"
)

// Session is the conversation the tools drive.
type Session interface {
	// Ask submits input and returns the model message produced for it.
	Ask(ctx context.Context, input string) (models.Message, error)
	Reset()
	Snapshot() models.Snapshot
}

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Session Session
	Logger  *slog.Logger
}

func (d *Dependencies) logger() *slog.Logger {
	if d == nil || d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
