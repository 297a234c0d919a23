package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ResetInput defines the (empty) input schema for the chat_reset tool.
type ResetInput struct{}

// NewResetHandler creates the chat_reset tool handler.
// Returns the notice the conversation restarts with.
func NewResetHandler(deps *Dependencies) mcp.ToolHandlerFor[ResetInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ResetInput) (
		*mcp.CallToolResult, any, error,
	) {
		deps.Session.Reset()

		notice := ""
		if last, ok := deps.Session.Snapshot().Last(); ok {
			notice = last.Text
		}
		deps.logger().Info("chat_reset completed")
		return TextResult(notice), nil, nil
	}
}
