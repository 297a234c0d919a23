package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/raphaelgruber/chatterm/internal/transcript"
)

// TranscriptInput defines the input schema for the chat_transcript tool.
type TranscriptInput struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: markdown (default) or json"`
}

// StatusInput defines the (empty) input schema for the chat_status tool.
type StatusInput struct{}

// StatusResult is the response from the chat_status tool.
type StatusResult struct {
	IsLoading bool `json:"is_loading"`
	Messages  int  `json:"messages"`
}

// NewTranscriptHandler creates the chat_transcript tool handler.
// Images are summarised rather than inlined.
func NewTranscriptHandler(deps *Dependencies) mcp.ToolHandlerFor[TranscriptInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input TranscriptInput) (
		*mcp.CallToolResult, any, error,
	) {
		format := transcript.Format(strings.ToLower(strings.TrimSpace(input.Format)))
		if format == "" {
			format = transcript.FormatMarkdown
		}

		var b strings.Builder
		if err := transcript.Write(&b, deps.Session.Snapshot(), format, transcript.Options{}); err != nil {
			return ErrorResult("Failed to export transcript", "Use format markdown or json"), nil, nil
		}
		return TextResult(b.String()), nil, nil
	}
}

// NewStatusHandler creates the chat_status tool handler.
func NewStatusHandler(deps *Dependencies) mcp.ToolHandlerFor[StatusInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, any, error,
	) {
		snap := deps.Session.Snapshot()
		return JSONResult(StatusResult{
			IsLoading: snap.IsLoading,
			Messages:  len(snap.Messages),
		}), nil, nil
	}
}
