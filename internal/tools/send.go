package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/raphaelgruber/chatterm/internal/chat"
	"github.com/raphaelgruber/chatterm/internal/media"
)

// SendInput defines the input schema for the chat_send tool.
type SendInput struct {
	Text string `json:"text" jsonschema:"required,Message to send to the model"`
}

// SendResult is the response from the chat_send tool.
type SendResult struct {
	MessageID string `json:"message_id"`
	Reply     string `json:"reply"`
	Image     string `json:"image,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// NewSendHandler creates the chat_send tool handler.
// Blocks until the reply is complete and returns the model message produced
// for this request.
// Generated images are attached as image content.
func NewSendHandler(deps *Dependencies) mcp.ToolHandlerFor[SendInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SendInput) (
		*mcp.CallToolResult, any, error,
	) {
		logger := deps.logger()

		if strings.TrimSpace(input.Text) == "" {
			return ErrorResult("Text is required", "Provide a non-empty message"), nil, nil
		}

		reply, err := deps.Session.Ask(ctx, input.Text)
		if err != nil {
			switch {
			case errors.Is(err, chat.ErrBusy):
				return ErrorResult("A reply is already in progress", "Wait for it to finish and try again"), nil, nil
			case errors.Is(err, chat.ErrEmptyInput):
				return ErrorResult("Text is required", "Provide a non-empty message"), nil, nil
			case errors.Is(err, chat.ErrReset):
				logger.Info("chat_send detached by reset")
				return ErrorResult("The conversation was reset before the reply arrived", "Send the message again"), nil, nil
			default:
				logger.Error("chat_send failed", "error", err)
				return ErrorResult("Failed to send message", err.Error()), nil, nil
			}
		}

		result := SendResult{
			MessageID: reply.ID,
			Reply:     reply.Text,
			IsError:   reply.IsError,
		}
		out := JSONResult(result)

		if reply.HasImage() {
			mimeType, data, err := media.DecodeDataURI(reply.Image)
			if err != nil {
				logger.Warn("chat_send image unreadable", "id", reply.ID, "error", err)
			} else {
				result.Image = media.Describe(reply.Image)
				out = JSONResult(result)
				out.Content = append(out.Content, &mcp.ImageContent{Data: data, MIMEType: mimeType})
			}
		}

		logger.Info("chat_send completed", "id", reply.ID, "is_error", reply.IsError, "image", reply.HasImage())
		return out, nil, nil
	}
}
