package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "chat_send",
		Description: "Send a message to the chat session and wait for the model's reply. Prompts starting with 'draw' or 'generate image' produce an image.",
	}, NewSendHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "chat_reset",
		Description: "Clear the conversation and start a new topic",
	}, NewResetHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "chat_transcript",
		Description: "Export the conversation as markdown or json",
	}, NewTranscriptHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "chat_status",
		Description: "Report whether a reply is in flight and how many messages the conversation holds",
	}, NewStatusHandler(deps))
}
