package voiceagent

import (
	"context"
	"encoding/json"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
)

// Agent tool that can be called by the language model during a turn. Tools
// come either from the agent itself or from its MCP servers.
type AgentTool interface {
	// Name of the tool.
	Name() string
	// A description of the tool to instruct the model how and when to use it.
	Description() string
	// The JSON schema of the parameters that the tool accepts. The type must
	// be "object".
	Parameters() llmsdk.JSONSchema
	// Execute runs the tool with the arguments produced by the model.
	//
	// Returning an error ends the turn and fails the session. To report a
	// failure back to the model instead, return an AgentToolResult with
	// IsError set.
	Execute(ctx context.Context, params json.RawMessage) (AgentToolResult, error)
}

type AgentToolResult struct {
	Content []llmsdk.Part `json:"content"`
	IsError bool          `json:"is_error"`
}
