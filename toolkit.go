package voiceagent

import "context"

// Toolkit produces a per-session toolkit session that can provide dynamic prompt and tool data.
type Toolkit interface {
	// CreateSession creates a new toolkit session.
	// Implementations should also initialize the session with any instructions or tools.
	CreateSession(ctx context.Context) (ToolkitSession, error)
}

// ToolkitSession exposes dynamically resolved tools and system prompt data for a run session.
type ToolkitSession interface {
	// SystemPrompt returns the current system prompt for the session if available.
	SystemPrompt() *string
	// Tools returns the current set of tools that should be available to the session.
	Tools() []AgentTool
	// Close releases any resources that were allocated for the session.
	Close(ctx context.Context) error
}

// MCPServer is a tool server reachable over the Model Context Protocol. The
// agent opens one toolkit session per server when its session starts.
type MCPServer interface {
	Toolkit
	// Endpoint identifies the server in logs and spans.
	Endpoint() string
}
