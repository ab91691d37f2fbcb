package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	voiceagent "github.com/paseo/voice-agent"
)

var clientImplementation = &mcp.Implementation{Name: "voice-agent", Version: "0.1.0"}

// toolkitSession bridges an MCP client session into the agent runtime.
type toolkitSession struct {
	client    *mcp.Client
	transport *handshakeTransport
	session   *mcp.ClientSession
	timeout   time.Duration

	mu sync.RWMutex
	// tools caches the latest snapshot surfaced to the agent runtime.
	tools []voiceagent.AgentTool
}

// newToolkitSession prepares the client and completes the MCP handshake.
func newToolkitSession(ctx context.Context, transport *handshakeTransport, timeout time.Duration) (*toolkitSession, error) {
	s := &toolkitSession{
		transport: transport,
		timeout:   timeout,
		tools:     make([]voiceagent.AgentTool, 0),
	}
	clientOpts := &mcp.ClientOptions{
		ToolListChangedHandler: func(ctx context.Context, _ *mcp.ToolListChangedRequest) {
			_ = s.reloadTools(ctx)
		},
	}
	s.client = mcp.NewClient(clientImplementation, clientOpts)

	if err := s.initialize(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}

	return s, nil
}

// initialize connects to the MCP server and hydrates the initial tool snapshot.
// The handshake is bounded by the session timeout and by ctx.
func (s *toolkitSession) initialize(ctx context.Context) error {
	type connectResult struct {
		session *mcp.ClientSession
		err     error
	}
	results := make(chan connectResult, 1)
	go func() {
		// mcp.ClientSession keeps the connect context for its whole lifetime,
		// so it must not be the caller's request-scoped context.
		cs, err := s.client.Connect(context.Background(), s.transport, nil)
		results <- connectResult{session: cs, err: err}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	var cause error
	select {
	case res := <-results:
		if res.err != nil {
			return fmt.Errorf("connect MCP client: %w", res.err)
		}
		s.session = res.session
		return s.reloadTools(ctx)
	case <-timer.C:
		cause = fmt.Errorf("handshake timed out after %s", s.timeout)
	case <-ctx.Done():
		cause = ctx.Err()
	}

	s.transport.abort()
	go func() {
		if res := <-results; res.session != nil {
			_ = res.session.Close()
		}
	}()
	return fmt.Errorf("connect MCP client: %w", cause)
}

// SystemPrompt keeps parity with the Toolkit contract; MCP does not expose instructions so we return nil.
func (s *toolkitSession) SystemPrompt() *string {
	return nil
}

// Tools exposes the latest cached tool list. A failed refresh keeps the
// previous snapshot.
func (s *toolkitSession) Tools() []voiceagent.AgentTool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]voiceagent.AgentTool, len(s.tools))
	copy(out, s.tools)
	return out
}

// Close tears down the MCP client session when the toolkit session ends.
func (s *toolkitSession) Close(context.Context) error {
	if s.session != nil {
		if err := s.session.Close(); err != nil {
			return fmt.Errorf("close MCP session: %w", err)
		}
	}
	return nil
}

// reloadTools refreshes the cached tool list. On failure the previous list
// stays in place.
func (s *toolkitSession) reloadTools(ctx context.Context) error {
	if s.session == nil {
		return fmt.Errorf("mcp session not initialised")
	}

	tools, err := s.fetchTools(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tools = tools
	s.mu.Unlock()
	return nil
}

// fetchTools walks the MCP pagination API to build the full AgentTool collection.
func (s *toolkitSession) fetchTools(ctx context.Context) ([]voiceagent.AgentTool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		cursor    string
		collected []voiceagent.AgentTool
	)

	for {
		var params *mcp.ListToolsParams
		if cursor != "" {
			params = &mcp.ListToolsParams{Cursor: cursor}
		}

		result, err := s.session.ListTools(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("list MCP tools: %w", err)
		}

		for _, tool := range result.Tools {
			agentTool, convErr := s.toAgentTool(tool)
			if convErr != nil {
				return nil, convErr
			}
			collected = append(collected, agentTool)
		}

		if result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}

	return collected, nil
}

// toAgentTool converts an MCP tool definition into the AgentTool abstraction.
func (s *toolkitSession) toAgentTool(tool *mcp.Tool) (voiceagent.AgentTool, error) {
	schema := llmsdk.JSONSchema{}
	if tool.InputSchema != nil {
		raw, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("serialise MCP tool schema for %s: %w", tool.Name, err)
		}
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, fmt.Errorf("decode MCP tool schema for %s: %w", tool.Name, err)
		}
	}

	return &agentTool{
		session:     s.session,
		timeout:     s.timeout,
		name:        tool.Name,
		description: tool.Description,
		parameters:  schema,
	}, nil
}

type agentTool struct {
	session     *mcp.ClientSession
	timeout     time.Duration
	name        string
	description string
	parameters  llmsdk.JSONSchema
}

// Name returns the remote tool identifier.
func (t *agentTool) Name() string {
	return t.name
}

// Description surfaces the remote description to the model.
func (t *agentTool) Description() string {
	return t.description
}

// Parameters returns the JSON schema the remote tool provided.
func (t *agentTool) Parameters() llmsdk.JSONSchema {
	return t.parameters
}

// Execute forwards the call to the MCP server and adapts the response into
// llmsdk parts. The call is bounded by the server timeout.
func (t *agentTool) Execute(ctx context.Context, params json.RawMessage) (voiceagent.AgentToolResult, error) {
	var arguments map[string]any
	if len(params) == 0 {
		arguments = map[string]any{}
	} else {
		if err := json.Unmarshal(params, &arguments); err != nil {
			return voiceagent.AgentToolResult{}, fmt.Errorf("decode MCP tool args for %s: %w", t.name, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      t.name,
		Arguments: arguments,
	})
	if err != nil {
		return voiceagent.AgentToolResult{}, fmt.Errorf("call MCP tool %s: %w", t.name, err)
	}

	parts, err := convertMCPContentToParts(result.Content)
	if err != nil {
		return voiceagent.AgentToolResult{}, err
	}

	return voiceagent.AgentToolResult{
		Content: parts,
		IsError: result.IsError,
	}, nil
}
