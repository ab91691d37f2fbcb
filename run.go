package voiceagent

import (
	"context"
	"fmt"
	"strings"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"golang.org/x/sync/errgroup"
)

// RunSession manages the model and tool state for one agent session.
// It resolves the agent's instructions, opens a toolkit session for each MCP
// server, and answers user turns against a caller-owned chat history.
// Once finished, Close releases the toolkit sessions.
type RunSession struct {
	model           llmsdk.LanguageModel // model answers every step of a turn.
	systemPrompt    *string              // systemPrompt caches the agent instructions.
	staticTools     []AgentTool          // staticTools holds the tools provided directly on the agent.
	toolkitSessions []ToolkitSession     // toolkitSessions keeps the MCP-provided sessions.
	maxSteps        uint                 // maxSteps bounds model calls per turn.
	initialized     bool                 // initialized ensures the session is ready before running.
}

// NewRunSession creates a new run session and connects the agent's toolkits.
func NewRunSession(ctx context.Context, agent *Agent, model llmsdk.LanguageModel) (*RunSession, error) {
	session := &RunSession{
		model:       model,
		staticTools: agent.Tools(),
		maxSteps:    agent.maxToolSteps,
	}

	if err := session.initialize(ctx, agent); err != nil {
		return nil, err
	}

	return session, nil
}

func (s *RunSession) initialize(ctx context.Context, agent *Agent) error {
	if prompt := agent.Instructions(); prompt != "" {
		s.systemPrompt = &prompt
	}

	toolkits := agent.toolkits()
	if len(toolkits) > 0 {
		sessions := make([]ToolkitSession, len(toolkits))
		g, gctx := errgroup.WithContext(ctx)
		for i, toolkit := range toolkits {
			g.Go(func() error {
				toolkitSession, err := toolkit.CreateSession(gctx)
				if err != nil {
					return fmt.Errorf("toolkit[%d].CreateSession: %w", i, err)
				}
				sessions[i] = toolkitSession
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			s.toolkitSessions = sessions
			_ = s.closeToolkits(context.WithoutCancel(ctx))
			return NewInitError(err)
		}
		s.toolkitSessions = sessions
	}

	s.initialized = true
	return nil
}

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	// Content is the final assistant content, with no tool calls left.
	Content []llmsdk.Part
	// Messages holds every message generated during the turn, in order:
	// assistant messages and the tool messages answering their calls.
	Messages []llmsdk.Message
	// Usage sums token usage over every model call of the turn.
	Usage *llmsdk.ModelUsage
}

func (r *TurnResult) addUsage(usage *llmsdk.ModelUsage) {
	if usage == nil {
		return
	}
	if r.Usage == nil {
		r.Usage = &llmsdk.ModelUsage{}
	}
	r.Usage.InputTokens += usage.InputTokens
	r.Usage.OutputTokens += usage.OutputTokens
}

// Text concatenates the text parts of the final content.
func (r *TurnResult) Text() string {
	var sb strings.Builder
	for _, part := range r.Content {
		if part.TextPart != nil {
			sb.WriteString(part.TextPart.Text)
		}
	}
	return sb.String()
}

// Run answers the last user message in history. The model is called until it
// responds without tool calls; each tool call is executed by name and its
// result fed back on the next step.
func (s *RunSession) Run(ctx context.Context, history []llmsdk.Message) (*TurnResult, error) {
	if !s.initialized {
		return nil, NewInvariantError("run session not initialized")
	}
	if len(history) == 0 {
		return nil, NewInvariantError("no messages to respond to")
	}

	messages := make([]llmsdk.Message, len(history), len(history)+4)
	copy(messages, history)
	result := &TurnResult{}

	for step := uint(1); ; step++ {
		if step > s.maxSteps {
			return nil, NewMaxTurnsExceededError(int(s.maxSteps))
		}

		input, tools := s.getTurnParams(messages)
		response, err := s.model.Generate(ctx, input)
		if err != nil {
			return nil, NewLanguageModelError(err)
		}
		result.addUsage(response.Usage)

		assistant := llmsdk.NewAssistantMessage(response.Content...)
		messages = append(messages, assistant)
		result.Messages = append(result.Messages, assistant)

		var toolCalls []*llmsdk.ToolCallPart
		for _, part := range response.Content {
			if part.ToolCallPart != nil {
				toolCalls = append(toolCalls, part.ToolCallPart)
			}
		}
		if len(toolCalls) == 0 {
			result.Content = response.Content
			return result, nil
		}

		toolResults := make([]llmsdk.Part, 0, len(toolCalls))
		for _, call := range toolCalls {
			tool := findTool(tools, call.ToolName)
			if tool == nil {
				return nil, NewInvariantError(fmt.Sprintf("tool %s not found for tool call", call.ToolName))
			}

			res, err := startActiveToolSpan(ctx, call.ToolCallID, tool.Name(), tool.Description(),
				func(ctx context.Context) (AgentToolResult, error) {
					res, err := tool.Execute(ctx, call.Args)
					if err != nil {
						return AgentToolResult{}, NewToolExecutionError(call.ToolName, err)
					}
					return res, nil
				},
			)
			if err != nil {
				return nil, err
			}

			toolResults = append(toolResults, llmsdk.NewToolResultPart(call.ToolCallID, call.ToolName, res.Content, llmsdk.WithToolResultIsError(res.IsError)))
		}

		toolMessage := llmsdk.NewToolMessage(toolResults...)
		messages = append(messages, toolMessage)
		result.Messages = append(result.Messages, toolMessage)
	}
}

// Tools returns the tools currently offered to the model.
func (s *RunSession) Tools() []AgentTool {
	tools := make([]AgentTool, len(s.staticTools))
	copy(tools, s.staticTools)
	for _, toolkitSession := range s.toolkitSessions {
		if toolkitSession == nil {
			continue
		}
		if toolkitTools := toolkitSession.Tools(); len(toolkitTools) > 0 {
			tools = append(tools, toolkitTools...)
		}
	}
	return tools
}

func (s *RunSession) Close(ctx context.Context) error {
	if !s.initialized {
		return nil
	}
	s.systemPrompt = nil
	s.staticTools = nil

	if err := s.closeToolkits(ctx); err != nil {
		return err
	}

	s.initialized = false
	return nil
}

func (s *RunSession) closeToolkits(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, toolkitSession := range s.toolkitSessions {
		if toolkitSession == nil {
			continue
		}
		g.Go(func() error {
			return toolkitSession.Close(ctx)
		})
	}
	err := g.Wait()
	s.toolkitSessions = nil
	return err
}

func (s *RunSession) getTurnParams(messages []llmsdk.Message) (*llmsdk.LanguageModelInput, []AgentTool) {
	input := &llmsdk.LanguageModelInput{
		Messages: messages,
	}

	systemPrompts := []string{}
	if s.systemPrompt != nil && *s.systemPrompt != "" {
		systemPrompts = append(systemPrompts, *s.systemPrompt)
	}

	for _, toolkitSession := range s.toolkitSessions {
		if toolkitSession == nil {
			continue
		}
		if prompt := toolkitSession.SystemPrompt(); prompt != nil && *prompt != "" {
			systemPrompts = append(systemPrompts, *prompt)
		}
	}

	if len(systemPrompts) > 0 {
		joined := strings.Join(systemPrompts, "\n")
		input.SystemPrompt = &joined
	}

	tools := s.Tools()

	if len(tools) > 0 {
		sdkTools := make([]llmsdk.Tool, 0, len(tools))
		for _, tool := range tools {
			sdkTools = append(sdkTools, llmsdk.Tool{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			})
		}
		input.Tools = sdkTools
	}

	return input, tools
}

func findTool(tools []AgentTool, name string) AgentTool {
	for _, tool := range tools {
		if tool.Name() == name {
			return tool
		}
	}
	return nil
}
