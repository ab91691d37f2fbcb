package voiceagent_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	voiceagent "github.com/paseo/voice-agent"
)

func textPart(text string) llmsdk.Part {
	return llmsdk.Part{TextPart: &llmsdk.TextPart{Text: text}}
}

func userMessage(text string) llmsdk.Message {
	return llmsdk.NewUserMessage(textPart(text))
}

// mockTool implements voiceagent.AgentTool for testing
type mockTool struct {
	name   string
	result voiceagent.AgentToolResult
	err    error
	panics any

	mu    sync.Mutex
	calls []json.RawMessage
}

func newMockTool(name string, result voiceagent.AgentToolResult) *mockTool {
	return &mockTool{name: name, result: result}
}

func (t *mockTool) Name() string        { return t.name }
func (t *mockTool) Description() string { return "Mock tool " + t.name }
func (t *mockTool) Parameters() llmsdk.JSONSchema {
	return llmsdk.JSONSchema{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *mockTool) Execute(_ context.Context, params json.RawMessage) (voiceagent.AgentToolResult, error) {
	t.mu.Lock()
	t.calls = append(t.calls, params)
	t.mu.Unlock()
	if t.panics != nil {
		panic(t.panics)
	}
	if t.err != nil {
		return voiceagent.AgentToolResult{}, t.err
	}
	return t.result, nil
}

func (t *mockTool) Calls() []json.RawMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]json.RawMessage, len(t.calls))
	copy(out, t.calls)
	return out
}

// fakeMCPServer implements voiceagent.MCPServer with a canned toolkit session.
type fakeMCPServer struct {
	endpoint  string
	createErr error
	session   *fakeToolkitSession
}

func (s *fakeMCPServer) Endpoint() string { return s.endpoint }

func (s *fakeMCPServer) CreateSession(context.Context) (voiceagent.ToolkitSession, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.session, nil
}

type fakeToolkitSession struct {
	prompt *string
	tools  []voiceagent.AgentTool

	mu     sync.Mutex
	closed bool
}

func (s *fakeToolkitSession) SystemPrompt() *string {
	return s.prompt
}

func (s *fakeToolkitSession) Tools() []voiceagent.AgentTool {
	return s.tools
}

func (s *fakeToolkitSession) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeToolkitSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeRoom implements voiceagent.Room in memory. Tests push transcripts and
// read what the agent says.
type fakeRoom struct {
	name         string
	configureErr error

	transcripts chan voiceagent.Transcript
	said        chan string
	done        chan struct{}
	leaveOnce   sync.Once

	mu     sync.Mutex
	speech []voiceagent.SpeechConfig
	closed bool
}

func newFakeRoom(name string) *fakeRoom {
	return &fakeRoom{
		name:        name,
		transcripts: make(chan voiceagent.Transcript, 8),
		said:        make(chan string, 8),
		done:        make(chan struct{}),
	}
}

func (r *fakeRoom) Name() string { return r.name }

func (r *fakeRoom) ConfigureSpeech(_ context.Context, cfg voiceagent.SpeechConfig) error {
	if r.configureErr != nil {
		return r.configureErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speech = append(r.speech, cfg)
	return nil
}

func (r *fakeRoom) Transcripts() <-chan voiceagent.Transcript { return r.transcripts }

func (r *fakeRoom) Say(_ context.Context, text string) error {
	r.said <- text
	return nil
}

func (r *fakeRoom) Done() <-chan struct{} { return r.done }

func (r *fakeRoom) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.leave()
	return nil
}

// leave simulates the peer leaving the room.
func (r *fakeRoom) leave() {
	r.leaveOnce.Do(func() {
		close(r.transcripts)
		close(r.done)
	})
}

func (r *fakeRoom) SpeechConfigs() []voiceagent.SpeechConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]voiceagent.SpeechConfig, len(r.speech))
	copy(out, r.speech)
	return out
}

func (r *fakeRoom) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *fakeRoom) awaitSaid(t *testing.T) string {
	t.Helper()
	select {
	case text := <-r.said:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the agent to speak")
		return ""
	}
}

// fakeConnector hands out a fixed room.
type fakeConnector struct {
	room  voiceagent.Room
	err   error
	calls []voiceagent.AutoSubscribe
}

func (c *fakeConnector) Connect(_ context.Context, subscribe voiceagent.AutoSubscribe) (voiceagent.Room, error) {
	c.calls = append(c.calls, subscribe)
	if c.err != nil {
		return nil, c.err
	}
	return c.room, nil
}

func requireAgentErrorKind(t *testing.T, err error, kind voiceagent.ErrorKind) *voiceagent.AgentError {
	t.Helper()
	var agentErr *voiceagent.AgentError
	if !errors.As(err, &agentErr) {
		t.Fatalf("expected AgentError, got %T: %v", err, err)
	}
	if agentErr.Kind != kind {
		t.Fatalf("expected error kind %s, got %s (%v)", kind, agentErr.Kind, err)
	}
	return agentErr
}
