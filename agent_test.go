package voiceagent_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	voiceagent "github.com/paseo/voice-agent"
)

func TestNewAgent_Defaults(t *testing.T) {
	agent := voiceagent.NewAgent()

	if got := agent.Instructions(); got != "" {
		t.Errorf("expected empty instructions, got %q", got)
	}
	if got := len(agent.MCPServers()); got != 0 {
		t.Errorf("expected no MCP servers, got %d", got)
	}
	if got := len(agent.Tools()); got != 0 {
		t.Errorf("expected no tools, got %d", got)
	}
}

func TestNewAgent_JoinsInstructions(t *testing.T) {
	agent := voiceagent.NewAgent(voiceagent.WithInstructions("You are helpful.", "", "Be brief."))

	if got, want := agent.Instructions(), "You are helpful.\nBe brief."; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNewAgent_MCPServersAreCopied(t *testing.T) {
	server := &fakeMCPServer{endpoint: "https://tools.example.com/mcp"}
	agent := voiceagent.NewAgent(voiceagent.WithMCPServers(server))

	servers := agent.MCPServers()
	if len(servers) != 1 || servers[0].Endpoint() != "https://tools.example.com/mcp" {
		t.Fatalf("unexpected servers: %+v", servers)
	}

	servers[0] = nil
	if agent.MCPServers()[0] == nil {
		t.Error("mutating the returned slice changed the agent")
	}
}

func TestReadInstructions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent-prompt.md")
	if err := os.WriteFile(path, []byte("You are helpful."), 0o600); err != nil {
		t.Fatalf("write prompt: %v", err)
	}

	first, err := voiceagent.ReadInstructions(path)
	if err != nil {
		t.Fatalf("read instructions: %v", err)
	}
	second, err := voiceagent.ReadInstructions(path)
	if err != nil {
		t.Fatalf("read instructions again: %v", err)
	}
	if first != "You are helpful." || second != first {
		t.Errorf("expected identical prompts, got %q and %q", first, second)
	}
}

func TestReadInstructions_InvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent-prompt.md")
	if err := os.WriteFile(path, []byte("You are \xff\xfe helpful."), 0o600); err != nil {
		t.Fatalf("write prompt: %v", err)
	}

	text, err := voiceagent.ReadInstructions(path)
	if err == nil {
		t.Fatalf("expected error for invalid UTF-8, got %q", text)
	}
}

func TestReadInstructions_MissingFile(t *testing.T) {
	_, err := voiceagent.ReadInstructions(filepath.Join(t.TempDir(), "missing.md"))
	if err == nil {
		t.Fatal("expected error for missing prompt file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
