package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	voiceagent "github.com/paseo/voice-agent"
	"github.com/paseo/voice-agent/mcp"
	"github.com/rs/zerolog"
)

const (
	promptFileName = "agent-prompt.md"

	mcpServerURLEnv  = "MCP_SERVER_URL"
	mcpServerTimeout = 10 * time.Second

	sttModel = "assemblyai/universal-streaming:en"
	llmModel = "openai/gpt-4.1-mini"
	ttsModel = "cartesia/sonic-2:9626c31c-bec5-4cca-baa8-f8ba9e84c8bc"
)

type handler struct {
	promptPath     string
	getenv         func(string) string
	sessionOptions []voiceagent.SessionOption
}

// entrypoint sets up the agent for one job and runs it until the room is
// left. Every failure is returned to the worker, which marks the job failed.
func (h *handler) entrypoint(ctx context.Context, job *voiceagent.JobContext) error {
	logger := zerolog.Ctx(ctx)

	prompt, err := loadSystemPrompt(h.promptPath)
	if err != nil {
		return err
	}

	servers := mcpServersFromEnv(h.getenv)
	if len(servers) > 0 {
		logger.Info().Str("url", servers[0].URL).Msg("MCP server configured")
	} else {
		logger.Warn().Msg("No MCP_SERVER_URL found in environment")
	}

	if err := job.Connect(ctx, voiceagent.AudioOnly); err != nil {
		return err
	}

	mcpServers := make([]voiceagent.MCPServer, 0, len(servers))
	for _, server := range servers {
		mcpServers = append(mcpServers, server)
	}
	agent := voiceagent.NewAgent(
		voiceagent.WithInstructions(prompt),
		voiceagent.WithMCPServers(mcpServers...),
	)

	options := append([]voiceagent.SessionOption{voiceagent.WithLogger(*logger)}, h.sessionOptions...)
	session := newAgentSession(options...)

	room := job.Room()
	if err := session.Start(ctx, agent, room); err != nil {
		return err
	}

	logger.Info().Str("room", room.Name()).Msg("Agent started successfully")
	logger.Info().Int("count", len(servers)).Msg("MCP servers configured")

	return session.Wait()
}

func newAgentSession(options ...voiceagent.SessionOption) *voiceagent.AgentSession {
	return voiceagent.NewAgentSession(sttModel, llmModel, ttsModel, options...)
}

// loadSystemPrompt reads the agent instructions from path.
func loadSystemPrompt(path string) (string, error) {
	return voiceagent.ReadInstructions(path)
}

// mcpServersFromEnv returns one MCP server when MCP_SERVER_URL is set, and
// none otherwise.
func mcpServersFromEnv(getenv func(string) string) []*mcp.MCPServerHTTP {
	url := getenv(mcpServerURLEnv)
	if url == "" {
		return []*mcp.MCPServerHTTP{}
	}
	return []*mcp.MCPServerHTTP{mcp.NewMCPServerHTTP(url, mcpServerTimeout)}
}

// defaultPromptPath looks for the prompt next to the executable, then in the
// working directory.
func defaultPromptPath() string {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), promptFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return promptFileName
}
