// Command voice-agent runs a voice agent worker. Each room that connects
// gets an agent with the instructions from agent-prompt.md and, when
// MCP_SERVER_URL is set, the tools of that MCP server.
package main

import (
	"os"

	"github.com/joho/godotenv"
	voiceagent "github.com/paseo/voice-agent"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	h := &handler{
		promptPath: defaultPromptPath(),
		getenv:     os.Getenv,
	}

	voiceagent.RunApp(voiceagent.WorkerOptions{
		Entrypoint: h.entrypoint,
	})
}
