package voiceagent

// DefaultMaxToolSteps bounds the number of model calls made for a single user
// turn, protecting against tool-call loops.
const DefaultMaxToolSteps uint = 10

// Agent describes what the voice agent says and which tools it may use. It
// is immutable once built and is bound to one AgentSession per job.
type Agent struct {
	instructions []string
	mcpServers   []MCPServer
	tools        []AgentTool
	maxToolSteps uint
}

type AgentOption func(*Agent)

// NewAgent creates a new agent with the given options.
//
// Defaults:
// - `instructions`: empty
// - `mcpServers`: empty
// - `tools`: empty
// - `maxToolSteps`: 10
func NewAgent(options ...AgentOption) *Agent {
	agent := &Agent{
		instructions: []string{},
		mcpServers:   []MCPServer{},
		tools:        []AgentTool{},
		maxToolSteps: DefaultMaxToolSteps,
	}

	for _, option := range options {
		option(agent)
	}

	return agent
}

// WithInstructions sets the instructions sent as the system prompt on every
// turn. Multiple instructions are joined with newlines.
func WithInstructions(instructions ...string) AgentOption {
	return func(a *Agent) {
		a.instructions = instructions
	}
}

// WithMCPServers sets the tool servers whose tools are made available to the model.
func WithMCPServers(servers ...MCPServer) AgentOption {
	return func(a *Agent) {
		a.mcpServers = servers
	}
}

// WithTools sets tools implemented in process.
func WithTools(tools ...AgentTool) AgentOption {
	return func(a *Agent) {
		a.tools = tools
	}
}

// WithMaxToolSteps sets the max number of model calls per user turn.
func WithMaxToolSteps(steps uint) AgentOption {
	return func(a *Agent) {
		a.maxToolSteps = steps
	}
}

// Instructions returns the joined system prompt.
func (a *Agent) Instructions() string {
	return joinInstructions(a.instructions)
}

// MCPServers returns a copy of the configured tool servers.
func (a *Agent) MCPServers() []MCPServer {
	out := make([]MCPServer, len(a.mcpServers))
	copy(out, a.mcpServers)
	return out
}

// Tools returns a copy of the in-process tools.
func (a *Agent) Tools() []AgentTool {
	out := make([]AgentTool, len(a.tools))
	copy(out, a.tools)
	return out
}

func (a *Agent) toolkits() []Toolkit {
	toolkits := make([]Toolkit, 0, len(a.mcpServers))
	for _, server := range a.mcpServers {
		toolkits = append(toolkits, server)
	}
	return toolkits
}
