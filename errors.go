package voiceagent

import "fmt"

// AgentError is the error type returned by the agent runtime. Kind tells
// callers which stage failed; Err, when set, is the underlying cause and is
// reachable through errors.Is and errors.As.
type AgentError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AgentError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies an AgentError.
type ErrorKind string

const (
	// LanguageModelErrorKind marks a failed model generation.
	LanguageModelErrorKind ErrorKind = "language_model_error"
	// InvariantErrorKind marks misuse of the runtime, such as a missing room
	// or a tool call naming an unknown tool.
	InvariantErrorKind ErrorKind = "invariant_error"
	// ToolExecutionErrorKind marks a tool that returned an error.
	ToolExecutionErrorKind ErrorKind = "tool_execution_error"
	// AgentErrorKindMaxTurnsExceeded marks a run that hit its step limit.
	AgentErrorKindMaxTurnsExceeded ErrorKind = "max_turns_exceeded"
	// InitErrorKind marks a session that could not be set up.
	InitErrorKind ErrorKind = "init_error"
	// ConnectErrorKind marks a failure to join a room.
	ConnectErrorKind ErrorKind = "connect_error"
	// SessionErrorKind marks a session that failed after it started.
	SessionErrorKind ErrorKind = "session_error"
)

// NewLanguageModelError wraps a failed model call.
func NewLanguageModelError(err error) *AgentError {
	return &AgentError{
		Kind:    LanguageModelErrorKind,
		Message: "language model error",
		Err:     err,
	}
}

// NewInvariantError reports a broken precondition described by msg.
func NewInvariantError(msg string) *AgentError {
	return &AgentError{
		Kind:    InvariantErrorKind,
		Message: fmt.Sprintf("invariant: %s", msg),
	}
}

// NewToolExecutionError wraps the error returned by the named tool.
func NewToolExecutionError(toolName string, err error) *AgentError {
	return &AgentError{
		Kind:    ToolExecutionErrorKind,
		Message: fmt.Sprintf("tool %s execution error", toolName),
		Err:     err,
	}
}

// NewMaxTurnsExceededError reports a run that used all of its turns without
// a final answer.
func NewMaxTurnsExceededError(turns int) *AgentError {
	return &AgentError{
		Kind:    AgentErrorKindMaxTurnsExceeded,
		Message: fmt.Sprintf("the maximum number of turns (%d) has been exceeded", turns),
	}
}

// NewInitError wraps a failure while starting a session: selector parsing,
// model resolution, tool server sessions or speech setup.
func NewInitError(err error) *AgentError {
	return &AgentError{
		Kind:    InitErrorKind,
		Message: "session initialization error",
		Err:     err,
	}
}

// NewConnectError reports a failure to join the job's room.
func NewConnectError(room string, err error) *AgentError {
	return &AgentError{
		Kind:    ConnectErrorKind,
		Message: fmt.Sprintf("connect to room %q", room),
		Err:     err,
	}
}

// NewSessionError reports a failure of a running session, after start.
func NewSessionError(err error) *AgentError {
	return &AgentError{
		Kind:    SessionErrorKind,
		Message: "agent session failed",
		Err:     err,
	}
}
