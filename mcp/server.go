// Package mcp connects agents to tool servers speaking the Model Context
// Protocol.
package mcp

import (
	"context"
	"time"

	voiceagent "github.com/paseo/voice-agent"
)

// DefaultTimeout bounds each request to an MCP server when the descriptor
// does not set one.
const DefaultTimeout = 10 * time.Second

// MCPServerHTTP is a remote MCP server reached over the streamable HTTP
// transport.
type MCPServerHTTP struct {
	// URL is the endpoint of the MCP server. It is not validated here; a
	// bad URL fails when the session connects.
	URL string
	// Timeout bounds the initialize handshake and each HTTP request to the
	// server.
	Timeout time.Duration
	// Authorization is an optional header value. A bare token gets the
	// Bearer prefix.
	Authorization string
}

// NewMCPServerHTTP describes a streamable HTTP MCP server at url.
func NewMCPServerHTTP(url string, timeout time.Duration) *MCPServerHTTP {
	return &MCPServerHTTP{URL: url, Timeout: timeout}
}

// Endpoint returns the server URL.
func (s *MCPServerHTTP) Endpoint() string {
	return s.URL
}

// CreateSession connects to the server and lists its tools.
func (s *MCPServerHTTP) CreateSession(ctx context.Context) (voiceagent.ToolkitSession, error) {
	transport, err := buildHTTPTransport(s)
	if err != nil {
		return nil, err
	}
	return newToolkitSession(ctx, transport, timeoutOrDefault(s.Timeout))
}

// MCPServerStdio is a local MCP server launched as a subprocess and reached
// over stdio.
type MCPServerStdio struct {
	// Command is the executable to launch (e.g. "uvx").
	Command string
	// Args are optional arguments passed to the command.
	Args []string
	// Env holds extra KEY=value entries added to the process environment.
	Env []string
	// Timeout bounds the handshake and each tool listing. A process that
	// does not finish the handshake in time is killed.
	Timeout time.Duration
}

// NewMCPServerStdio describes a stdio MCP server started with command and args.
func NewMCPServerStdio(command string, args ...string) *MCPServerStdio {
	return &MCPServerStdio{Command: command, Args: args, Timeout: DefaultTimeout}
}

// Endpoint returns the command line.
func (s *MCPServerStdio) Endpoint() string {
	endpoint := s.Command
	for _, arg := range s.Args {
		endpoint += " " + arg
	}
	return endpoint
}

// CreateSession launches the server process and lists its tools.
func (s *MCPServerStdio) CreateSession(ctx context.Context) (voiceagent.ToolkitSession, error) {
	transport, err := buildStdioTransport(s)
	if err != nil {
		return nil, err
	}
	return newToolkitSession(ctx, transport, timeoutOrDefault(s.Timeout))
}

func timeoutOrDefault(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultTimeout
	}
	return timeout
}

var (
	_ voiceagent.MCPServer = (*MCPServerHTTP)(nil)
	_ voiceagent.MCPServer = (*MCPServerStdio)(nil)
)
