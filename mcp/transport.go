package mcp

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// buildHTTPTransport constructs the streamable HTTP transport for server.
// The descriptor timeout bounds the wait for response headers; it does not cut
// off the long-lived event stream the server pushes notifications on.
func buildHTTPTransport(server *MCPServerHTTP) (*handshakeTransport, error) {
	if strings.TrimSpace(server.URL) == "" {
		return nil, errors.New("mcp streamable-http url cannot be empty")
	}

	httpTransport := http.DefaultTransport.(*http.Transport).Clone()
	httpTransport.ResponseHeaderTimeout = timeoutOrDefault(server.Timeout)

	var base http.RoundTripper = httpTransport
	if token := strings.TrimSpace(server.Authorization); token != "" {
		base = &authHeaderRoundTripper{
			base:  httpTransport,
			value: ensureBearerPrefix(token),
		}
	}

	return &handshakeTransport{Transport: &mcp.StreamableClientTransport{
		Endpoint:   server.URL,
		HTTPClient: &http.Client{Transport: base},
	}}, nil
}

// buildStdioTransport launches server as a subprocess speaking MCP on stdio.
func buildStdioTransport(server *MCPServerStdio) (*handshakeTransport, error) {
	if server.Command == "" {
		return nil, errors.New("mcp stdio command cannot be empty")
	}
	cmd := exec.Command(server.Command, server.Args...)
	if len(server.Env) > 0 {
		cmd.Env = append(os.Environ(), server.Env...)
	}
	return &handshakeTransport{
		Transport: &mcp.CommandTransport{Command: cmd},
		kill: func() {
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
		},
	}, nil
}

// handshakeTransport remembers the connection its transport opened so a
// stalled initialize can be torn down from outside mcp.Client.Connect.
type handshakeTransport struct {
	mcp.Transport
	// kill stops the backing process, if any. Closing a stdio connection
	// waits for the process to exit on its own first.
	kill func()

	mu      sync.Mutex
	conn    mcp.Connection
	aborted bool
}

func (t *handshakeTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.aborted {
		return nil, errors.New("mcp transport aborted")
	}
	conn, err := t.Transport.Connect(ctx)
	if err != nil {
		return nil, err
	}
	t.conn = conn
	return conn, nil
}

// abort kills the backing process and closes the connection so a pending
// handshake returns.
func (t *handshakeTransport) abort() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.aborted = true
	if t.kill != nil {
		t.kill()
	}
	if conn := t.conn; conn != nil {
		go func() { _ = conn.Close() }()
	}
}

// authHeaderRoundTripper injects an Authorization header because the Go MCP SDK does not yet expose
// a helper for bearer tokens on the streamable HTTP client.
type authHeaderRoundTripper struct {
	base  http.RoundTripper
	value string
}

func (rt *authHeaderRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", rt.value)
	base := rt.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

// ensureBearerPrefix normalises tokens so the Authorization header always carries the Bearer prefix.
func ensureBearerPrefix(token string) string {
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return token
	}
	return "Bearer " + token
}
