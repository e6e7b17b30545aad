package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sweetpotato0/ragline/agentic"
)

// ErrGatewayClosed is returned when the gateway session has been closed.
var ErrGatewayClosed = errors.New("mcp gateway closed")

// Config holds MCP gateway configuration.
type Config struct {
	// Tool is the remote tool name invoked for each query.
	Tool string
	// QueryArgument is the argument key carrying the query text.
	QueryArgument string
	// ExtraArguments are merged into every tool call.
	ExtraArguments map[string]any
	ClientName     string
	ClientVersion  string
}

// DefaultConfig returns default MCP gateway configuration.
func DefaultConfig(tool string) *Config {
	return &Config{
		Tool:          tool,
		QueryArgument: "query",
		ClientName:    "ragline",
		ClientVersion: "0.1.0",
	}
}

// Gateway fetches external knowledge by invoking a tool on an MCP server.
type Gateway struct {
	config  *Config
	client  *sdkmcp.Client
	session *sdkmcp.ClientSession

	closeOnce sync.Once
	closeErr  error
}

// NewStdio launches an MCP server command over the stdio transport and
// performs the initialization handshake.
func NewStdio(ctx context.Context, config *Config, command string, args ...string) (*Gateway, error) {
	if command == "" {
		return nil, errors.New("mcp gateway: command cannot be empty")
	}
	g, err := newGateway(config)
	if err != nil {
		return nil, err
	}

	transport := &sdkmcp.CommandTransport{Command: exec.Command(command, args...)}
	session, err := g.client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp gateway: connect: %w", err)
	}
	g.session = session
	return g, nil
}

// NewStreamable connects to an MCP server over the streamable HTTP transport.
func NewStreamable(ctx context.Context, config *Config, endpoint string, httpClient *http.Client) (*Gateway, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("mcp gateway: endpoint cannot be empty")
	}
	g, err := newGateway(config)
	if err != nil {
		return nil, err
	}

	transport := &sdkmcp.StreamableClientTransport{Endpoint: endpoint}
	if httpClient != nil {
		transport.HTTPClient = httpClient
	}
	session, err := g.client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp gateway: connect: %w", err)
	}
	g.session = session
	return g, nil
}

func newGateway(config *Config) (*Gateway, error) {
	if config == nil || config.Tool == "" {
		return nil, errors.New("mcp gateway: tool name is required")
	}
	if config.QueryArgument == "" {
		config.QueryArgument = "query"
	}
	name := config.ClientName
	if name == "" {
		name = "ragline"
	}
	version := config.ClientVersion
	if version == "" {
		version = "0.1.0"
	}

	impl := &sdkmcp.Implementation{Name: name, Version: version}
	return &Gateway{
		config: config,
		client: sdkmcp.NewClient(impl, nil),
	}, nil
}

// Fetch implements agentic.Gateway. Each non-empty text block in the tool
// response becomes one fragment.
func (g *Gateway) Fetch(ctx context.Context, query string) ([]string, error) {
	if g.session == nil {
		return nil, ErrGatewayClosed
	}

	args := make(map[string]any, len(g.config.ExtraArguments)+1)
	for k, v := range g.config.ExtraArguments {
		args[k] = v
	}
	args[g.config.QueryArgument] = query

	result, err := g.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      g.config.Tool,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("mcp gateway: call %s: %w", g.config.Tool, err)
	}
	if result.IsError {
		return nil, fmt.Errorf("mcp gateway: tool %s reported an error: %s",
			g.config.Tool, normalizeContent(result.Content))
	}

	var fragments []string
	for _, content := range result.Content {
		if text, ok := content.(*sdkmcp.TextContent); ok {
			if trimmed := strings.TrimSpace(text.Text); trimmed != "" {
				fragments = append(fragments, trimmed)
			}
		}
	}
	return fragments, nil
}

// Close terminates the gateway session.
func (g *Gateway) Close() error {
	g.closeOnce.Do(func() {
		if g.session != nil {
			g.closeErr = g.session.Close()
		}
	})
	return g.closeErr
}

func normalizeContent(content []sdkmcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		if text, ok := c.(*sdkmcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

var _ agentic.Gateway = (*Gateway)(nil)
