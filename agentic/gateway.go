package agentic

import "context"

// Gateway fetches out-of-band context snippets, typically from a web search
// or an external tool. It is only consulted as a gap-filling fallback when
// the knowledge base has insufficient coverage, never as a primary path.
type Gateway interface {
	Fetch(ctx context.Context, query string) ([]string, error)
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, query string) ([]string, error)

// Fetch implements Gateway.
func (f GatewayFunc) Fetch(ctx context.Context, query string) ([]string, error) {
	return f(ctx, query)
}
