package completion

import (
	"context"

	"github.com/sweetpotato0/ragline/message"
)

// Model is the chat-completion contract the engine consumes. The LLM-assisted
// decomposer and conflict detector treat any single call as fallible and fall
// back to their heuristic counterparts on error.
type Model interface {
	Complete(ctx context.Context, messages []*message.Message) (string, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, messages []*message.Message) (string, error)

// Complete implements Model.
func (f ModelFunc) Complete(ctx context.Context, messages []*message.Message) (string, error) {
	return f(ctx, messages)
}
