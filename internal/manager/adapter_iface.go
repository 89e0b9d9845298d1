package manager

import (
	"context"

	"vanguardd/pkg/types"
)

// ChatAdapter abstracts the model runtime used by the Manager.
// Concrete implementations (e.g., llama.cpp) satisfy this interface.
type ChatAdapter interface {
	// Load initializes an instance for the given artifact path and parameters.
	Load(path string, params LoadParams) (ModelSession, error)
}

// ModelSession represents the loaded instance for the process lifetime.
type ModelSession interface {
	// ChatComplete generates a completion for the given messages.
	// Implementations must return when the context is canceled.
	ChatComplete(ctx context.Context, msgs []types.ChatMessage, opts GenOptions) (CompletionResult, error)
	// Close releases resources associated with the instance.
	Close() error
}

// LoadParams captures load-time parameters passed to the adapter.
type LoadParams struct {
	CtxSize   int
	GPULayers int
	Threads   int
}

// CompletionResult summarizes one generation.
type CompletionResult struct {
	Content      string
	FinishReason string
}
