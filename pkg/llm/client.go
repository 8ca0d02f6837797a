// Package llm provides the completion capability the narrative engine is
// built on: free-text completion and schema-constrained structured
// completion, provider-agnostic.
package llm

import "context"

// Request carries one completion call. Temperature and MaxTokens are passed
// through when non-zero; JSONMode tightens the prompt toward a bare JSON
// response.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// Client is the completion capability. Implementations choose provider,
// model and tier; callers never inspect the concrete backend. Calls are
// idempotent from the engine's point of view and may be retried internally
// on transient failures.
type Client interface {
	// Complete returns the raw text of one completion.
	Complete(ctx context.Context, req Request) (string, error)

	// CompleteStructured completes with a JSON-schema constraint derived
	// from out's type and unmarshals the response into out. It falls back to
	// tolerant extraction before failing with a *StructureError.
	CompleteStructured(ctx context.Context, req Request, out any) error
}
