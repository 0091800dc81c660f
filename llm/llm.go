// Package llm defines the boundary to the external text-generation service.
// The gateway core treats generation as opaque: non-determinism lives
// entirely behind this interface.
package llm

import "context"

type Request struct {
	Context     string
	Stop        []string
	Temperature float64
	MaxTokens   int
}

// Client is the generation service. Complete returns the raw generated text
// (empty string signals "no response"); ShouldRespond runs the respond/
// ignore/stop classifier and returns its single-token output verbatim.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	ShouldRespond(ctx context.Context, req Request) (string, error)
}
