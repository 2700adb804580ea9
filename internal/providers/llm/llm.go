// Package llm provides a uniform completion interface over the configured
// model backend (Gemini cloud API or a local Ollama server).
package llm

import "context"

// Options tune a single completion request.
type Options struct {
	Temperature float64
	MaxTokens   int
	// ForceJSON asks the backend to constrain its output to JSON syntax.
	// The result is still not guaranteed to be well-formed.
	ForceJSON bool
}

type ModelInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
}

// Provider is the uniform call into a completion backend. Generate returns
// the raw model text after best-effort truncation repair; structured parsing
// is the caller's concern. CheckHealth and ListModels are diagnostics only
// and never fail — they report a negative/empty result instead.
type Provider interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	CheckHealth(ctx context.Context) bool
	ListModels(ctx context.Context) []ModelInfo
	Name() string
}
