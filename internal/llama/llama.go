// Package llama abstracts the embedded inference runtime that loads a
// downloaded quantized model file. The concrete binding may be absent on
// hosts without cgo support; availability is probed once at construction and
// surfaced through Runtime.Available rather than scattered load guards.
package llama

import "context"

// Config describes how to construct an inference context for one model file.
type Config struct {
	ModelPath   string
	ContextSize int
	Threads     int
	GPULayers   int // zero means CPU-only
}

// CompletionParams is one bounded completion request.
type CompletionParams struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	TopP        float64
	StopTokens  []string
}

// CompletionResult carries the generated text. Text is empty when the runtime
// produced no output.
type CompletionResult struct {
	Text string
}

// Context is a live inference context over one loaded model.
type Context interface {
	// ClearCache drops any key-value cache state so consecutive completions
	// cannot bleed into each other.
	ClearCache() error

	// Completion runs one bounded generation call.
	Completion(ctx context.Context, params CompletionParams) (CompletionResult, error)

	// Release frees the model and all runtime resources.
	Release() error
}

// Runtime constructs inference contexts.
type Runtime interface {
	// Available reports whether the embedded runtime loaded on this host.
	// Safe to call repeatedly; never mutates state.
	Available() bool

	// Init loads the model file and returns a live context.
	Init(ctx context.Context, cfg Config) (Context, error)
}
