//go:build cgo

package llama

import (
	"context"
	"fmt"
	"strings"
	"sync"

	gollama "github.com/go-skynet/go-llama.cpp"
	"github.com/rs/zerolog/log"
)

// goLlamaRuntime runs models through the llama.cpp cgo binding.
type goLlamaRuntime struct{}

// NewRuntime returns the llama.cpp-backed runtime.
func NewRuntime() Runtime {
	return &goLlamaRuntime{}
}

func (r *goLlamaRuntime) Available() bool {
	return true
}

func (r *goLlamaRuntime) Init(ctx context.Context, cfg Config) (Context, error) {
	model, err := gollama.New(
		cfg.ModelPath,
		gollama.SetContext(cfg.ContextSize),
		gollama.SetThreads(cfg.Threads),
		gollama.SetGPULayers(cfg.GPULayers),
		gollama.SetParts(-1),
		gollama.EnableF16Memory,
	)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", cfg.ModelPath, err)
	}
	log.Debug().
		Str("model", cfg.ModelPath).
		Int("n_ctx", cfg.ContextSize).
		Int("n_threads", cfg.Threads).
		Int("n_gpu_layers", cfg.GPULayers).
		Msg("inference context created")
	return &goLlamaContext{model: model}, nil
}

// goLlamaContext wraps one loaded llama.cpp model.
type goLlamaContext struct {
	mu    sync.Mutex
	model *gollama.LLama
}

// ClearCache is a no-op for this binding: each Predict call evaluates its
// prompt from a fresh state, so there is no key-value cache to carry over
// between completions.
func (c *goLlamaContext) ClearCache() error {
	return nil
}

func (c *goLlamaContext) Completion(ctx context.Context, params CompletionParams) (CompletionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.model == nil {
		return CompletionResult{}, fmt.Errorf("inference context released")
	}

	var sb strings.Builder
	_, err := c.model.Predict(
		params.Prompt,
		gollama.SetTokens(params.MaxTokens),
		gollama.SetTemperature(params.Temperature),
		gollama.SetTopP(params.TopP),
		gollama.SetStopWords(params.StopTokens...),
		gollama.SetTokenCallback(func(token string) bool {
			sb.WriteString(token)
			select {
			case <-ctx.Done():
				return false
			default:
				return true
			}
		}),
	)
	if err != nil {
		return CompletionResult{}, fmt.Errorf("completion: %w", err)
	}
	return CompletionResult{Text: sb.String()}, nil
}

func (c *goLlamaContext) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.model != nil {
		c.model.Free()
		c.model = nil
	}
	return nil
}
