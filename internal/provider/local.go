package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/GarrettC14/nutrirx-llm/internal/catalog"
	"github.com/GarrettC14/nutrirx-llm/internal/download"
	"github.com/GarrettC14/nutrirx-llm/internal/llama"
	"github.com/GarrettC14/nutrirx-llm/internal/prompt"
)

const (
	// responseReserveTokens is held back from the context window for the
	// model's reply.
	responseReserveTokens = 512

	// charsPerToken is the rough token estimate used for prompt
	// truncation.
	charsPerToken = 4

	generationTemperature = 0.7
	generationTopP        = 0.9
)

// LocalProvider runs a quantized model through the embedded llama runtime.
// The model binary is downloaded on first initialize and kept under the
// models directory.
type LocalProvider struct {
	model      *catalog.Model
	modelsDir  string
	runtime    llama.Runtime
	downloader *download.Downloader

	mu     sync.Mutex
	status Status
	lctx   llama.Context
}

// NewLocalProvider creates the local runtime provider. model may be nil when
// the device RAM matches no catalog entry; the provider then reports
// unavailable.
func NewLocalProvider(model *catalog.Model, modelsDir string, runtime llama.Runtime) *LocalProvider {
	return &LocalProvider{
		model:      model,
		modelsDir:  modelsDir,
		runtime:    runtime,
		downloader: download.NewDownloader(),
		status:     StatusUninitialized,
	}
}

// Name embeds the selected model so logs distinguish catalog tiers.
func (p *LocalProvider) Name() string {
	if p.model == nil {
		return "llama"
	}
	return "llama-" + string(p.model.Tier)
}

// Available reports whether a model is selected and the native runtime is
// compiled in.
func (p *LocalProvider) Available(ctx context.Context) bool {
	if p.model == nil {
		return false
	}
	if p.runtime == nil || !p.runtime.Available() {
		log.Debug().Msg("llama runtime not available in this build")
		return false
	}
	return true
}

func (p *LocalProvider) modelPath() string {
	return filepath.Join(p.modelsDir, p.model.Filename)
}

// ModelDownloaded reports whether the model binary exists on disk with a
// plausible size.
func (p *LocalProvider) ModelDownloaded() bool {
	if p.model == nil {
		return false
	}
	info, err := os.Stat(p.modelPath())
	if err != nil {
		return false
	}
	return download.WithinTolerance(info.Size(), p.model.SizeBytes)
}

// ModelInfo returns the catalog entry backing this provider.
func (p *LocalProvider) ModelInfo() *catalog.Model {
	return p.model
}

// Initialize downloads the model when absent and loads it into the runtime.
// Calling it on a ready provider is a no-op.
func (p *LocalProvider) Initialize(ctx context.Context, onProgress download.ProgressFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initLocked(ctx, onProgress)
}

// initLocked runs the download-and-load sequence. Callers hold p.mu.
func (p *LocalProvider) initLocked(ctx context.Context, onProgress download.ProgressFunc) error {
	if p.status == StatusReady && p.lctx != nil {
		return nil
	}
	if p.model == nil {
		p.status = StatusError
		return fmt.Errorf("no model selected for this device")
	}
	if p.runtime == nil || !p.runtime.Available() {
		p.status = StatusError
		return fmt.Errorf("llama runtime not available")
	}

	p.status = StatusChecking
	if !p.modelPresent() {
		p.status = StatusDownloading
		log.Info().
			Str("model", p.model.Name).
			Str("url", p.model.URL).
			Msg("downloading model")

		res := p.downloader.Download(ctx, p.model.URL, p.modelPath(), p.model.SizeBytes, p.model.SHA256, onProgress)
		if !res.Success {
			p.status = StatusError
			if res.Cancelled {
				p.status = StatusUninitialized
			}
			return fmt.Errorf("model download: %s", res.Error)
		}
	}

	p.status = StatusInitializing
	lctx, err := p.runtime.Init(ctx, llama.Config{
		ModelPath:   p.modelPath(),
		ContextSize: p.model.ContextWindow,
		Threads:     p.model.Threads,
	})
	if err != nil {
		p.status = StatusError
		return fmt.Errorf("load model: %w", err)
	}
	p.lctx = lctx
	p.status = StatusReady
	log.Info().Str("model", p.model.Name).Msg("local provider ready")
	return nil
}

// modelPresent is ModelDownloaded without re-locking.
func (p *LocalProvider) modelPresent() bool {
	info, err := os.Stat(p.modelPath())
	if err != nil {
		return false
	}
	return download.WithinTolerance(info.Size(), p.model.SizeBytes)
}

// Generate formats the prompts in the model's dialect and runs a completion,
// initializing the provider first when no context is loaded. Overlong user
// prompts are truncated so the context window keeps room for the reply.
func (p *LocalProvider) Generate(ctx context.Context, system, user string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lctx == nil || p.status != StatusReady {
		if err := p.initLocked(ctx, nil); err != nil {
			return "", err
		}
	}

	full, err := p.buildPrompt(system, user)
	if err != nil {
		return "", err
	}

	if err := p.lctx.ClearCache(); err != nil {
		log.Warn().Err(err).Msg("clear cache before completion")
	}

	res, err := p.lctx.Completion(ctx, llama.CompletionParams{
		Prompt:      full,
		MaxTokens:   responseReserveTokens,
		Temperature: generationTemperature,
		TopP:        generationTopP,
		StopTokens:  p.model.StopTokens,
	})
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	return res.Text, nil
}

// buildPrompt formats system and user into the model's dialect, truncating
// the user prompt when the estimate exceeds the context budget.
func (p *LocalProvider) buildPrompt(system, user string) (string, error) {
	budgetChars := (p.model.ContextWindow - responseReserveTokens) * charsPerToken
	if budgetChars <= 0 {
		return "", fmt.Errorf("context window %d too small", p.model.ContextWindow)
	}

	full := prompt.Format(p.model.Dialect, system, user)
	if len(full) <= budgetChars {
		return full, nil
	}

	overhead := len(prompt.Format(p.model.Dialect, system, ""))
	allowed := budgetChars - overhead
	if allowed <= 0 {
		return "", fmt.Errorf("system prompt exceeds context budget")
	}
	log.Warn().
		Int("user_len", len(user)).
		Int("allowed", allowed).
		Msg("truncating user prompt to fit context window")
	return prompt.Format(p.model.Dialect, system, user[:allowed]), nil
}

func (p *LocalProvider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Cleanup releases the loaded model. The model binary stays on disk.
func (p *LocalProvider) Cleanup(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lctx != nil {
		if err := p.lctx.Release(); err != nil {
			log.Warn().Err(err).Msg("release llama context")
		}
		p.lctx = nil
	}
	p.status = StatusUninitialized
	log.Debug().Str("provider", p.Name()).Msg("local provider cleaned up")
	return nil
}

// DeleteModel releases the runtime and removes the model binary.
func (p *LocalProvider) DeleteModel() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.model == nil {
		return nil
	}
	if p.lctx != nil {
		if err := p.lctx.Release(); err != nil {
			log.Warn().Err(err).Msg("release llama context")
		}
		p.lctx = nil
	}
	p.status = StatusUninitialized

	if err := os.Remove(p.modelPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete model: %w", err)
	}
	log.Info().Str("model", p.model.Name).Msg("model deleted")
	return nil
}

// CancelDownload flags the in-flight download to stop at the next chunk.
func (p *LocalProvider) CancelDownload() {
	p.downloader.Cancel()
}
