package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/GarrettC14/nutrirx-llm/internal/download"
)

// Bridge abstracts the platform foundation model framework so the provider
// can be tested off-device.
type Bridge interface {
	// Available probes whether the platform model can be used right now.
	Available() bool

	// NewSession opens a generation session with the given system
	// instructions.
	NewSession(instructions string) (Session, error)
}

// Session is one platform generation session.
type Session interface {
	// Configure replaces the session's system instructions.
	Configure(instructions string) error

	// Generate produces a completion for the user prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Dispose releases the session.
	Dispose()
}

// FoundationProvider generates text through the operating system's built-in
// model. No download or prompt templating is involved; the platform manages
// the model weights and chat structure itself.
type FoundationProvider struct {
	bridge Bridge

	mu           sync.Mutex
	status       Status
	sess         Session
	instructions string
}

// NewFoundationProvider creates the platform-model provider. bridge may be
// nil on platforms without the framework; the provider then reports
// unavailable.
func NewFoundationProvider(bridge Bridge) *FoundationProvider {
	return &FoundationProvider{bridge: bridge, status: StatusUninitialized}
}

func (p *FoundationProvider) Name() string { return "foundation" }

// Available asks the platform framework whether the model can be used right
// now. The probe reads no provider state and writes none.
func (p *FoundationProvider) Available(ctx context.Context) bool {
	if p.bridge == nil {
		return false
	}
	available := p.bridge.Available()
	log.Debug().Bool("available", available).Msg("foundation model availability probed")
	return available
}

// ModelDownloaded always reports true: the platform ships the model with
// the operating system, nothing is fetched.
func (p *FoundationProvider) ModelDownloaded() bool { return true }

func (p *FoundationProvider) Initialize(ctx context.Context, onProgress download.ProgressFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initLocked()
}

// initLocked opens the session. Callers hold p.mu.
func (p *FoundationProvider) initLocked() error {
	if p.status == StatusReady && p.sess != nil {
		return nil
	}
	if p.bridge == nil {
		p.status = StatusError
		return fmt.Errorf("foundation model framework not present")
	}

	p.status = StatusInitializing
	sess, err := p.bridge.NewSession("")
	if err != nil {
		p.status = StatusError
		return fmt.Errorf("open foundation session: %w", err)
	}
	p.sess = sess
	p.instructions = ""
	p.status = StatusReady
	log.Info().Msg("foundation provider ready")
	return nil
}

// Generate produces a completion, opening a session first when none exists.
func (p *FoundationProvider) Generate(ctx context.Context, system, user string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sess == nil || p.status != StatusReady {
		if err := p.initLocked(); err != nil {
			return "", err
		}
	}

	// Reconfigure only when the system prompt actually changed.
	if system != p.instructions {
		if err := p.sess.Configure(system); err != nil {
			return "", fmt.Errorf("configure session: %w", err)
		}
		p.instructions = system
	}

	out, err := p.sess.Generate(ctx, user)
	if err != nil {
		return "", fmt.Errorf("foundation generation: %w", err)
	}
	return out, nil
}

func (p *FoundationProvider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Cleanup disposes the session. Disposal never fails the caller; the
// session is gone either way.
func (p *FoundationProvider) Cleanup(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sess != nil {
		p.sess.Dispose()
		p.sess = nil
	}
	p.instructions = ""
	p.status = StatusUninitialized
	log.Debug().Msg("foundation provider cleaned up")
	return nil
}
