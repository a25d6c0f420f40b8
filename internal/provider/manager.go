package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GarrettC14/nutrirx-llm/internal/catalog"
	"github.com/GarrettC14/nutrirx-llm/internal/device"
	"github.com/GarrettC14/nutrirx-llm/internal/download"
	"github.com/GarrettC14/nutrirx-llm/internal/llama"
	"github.com/GarrettC14/nutrirx-llm/internal/metrics"
)

// ManagerConfig carries the manager's dependencies. Candidates may be set
// by tests to inject fake providers; when nil the default chain is used.
type ManagerConfig struct {
	Classifier *device.Classifier
	ModelsDir  string
	Runtime    llama.Runtime
	Bridge     Bridge
	Candidates func(device.Classification) []Provider
}

// Manager resolves exactly one provider for the current device and fronts
// its lifecycle. Resolution probes candidates in priority order: the
// platform foundation model first, then the local runtime, then the
// unsupported terminal fallback.
type Manager struct {
	cfg ManagerConfig

	mu             sync.Mutex
	resolving      chan struct{}
	provider       Provider
	classification *device.Classification
}

// NewManager creates a provider manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Classifier == nil {
		cfg.Classifier = device.NewClassifier(nil)
	}
	m := &Manager{cfg: cfg}
	if m.cfg.Candidates == nil {
		m.cfg.Candidates = m.defaultCandidates
	}
	return m
}

// defaultCandidates builds the priority-ordered backend chain for one
// classification.
func (m *Manager) defaultCandidates(c device.Classification) []Provider {
	var cands []Provider
	if c.Tier == device.TierAppleFoundation {
		cands = append(cands, NewFoundationProvider(m.cfg.Bridge))
	}
	if c.Tier != device.TierUnsupported {
		model := catalog.SelectForRAM(c.RAMGB)
		cands = append(cands, NewLocalProvider(model, m.cfg.ModelsDir, m.cfg.Runtime))
	}
	return append(cands, NewUnsupportedProvider())
}

// Resolve classifies the device and commits the first available candidate.
// The result is cached; subsequent calls return the committed provider.
// Concurrent callers wait for the in-flight resolution instead of racing
// the probe.
func (m *Manager) Resolve(ctx context.Context) (Provider, error) {
	for {
		m.mu.Lock()
		if m.provider != nil {
			p := m.provider
			m.mu.Unlock()
			return p, nil
		}
		if m.resolving == nil {
			m.resolving = make(chan struct{})
			m.mu.Unlock()
			break
		}
		inflight := m.resolving
		m.mu.Unlock()
		select {
		case <-inflight:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	defer func() {
		m.mu.Lock()
		close(m.resolving)
		m.resolving = nil
		m.mu.Unlock()
	}()

	c := m.cfg.Classifier.Classify(ctx)
	log.Debug().
		Str("tier", string(c.Tier)).
		Float64("ram_gb", c.RAMGB).
		Bool("foundation_eligible", c.FoundationEligible).
		Msg("resolving provider")

	for _, p := range m.cfg.Candidates(c) {
		if !p.Available(ctx) {
			log.Debug().Str("provider", p.Name()).Msg("provider unavailable, trying next")
			continue
		}
		m.mu.Lock()
		m.provider = p
		m.classification = &c
		m.mu.Unlock()

		metrics.Resolutions.WithLabelValues(string(c.Tier), p.Name()).Inc()
		log.Info().
			Str("provider", p.Name()).
			Str("tier", string(c.Tier)).
			Msg("provider resolved")
		return p, nil
	}
	return nil, ErrNoProvider
}

// Current returns the committed provider, or nil before Resolve.
func (m *Manager) Current() Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.provider
}

// Classification returns the cached device classification, or nil before
// Resolve.
func (m *Manager) Classification() *device.Classification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classification
}

// Initialize prepares the resolved provider, resolving first when needed.
func (m *Manager) Initialize(ctx context.Context, onProgress download.ProgressFunc) error {
	p, err := m.Resolve(ctx)
	if err != nil {
		return err
	}
	return p.Initialize(ctx, onProgress)
}

// Generate forwards to the resolved provider and records the outcome.
// Initialization is an explicit step at this level: a provider that is not
// ready is rejected here rather than initialized mid-request.
func (m *Manager) Generate(ctx context.Context, system, user string) (string, error) {
	p := m.Current()
	if p == nil {
		return "", ErrNoProvider
	}
	switch p.Status() {
	case StatusReady:
	case StatusUnsupported:
		metrics.Generations.WithLabelValues(p.Name(), "rejected").Inc()
		return "", ErrGenerationUnsupported
	default:
		metrics.Generations.WithLabelValues(p.Name(), "rejected").Inc()
		return "", ErrProviderNotReady
	}

	reqID := uuid.NewString()
	start := time.Now()
	out, err := p.Generate(ctx, system, user)
	elapsed := time.Since(start)

	outcome := "success"
	switch {
	case errors.Is(err, ErrGenerationUnsupported):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	metrics.Generations.WithLabelValues(p.Name(), outcome).Inc()
	metrics.GenerationSeconds.WithLabelValues(p.Name()).Observe(elapsed.Seconds())

	log.Debug().
		Str("request_id", reqID).
		Str("provider", p.Name()).
		Str("outcome", outcome).
		Dur("elapsed", elapsed).
		Msg("generation finished")
	return out, err
}

// Status reports the resolved provider's lifecycle state, or
// StatusUninitialized before resolution.
func (m *Manager) Status() Status {
	p := m.Current()
	if p == nil {
		return StatusUninitialized
	}
	return p.Status()
}

// Cleanup releases the resolved provider's resources. The provider stays
// committed; Reset discards it.
func (m *Manager) Cleanup(ctx context.Context) error {
	p := m.Current()
	if p == nil {
		return nil
	}
	if err := p.Cleanup(ctx); err != nil {
		log.Warn().Err(err).Str("provider", p.Name()).Msg("provider cleanup failed")
	}
	return nil
}

// Reset cleans up and forgets the resolved provider and classification so
// the next Resolve re-probes from scratch.
func (m *Manager) Reset(ctx context.Context) {
	m.mu.Lock()
	p := m.provider
	m.provider = nil
	m.classification = nil
	m.mu.Unlock()

	if p != nil {
		if err := p.Cleanup(ctx); err != nil {
			log.Warn().Err(err).Str("provider", p.Name()).Msg("provider cleanup failed")
		}
	}
	log.Debug().Msg("provider manager reset")
}

// ModelDownloaded reports whether the resolved provider has its model
// available locally. The foundation backend always reports true (the OS
// ships the model); providers without one report false.
func (m *Manager) ModelDownloaded() bool {
	if s, ok := m.Current().(interface{ ModelDownloaded() bool }); ok {
		return s.ModelDownloaded()
	}
	return false
}

// ModelInfo returns the resolved provider's catalog entry, or nil for
// providers without one.
func (m *Manager) ModelInfo() *catalog.Model {
	if s, ok := m.Current().(ModelStore); ok {
		return s.ModelInfo()
	}
	return nil
}

// DeleteModel removes the resolved provider's model binary. A no-op for
// providers without a model store.
func (m *Manager) DeleteModel() error {
	if s, ok := m.Current().(ModelStore); ok {
		return s.DeleteModel()
	}
	return nil
}

// CancelDownload flags the resolved provider's download to stop. A no-op
// for providers without a model store.
func (m *Manager) CancelDownload() {
	if s, ok := m.Current().(ModelStore); ok {
		s.CancelDownload()
	}
}
