package provider

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/GarrettC14/nutrirx-llm/internal/download"
)

// UnsupportedProvider terminates the fallback chain. It is always available,
// its status is permanently unsupported, and it rejects every generation
// request with a fixed error so callers can degrade gracefully instead of
// crashing.
type UnsupportedProvider struct{}

// NewUnsupportedProvider creates the terminal fallback provider.
func NewUnsupportedProvider() *UnsupportedProvider {
	return &UnsupportedProvider{}
}

func (p *UnsupportedProvider) Name() string { return "unsupported" }

// Available always reports true; this provider exists so that resolution
// never fails outright.
func (p *UnsupportedProvider) Available(ctx context.Context) bool { return true }

func (p *UnsupportedProvider) Initialize(ctx context.Context, onProgress download.ProgressFunc) error {
	log.Debug().Msg("unsupported provider initialized")
	return nil
}

func (p *UnsupportedProvider) Generate(ctx context.Context, system, user string) (string, error) {
	return "", ErrGenerationUnsupported
}

// Status is constant: the provider is born unsupported and stays that way
// through initialize and cleanup.
func (p *UnsupportedProvider) Status() Status {
	return StatusUnsupported
}

func (p *UnsupportedProvider) Cleanup(ctx context.Context) error {
	return nil
}
