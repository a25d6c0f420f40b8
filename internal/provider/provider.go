// Package provider implements the text generation backends and the manager
// that resolves exactly one of them for the current device. Backends share a
// single lifecycle interface; the foundation backend bridges to the platform
// model framework, the local backend runs a quantized model through the
// embedded llama runtime, and the unsupported backend terminates the fallback
// chain on devices that cannot run either.
package provider

import (
	"context"
	"errors"

	"github.com/GarrettC14/nutrirx-llm/internal/catalog"
	"github.com/GarrettC14/nutrirx-llm/internal/download"
)

// Status is the lifecycle state of a provider.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusChecking      Status = "checking"
	StatusDownloading   Status = "downloading"
	StatusInitializing  Status = "initializing"
	StatusReady         Status = "ready"
	StatusError         Status = "error"
	StatusUnsupported   Status = "unsupported"
)

var (
	// ErrGenerationUnsupported is returned by Generate on devices that
	// cannot run any model backend.
	ErrGenerationUnsupported = errors.New("text generation is not supported on this device")

	// ErrProviderNotReady is returned by the manager when Generate is
	// called before the committed provider reached the ready state.
	ErrProviderNotReady = errors.New("provider not initialized")

	// ErrNoProvider is returned by manager operations invoked before
	// Resolve has selected a backend.
	ErrNoProvider = errors.New("no provider resolved")
)

// Provider is one text generation backend.
type Provider interface {
	// Name identifies the backend in logs and status output.
	Name() string

	// Available reports whether this backend can serve the current device.
	// A false return is a capability statement, not an error. The probe
	// must not mutate provider state.
	Available(ctx context.Context) bool

	// Initialize prepares the backend for generation, downloading model
	// assets when needed. onProgress may be nil. Idempotent when already
	// ready.
	Initialize(ctx context.Context, onProgress download.ProgressFunc) error

	// Generate produces a completion for the system and user prompts,
	// initializing the backend first when it is not ready.
	Generate(ctx context.Context, system, user string) (string, error)

	// Status returns the current lifecycle state.
	Status() Status

	// Cleanup releases backend resources. Safe to call repeatedly; a
	// cleaned-up provider may be initialized again.
	Cleanup(ctx context.Context) error
}

// ModelStore is implemented by providers that manage an on-disk model file.
type ModelStore interface {
	// ModelDownloaded reports whether the model binary is present and
	// plausibly complete.
	ModelDownloaded() bool

	// ModelInfo returns the catalog entry backing this provider, or nil.
	ModelInfo() *catalog.Model

	// DeleteModel removes the model binary from disk.
	DeleteModel() error

	// CancelDownload requests cooperative cancellation of an in-flight
	// download.
	CancelDownload()
}
