//go:build !cgo

package llama

import (
	"context"
	"fmt"
)

// unavailableRuntime stands in when the llama.cpp binding cannot be compiled.
// It always reports unavailable, so providers built on it fail the
// availability probe instead of erroring at generation time.
type unavailableRuntime struct{}

// NewRuntime returns a stub runtime on hosts without cgo support.
func NewRuntime() Runtime {
	return &unavailableRuntime{}
}

func (r *unavailableRuntime) Available() bool {
	return false
}

func (r *unavailableRuntime) Init(ctx context.Context, cfg Config) (Context, error) {
	return nil, fmt.Errorf("inference runtime not available on this host")
}
