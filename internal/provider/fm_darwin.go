//go:build darwin

package provider

import (
	"context"
	"fmt"

	fm "github.com/blacktop/go-foundationmodels"
)

// fmBridge adapts the Foundation Models framework to the Bridge interface.
type fmBridge struct{}

// NewPlatformBridge returns the Foundation Models bridge.
func NewPlatformBridge() Bridge {
	return &fmBridge{}
}

func (b *fmBridge) Available() bool {
	return fm.CheckModelAvailability() == fm.ModelAvailable
}

func (b *fmBridge) NewSession(instructions string) (Session, error) {
	var sess *fm.Session
	if instructions == "" {
		sess = fm.NewSession()
	} else {
		sess = fm.NewSessionWithInstructions(instructions)
	}
	if sess == nil {
		return nil, fmt.Errorf("foundation session creation failed")
	}
	return &fmSession{sess: sess, instructions: instructions}, nil
}

type fmSession struct {
	sess         *fm.Session
	instructions string
}

// Configure swaps the underlying session; the framework fixes instructions
// at session creation.
func (s *fmSession) Configure(instructions string) error {
	if instructions == s.instructions {
		return nil
	}
	next := fm.NewSessionWithInstructions(instructions)
	if next == nil {
		return fmt.Errorf("foundation session creation failed")
	}
	s.sess.Release()
	s.sess = next
	s.instructions = instructions
	return nil
}

func (s *fmSession) Generate(ctx context.Context, prompt string) (string, error) {
	return s.sess.RespondWithContext(ctx, prompt, nil)
}

func (s *fmSession) Dispose() {
	s.sess.Release()
}
