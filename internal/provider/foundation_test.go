package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBridge struct {
	available  bool
	probeCalls int
	newErr     error
	sessions   []*fakeSession
}

func (b *fakeBridge) Available() bool {
	b.probeCalls++
	return b.available
}

func (b *fakeBridge) NewSession(instructions string) (Session, error) {
	if b.newErr != nil {
		return nil, b.newErr
	}
	s := &fakeSession{instructions: instructions, out: "generated"}
	b.sessions = append(b.sessions, s)
	return s, nil
}

type fakeSession struct {
	instructions string
	configures   []string
	out          string
	genErr       error
	disposed     int
}

func (s *fakeSession) Configure(instructions string) error {
	s.configures = append(s.configures, instructions)
	s.instructions = instructions
	return nil
}

func (s *fakeSession) Generate(ctx context.Context, prompt string) (string, error) {
	return s.out, s.genErr
}

func (s *fakeSession) Dispose() {
	s.disposed++
}

func TestFoundationAvailableLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	bridge := &fakeBridge{available: true}
	p := NewFoundationProvider(bridge)

	assert.True(t, p.Available(ctx))
	assert.Equal(t, StatusUninitialized, p.Status(), "probing must not change provider state")
	assert.True(t, p.Available(ctx))
	assert.Equal(t, 2, bridge.probeCalls)
}

func TestFoundationModelNeedsNoDownload(t *testing.T) {
	p := NewFoundationProvider(&fakeBridge{available: true})
	assert.True(t, p.ModelDownloaded())
}

func TestFoundationNilBridge(t *testing.T) {
	ctx := context.Background()
	p := NewFoundationProvider(nil)

	assert.False(t, p.Available(ctx))
	assert.Error(t, p.Initialize(ctx, nil))
	assert.Equal(t, StatusError, p.Status())

	_, err := p.Generate(ctx, "s", "u")
	assert.Error(t, err)
}

func TestFoundationInitializeAndGenerate(t *testing.T) {
	ctx := context.Background()
	bridge := &fakeBridge{available: true}
	p := NewFoundationProvider(bridge)

	require.NoError(t, p.Initialize(ctx, nil))
	assert.Equal(t, StatusReady, p.Status())
	require.Len(t, bridge.sessions, 1)

	out, err := p.Generate(ctx, "be brief", "hello")
	require.NoError(t, err)
	assert.Equal(t, "generated", out)

	// Initialize on a ready provider is a no-op.
	require.NoError(t, p.Initialize(ctx, nil))
	assert.Len(t, bridge.sessions, 1)
}

func TestFoundationReconfiguresOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	bridge := &fakeBridge{available: true}
	p := NewFoundationProvider(bridge)
	require.NoError(t, p.Initialize(ctx, nil))
	sess := bridge.sessions[0]

	_, err := p.Generate(ctx, "prompt A", "q1")
	require.NoError(t, err)
	assert.Equal(t, []string{"prompt A"}, sess.configures)

	// Same system prompt: no reconfiguration.
	_, err = p.Generate(ctx, "prompt A", "q2")
	require.NoError(t, err)
	assert.Equal(t, []string{"prompt A"}, sess.configures)

	// Changed system prompt: one more configure call.
	_, err = p.Generate(ctx, "prompt B", "q3")
	require.NoError(t, err)
	assert.Equal(t, []string{"prompt A", "prompt B"}, sess.configures)
}

func TestFoundationGenerateAutoInitializes(t *testing.T) {
	ctx := context.Background()
	bridge := &fakeBridge{available: true}
	p := NewFoundationProvider(bridge)

	out, err := p.Generate(ctx, "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "generated", out)
	assert.Equal(t, StatusReady, p.Status())
	require.Len(t, bridge.sessions, 1)
	assert.Equal(t, []string{"s"}, bridge.sessions[0].configures)
}

func TestFoundationCleanupDisposesSession(t *testing.T) {
	ctx := context.Background()
	bridge := &fakeBridge{available: true}
	p := NewFoundationProvider(bridge)
	require.NoError(t, p.Initialize(ctx, nil))
	sess := bridge.sessions[0]

	require.NoError(t, p.Cleanup(ctx))
	assert.Equal(t, 1, sess.disposed)
	assert.Equal(t, StatusUninitialized, p.Status())

	// The next generation opens a fresh session.
	_, err := p.Generate(ctx, "s", "u")
	require.NoError(t, err)
	assert.Len(t, bridge.sessions, 2)
	assert.Equal(t, StatusReady, p.Status())
}

func TestFoundationSessionCreationFailure(t *testing.T) {
	ctx := context.Background()
	bridge := &fakeBridge{available: true, newErr: errors.New("framework busy")}
	p := NewFoundationProvider(bridge)

	err := p.Initialize(ctx, nil)
	require.Error(t, err)
	assert.Equal(t, StatusError, p.Status())
}
