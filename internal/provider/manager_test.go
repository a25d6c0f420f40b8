package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GarrettC14/nutrirx-llm/internal/device"
	"github.com/GarrettC14/nutrirx-llm/internal/download"
)

type fakeProvider struct {
	name           string
	available      bool
	availableCalls int
	availableGate  chan struct{}
	initErr        error
	out            string
	genErr         error
	status         Status
	cleanups       int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Available(ctx context.Context) bool {
	p.availableCalls++
	if p.availableGate != nil {
		<-p.availableGate
	}
	return p.available
}

func (p *fakeProvider) Initialize(ctx context.Context, onProgress download.ProgressFunc) error {
	if p.initErr == nil {
		p.status = StatusReady
	}
	return p.initErr
}

func (p *fakeProvider) Generate(ctx context.Context, system, user string) (string, error) {
	return p.out, p.genErr
}

func (p *fakeProvider) Status() Status { return p.status }

func (p *fakeProvider) Cleanup(ctx context.Context) error {
	p.cleanups++
	p.status = StatusUninitialized
	return nil
}

type fakeDeviceSource struct {
	ram       int64
	abis      []string
	model     string
	osName    string
	osVersion int
}

func (f *fakeDeviceSource) TotalMemory(ctx context.Context) (int64, error) { return f.ram, nil }
func (f *fakeDeviceSource) SupportedABIs(ctx context.Context) ([]string, error) {
	return f.abis, nil
}
func (f *fakeDeviceSource) Model(ctx context.Context) (string, error)  { return f.model, nil }
func (f *fakeDeviceSource) OSName() string                             { return f.osName }
func (f *fakeDeviceSource) OSVersion(ctx context.Context) (int, error) { return f.osVersion, nil }

func managerWith(providers ...Provider) *Manager {
	return NewManager(ManagerConfig{
		Candidates: func(device.Classification) []Provider { return providers },
	})
}

func TestResolveCommitsFirstAvailable(t *testing.T) {
	ctx := context.Background()
	first := &fakeProvider{name: "first", available: false}
	second := &fakeProvider{name: "second", available: true}
	third := &fakeProvider{name: "third", available: true}
	m := managerWith(first, second, third)

	p, err := m.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", p.Name())
	assert.Equal(t, 1, first.availableCalls)
	assert.Equal(t, 1, second.availableCalls)
	assert.Equal(t, 0, third.availableCalls, "probing stops at the first available provider")
}

func TestResolveIsCached(t *testing.T) {
	ctx := context.Background()
	p1 := &fakeProvider{name: "only", available: true}
	m := managerWith(p1)

	a, err := m.Resolve(ctx)
	require.NoError(t, err)
	b, err := m.Resolve(ctx)
	require.NoError(t, err)

	assert.Same(t, a.(*fakeProvider), b.(*fakeProvider))
	assert.Equal(t, 1, p1.availableCalls, "committed provider must not be re-probed")
}

func TestResolveNoCandidateAvailable(t *testing.T) {
	m := managerWith(&fakeProvider{name: "a"}, &fakeProvider{name: "b"})
	_, err := m.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestResolveConcurrentWaitersShareOneProbe(t *testing.T) {
	gate := make(chan struct{})
	slow := &fakeProvider{name: "slow", available: true, availableGate: gate}
	m := managerWith(slow)

	type result struct {
		p   Provider
		err error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			p, err := m.Resolve(context.Background())
			results <- result{p, err}
		}()
	}

	// Wait for the first resolution to enter the probe, then release it.
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.resolving != nil
	}, 2*time.Second, time.Millisecond)
	close(gate)

	a := <-results
	b := <-results
	require.NoError(t, a.err)
	require.NoError(t, b.err)
	assert.Same(t, a.p.(*fakeProvider), b.p.(*fakeProvider))
	assert.Equal(t, 1, slow.availableCalls, "waiters must not trigger a second probe")
}

func TestResolveWaiterHonoursContext(t *testing.T) {
	gate := make(chan struct{})
	slow := &fakeProvider{name: "slow", available: true, availableGate: gate}
	m := managerWith(slow)

	done := make(chan error, 1)
	go func() {
		_, err := m.Resolve(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.resolving != nil
	}, 2*time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Resolve(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(gate)
	require.NoError(t, <-done)
}

func TestDefaultChainTerminatesAtUnsupported(t *testing.T) {
	// Foundation-eligible device, but no platform bridge and no native
	// runtime in this build: the chain must land on the terminal fallback.
	m := NewManager(ManagerConfig{
		Classifier: device.NewClassifier(&fakeDeviceSource{
			ram:       8 * 1024 * 1024 * 1024,
			abis:      []string{"arm64e"},
			model:     "iPhone17,3",
			osName:    "ios",
			osVersion: 26,
		}),
		ModelsDir: t.TempDir(),
	})

	p, err := m.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unsupported", p.Name())

	c := m.Classification()
	require.NotNil(t, c)
	assert.Equal(t, device.TierAppleFoundation, c.Tier)

	require.NoError(t, m.Initialize(context.Background(), nil))
	_, err = m.Generate(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrGenerationUnsupported)
}

func TestGenerateBeforeResolve(t *testing.T) {
	m := managerWith(&fakeProvider{name: "p", available: true})
	_, err := m.Generate(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestGenerateRequiresReadyProvider(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{name: "p", available: true, out: "answer"}
	m := managerWith(p)

	_, err := m.Resolve(ctx)
	require.NoError(t, err)

	// Resolved but not initialized: rejected without touching the provider.
	_, err = m.Generate(ctx, "s", "u")
	assert.ErrorIs(t, err, ErrProviderNotReady)

	require.NoError(t, m.Initialize(ctx, nil))
	out, err := m.Generate(ctx, "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestGenerateRejectsUnsupportedProvider(t *testing.T) {
	ctx := context.Background()
	m := managerWith(NewUnsupportedProvider())

	_, err := m.Resolve(ctx)
	require.NoError(t, err)

	_, err = m.Generate(ctx, "s", "u")
	assert.ErrorIs(t, err, ErrGenerationUnsupported)
}

func TestGenerateForwardsToProvider(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{name: "p", available: true, out: "answer"}
	m := managerWith(p)

	require.NoError(t, m.Initialize(ctx, nil))

	out, err := m.Generate(ctx, "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestGenerateForwardsErrors(t *testing.T) {
	ctx := context.Background()
	genErr := errors.New("inference failed")
	p := &fakeProvider{name: "p", available: true, genErr: genErr}
	m := managerWith(p)
	require.NoError(t, m.Initialize(ctx, nil))

	_, err := m.Generate(ctx, "s", "u")
	assert.ErrorIs(t, err, genErr)
}

func TestStatusBeforeAndAfterResolve(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{name: "p", available: true, status: StatusUninitialized}
	m := managerWith(p)

	assert.Equal(t, StatusUninitialized, m.Status())

	require.NoError(t, m.Initialize(ctx, nil))
	assert.Equal(t, StatusReady, m.Status())
}

func TestResetForgetsProviderAndReprobes(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{name: "p", available: true}
	m := managerWith(p)

	_, err := m.Resolve(ctx)
	require.NoError(t, err)
	require.NotNil(t, m.Current())
	require.NotNil(t, m.Classification())

	m.Reset(ctx)
	assert.Nil(t, m.Current())
	assert.Nil(t, m.Classification())
	assert.Equal(t, 1, p.cleanups)

	_, err = m.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, p.availableCalls, "reset must force a fresh probe")
}

func TestCleanupKeepsProviderCommitted(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{name: "p", available: true}
	m := managerWith(p)
	require.NoError(t, m.Initialize(ctx, nil))

	require.NoError(t, m.Cleanup(ctx))
	assert.Equal(t, 1, p.cleanups)
	assert.NotNil(t, m.Current(), "cleanup must not discard the resolved provider")
}

func TestModelPassthroughsAreNeutralWithoutStore(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{name: "p", available: true}
	m := managerWith(p)

	// Before resolution.
	assert.False(t, m.ModelDownloaded())
	assert.Nil(t, m.ModelInfo())
	assert.NoError(t, m.DeleteModel())
	m.CancelDownload()

	// After resolving a provider without a model store.
	_, err := m.Resolve(ctx)
	require.NoError(t, err)
	assert.False(t, m.ModelDownloaded())
	assert.Nil(t, m.ModelInfo())
	assert.NoError(t, m.DeleteModel())
	m.CancelDownload()
}

func TestModelDownloadedForFoundationBackend(t *testing.T) {
	ctx := context.Background()
	m := managerWith(NewFoundationProvider(&fakeBridge{available: true}))

	_, err := m.Resolve(ctx)
	require.NoError(t, err)

	// The platform ships the model; nothing is fetched.
	assert.True(t, m.ModelDownloaded())
	assert.Nil(t, m.ModelInfo())
	assert.NoError(t, m.DeleteModel())
}

func TestFoundationCandidateRequiresFoundationTier(t *testing.T) {
	// Eligible hardware on an older OS classifies as standard; the
	// foundation backend must not be probed even with a working bridge.
	bridge := &fakeBridge{available: true}
	m := NewManager(ManagerConfig{
		Classifier: device.NewClassifier(&fakeDeviceSource{
			ram:       8 * 1024 * 1024 * 1024,
			abis:      []string{"arm64e"},
			model:     "iPhone17,3",
			osName:    "ios",
			osVersion: 18,
		}),
		ModelsDir: t.TempDir(),
		Bridge:    bridge,
	})

	p, err := m.Resolve(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, "foundation", p.Name())
	assert.Equal(t, 0, bridge.probeCalls)

	c := m.Classification()
	require.NotNil(t, c)
	assert.Equal(t, device.TierStandard, c.Tier)
	assert.True(t, c.FoundationEligible, "eligibility is about hardware, the tier carries the OS gate")
}

func TestModelPassthroughsReachLocalProvider(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	model := testModel(dir, 1024)
	writeModelFile(t, dir, model, 1024)

	local := NewLocalProvider(model, dir, &fakeRuntime{available: true})
	m := managerWith(local)

	_, err := m.Resolve(ctx)
	require.NoError(t, err)

	assert.True(t, m.ModelDownloaded())
	require.NotNil(t, m.ModelInfo())
	assert.Equal(t, model.Name, m.ModelInfo().Name)

	require.NoError(t, m.DeleteModel())
	assert.False(t, m.ModelDownloaded())
}
