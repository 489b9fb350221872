// Package model_test tests the model lifecycle manager.
package model_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/speech-gateway/internal/core"
	"github.com/book-expert/speech-gateway/internal/model"
)

var (
	errMockLoad      = errors.New("mock load error")
	errMockSynthesis = errors.New("mock synthesis error")
)

// mockEngine is a controllable core.Engine implementation.
type mockEngine struct {
	loadCalls      atomic.Int32
	loadDelay      time.Duration
	failLoads      atomic.Int32
	synthDelay     time.Duration
	inFlight       atomic.Int32
	maxObserved    atomic.Int32
	synthesisCalls atomic.Int32
}

func (m *mockEngine) Load(_ context.Context) error {
	m.loadCalls.Add(1)

	if m.loadDelay > 0 {
		time.Sleep(m.loadDelay)
	}

	if m.failLoads.Load() > 0 {
		m.failLoads.Add(-1)

		return errMockLoad
	}

	return nil
}

func (m *mockEngine) Synthesize(_ context.Context, _ core.SynthesisJob) (*core.Waveform, error) {
	m.synthesisCalls.Add(1)

	current := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)

	for {
		observed := m.maxObserved.Load()
		if current <= observed || m.maxObserved.CompareAndSwap(observed, current) {
			break
		}
	}

	if m.synthDelay > 0 {
		time.Sleep(m.synthDelay)
	}

	return &core.Waveform{
		Samples:    make([]float32, 240),
		SampleRate: 24000,
		Channels:   1,
	}, nil
}

func (m *mockEngine) ModelName() string { return "mock-model" }

func (m *mockEngine) SampleRate() int { return 24000 }

func TestEnsureLoadedConcurrentCallersSingleLoad(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{loadDelay: 50 * time.Millisecond}
	manager := newTestManager(t, engine, 2)

	const callers = 16

	var waitGroup sync.WaitGroup

	handles := make([]core.Engine, callers)
	errs := make([]error, callers)

	for i := range callers {
		waitGroup.Add(1)

		go func(index int) {
			defer waitGroup.Done()

			handles[index], errs[index] = manager.EnsureLoaded(context.Background())
		}(i)
	}

	waitGroup.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Same(t, handles[0], handles[i])
	}

	assert.Equal(t, int32(1), engine.loadCalls.Load())
	assert.True(t, manager.Loaded())
}

func TestEnsureLoadedFailureAllowsRetry(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{}
	engine.failLoads.Store(1)

	manager := newTestManager(t, engine, 2)

	_, err := manager.EnsureLoaded(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, core.ErrModelUnavailable)
	assert.False(t, manager.Loaded())

	// The next call retries and succeeds.
	handle, retryErr := manager.EnsureLoaded(context.Background())
	require.NoError(t, retryErr)
	assert.NotNil(t, handle)
	assert.True(t, manager.Loaded())
	assert.Equal(t, int32(2), engine.loadCalls.Load())
}

func TestWarmupFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{}
	engine.failLoads.Store(1)

	manager := newTestManager(t, engine, 2)

	manager.Warmup(context.Background())

	assert.False(t, manager.Loaded())
}

func TestSynthesizeBoundsConcurrency(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{synthDelay: 30 * time.Millisecond}
	manager := newTestManager(t, engine, 1)

	const requests = 6

	var waitGroup sync.WaitGroup

	for range requests {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()

			_, err := manager.Synthesize(context.Background(), core.SynthesisJob{Text: "hi"})
			assert.NoError(t, err)
		}()
	}

	waitGroup.Wait()

	assert.Equal(t, int32(requests), engine.synthesisCalls.Load())
	assert.Equal(t, int32(1), engine.maxObserved.Load())
}

func TestSynthesizeWrapsEngineFailure(t *testing.T) {
	t.Parallel()

	engine := &failingEngine{}
	manager := newTestManager(t, engine, 2)

	_, err := manager.Synthesize(context.Background(), core.SynthesisJob{Text: "hi"})
	require.Error(t, err)
	require.ErrorIs(t, err, core.ErrSynthesis)
	assert.Contains(t, err.Error(), "mock synthesis error")
}

type failingEngine struct{}

func (f *failingEngine) Load(_ context.Context) error { return nil }

func (f *failingEngine) Synthesize(_ context.Context, _ core.SynthesisJob) (*core.Waveform, error) {
	return nil, errMockSynthesis
}

func (f *failingEngine) ModelName() string { return "failing-model" }

func (f *failingEngine) SampleRate() int { return 24000 }

func newTestManager(t *testing.T, engine core.Engine, maxConcurrent int) *model.Manager {
	t.Helper()

	log, err := logger.New(t.TempDir(), "manager-test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	return model.NewManager(engine, "cpu", maxConcurrent, log)
}
