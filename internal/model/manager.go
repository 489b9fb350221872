// Package model owns the shared synthesis engine handle: lazy, idempotent
// load-on-first-use and a bounded concurrency gate around inference.
package model

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/book-expert/logger"

	"github.com/book-expert/speech-gateway/internal/core"
)

// DefaultMaxConcurrent bounds simultaneous inference calls against the shared
// engine when the configuration does not say otherwise.
const DefaultMaxConcurrent = 2

// Manager guards the process-wide engine handle. The load transition holds a
// single mutex, so concurrent callers issued during an in-flight load block
// until it completes rather than starting a second load. A failed load leaves
// the state unloaded and eligible for retry on the next call; loading is
// monotonic once it succeeds, so Loaded and Device never need the lock.
type Manager struct {
	engine core.Engine
	device string
	log    *logger.Logger

	loadMu sync.Mutex
	loaded atomic.Bool

	// inferenceGate bounds concurrent Synthesize calls. The underlying
	// engines serialize poorly beyond a couple of simultaneous
	// generations, and the gateway has no queuing layer, so the bound is
	// enforced here.
	inferenceGate chan struct{}
}

// NewManager wires a lifecycle manager around the given engine. maxConcurrent
// values below one fall back to DefaultMaxConcurrent.
func NewManager(engine core.Engine, resolvedDevice string, maxConcurrent int, log *logger.Logger) *Manager {
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}

	return &Manager{
		engine:        engine,
		device:        resolvedDevice,
		log:           log,
		loadMu:        sync.Mutex{},
		loaded:        atomic.Bool{},
		inferenceGate: make(chan struct{}, maxConcurrent),
	}
}

// EnsureLoaded returns the shared engine, loading the model on first use.
// At most one load is in flight at any time.
func (m *Manager) EnsureLoaded(ctx context.Context) (core.Engine, error) {
	if m.loaded.Load() {
		return m.engine, nil
	}

	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	// Another caller may have finished the load while we waited.
	if m.loaded.Load() {
		return m.engine, nil
	}

	m.log.Info("Loading model '%s' on %s...", m.engine.ModelName(), m.device)

	loadErr := m.engine.Load(ctx)
	if loadErr != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrModelUnavailable, loadErr)
	}

	m.loaded.Store(true)

	m.log.Info("Model '%s' loaded successfully", m.engine.ModelName())

	return m.engine, nil
}

// Warmup eagerly loads the model at startup. A failure is logged but not
// fatal: the state stays unloaded and the first request retries lazily.
func (m *Manager) Warmup(ctx context.Context) {
	_, err := m.EnsureLoaded(ctx)
	if err != nil {
		m.log.Warn("Could not pre-load model: %v. Will load on first request.", err)
	}
}

// Synthesize ensures the model is loaded, then runs one inference call under
// the concurrency gate. Engine failures are wrapped with the synthesis
// sentinel, preserving the underlying message for diagnostics.
func (m *Manager) Synthesize(ctx context.Context, job core.SynthesisJob) (*core.Waveform, error) {
	engine, loadErr := m.EnsureLoaded(ctx)
	if loadErr != nil {
		return nil, loadErr
	}

	select {
	case m.inferenceGate <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", core.ErrSynthesis, ctx.Err())
	}

	defer func() { <-m.inferenceGate }()

	waveform, synthErr := engine.Synthesize(ctx, job)
	if synthErr != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSynthesis, synthErr)
	}

	return waveform, nil
}

// Loaded reports whether the model has been loaded, without blocking on an
// in-flight load.
func (m *Manager) Loaded() bool {
	return m.loaded.Load()
}

// Device reports the resolved execution device.
func (m *Manager) Device() string {
	return m.device
}

// ModelName reports the configured model identifier.
func (m *Manager) ModelName() string {
	return m.engine.ModelName()
}

// SampleRate reports the engine's output sample rate.
func (m *Manager) SampleRate() int {
	return m.engine.SampleRate()
}
