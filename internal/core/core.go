// Package core defines the data model, error taxonomy, and interfaces shared
// by the speech gateway components.
package core

import (
	"context"
	"errors"
)

// MaxTextLength is the maximum number of code points accepted for a single
// synthesis request. The bound is enforced before any model invocation.
const MaxTextLength = 4096

// DefaultVoiceID names the engine's built-in speaker identity. It requires no
// reference audio, is always listed first, and can never be deleted or
// overwritten.
const DefaultVoiceID = "default"

// Gateway error taxonomy. Every failure that crosses a component boundary
// wraps exactly one of these sentinels so the HTTP layer can map it to a
// status code without inspecting message text.
var (
	// ErrInvalidInput indicates a malformed request: missing or oversized
	// text, an unsafe voice name, or an unsupported upload container.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a voice asset that does not exist in the store.
	ErrNotFound = errors.New("not found")

	// ErrModelUnavailable indicates the model could not be loaded.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrSynthesis indicates the engine raised during generation.
	ErrSynthesis = errors.New("synthesis failed")

	// ErrProcessing indicates a decode, resample, or encode failure while
	// normalizing uploaded reference audio.
	ErrProcessing = errors.New("audio processing failed")
)

// VoiceOrigin distinguishes the built-in default voice from uploaded assets.
type VoiceOrigin string

const (
	// OriginBuiltin marks the implicit default entry, synthesized at
	// listing time and never persisted.
	OriginBuiltin VoiceOrigin = "builtin"

	// OriginCustom marks an uploaded, filesystem-backed asset.
	OriginCustom VoiceOrigin = "custom"
)

// VoiceAsset describes one entry of the voice catalog.
type VoiceAsset struct {
	// ID is a URL-safe slug, unique within the store, immutable once created.
	ID string `json:"id"`

	// Name is the display name derived from the ID.
	Name string `json:"name"`

	// Description is a short human-readable summary.
	Description string `json:"description"`

	// Origin tags the asset as builtin or custom.
	Origin VoiceOrigin `json:"origin"`

	// Path is the on-disk location of the normalized reference audio.
	// Empty for the builtin entry.
	Path string `json:"path,omitempty"`

	// SampleRate is fixed at normalization time. Zero for the builtin entry.
	SampleRate int `json:"sample_rate,omitempty"`

	// Channels is always 1 after normalization. Zero for the builtin entry.
	Channels int `json:"channels,omitempty"`
}

// IsCustom reports whether the asset is an uploaded, deletable entry.
func (v VoiceAsset) IsCustom() bool {
	return v.Origin == OriginCustom
}

// SynthesisRequest carries a validated synthesis request through the gateway.
type SynthesisRequest struct {
	// Text is the input to synthesize. Non-empty, at most MaxTextLength
	// code points.
	Text string

	// Voice is the requested voice asset ID. Defaults to DefaultVoiceID.
	Voice string

	// Exaggeration controls expressiveness of the generated speech.
	Exaggeration float64

	// CFGWeight controls classifier-free guidance strength.
	CFGWeight float64

	// Speed is the playback speed multiplier.
	Speed float64
}

// SynthesisJob is the request shape that reaches the engine after validation
// and voice resolution.
type SynthesisJob struct {
	// Text is the validated input text.
	Text string

	// ReferencePath points at a normalized reference audio file on disk.
	// Empty means the engine's default voice.
	ReferencePath string

	// Exaggeration, CFGWeight, and Speed are engine tuning parameters.
	Exaggeration float64
	CFGWeight    float64
	Speed        float64
}

// Waveform holds the raw result of one synthesis call. It is owned by the
// request that produced it and is never cached or shared.
type Waveform struct {
	// Samples are interleaved floating-point samples in [-1.0, 1.0].
	Samples []float32

	// SampleRate is the engine-reported output rate in Hz.
	SampleRate int

	// Channels is the number of interleaved channels.
	Channels int
}

// Frames returns the number of sample frames (samples per channel).
func (w *Waveform) Frames() int {
	if w.Channels == 0 {
		return 0
	}

	return len(w.Samples) / w.Channels
}

// Engine is the opaque text-to-waveform synthesis capability the gateway
// wraps. Implementations must be safe for use by multiple goroutines once
// Load has returned successfully.
type Engine interface {
	// Load prepares the underlying model. It is invoked at most once by
	// the lifecycle manager; a failed Load may be retried by a later call.
	Load(ctx context.Context) error

	// Synthesize converts text into a waveform, optionally conditioned on
	// a reference audio file.
	Synthesize(ctx context.Context, job SynthesisJob) (*Waveform, error)

	// ModelName identifies the loaded model for health reporting.
	ModelName() string

	// SampleRate reports the engine's output sample rate in Hz.
	SampleRate() int
}
