// Package audio_test tests waveform conversion and encoding.
package audio_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/speech-gateway/internal/audio"
	"github.com/book-expert/speech-gateway/internal/core"
)

const testSampleRate = 24000

// sineWaveform generates a mono test tone.
func sineWaveform(t *testing.T, frames int, channels int) *core.Waveform {
	t.Helper()

	samples := make([]float32, frames*channels)
	for i := range frames {
		value := float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/testSampleRate))
		for ch := range channels {
			samples[i*channels+ch] = value
		}
	}

	return &core.Waveform{
		Samples:    samples,
		SampleRate: testSampleRate,
		Channels:   channels,
	}
}

func TestEncodeDecodeWAVRoundTrip(t *testing.T) {
	t.Parallel()

	original := sineWaveform(t, 2400, 1)

	encoded, err := audio.EncodeWAV(original)
	require.NoError(t, err)
	require.Equal(t, "RIFF", string(encoded[0:4]))
	require.Equal(t, "WAVE", string(encoded[8:12]))

	decoded, err := audio.DecodeWAV(encoded)
	require.NoError(t, err)

	assert.Equal(t, original.SampleRate, decoded.SampleRate)
	assert.Equal(t, original.Channels, decoded.Channels)
	assert.Len(t, decoded.Samples, len(original.Samples))

	// 16-bit quantization bounds the round-trip error.
	for i := range original.Samples {
		assert.InDelta(t, original.Samples[i], decoded.Samples[i], 0.001)
	}
}

func TestEncodeWAVStereo(t *testing.T) {
	t.Parallel()

	original := sineWaveform(t, 1200, 2)

	encoded, err := audio.EncodeWAV(original)
	require.NoError(t, err)

	decoded, err := audio.DecodeWAV(encoded)
	require.NoError(t, err)

	assert.Equal(t, 2, decoded.Channels)
	assert.Equal(t, 1200, decoded.Frames())
}

func TestEncodeWAVClampsOutOfRangeSamples(t *testing.T) {
	t.Parallel()

	waveform := &core.Waveform{
		Samples:    []float32{2.0, -2.0, 0.0},
		SampleRate: testSampleRate,
		Channels:   1,
	}

	encoded, err := audio.EncodeWAV(waveform)
	require.NoError(t, err)

	decoded, err := audio.DecodeWAV(encoded)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, decoded.Samples[0], 0.001)
	assert.InDelta(t, -1.0, decoded.Samples[1], 0.001)
	assert.InDelta(t, 0.0, decoded.Samples[2], 0.001)
}

func TestEncodeWAVRejectsEmptyWaveform(t *testing.T) {
	t.Parallel()

	_, err := audio.EncodeWAV(&core.Waveform{SampleRate: testSampleRate, Channels: 1})
	require.ErrorIs(t, err, audio.ErrEmptyWaveform)
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := audio.DecodeWAV([]byte("definitely not audio data"))
	require.ErrorIs(t, err, audio.ErrNotWAV)
}

func TestDecodeWAVRejectsTruncated(t *testing.T) {
	t.Parallel()

	encoded, err := audio.EncodeWAV(sineWaveform(t, 100, 1))
	require.NoError(t, err)

	_, err = audio.DecodeWAV(encoded[:20])
	require.Error(t, err)
}
