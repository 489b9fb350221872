package audio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/speech-gateway/internal/audio"
	"github.com/book-expert/speech-gateway/internal/core"
)

const targetRate = 24000

func TestSupportedUpload(t *testing.T) {
	t.Parallel()

	assert.True(t, audio.SupportedUpload(audio.ExtWAV))
	assert.True(t, audio.SupportedUpload(audio.ExtMP3))
	assert.True(t, audio.SupportedUpload(audio.ExtOGG))
	assert.True(t, audio.SupportedUpload(audio.ExtFLAC))
	assert.False(t, audio.SupportedUpload(".m4a"))
	assert.False(t, audio.SupportedUpload(".aac"))
	assert.False(t, audio.SupportedUpload(""))
}

func TestNormalizeReferenceDownmixesAndResamples(t *testing.T) {
	t.Parallel()

	// A stereo 44.1 kHz source must come out mono at the target rate.
	source := &core.Waveform{
		Samples:    make([]float32, 44100*2),
		SampleRate: 44100,
		Channels:   2,
	}
	for i := range source.Samples {
		source.Samples[i] = 0.25
	}

	sourceWAV, err := audio.EncodeWAV(source)
	require.NoError(t, err)

	normalized, err := audio.NormalizeReference(sourceWAV, audio.ExtWAV, targetRate)
	require.NoError(t, err)
	require.NotEmpty(t, normalized)

	decoded, err := audio.DecodeWAV(normalized)
	require.NoError(t, err)

	assert.Equal(t, targetRate, decoded.SampleRate)
	assert.Equal(t, 1, decoded.Channels)
	assert.Positive(t, decoded.Frames())
}

func TestNormalizeReferenceKeepsMatchingRate(t *testing.T) {
	t.Parallel()

	source := sineWaveform(t, targetRate/10, 1)

	sourceWAV, err := audio.EncodeWAV(source)
	require.NoError(t, err)

	normalized, err := audio.NormalizeReference(sourceWAV, audio.ExtWAV, targetRate)
	require.NoError(t, err)

	decoded, err := audio.DecodeWAV(normalized)
	require.NoError(t, err)

	assert.Equal(t, targetRate, decoded.SampleRate)
	assert.Equal(t, 1, decoded.Channels)
}

func TestNormalizeReferenceRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := audio.NormalizeReference([]byte("not audio"), audio.ExtWAV, targetRate)
	require.Error(t, err)
	require.ErrorIs(t, err, core.ErrProcessing)
}

func TestNormalizeReferenceRejectsUnknownContainer(t *testing.T) {
	t.Parallel()

	_, err := audio.NormalizeReference([]byte("data"), ".m4a", targetRate)
	require.Error(t, err)
}
