package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"

	"github.com/book-expert/speech-gateway/internal/core"
)

// Supported upload container extensions.
const (
	ExtWAV  = ".wav"
	ExtMP3  = ".mp3"
	ExtOGG  = ".ogg"
	ExtFLAC = ".flac"
)

// resampleQuality balances speed against interpolation accuracy for the
// beep resampler. Reference clips are short, so a mid-range setting is fine.
const resampleQuality = 4

// normalizedPrecision is the sample byte width of the canonical asset format.
const normalizedPrecision = 2

const tempNormalizePattern = "voice-normalize-*.wav"

// ErrUnsupportedContainer is returned for uploads whose extension is not in
// the allow-list.
var ErrUnsupportedContainer = fmt.Errorf("%w: unsupported audio container", core.ErrInvalidInput)

// SupportedUpload reports whether the given lower-cased extension is an
// accepted upload container.
func SupportedUpload(ext string) bool {
	switch ext {
	case ExtWAV, ExtMP3, ExtOGG, ExtFLAC:
		return true
	default:
		return false
	}
}

// NormalizeReference decodes uploaded reference audio, resamples it to the
// target rate if needed, downmixes to mono, and re-encodes it as 16-bit PCM
// WAV, the canonical custom-asset format. Decode and resample failures are
// reported as processing errors.
func NormalizeReference(data []byte, ext string, targetRate int) ([]byte, error) {
	streamer, format, err := decodeContainer(data, ext)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s upload: %w", core.ErrProcessing, ext, err)
	}
	defer streamer.Close()

	var source beep.Streamer = streamer

	target := beep.SampleRate(targetRate)
	if format.SampleRate != target {
		source = beep.Resample(resampleQuality, format.SampleRate, target, streamer)
	}

	normalized, err := encodeMonoWAV(source, target)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding normalized asset: %w", core.ErrProcessing, err)
	}

	return normalized, nil
}

// decodeContainer picks the decoder matching the upload extension.
func decodeContainer(data []byte, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	reader := io.NopCloser(bytes.NewReader(data))

	switch ext {
	case ExtWAV:
		return wav.Decode(reader)
	case ExtMP3:
		return mp3.Decode(reader)
	case ExtOGG:
		return vorbis.Decode(reader)
	case ExtFLAC:
		return flac.Decode(reader)
	default:
		return nil, beep.Format{}, ErrUnsupportedContainer
	}
}

// encodeMonoWAV writes the streamer as mono 16-bit WAV at the given rate.
// The beep encoder needs a seekable writer to patch chunk sizes, so it goes
// through a temporary file.
func encodeMonoWAV(source beep.Streamer, rate beep.SampleRate) ([]byte, error) {
	tempFile, err := os.CreateTemp("", tempNormalizePattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	tempPath := tempFile.Name()

	defer func() {
		_ = os.Remove(tempPath)
	}()

	outFormat := beep.Format{
		SampleRate:  rate,
		NumChannels: 1,
		Precision:   normalizedPrecision,
	}

	encodeErr := wav.Encode(tempFile, source, outFormat)

	closeErr := tempFile.Close()

	if encodeErr != nil {
		return nil, fmt.Errorf("failed to encode WAV: %w", encodeErr)
	}

	if closeErr != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", closeErr)
	}

	normalized, readErr := os.ReadFile(tempPath)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read normalized audio: %w", readErr)
	}

	return normalized, nil
}
