// Package audio converts waveforms between the gateway's in-memory
// representation and on-the-wire audio containers. It covers normalization of
// uploaded reference audio and encoding of synthesis results.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/book-expert/speech-gateway/internal/core"
)

// PCM constants for the canonical 16-bit little-endian WAV layout.
const (
	pcmFormatCode   = 1
	bitsPerSample   = 16
	bytesPerSample  = 2
	fmtChunkSize    = 16
	riffHeaderExtra = 36
	maxInt16        = 32767
)

// Static errors for WAV parsing.
var (
	ErrNotWAV          = errors.New("data is not a RIFF/WAVE stream")
	ErrUnsupportedWAV  = errors.New("unsupported WAV encoding")
	ErrTruncatedWAV    = errors.New("truncated WAV data")
	ErrEmptyWaveform   = errors.New("waveform has no samples")
	ErrInvalidChannels = errors.New("waveform channel count must be positive")
)

// EncodeWAV serializes a waveform as a 16-bit PCM WAV file.
func EncodeWAV(waveform *core.Waveform) ([]byte, error) {
	if len(waveform.Samples) == 0 {
		return nil, ErrEmptyWaveform
	}

	if waveform.Channels <= 0 {
		return nil, ErrInvalidChannels
	}

	numChannels := uint16(waveform.Channels)
	byteRate := uint32(waveform.SampleRate) * uint32(numChannels) * bytesPerSample
	blockAlign := numChannels * bytesPerSample
	dataSize := uint32(len(waveform.Samples) * bytesPerSample)

	buf := &bytes.Buffer{}
	buf.Grow(int(riffHeaderExtra + 8 + dataSize))

	buf.WriteString("RIFF")
	writeLE(buf, riffHeaderExtra+dataSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	writeLE(buf, uint32(fmtChunkSize))
	writeLE(buf, uint16(pcmFormatCode))
	writeLE(buf, numChannels)
	writeLE(buf, uint32(waveform.SampleRate))
	writeLE(buf, byteRate)
	writeLE(buf, blockAlign)
	writeLE(buf, uint16(bitsPerSample))

	buf.WriteString("data")
	writeLE(buf, dataSize)

	for _, sample := range waveform.Samples {
		buf.WriteByte(byte(clampToInt16(sample)))
		buf.WriteByte(byte(clampToInt16(sample) >> 8))
	}

	return buf.Bytes(), nil
}

// DecodeWAV parses a 16-bit PCM WAV file into a waveform. Engines emit this
// layout exclusively, so other encodings are rejected.
func DecodeWAV(data []byte) (*core.Waveform, error) {
	const minHeaderSize = 12

	if len(data) < minHeaderSize ||
		string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	sampleRate, channels, pcm, err := scanWAVChunks(data[minHeaderSize:])
	if err != nil {
		return nil, err
	}

	samples := make([]float32, len(pcm)/bytesPerSample)
	for i := range samples {
		raw := int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:]))
		samples[i] = float32(raw) / maxInt16
	}

	return &core.Waveform{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}

// scanWAVChunks walks the RIFF chunk list and returns the format parameters
// and raw PCM payload.
func scanWAVChunks(chunks []byte) (sampleRate, channels int, pcm []byte, err error) {
	var haveFormat bool

	for len(chunks) >= 8 {
		chunkID := string(chunks[0:4])
		chunkSize := int(binary.LittleEndian.Uint32(chunks[4:8]))
		chunks = chunks[8:]

		if chunkSize > len(chunks) {
			return 0, 0, nil, ErrTruncatedWAV
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < fmtChunkSize {
				return 0, 0, nil, ErrTruncatedWAV
			}

			formatCode := binary.LittleEndian.Uint16(chunks[0:2])
			bits := binary.LittleEndian.Uint16(chunks[14:16])

			if formatCode != pcmFormatCode || bits != bitsPerSample {
				return 0, 0, nil, fmt.Errorf(
					"%w: format=%d bits=%d",
					ErrUnsupportedWAV, formatCode, bits,
				)
			}

			channels = int(binary.LittleEndian.Uint16(chunks[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(chunks[4:8]))
			haveFormat = true
		case "data":
			pcm = chunks[:chunkSize]
		}

		// Chunks are word-aligned.
		if chunkSize%2 == 1 {
			chunkSize++
		}

		if chunkSize > len(chunks) {
			break
		}

		chunks = chunks[chunkSize:]
	}

	if !haveFormat || pcm == nil {
		return 0, 0, nil, ErrTruncatedWAV
	}

	return sampleRate, channels, pcm, nil
}

func clampToInt16(sample float32) int16 {
	scaled := float64(sample) * maxInt16
	if scaled > maxInt16 {
		return maxInt16
	}

	if scaled < -math.MaxInt16 {
		return -maxInt16
	}

	return int16(scaled)
}

func writeLE(buf *bytes.Buffer, value any) {
	// bytes.Buffer writes never fail.
	_ = binary.Write(buf, binary.LittleEndian, value)
}
