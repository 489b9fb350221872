package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/speech-gateway/internal/core"
)

// Format names a requested output container.
type Format string

// Requested output formats.
const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatOpus Format = "opus"
	FormatOGG  Format = "ogg"
	FormatFLAC Format = "flac"
	FormatAAC  Format = "aac"
)

// Content types for successfully encoded formats.
const (
	ContentTypeWAV  = "audio/wav"
	ContentTypeMP3  = "audio/mpeg"
	ContentTypeOGG  = "audio/ogg"
	ContentTypeFLAC = "audio/flac"
)

const ffmpegBinary = "ffmpeg"

// Log formats.
const (
	logFmtEncodeFallback   = "No encoder for format '%s', falling back to WAV"
	logFmtEncodeFailed     = "Encoding to '%s' failed, falling back to WAV: %v"
	logFmtEncoderAvailable = "External audio encoder available: %s"
	logFmtEncoderMissing   = "No external audio encoder found, non-WAV formats will fall back to WAV"
)

// Encoder converts waveforms into requested audio containers. WAV is encoded
// natively and is the canonical fallback; compressed formats go through an
// external ffmpeg binary when one is present on the host. An unsupported or
// failing format never fails the request: the encoder degrades to WAV so the
// caller always receives usable audio.
type Encoder struct {
	ffmpegPath string
	log        *logger.Logger
}

// NewEncoder probes for the external encoder binary and returns an Encoder.
// A missing binary is not an error; it only disables compressed formats.
func NewEncoder(log *logger.Logger) *Encoder {
	path, err := exec.LookPath(ffmpegBinary)
	if err != nil {
		log.Warn(logFmtEncoderMissing)

		return &Encoder{ffmpegPath: "", log: log}
	}

	log.Info(logFmtEncoderAvailable, path)

	return &Encoder{ffmpegPath: path, log: log}
}

// Encode converts the waveform into the requested format and returns the
// encoded bytes together with the response content type. Only a failure of
// the native WAV encoder itself is returned as an error; every other failure
// falls back to WAV.
func (e *Encoder) Encode(
	ctx context.Context,
	waveform *core.Waveform,
	format Format,
) ([]byte, string, error) {
	wavData, err := EncodeWAV(waveform)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", core.ErrProcessing, err)
	}

	args, contentType, supported := e.encoderFor(format)
	if !supported {
		if format != FormatWAV {
			e.log.Info(logFmtEncodeFallback, format)
		}

		return wavData, ContentTypeWAV, nil
	}

	encoded, encodeErr := e.runExternalEncoder(ctx, wavData, format, args)
	if encodeErr != nil {
		e.log.Warn(logFmtEncodeFailed, format, encodeErr)

		return wavData, ContentTypeWAV, nil
	}

	return encoded, contentType, nil
}

// encoderFor maps a requested format to external encoder arguments and the
// content type reported on success. AAC has no implemented encoder and always
// takes the WAV fallback path.
func (e *Encoder) encoderFor(format Format) (args []string, contentType string, supported bool) {
	if e.ffmpegPath == "" {
		return nil, "", false
	}

	switch format {
	case FormatMP3:
		return []string{"-f", "mp3"}, ContentTypeMP3, true
	case FormatOpus, FormatOGG:
		return []string{"-f", "ogg", "-c:a", "libopus"}, ContentTypeOGG, true
	case FormatFLAC:
		return []string{"-f", "flac"}, ContentTypeFLAC, true
	case FormatWAV, FormatAAC:
		return nil, "", false
	default:
		return nil, "", false
	}
}

// runExternalEncoder feeds WAV bytes through ffmpeg via temporary files and
// returns the re-encoded result.
func (e *Encoder) runExternalEncoder(
	ctx context.Context,
	wavData []byte,
	format Format,
	formatArgs []string,
) ([]byte, error) {
	workDir, err := os.MkdirTemp("", "speech-encode-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	defer func() {
		_ = os.RemoveAll(workDir)
	}()

	inputPath := filepath.Join(workDir, uuid.NewString()+ExtWAV)
	outputPath := filepath.Join(workDir, uuid.NewString()+"."+string(format))

	writeErr := os.WriteFile(inputPath, wavData, 0o600)
	if writeErr != nil {
		return nil, fmt.Errorf("failed to write encoder input: %w", writeErr)
	}

	args := append([]string{"-y", "-i", inputPath}, formatArgs...)
	args = append(args, outputPath)

	// #nosec G204 -- the binary path comes from exec.LookPath and the
	// arguments are fixed format flags plus generated temp paths.
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		return nil, fmt.Errorf("encoder execution failed: %w - output: %s", runErr, string(output))
	}

	encoded, readErr := os.ReadFile(outputPath)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read encoder output: %w", readErr)
	}

	return encoded, nil
}
