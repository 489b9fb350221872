// Package engine implements the opaque synthesis capability behind the
// gateway: per-backend profiles and a process-backed engine that shells out
// to an inference CLI.
package engine

import (
	"fmt"

	"github.com/book-expert/speech-gateway/internal/audio"
	"github.com/book-expert/speech-gateway/internal/core"
	"github.com/book-expert/speech-gateway/internal/device"
)

// Known backend names.
const (
	BackendChatterbox = "chatterbox"
	BackendCoqui      = "coqui"
)

// ErrUnknownBackend is returned for an unrecognized engine name.
var ErrUnknownBackend = fmt.Errorf("%w: unknown engine backend", core.ErrInvalidInput)

// ModelInfo describes one entry of a backend's model catalog.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

// Profile carries the per-backend defaults: listen port, model identifier,
// output sample rate, device restrictions, and the default response format of
// the OpenAI-compatible surface.
type Profile struct {
	Name                  string
	DefaultPort           int
	DefaultBinary         string
	DefaultModel          string
	DefaultSampleRate     int
	DefaultResponseFormat audio.Format
	Device                device.Profile
	Models                []ModelInfo
}

// ProfileFor returns the profile for the named backend.
func ProfileFor(name string) (Profile, error) {
	switch name {
	case BackendChatterbox:
		return chatterboxProfile(), nil
	case BackendCoqui:
		return coquiProfile(), nil
	default:
		return Profile{}, fmt.Errorf("%w: '%s'", ErrUnknownBackend, name)
	}
}

func chatterboxProfile() Profile {
	return Profile{
		Name:                  BackendChatterbox,
		DefaultPort:           5553,
		DefaultBinary:         "chatterbox-tts",
		DefaultModel:          "chatterbox-turbo",
		DefaultSampleRate:     24000,
		DefaultResponseFormat: audio.FormatMP3,
		Device:                device.Profile{AllowMPS: true},
		Models: []ModelInfo{
			{
				ID:          "chatterbox-turbo",
				Name:        "Chatterbox Turbo",
				Description: "Expressive English voice with reference-audio cloning",
				Language:    "en",
			},
		},
	}
}

func coquiProfile() Profile {
	return Profile{
		Name:              BackendCoqui,
		DefaultPort:       5554,
		DefaultBinary:     "coqui-tts",
		DefaultModel:      "tts_models/en/jenny/jenny",
		DefaultSampleRate: 22050,
		// The default response format is WAV because the coqui encoder
		// stack has no native MP3 path.
		DefaultResponseFormat: audio.FormatWAV,
		// Coqui models produce broken audio on MPS, so auto resolution
		// maps it to CPU.
		Device: device.Profile{AllowMPS: false},
		Models: []ModelInfo{
			{
				ID:          "tts_models/en/jenny/jenny",
				Name:        "Jenny",
				Description: "High-quality English female voice (recommended)",
				Language:    "en",
			},
			{
				ID:          "tts_models/en/ljspeech/tacotron2-DDC",
				Name:        "LJSpeech Tacotron2",
				Description: "Classic English female voice",
				Language:    "en",
			},
			{
				ID:          "tts_models/en/vctk/vits",
				Name:        "VCTK VITS",
				Description: "Multi-speaker English model",
				Language:    "en",
			},
		},
	}
}
