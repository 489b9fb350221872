package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/book-expert/speech-gateway/internal/audio"
	"github.com/book-expert/speech-gateway/internal/core"
)

// openAISpeechRequest is the OpenAI-compatible /v1/audio/speech payload.
// The model field is accepted for API compatibility; the gateway serves a
// single configured model.
type openAISpeechRequest struct {
	Input          string   `json:"input"`
	Voice          string   `json:"voice"`
	Model          string   `json:"model"`
	Speed          *float64 `json:"speed"`
	ResponseFormat string   `json:"response_format"`
}

func (s *Server) handleOpenAISpeech(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID()

	var payload openAISpeechRequest

	decodeErr := json.NewDecoder(r.Body).Decode(&payload)
	if decodeErr != nil && !errors.Is(decodeErr, io.EOF) {
		s.writeError(w, requestID, fmt.Errorf(
			"%w: invalid JSON body: %w", core.ErrInvalidInput, decodeErr,
		))

		return
	}

	format := audio.Format(payload.ResponseFormat)
	if payload.ResponseFormat == "" {
		format = s.profile.DefaultResponseFormat
	}

	request := core.SynthesisRequest{
		Text:         payload.Input,
		Voice:        payload.Voice,
		Exaggeration: defaultExaggeration,
		CFGWeight:    defaultCFGWeight,
		Speed:        floatOrDefault(payload.Speed, defaultSpeed),
	}

	s.log.Info("Request %s: OpenAI-compatible synthesis, voice '%s', format '%s'",
		requestID, request.Voice, format)

	ctx, cancel := s.synthesisContext()
	defer cancel()

	waveform, synthErr := s.synthesize(ctx, request, detailNoInputText)
	if synthErr != nil {
		s.writeError(w, requestID, synthErr)

		return
	}

	encoded, contentType, encodeErr := s.encoder.Encode(ctx, waveform, format)
	if encodeErr != nil {
		s.writeError(w, requestID, encodeErr)

		return
	}

	s.writeAudio(w, contentType, encoded, false)
}

// openAIVoicesResponse is the OpenAI-compatible voice listing envelope.
type openAIVoicesResponse struct {
	Data []openAIVoiceJSON `json:"data"`
}

type openAIVoiceJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleOpenAIVoices(w http.ResponseWriter, _ *http.Request) {
	assets, err := s.voices.List()
	if err != nil {
		s.writeError(w, newRequestID(), err)

		return
	}

	data := make([]openAIVoiceJSON, 0, len(assets))
	for _, asset := range assets {
		data = append(data, openAIVoiceJSON{
			ID:          asset.ID,
			Name:        asset.Name,
			Description: asset.Description,
		})
	}

	s.writeJSON(w, http.StatusOK, openAIVoicesResponse{Data: data})
}
