// Package server exposes the synthesis gateway over HTTP: the native
// endpoint shape, the OpenAI-compatible shape, and voice-asset management.
// Both synthesis surfaces funnel into the same validation, voice resolution,
// and encoding pipeline.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/speech-gateway/internal/audio"
	"github.com/book-expert/speech-gateway/internal/config"
	"github.com/book-expert/speech-gateway/internal/core"
	"github.com/book-expert/speech-gateway/internal/engine"
	"github.com/book-expert/speech-gateway/internal/model"
	"github.com/book-expert/speech-gateway/internal/voicestore"
)

// Default tuning parameter values, applied when a request omits them.
const (
	defaultExaggeration = 0.5
	defaultCFGWeight    = 0.5
	defaultSpeed        = 1.0
)

// Validation error details, kept stable for API consumers.
const (
	detailNoText      = "No text provided"
	detailNoInputText = "No input text provided"
	detailTextTooLong = "Text too long (max 4096 characters)"
)

const maxUploadBytes = 32 << 20

// Server wires the gateway components behind an HTTP handler.
type Server struct {
	cfg     *config.Config
	profile engine.Profile
	manager *model.Manager
	voices  *voicestore.Store
	encoder *audio.Encoder
	log     *logger.Logger
}

// New assembles the gateway server from its components.
func New(
	cfg *config.Config,
	profile engine.Profile,
	manager *model.Manager,
	voices *voicestore.Store,
	encoder *audio.Encoder,
	log *logger.Logger,
) *Server {
	return &Server{
		cfg:     cfg,
		profile: profile,
		manager: manager,
		voices:  voices,
		encoder: encoder,
		log:     log,
	}
}

// Handler returns the route table for the gateway.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /models", s.handleModels)
	mux.HandleFunc("GET /voices", s.handleListVoices)
	mux.HandleFunc("POST /voices/upload", s.handleUploadVoice)
	mux.HandleFunc("DELETE /voices/{id}", s.handleDeleteVoice)
	mux.HandleFunc("POST /synthesize", s.handleSynthesize)
	mux.HandleFunc("POST /v1/audio/speech", s.handleOpenAISpeech)
	mux.HandleFunc("GET /v1/audio/voices", s.handleOpenAIVoices)

	return mux
}

// synthesize is the shared request pipeline: validate, resolve the voice,
// run inference through the lifecycle manager. Encoding stays with the
// HTTP handlers because the two surfaces negotiate formats differently.
func (s *Server) synthesize(
	ctx context.Context,
	request core.SynthesisRequest,
	emptyTextDetail string,
) (*core.Waveform, error) {
	validateErr := validateText(request.Text, emptyTextDetail)
	if validateErr != nil {
		return nil, validateErr
	}

	if request.Voice == "" {
		request.Voice = core.DefaultVoiceID
	}

	referencePath, found := s.voices.Resolve(request.Voice)
	if !found && request.Voice != core.DefaultVoiceID {
		// Unresolved voices degrade to the engine default instead of
		// failing the request.
		s.log.Warn("Voice '%s' not found, using default", request.Voice)
	}

	job := core.SynthesisJob{
		Text:          request.Text,
		ReferencePath: referencePath,
		Exaggeration:  request.Exaggeration,
		CFGWeight:     request.CFGWeight,
		Speed:         request.Speed,
	}

	waveform, synthErr := s.manager.Synthesize(ctx, job)
	if synthErr != nil {
		return nil, synthErr
	}

	return waveform, nil
}

// synthesisContext builds the context for one inference call. The request
// context is deliberately not used: a client disconnect must not interrupt
// an in-flight engine call, so only the configured timeout bounds it.
func (s *Server) synthesisContext() (context.Context, context.CancelFunc) {
	timeout := time.Duration(s.cfg.Engine.TimeoutSeconds) * time.Second

	return context.WithTimeout(context.Background(), timeout)
}

// validateText enforces the non-empty and length bounds before any model
// work happens.
func validateText(text, emptyDetail string) error {
	if text == "" {
		return fmt.Errorf("%w: %s", core.ErrInvalidInput, emptyDetail)
	}

	if utf8.RuneCountInString(text) > core.MaxTextLength {
		return fmt.Errorf("%w: %s", core.ErrInvalidInput, detailTextTooLong)
	}

	return nil
}

// errorDetail is the JSON error envelope shared by both surfaces.
type errorDetail struct {
	Detail string `json:"detail"`
}

// writeError maps the gateway error taxonomy onto HTTP status codes and
// writes the error envelope. The underlying message is surfaced for operator
// diagnosis.
func (s *Server) writeError(w http.ResponseWriter, requestID string, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, core.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.log.Error("Request %s failed: %v", requestID, err)
	}

	s.writeJSON(w, status, errorDetail{Detail: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encodeErr := json.NewEncoder(w).Encode(payload)
	if encodeErr != nil {
		s.log.Error("Failed to write JSON response: %v", encodeErr)
	}
}

func (s *Server) writeAudio(w http.ResponseWriter, contentType string, data []byte, inline bool) {
	w.Header().Set("Content-Type", contentType)

	if inline {
		w.Header().Set("Content-Disposition", "inline; filename=speech.wav")
	}

	w.WriteHeader(http.StatusOK)

	_, writeErr := w.Write(data)
	if writeErr != nil {
		s.log.Warn("Failed to write audio response: %v", writeErr)
	}
}

// newRequestID tags one HTTP request for log correlation.
func newRequestID() string {
	return uuid.NewString()
}
