package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/book-expert/speech-gateway/internal/audio"
	"github.com/book-expert/speech-gateway/internal/core"
	"github.com/book-expert/speech-gateway/internal/device"
)

// Multipart form field names for voice upload.
const (
	formFieldAudio = "audio"
	formFieldName  = "name"
)

// healthResponse reports liveness and lifecycle state without forcing a
// model load.
type healthResponse struct {
	Status        string `json:"status"`
	ModelLoaded   bool   `json:"model_loaded"`
	ModelName     string `json:"model_name"`
	Device        string `json:"device"`
	SampleRate    int    `json:"sample_rate"`
	CUDAAvailable bool   `json:"cuda_available"`
	MPSAvailable  bool   `json:"mps_available"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:        "healthy",
		ModelLoaded:   s.manager.Loaded(),
		ModelName:     s.manager.ModelName(),
		Device:        s.manager.Device(),
		SampleRate:    s.manager.SampleRate(),
		CUDAAvailable: device.CUDAAvailable(),
		MPSAvailable:  device.MPSAvailable(),
	})
}

// modelsResponse lists the backend's model catalog.
type modelsResponse struct {
	Models       []engineModelJSON `json:"models"`
	CurrentModel string            `json:"current_model"`
}

type engineModelJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	models := make([]engineModelJSON, 0, len(s.profile.Models))
	for _, info := range s.profile.Models {
		models = append(models, engineModelJSON(info))
	}

	s.writeJSON(w, http.StatusOK, modelsResponse{
		Models:       models,
		CurrentModel: s.cfg.Engine.Model,
	})
}

// voicesResponse is the native voice listing shape.
type voicesResponse struct {
	Voices       []string          `json:"voices"`
	VoiceDetails []core.VoiceAsset `json:"voice_details"`
}

func (s *Server) handleListVoices(w http.ResponseWriter, _ *http.Request) {
	assets, err := s.voices.List()
	if err != nil {
		s.writeError(w, newRequestID(), err)

		return
	}

	ids := make([]string, 0, len(assets))
	for _, asset := range assets {
		ids = append(ids, asset.ID)
	}

	s.writeJSON(w, http.StatusOK, voicesResponse{
		Voices:       ids,
		VoiceDetails: assets,
	})
}

// uploadResponse confirms a stored voice asset.
type uploadResponse struct {
	Success bool   `json:"success"`
	VoiceID string `json:"voice_id"`
	Path    string `json:"path"`
}

func (s *Server) handleUploadVoice(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID()

	parseErr := r.ParseMultipartForm(maxUploadBytes)
	if parseErr != nil {
		s.writeError(w, requestID, fmt.Errorf(
			"%w: invalid multipart form: %w", core.ErrInvalidInput, parseErr,
		))

		return
	}

	file, header, fileErr := r.FormFile(formFieldAudio)
	if fileErr != nil {
		s.writeError(w, requestID, fmt.Errorf(
			"%w: no audio file provided", core.ErrInvalidInput,
		))

		return
	}

	defer func() {
		_ = file.Close()
	}()

	data, readErr := io.ReadAll(file)
	if readErr != nil {
		s.writeError(w, requestID, fmt.Errorf(
			"%w: reading upload: %w", core.ErrProcessing, readErr,
		))

		return
	}

	asset, createErr := s.voices.Create(data, header.Filename, r.FormValue(formFieldName))
	if createErr != nil {
		s.writeError(w, requestID, createErr)

		return
	}

	s.writeJSON(w, http.StatusOK, uploadResponse{
		Success: true,
		VoiceID: asset.ID,
		Path:    asset.Path,
	})
}

// deleteResponse confirms a removed voice asset.
type deleteResponse struct {
	Success bool   `json:"success"`
	Deleted string `json:"deleted"`
}

func (s *Server) handleDeleteVoice(w http.ResponseWriter, r *http.Request) {
	voiceID := r.PathValue("id")

	deleteErr := s.voices.Delete(voiceID)
	if deleteErr != nil {
		s.writeError(w, newRequestID(), deleteErr)

		return
	}

	s.writeJSON(w, http.StatusOK, deleteResponse{
		Success: true,
		Deleted: voiceID,
	})
}

// nativeSynthesisRequest is the native endpoint's payload. Text may arrive
// in either the input or text field.
type nativeSynthesisRequest struct {
	Input        string   `json:"input"`
	Text         string   `json:"text"`
	Voice        string   `json:"voice"`
	Exaggeration *float64 `json:"exaggeration"`
	CFGWeight    *float64 `json:"cfg_weight"`
	Speed        *float64 `json:"speed"`
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID()

	var payload nativeSynthesisRequest

	decodeErr := json.NewDecoder(r.Body).Decode(&payload)
	if decodeErr != nil && !errors.Is(decodeErr, io.EOF) {
		s.writeError(w, requestID, fmt.Errorf(
			"%w: invalid JSON body: %w", core.ErrInvalidInput, decodeErr,
		))

		return
	}

	text := payload.Input
	if text == "" {
		text = payload.Text
	}

	request := core.SynthesisRequest{
		Text:         text,
		Voice:        payload.Voice,
		Exaggeration: floatOrDefault(payload.Exaggeration, defaultExaggeration),
		CFGWeight:    floatOrDefault(payload.CFGWeight, defaultCFGWeight),
		Speed:        floatOrDefault(payload.Speed, defaultSpeed),
	}

	s.log.Info("Request %s: synthesizing with voice '%s'", requestID, request.Voice)

	ctx, cancel := s.synthesisContext()
	defer cancel()

	waveform, synthErr := s.synthesize(ctx, request, detailNoText)
	if synthErr != nil {
		s.writeError(w, requestID, synthErr)

		return
	}

	encoded, contentType, encodeErr := s.encoder.Encode(ctx, waveform, audio.FormatWAV)
	if encodeErr != nil {
		s.writeError(w, requestID, encodeErr)

		return
	}

	s.writeAudio(w, contentType, encoded, true)
}

func floatOrDefault(value *float64, fallback float64) float64 {
	if value == nil {
		return fallback
	}

	return *value
}
