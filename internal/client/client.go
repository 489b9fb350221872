// Package client provides an HTTP client for the speech gateway, used by the
// command-line tool and by integration tests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// API endpoints.
const (
	apiSynthesize = "/synthesize"
	apiHealth     = "/health"
	apiVoices     = "/voices"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

// Static errors.
var (
	ErrTextEmpty     = errors.New("text cannot be empty")
	ErrEmptyAudio    = errors.New("received empty audio data")
	ErrNotAudio      = errors.New("unexpected content type")
	ErrUnhealthy     = errors.New("gateway is not healthy")
	ErrVoiceRequired = errors.New("voice id cannot be empty")
)

// Client talks to a running speech gateway instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// SynthesisRequest is the native synthesis payload.
type SynthesisRequest struct {
	// Input is the text to synthesize.
	Input string `json:"input"`

	// Voice optionally names a voice asset; empty means the default voice.
	Voice string `json:"voice,omitempty"`

	// Exaggeration and CFGWeight tune the generated speech. Nil fields
	// take the gateway defaults.
	Exaggeration *float64 `json:"exaggeration,omitempty"`
	CFGWeight    *float64 `json:"cfg_weight,omitempty"`
}

// errorDetail mirrors the gateway's JSON error envelope.
type errorDetail struct {
	Detail string `json:"detail"`
}

// VoiceList is the gateway's voice catalog response.
type VoiceList struct {
	Voices []string `json:"voices"`
}

// New creates a client for the gateway at baseURL (protocol and port
// included, e.g. "http://127.0.0.1:5553"). The timeout applies to every
// request made by this client.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize requests speech for the given text and returns the audio bytes.
func (c *Client) Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error) {
	if req.Input == "" {
		return nil, ErrTextEmpty
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiSynthesize,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach gateway at %s: %w", c.baseURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if !strings.HasPrefix(contentType, "audio/") {
		return nil, fmt.Errorf("%w: %s", ErrNotAudio, contentType)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// HealthCheck verifies the gateway is running and reports healthy.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody,
	)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for gateway at %s: %w", c.baseURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %s", ErrUnhealthy, resp.Status)
	}

	return nil
}

// ListVoices fetches the voice catalog IDs.
func (c *Client) ListVoices(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+apiVoices, http.NoBody,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach gateway at %s: %w", c.baseURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var list VoiceList

	decodeErr := json.NewDecoder(resp.Body).Decode(&list)
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode voice list: %w", decodeErr)
	}

	return list.Voices, nil
}

// DeleteVoice removes a custom voice asset by ID.
func (c *Client) DeleteVoice(ctx context.Context, voiceID string) error {
	if voiceID == "" {
		return ErrVoiceRequired
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodDelete, c.baseURL+apiVoices+"/"+voiceID, http.NoBody,
	)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach gateway at %s: %w", c.baseURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	return nil
}

// parseErrorResponse decodes the gateway's structured error envelope, falling
// back to the raw body so diagnostics are never lost.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var detail errorDetail

	err := json.NewDecoder(resp.Body).Decode(&detail)
	if err == nil && detail.Detail != "" {
		return fmt.Errorf("gateway error (%s): %s", resp.Status, detail.Detail)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf("gateway returned non-OK status: %s, body: %s", resp.Status, string(body))
}
