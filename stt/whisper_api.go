package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultTranscriptionURL = "https://api.openai.com/v1/audio/transcriptions"

// WhisperAPI transcribes through the OpenAI transcription endpoint.
type WhisperAPI struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// WhisperAPIConfig holds configuration for WhisperAPI.
type WhisperAPIConfig struct {
	APIKey  string
	BaseURL string // optional API root, e.g. "https://api.openai.com/v1"
	Model   string // optional, defaults to "whisper-1"
}

// NewWhisperAPI creates the online transcription provider.
func NewWhisperAPI(cfg WhisperAPIConfig) *WhisperAPI {
	url := defaultTranscriptionURL
	if cfg.BaseURL != "" {
		url = strings.TrimRight(cfg.BaseURL, "/") + "/audio/transcriptions"
	}
	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperAPI{
		apiKey:  cfg.APIKey,
		baseURL: url,
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (w *WhisperAPI) Name() string { return "whisper-api" }

func (w *WhisperAPI) Ready() bool { return w.apiKey != "" }

// Transcribe uploads the WAV file as a multipart form and returns the
// transcript text. An empty transcript with a 200 response is not an error.
func (w *WhisperAPI) Transcribe(ctx context.Context, path, language string) (string, error) {
	if !w.Ready() {
		return "", fmt.Errorf("transcription API key not configured")
	}

	audio, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read wav: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	if err := writer.WriteField("model", w.model); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	// The API rejects "auto"; omitting the field means auto-detect.
	if language != "" && language != "auto" {
		if err := writer.WriteField("language", language); err != nil {
			return "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	return strings.TrimSpace(apiResp.Text), nil
}
