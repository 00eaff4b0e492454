// Package config handles user preferences for the assistant.
//
// Preferences live in a single JSON document merged over fixed defaults.
// Load is cheap by design: the orchestrator re-reads the file before each
// synthesis and each screen capture so settings changes apply on the next
// utterance without restarting anything. Callers receive a value snapshot,
// never a shared pointer.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	appName        = "redassist"
	configFileName = "user_prefs.json"
)

// Snapshot is one point-in-time view of the preference document.
type Snapshot struct {
	// Chat
	Provider     string `json:"provider"` // "openai", "claude", "gemini"
	Model        string `json:"model"`
	BaseURL      string `json:"base_url,omitempty"`
	APIKey       string `json:"api_key,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Transcription
	STTModel      string `json:"stt_model"`
	STTLocalModel string `json:"stt_local_model,omitempty"` // whisper.cpp ggml model path; empty = online only

	// Synthesis
	TTSEngine string  `json:"tts_engine"` // "cloud" | "system"
	TTSRate   int     `json:"tts_rate"`   // common words-per-minute control
	TTSVolume float64 `json:"tts_volume"` // 0..1
	TTSVoice  string  `json:"tts_voice"`  // backend voice id, or "auto"

	// Vision
	OCRLang string `json:"ocr_lang"` // OCR language hint, "auto" = engine default

	// Triggers
	PTTKey    string `json:"ptt_key"`
	VisionKey string `json:"vision_key"`
}

// Defaults returns the built-in preference values.
func Defaults() Snapshot {
	return Snapshot{
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		STTModel:  "whisper-1",
		TTSEngine: "cloud",
		TTSRate:   175,
		TTSVolume: 0.9,
		TTSVoice:  "auto",
		OCRLang:   "auto",
		PTTKey:    "ctrl+3",
		VisionKey: "ctrl+4",
	}
}

// Load reads the preference file and merges it over the defaults.
// A missing file yields the defaults; a broken file is an error.
func Load() (Snapshot, error) {
	path, err := prefsPath()
	if err != nil {
		return Defaults(), fmt.Errorf("get prefs path: %w", err)
	}
	return loadFrom(path)
}

func loadFrom(path string) (Snapshot, error) {
	snap := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return snap, nil
		}
		return snap, fmt.Errorf("read prefs: %w", err)
	}

	// Unmarshal into the defaults value: keys present in the file win,
	// everything else keeps its default.
	if err := json.Unmarshal(data, &snap); err != nil {
		return Defaults(), fmt.Errorf("unmarshal prefs: %w", err)
	}
	return snap, nil
}

// Save persists the snapshot to the preference file.
func Save(snap Snapshot) error {
	path, err := prefsPath()
	if err != nil {
		return fmt.Errorf("get prefs path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

// ResolvedAPIKey returns the configured API key, falling back to the
// OPENAI_API_KEY environment variable.
func (s Snapshot) ResolvedAPIKey() string {
	if s.APIKey != "" {
		return s.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// ResolvedSystemPrompt returns the configured persona prompt or the
// built-in fallback.
func (s Snapshot) ResolvedSystemPrompt() string {
	if s.SystemPrompt != "" {
		return s.SystemPrompt
	}
	return "You are Red. Be concise and directive. Address the user as 'Владыка'."
}

func prefsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}
