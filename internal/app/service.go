// Package app provides the core application service for Wails bindings.
package app

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/wailsapp/wails/v3/pkg/application"

	"github.com/redassist/redassist/audio"
	"github.com/redassist/redassist/cache"
	"github.com/redassist/redassist/config"
	"github.com/redassist/redassist/hotkey"
	"github.com/redassist/redassist/internal/types"
	"github.com/redassist/redassist/langdetect"
	"github.com/redassist/redassist/stt"
	"github.com/redassist/redassist/tts"
	"github.com/redassist/redassist/vision"
)

// Service provides application functionality bound to Wails.
// This struct focuses on wiring; interaction logic lives in Orchestrator.
type Service struct {
	orch   *Orchestrator
	cache  *cache.Cache
	hotkey *hotkey.Manager

	// UI references - set via Init
	app    *application.App
	window application.Window

	// Version info (set by caller)
	version string
}

// New creates a new Service. Call Init() after Wails app is created.
func New(version string) *Service {
	return &Service{version: version}
}

// GetVersion returns the application version.
func (s *Service) GetVersion() string {
	return s.version
}

// Init initializes the service with app and window references.
// Must be called after Wails application is created.
func (s *Service) Init(app *application.App, window application.Window) {
	s.app = app
	s.window = window

	s.setupCache()

	recorder := audio.NewRecorder(audio.Config{Source: audio.NewFFmpegSource("", 16000)})
	s.orch = NewOrchestrator(Components{
		Recorder:  recorder,
		Providers: sttProviders,
		Vision:    vision.NewProvider(),
		Synth:     tts.NewSynthesizer(),
		Cache:     s.cache,
		Emit:      s.emit,
	})
	s.orch.Run()

	s.setupHotkey()
}

// Shutdown cleans up resources.
func (s *Service) Shutdown() {
	if s.hotkey != nil {
		s.hotkey.Stop()
	}
	if s.orch != nil {
		s.orch.Close()
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			slog.Error("close cache", "error", err)
		}
	}
}

// sttProviders builds the transcription chain: local whisper.cpp first,
// the online API as fallback.
func sttProviders(cfg config.Snapshot) []stt.Provider {
	return []stt.Provider{
		stt.NewWhisperLocal(cfg.STTLocalModel),
		stt.NewWhisperAPI(stt.WhisperAPIConfig{
			APIKey:  cfg.ResolvedAPIKey(),
			BaseURL: cfg.BaseURL,
			Model:   cfg.STTModel,
		}),
	}
}

func (s *Service) setupCache() {
	configDir, err := os.UserConfigDir()
	if err != nil {
		slog.Error("get config dir for cache", "error", err)
		return
	}

	cachePath := filepath.Join(configDir, "redassist", "cache")
	c, err := cache.New(cachePath)
	if err != nil {
		slog.Error("init cache", "error", err)
		return
	}
	s.cache = c
	slog.Info("cache initialized", "path", cachePath)
}

func (s *Service) setupHotkey() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config for hotkeys", "error", err)
		cfg = config.Defaults()
	}

	m, err := hotkey.NewManager(cfg.PTTKey, cfg.VisionKey,
		s.orch.PressTalk,
		s.orch.ReleaseTalk,
		s.orch.DescribeScreen,
	)
	if err != nil {
		slog.Error("create hotkey manager", "error", err)
		return
	}
	s.hotkey = m

	if err := s.hotkey.Start(); err != nil {
		slog.Error("start hotkey", "error", err)
	}
}

// emit is a safe wrapper around app.Event.Emit
func (s *Service) emit(name string, data any) {
	if s.app != nil {
		s.app.Event.Emit(name, data)
	}
}

// PressTalk starts push-to-talk recording (frontend button).
func (s *Service) PressTalk() { s.orch.PressTalk() }

// ReleaseTalk stops recording and transcribes.
func (s *Service) ReleaseTalk() { s.orch.ReleaseTalk() }

// SubmitText sends a typed utterance to the assistant.
func (s *Service) SubmitText(text string) { s.orch.SubmitText(text) }

// DescribeScreen captures the screen and speaks the description.
func (s *Service) DescribeScreen() { s.orch.DescribeScreen() }

// GetState returns the current interaction state.
func (s *Service) GetState() types.StateInfo { return s.orch.GetState() }

// GetLog returns the visible transcript.
func (s *Service) GetLog() []types.LogEntry { return s.orch.GetLog() }

// GetScreenContext returns the last captured screen context.
func (s *Service) GetScreenContext() types.ScreenContext { return s.orch.GetScreenContext() }

// GetPrefs returns the current preferences.
func (s *Service) GetPrefs() (config.Snapshot, error) {
	return config.Load()
}

// ApplyPrefs saves the preferences and notifies the loop.
func (s *Service) ApplyPrefs(cfg config.Snapshot) error {
	if err := config.Save(cfg); err != nil {
		return err
	}
	s.orch.PrefsApplied()
	return nil
}

// DetectLanguage detects the language of the given text.
func (s *Service) DetectLanguage(text string) types.DetectResult {
	code, name := langdetect.Detect(text)
	return types.DetectResult{Code: code, Name: name}
}

// GetScreenRecordingPermission returns whether screen recording is permitted.
func (s *Service) GetScreenRecordingPermission() bool {
	return vision.HasPermission()
}

// RequestScreenRecordingPermission requests screen recording permission.
func (s *Service) RequestScreenRecordingPermission() {
	vision.RequestPermission()
}
