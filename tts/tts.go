// Package tts turns assistant replies into audible speech. Two backends
// exist behind the Speaker contract: the OpenAI speech endpoint and the
// platform speech command. The backend is picked per utterance from the
// preferences snapshot.
package tts

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/redassist/redassist/config"
	"github.com/redassist/redassist/langdetect"
)

// Request is one utterance to synthesize and play.
type Request struct {
	Text   string
	Voice  string  // backend-specific voice name, "" for default
	Rate   int     // words per minute
	Volume float64 // 0..1
}

// Speaker synthesizes and plays one utterance, blocking until playback
// ends or ctx is cancelled.
type Speaker interface {
	Name() string
	Available() bool
	Speak(ctx context.Context, req Request) error
}

// Synthesizer serializes speech: starting a new utterance always stops
// the current one first.
type Synthesizer struct {
	mu     sync.Mutex
	cancel context.CancelFunc

	// speakers builds the backend pair for one utterance; the second is
	// the degrade target when the first is unavailable or fails.
	speakers func(cfg config.Snapshot) (primary, fallback Speaker)
}

// NewSynthesizer creates a Synthesizer with the cloud and system backends.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{speakers: defaultSpeakers}
}

func defaultSpeakers(cfg config.Snapshot) (Speaker, Speaker) {
	cloud := newCloudSpeaker(cfg)
	system := newSystemSpeaker()
	if cfg.TTSEngine == "system" {
		return system, cloud
	}
	return cloud, system
}

// Speak synthesizes text with the preferences from cfg and plays it on a
// background goroutine. Any in-flight utterance is stopped first. onDone
// fires exactly once when playback ends, fails or is interrupted.
func (s *Synthesizer) Speak(text string, cfg config.Snapshot, onDone func()) {
	s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	var once sync.Once
	done := func() {
		once.Do(func() {
			if onDone != nil {
				onDone()
			}
		})
	}

	req := Request{
		Text:   text,
		Voice:  resolveVoice(cfg, text),
		Rate:   cfg.TTSRate,
		Volume: cfg.TTSVolume,
	}
	primary, fallback := s.speakers(cfg)

	go func() {
		defer done()
		defer cancel()

		if err := speakWithFallback(ctx, primary, fallback, req); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("speak", "error", err)
		}
	}()
}

func speakWithFallback(ctx context.Context, primary, fallback Speaker, req Request) error {
	if !primary.Available() {
		slog.Warn("tts backend unavailable", "backend", primary.Name())
		primary, fallback = fallback, nil
	}
	if primary == nil || !primary.Available() {
		return errors.New("no speech backend available")
	}

	err := primary.Speak(ctx, req)
	if err == nil || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return err
	}
	if fallback == nil || !fallback.Available() {
		return err
	}

	slog.Warn("tts backend failed, degrading", "backend", primary.Name(), "error", err)
	return fallback.Speak(ctx, req)
}

// Stop interrupts the current utterance, if any.
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// resolveVoice maps the "auto" voice preference to a concrete voice
// based on the detected reply language.
func resolveVoice(cfg config.Snapshot, text string) string {
	if cfg.TTSVoice != "auto" {
		return cfg.TTSVoice
	}
	if cfg.TTSEngine == "system" {
		code, _ := langdetect.Detect(text)
		return systemVoiceFor(code)
	}
	// Cloud voices are multilingual.
	return defaultCloudVoice
}

// rateToSpeed maps words per minute onto the cloud speed multiplier,
// with 175 wpm as the neutral rate.
func rateToSpeed(rate int) float64 {
	if rate <= 0 {
		rate = 175
	}
	speed := float64(rate) / 175.0
	if speed < 0.5 {
		return 0.5
	}
	if speed > 2.0 {
		return 2.0
	}
	return speed
}
