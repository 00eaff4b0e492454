package stt

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// dedupeWindow is how long an identical transcript is suppressed after
// delivery. It protects against duplicate triggers from a bouncing
// hotkey: the same WAV transcribed twice in quick succession must reach
// the orchestrator once.
const dedupeWindow = 1200 * time.Millisecond

// Dispatcher runs transcription on a background goroutine and delivers
// the outcome through one of two callbacks: onText for results (possibly
// empty, meaning "no speech detected") and onFail for pipeline failures,
// already flattened to a descriptive string.
type Dispatcher struct {
	onText func(text string)
	onFail func(reason string)

	mu       sync.Mutex
	lastText string
	lastAt   time.Time
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher delivering into the given callbacks.
// Callbacks are invoked from a background goroutine; the orchestrator
// wires them to its inbound event channel.
func NewDispatcher(onText func(string), onFail func(string)) *Dispatcher {
	return &Dispatcher{
		onText: onText,
		onFail: onFail,
		now:    time.Now,
	}
}

// Dispatch transcribes the WAV at path using the first ready provider in
// order, falling through on error or empty output. The last provider's
// outcome decides between onText and onFail.
func (d *Dispatcher) Dispatch(ctx context.Context, providers []Provider, path, language string) {
	go d.run(ctx, providers, path, language)
}

func (d *Dispatcher) run(ctx context.Context, providers []Provider, path, language string) {
	var lastErr error
	tried := 0

	for _, p := range providers {
		if !p.Ready() {
			continue
		}
		tried++

		text, err := p.Transcribe(ctx, path, language)
		if err != nil {
			slog.Warn("transcription provider failed", "provider", p.Name(), "error", err)
			lastErr = err
			continue
		}
		if text == "" {
			// Engine ran but heard nothing; give the next provider a chance.
			lastErr = nil
			continue
		}
		d.deliver(text)
		return
	}

	if lastErr != nil {
		d.onFail(lastErr.Error())
		return
	}
	if tried == 0 {
		d.onFail("no transcription provider available")
		return
	}
	// Every provider reported silence.
	d.onText("")
}

// deliver forwards the transcript unless it repeats the previous delivery
// within the de-dupe window.
func (d *Dispatcher) deliver(text string) {
	d.mu.Lock()
	now := d.now()
	if text == d.lastText && now.Sub(d.lastAt) < dedupeWindow {
		d.mu.Unlock()
		slog.Debug("duplicate transcript suppressed", "text", text)
		return
	}
	d.lastText = text
	d.lastAt = now
	d.mu.Unlock()

	d.onText(text)
}
