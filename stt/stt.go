// Package stt provides speech-to-text providers and the transcription
// dispatcher that runs them off the control thread.
package stt

import "context"

// Provider converts a recorded WAV artifact to text.
//
// A Provider distinguishes two kinds of "nothing": an empty string with a
// nil error means the engine ran fine but heard no speech; a non-nil error
// means the pipeline itself failed.
type Provider interface {
	// Name returns the provider identifier for logs.
	Name() string

	// Ready reports whether the provider can transcribe right now
	// (binary and model present, API key configured, ...).
	Ready() bool

	// Transcribe converts the WAV file at path to text.
	// language is a source-language hint; empty or "auto" means detect.
	Transcribe(ctx context.Context, path, language string) (string, error)
}
