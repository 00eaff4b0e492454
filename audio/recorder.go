// Package audio provides push-to-talk microphone recording.
//
// A Recorder owns one capture session at a time: Start opens the input
// source, sample blocks accumulate in memory, and Stop concatenates them
// into a uniquely named 16-bit PCM WAV artifact for transcription. A live
// amplitude envelope is maintained for the UI level meter.
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrNoArtifact is returned by Stop when the session produced nothing
// worth transcribing: no audio arrived, the recording was shorter than
// MinDuration, or Stop was called without a prior Start.
var ErrNoArtifact = errors.New("recording too short or empty")

// ErrAlreadyRecording is returned when Start is called mid-session.
var ErrAlreadyRecording = errors.New("already recording")

const (
	// MinDuration is the shortest recording that yields an artifact.
	MinDuration = 200 * time.Millisecond

	// levelDecay is the smoothing factor of the amplitude envelope.
	levelDecay = 0.2
)

// Source is a microphone input stream. Start begins delivering sample
// blocks (16-bit PCM, mono) to the callback from a background goroutine
// until Stop is called. Implementations report a device error from Start
// when no input device is available.
type Source interface {
	Start(onBlock func(samples []int16)) error
	Stop() error
}

// Recorder captures microphone input into a buffer and encodes it to a
// WAV file on Stop. CurrentLevel may be polled from any goroutine.
type Recorder struct {
	source     Source
	sampleRate int
	dir        string

	mu        sync.Mutex
	recording bool
	frames    [][]int16
	startedAt time.Time
	lastDur   time.Duration

	level atomic.Uint64 // float64 bits, mutated only by the block callback
}

// Config holds recorder construction parameters.
type Config struct {
	Source     Source // nil = ffmpeg default input
	SampleRate int    // default 16000 (what the transcription services want)
	Dir        string // artifact directory, default "tmp_audio" under the working dir
}

// NewRecorder creates a Recorder. The artifact directory is created lazily
// on the first successful Stop.
func NewRecorder(cfg Config) *Recorder {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Dir == "" {
		cfg.Dir = "tmp_audio"
	}
	if cfg.Source == nil {
		cfg.Source = NewFFmpegSource("", cfg.SampleRate)
	}
	return &Recorder{
		source:     cfg.Source,
		sampleRate: cfg.SampleRate,
		dir:        cfg.Dir,
	}
}

// Start opens the input stream and resets buffer and level state.
// A Device-class error is returned when no input device is available;
// the caller must report it and stay Idle.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.frames = nil
	r.lastDur = 0
	r.startedAt = time.Now()
	r.recording = true
	r.mu.Unlock()

	r.level.Store(math.Float64bits(0))

	if err := r.source.Start(r.handleBlock); err != nil {
		r.mu.Lock()
		r.recording = false
		r.mu.Unlock()
		return fmt.Errorf("open input stream: %w", err)
	}
	return nil
}

// Stop halts the stream and encodes the buffered audio. It returns the
// WAV artifact path, or ErrNoArtifact when there is nothing to transcribe.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return "", ErrNoArtifact
	}
	r.recording = false
	r.mu.Unlock()

	if err := r.source.Stop(); err != nil {
		return "", fmt.Errorf("stop input stream: %w", err)
	}

	r.mu.Lock()
	frames := r.frames
	r.frames = nil
	r.mu.Unlock()

	total := 0
	for _, f := range frames {
		total += len(f)
	}
	dur := time.Duration(total) * time.Second / time.Duration(r.sampleRate)

	r.mu.Lock()
	r.lastDur = dur
	r.mu.Unlock()

	if total == 0 || dur < MinDuration {
		return "", ErrNoArtifact
	}

	samples := make([]int16, 0, total)
	for _, f := range frames {
		samples = append(samples, f...)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	name := fmt.Sprintf("rec_%d_%s.wav", time.Now().Unix(), uuid.New().String()[:6])
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, encodeWAV(samples, r.sampleRate), 0o644); err != nil {
		return "", fmt.Errorf("write wav: %w", err)
	}
	return path, nil
}

// CurrentLevel returns the amplitude envelope in [0, 1]. It is 0 before
// the first callback of a session.
func (r *Recorder) CurrentLevel() float64 {
	v := math.Float64frombits(r.level.Load())
	return math.Max(0, math.Min(1, v))
}

// LastDuration returns the measured duration of the most recent session.
func (r *Recorder) LastDuration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastDur
}

// IsRecording reports whether a session is active.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func (r *Recorder) handleBlock(samples []int16) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	block := make([]int16, len(samples))
	copy(block, samples)
	r.frames = append(r.frames, block)
	r.mu.Unlock()

	r.updateLevel(samples)
}

// updateLevel folds the block RMS (normalized against 16-bit full scale,
// scaled x4 and clamped to 1) into the exponential envelope.
func (r *Recorder) updateLevel(samples []int16) {
	if len(samples) == 0 {
		return
	}
	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	rms := math.Sqrt(sum/float64(len(samples))) / 32768.0
	instant := math.Min(1, rms*4)

	prev := math.Float64frombits(r.level.Load())
	next := (1-levelDecay)*prev + levelDecay*instant
	r.level.Store(math.Float64bits(next))
}
