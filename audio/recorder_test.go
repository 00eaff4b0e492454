package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"testing"
	"time"
)

// fakeSource feeds predefined sample blocks to the recorder on Start.
type fakeSource struct {
	blocks   [][]int16
	startErr error
	started  bool
	stopped  bool
}

func (f *fakeSource) Start(onBlock func(samples []int16)) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	for _, b := range f.blocks {
		onBlock(b)
	}
	return nil
}

func (f *fakeSource) Stop() error {
	f.stopped = true
	return nil
}

// block returns n samples of constant amplitude.
func block(n int, amp int16) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = amp
	}
	return s
}

func TestStopWithoutStart(t *testing.T) {
	r := NewRecorder(Config{Source: &fakeSource{}, Dir: t.TempDir()})

	path, err := r.Stop()
	if !errors.Is(err, ErrNoArtifact) {
		t.Fatalf("Stop() error = %v, want ErrNoArtifact", err)
	}
	if path != "" {
		t.Errorf("Stop() path = %q, want empty", path)
	}
}

func TestShortRecordingDiscarded(t *testing.T) {
	// 1600 samples at 16 kHz = 0.1s, below the 0.2s minimum.
	src := &fakeSource{blocks: [][]int16{block(1600, 1000)}}
	r := NewRecorder(Config{Source: src, SampleRate: 16000, Dir: t.TempDir()})

	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	path, err := r.Stop()
	if !errors.Is(err, ErrNoArtifact) {
		t.Fatalf("Stop() error = %v, want ErrNoArtifact", err)
	}
	if path != "" {
		t.Errorf("Stop() path = %q, want empty", path)
	}
	if got := r.LastDuration(); got != 100*time.Millisecond {
		t.Errorf("LastDuration() = %v, want 100ms", got)
	}
}

func TestEmptyRecordingDiscarded(t *testing.T) {
	r := NewRecorder(Config{Source: &fakeSource{}, Dir: t.TempDir()})

	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := r.Stop(); !errors.Is(err, ErrNoArtifact) {
		t.Fatalf("Stop() error = %v, want ErrNoArtifact", err)
	}
}

func TestRecordingProducesWAV(t *testing.T) {
	// 8000 samples = 0.5s.
	src := &fakeSource{blocks: [][]int16{block(4000, 2000), block(4000, -2000)}}
	r := NewRecorder(Config{Source: src, SampleRate: 16000, Dir: t.TempDir()})

	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	path, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if len(data) != 44+8000*2 {
		t.Fatalf("artifact size = %d, want %d", len(data), 44+8000*2)
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("artifact is not a RIFF/WAVE file")
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		t.Errorf("bits per sample = %d, want 16", bits)
	}
	if !src.stopped {
		t.Error("source was not stopped")
	}
}

func TestStartFailsOnDeviceError(t *testing.T) {
	src := &fakeSource{startErr: errors.New("no input device")}
	r := NewRecorder(Config{Source: src, Dir: t.TempDir()})

	if err := r.Start(); err == nil {
		t.Fatal("Start() should fail when the source cannot open")
	}
	if r.IsRecording() {
		t.Error("recorder should not be recording after a failed Start")
	}
}

func TestSecondStartRejected(t *testing.T) {
	r := NewRecorder(Config{Source: &fakeSource{}, Dir: t.TempDir()})

	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRecording", err)
	}
}

func TestLevelEnvelope(t *testing.T) {
	r := NewRecorder(Config{Source: &fakeSource{}, Dir: t.TempDir()})

	if got := r.CurrentLevel(); got != 0 {
		t.Fatalf("initial level = %v, want 0", got)
	}

	// Full-scale block: rms/32768*4 clamps to 1, envelope moves 0.2 of the way.
	r.updateLevel(block(512, math.MaxInt16))
	if got := r.CurrentLevel(); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("level after one loud block = %v, want 0.2", got)
	}

	// Silence decays toward zero.
	r.updateLevel(block(512, 0))
	if got := r.CurrentLevel(); math.Abs(got-0.16) > 1e-9 {
		t.Errorf("level after silence = %v, want 0.16", got)
	}
}
