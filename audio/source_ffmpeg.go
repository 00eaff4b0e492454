package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// blockSamples is how many samples each callback block carries (~64 ms
// at 16 kHz), small enough for a responsive level meter.
const blockSamples = 1024

// FFmpegSource streams microphone PCM through an ffmpeg subprocess.
// It satisfies Source.
type FFmpegSource struct {
	command    string
	sampleRate int

	mu      sync.Mutex
	process *os.Process
	stdout  io.ReadCloser
	waitErr <-chan error
	done    chan struct{}
}

// NewFFmpegSource creates a microphone source backed by the ffmpeg binary.
// command defaults to "ffmpeg" on PATH.
func NewFFmpegSource(command string, sampleRate int) *FFmpegSource {
	if command == "" {
		command = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &FFmpegSource{command: command, sampleRate: sampleRate}
}

// Start spawns ffmpeg reading the default input device and feeds s16le
// sample blocks to onBlock until Stop. It fails when ffmpeg is missing or
// exits immediately (no input device).
func (s *FFmpegSource) Start(onBlock func(samples []int16)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.process != nil {
		return errors.New("source already started")
	}

	format, device := defaultInput()
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", format,
		"-i", device,
		"-ac", "1",
		"-ar", strconv.Itoa(s.sampleRate),
		"-f", "s16le",
		"-",
	}

	cmd := exec.Command(s.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// Give ffmpeg a moment to fail fast on a missing device.
	select {
	case err := <-waitErr:
		if err != nil {
			return fmt.Errorf("no input device: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
		}
		return errors.New("ffmpeg exited before capture started")
	case <-time.After(250 * time.Millisecond):
	}

	s.process = cmd.Process
	s.stdout = stdout
	s.waitErr = waitErr
	s.done = make(chan struct{})

	go s.pump(stdout, onBlock, s.done)
	return nil
}

// Stop interrupts ffmpeg and waits briefly for it to exit.
func (s *FFmpegSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.process == nil {
		return nil
	}
	close(s.done)
	_ = s.process.Signal(os.Interrupt)

	select {
	case <-s.waitErr:
	case <-time.After(1200 * time.Millisecond):
		_ = s.process.Kill()
		<-s.waitErr
	}

	_ = s.stdout.Close()
	s.process = nil
	s.stdout = nil
	s.waitErr = nil
	s.done = nil
	return nil
}

func (s *FFmpegSource) pump(r io.Reader, onBlock func([]int16), done <-chan struct{}) {
	buf := make([]byte, blockSamples*2)
	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := io.ReadFull(r, buf)
		if n >= 2 {
			samples := make([]int16, n/2)
			for i := range samples {
				samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
			}
			onBlock(samples)
		}
		if err != nil {
			return
		}
	}
}

// defaultInput returns the ffmpeg input format and device for this OS.
func defaultInput() (format, device string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", ":0"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "pulse", "default"
	}
}
