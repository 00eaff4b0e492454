package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// WhisperLocal transcribes with a local whisper.cpp install. It is ready
// only when both the CLI binary and a ggml model file are present; the
// dispatcher silently falls through to the online provider otherwise.
type WhisperLocal struct {
	modelPath string
	binPath   string
}

// NewWhisperLocal creates the offline provider for the given ggml model
// path. An empty modelPath yields a provider that is never ready.
func NewWhisperLocal(modelPath string) *WhisperLocal {
	return &WhisperLocal{
		modelPath: modelPath,
		binPath:   findWhisperBinary(),
	}
}

func (w *WhisperLocal) Name() string { return "whisper-local" }

func (w *WhisperLocal) Ready() bool {
	if w.modelPath == "" || w.binPath == "" {
		return false
	}
	_, err := os.Stat(w.modelPath)
	return err == nil
}

// Transcribe runs whisper.cpp over the WAV file and joins the segment
// texts from its JSON output.
func (w *WhisperLocal) Transcribe(ctx context.Context, path, language string) (string, error) {
	if !w.Ready() {
		return "", fmt.Errorf("whisper.cpp not available (model %q)", w.modelPath)
	}

	args := []string{
		"-m", w.modelPath,
		"-f", path,
		"-oj", // JSON to stdout
		"--no-prints",
	}
	if language != "" && language != "auto" {
		args = append(args, "-l", language)
	}

	cmd := exec.CommandContext(ctx, w.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("whisper.cpp failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	var out whisperCppOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		// Older builds print plain text when JSON output is unsupported.
		return strings.TrimSpace(stdout.String()), nil
	}

	var b strings.Builder
	for _, seg := range out.Transcription {
		b.WriteString(seg.Text)
	}
	return strings.TrimSpace(b.String()), nil
}

// whisperCppOutput is the JSON document whisper.cpp writes with -oj.
type whisperCppOutput struct {
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

func findWhisperBinary() string {
	// whisper-cli is the Homebrew name; main is the in-tree build name.
	names := []string{"whisper-cli", "whisper-cpp", "whisper", "main"}

	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	homeDir, _ := os.UserHomeDir()
	locations := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		filepath.Join(homeDir, ".local", "bin"),
		filepath.Join(homeDir, "whisper.cpp"),
	}
	for _, loc := range locations {
		for _, name := range names {
			path := filepath.Join(loc, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
