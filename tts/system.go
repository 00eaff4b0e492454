package tts

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
)

// systemSpeaker uses the platform speech command: say on macOS, espeak
// elsewhere. No network, no API key.
type systemSpeaker struct {
	binPath string
}

func newSystemSpeaker() *systemSpeaker {
	name := "espeak"
	if runtime.GOOS == "darwin" {
		name = "say"
	}
	path, _ := exec.LookPath(name)
	return &systemSpeaker{binPath: path}
}

func (s *systemSpeaker) Name() string { return "system" }

func (s *systemSpeaker) Available() bool { return s.binPath != "" }

func (s *systemSpeaker) Speak(ctx context.Context, req Request) error {
	if s.binPath == "" {
		return fmt.Errorf("system speech command not found")
	}

	rate := req.Rate
	if rate <= 0 {
		rate = 175
	}

	var args []string
	if runtime.GOOS == "darwin" {
		args = []string{"-r", strconv.Itoa(rate)}
		if req.Voice != "" {
			args = append(args, "-v", req.Voice)
		}
	} else {
		// espeak amplitude runs 0-200.
		amp := int(req.Volume * 200)
		if amp <= 0 {
			amp = 100
		}
		args = []string{"-s", strconv.Itoa(rate), "-a", strconv.Itoa(amp)}
		if req.Voice != "" {
			args = append(args, "-v", req.Voice)
		}
	}
	args = append(args, req.Text)

	cmd := exec.CommandContext(ctx, s.binPath, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("system speech: %w", err)
	}
	return nil
}

// systemVoiceFor picks a platform voice for the detected reply language.
// Unknown codes keep the platform default.
func systemVoiceFor(code string) string {
	if runtime.GOOS == "darwin" {
		switch code {
		case "ru":
			return "Milena"
		case "en":
			return "Samantha"
		case "de":
			return "Anna"
		case "es":
			return "Monica"
		case "fr":
			return "Thomas"
		}
		return ""
	}
	// espeak voice names are language codes.
	return code
}
