package tts

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/redassist/redassist/config"
)

const defaultCloudVoice = "alloy"

// cloudSpeaker synthesizes through the OpenAI speech endpoint and plays
// the resulting mp3 with ffplay.
type cloudSpeaker struct {
	client openai.Client
	apiKey string
}

func newCloudSpeaker(cfg config.Snapshot) *cloudSpeaker {
	apiKey := cfg.ResolvedAPIKey()
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &cloudSpeaker{
		client: openai.NewClient(opts...),
		apiKey: apiKey,
	}
}

func (c *cloudSpeaker) Name() string { return "cloud" }

func (c *cloudSpeaker) Available() bool {
	return c.apiKey != "" && playerPath() != ""
}

func (c *cloudSpeaker) Speak(ctx context.Context, req Request) error {
	voice := req.Voice
	if voice == "" {
		voice = defaultCloudVoice
	}

	resp, err := c.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModelTTS1,
		Input:          req.Text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		Speed:          openai.Float(rateToSpeed(req.Rate)),
	})
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp("", "redassist_tts_*.mp3")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close audio file: %w", err)
	}

	return play(ctx, path, req.Volume)
}

// play blocks until ffplay finishes or ctx is cancelled.
func play(ctx context.Context, path string, volume float64) error {
	player := playerPath()
	if player == "" {
		return fmt.Errorf("ffplay not found")
	}

	vol := int(volume * 100)
	if vol < 0 {
		vol = 0
	}
	if vol > 100 {
		vol = 100
	}

	cmd := exec.CommandContext(ctx, player,
		"-nodisp", "-autoexit", "-loglevel", "quiet",
		"-volume", fmt.Sprintf("%d", vol),
		path)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("play audio: %w", err)
	}
	return nil
}

func playerPath() string {
	if path, err := exec.LookPath("ffplay"); err == nil {
		return path
	}
	for _, loc := range []string{"/opt/homebrew/bin/ffplay", "/usr/local/bin/ffplay"} {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}
