// Package vision captures on-demand screen context: a screenshot, the
// text recognized on it, the active window title and a one-sentence
// description produced by a multimodal LLM call.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redassist/redassist/config"
	"github.com/redassist/redassist/internal/types"
	"github.com/redassist/redassist/llm"
)

// ErrBusy is returned when a capture is already in flight.
var ErrBusy = errors.New("vision capture already in progress")

const (
	// maxOCRChars caps the recognized text kept in the context.
	maxOCRChars = 2000
	// descOCRChars is how much OCR text grounds the description call.
	descOCRChars = 400
)

const describePrompt = "Опиши экран КРАЙНЕ кратко, одним предложением до 10 слов. " +
	"Сначала назови тип и/или приложение (браузер, игра, проводник, YouTube и т.п.), " +
	"потом главное действие/состояние. Без вступлений, без лишних слов."

// Provider produces screen contexts. At most one capture runs at a time;
// concurrent calls get ErrBusy instead of queueing.
type Provider struct {
	busy atomic.Bool

	// Injection points for tests. Defaults use the platform implementations.
	grab        func() (string, error)
	recognize   func(imagePath, language string) (string, error)
	windowTitle func() string
	complete    func(ctx context.Context, cfg config.Snapshot, messages []llm.Message) (string, error)
}

// NewProvider creates a Provider backed by the platform screenshot and
// OCR implementations.
func NewProvider() *Provider {
	return &Provider{
		grab:        grabScreen,
		recognize:   recognizeText,
		windowTitle: activeWindowTitle,
		complete:    completeViaAPI,
	}
}

func completeViaAPI(ctx context.Context, cfg config.Snapshot, messages []llm.Message) (string, error) {
	completer := llm.NewCompleter(cfg.Provider, cfg.ResolvedAPIKey(), cfg.BaseURL, cfg.Model, llm.DefaultOptions())
	text, _, err := completer.Complete(ctx, messages)
	return text, err
}

// Busy reports whether a capture is currently in flight.
func (p *Provider) Busy() bool { return p.busy.Load() }

// Capture grabs the screen and assembles a ScreenContext. OCR and window
// title failures degrade to empty fields; only the screenshot itself is
// fatal. The description never fails: LLM errors produce placeholder text.
func (p *Provider) Capture(ctx context.Context, cfg config.Snapshot) (types.ScreenContext, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return types.ScreenContext{}, ErrBusy
	}
	defer p.busy.Store(false)

	imagePath, err := p.grab()
	if err != nil {
		return types.ScreenContext{}, fmt.Errorf("grab screen: %w", err)
	}
	defer os.Remove(imagePath)

	ocrLang := cfg.OCRLang
	if ocrLang == "auto" {
		ocrLang = ""
	}
	ocrText, err := p.recognize(imagePath, ocrLang)
	if err != nil {
		slog.Warn("screen OCR failed", "error", err)
		ocrText = ""
	}
	ocrText = capRunes(collapseWhitespace(ocrText), maxOCRChars)

	title := p.windowTitle()

	return types.ScreenContext{
		Description: p.describe(ctx, cfg, imagePath, title, ocrText),
		OCRText:     ocrText,
		WindowTitle: title,
		CapturedAt:  time.Now().UnixMilli(),
	}, nil
}

// describe asks the LLM for a one-sentence screen summary, grounded on
// the screenshot, the window title and a slice of the OCR text.
func (p *Provider) describe(ctx context.Context, cfg config.Snapshot, imagePath, title, ocrText string) string {
	png, err := os.ReadFile(imagePath)
	if err != nil {
		return "Не смог получить описание экрана: " + err.Error()
	}

	userText := "Заголовок активного окна: " + titleOr(title) + "\n"
	if ocrText != "" {
		userText += "OCR (обрезано): " + capRunes(ocrText, descOCRChars)
	}

	messages := []llm.Message{
		llm.Text("system", describePrompt),
		{Role: "user", Parts: []llm.Part{
			{Text: userText},
			{ImageB64: base64.StdEncoding.EncodeToString(png)},
		}},
	}

	desc, err := p.complete(ctx, cfg, messages)
	if err != nil {
		slog.Warn("screen description failed", "error", err)
		return "Не смог получить описание экрана: " + err.Error()
	}
	return strings.TrimSpace(desc)
}

func titleOr(title string) string {
	if title == "" {
		return "(нет)"
	}
	return title
}

// collapseWhitespace joins all whitespace runs into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// capRunes truncates s to at most n runes without splitting one.
func capRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
