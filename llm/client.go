// Package llm provides HTTP clients for LLM API calls.
package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/redassist/redassist/internal/types"
)

// RequestTimeout bounds a single completion round-trip.
const RequestTimeout = 30 * time.Second

// Part is one piece of a multimodal message.
type Part struct {
	Text     string
	ImageB64 string // base64-encoded PNG
}

// Message represents a chat message. When Parts is non-empty the message
// is multimodal and Content is ignored; otherwise Content is plain text.
type Message struct {
	Role    string
	Content string
	Parts   []Part
}

// Text returns a text-only message.
func Text(role, content string) Message {
	return Message{Role: role, Content: content}
}

// Options configures LLM completion behavior.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// DefaultOptions are the conversation defaults: short, low-variance
// replies suited for being read aloud.
func DefaultOptions() Options {
	return Options{MaxTokens: 800, Temperature: 0.4}
}

// Completer performs chat completions.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, types.Usage, error)
}

// completerConfig holds all parameters needed by completers.
type completerConfig struct {
	http        *http.Client
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
}

// NewCompleter creates a Completer for the given provider type.
func NewCompleter(apiType, apiKey, baseURL, model string, opts Options) Completer {
	cfg := completerConfig{
		http:        &http.Client{Timeout: RequestTimeout},
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}

	switch apiType {
	case "gemini":
		return &geminiCompleter{cfg: cfg}
	case "claude":
		return &claudeCompleter{cfg: cfg}
	case "openai", "openai-compatible":
		return &openaiCompleter{cfg: cfg, isCompatible: apiType == "openai-compatible"}
	default:
		// Default to OpenAI format
		return &openaiCompleter{cfg: cfg}
	}
}
