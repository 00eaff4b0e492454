package app

import (
	"sync"

	"github.com/redassist/redassist/llm"
)

// History is the conversation sent to the LLM. Element 0 is always the
// system prompt; exchanges are appended only after a completion
// succeeds, so failed or dropped requests leave no trace.
type History struct {
	mu   sync.Mutex
	msgs []llm.Message
}

// NewHistory creates a History seeded with the system prompt.
func NewHistory(systemPrompt string) *History {
	return &History{msgs: []llm.Message{llm.Text("system", systemPrompt)}}
}

// Snapshot returns a copy of the current messages.
func (h *History) Snapshot() []llm.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]llm.Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

// AppendExchange records one successful user/assistant round trip.
func (h *History) AppendExchange(userText, reply string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, llm.Text("user", userText), llm.Text("assistant", reply))
}

// SetSystemPrompt replaces the system prompt, keeping the exchanges.
func (h *History) SetSystemPrompt(prompt string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs[0] = llm.Text("system", prompt)
}

// Len returns the message count including the system prompt.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}
