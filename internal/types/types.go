// Package types provides shared type definitions for the application.
package types

// Usage represents token usage statistics from LLM API calls.
type Usage struct {
	PromptTokens     int  `json:"promptTokens"`
	CompletionTokens int  `json:"completionTokens"`
	TotalTokens      int  `json:"totalTokens"`
	CacheHit         bool `json:"cacheHit"`
}

// ScreenContext is one capture of the screen: a short description, the
// recognized text and the active window title.
type ScreenContext struct {
	Description string `json:"description"`
	OCRText     string `json:"ocrText"`
	WindowTitle string `json:"windowTitle"`
	CapturedAt  int64  `json:"capturedAt"` // Unix timestamp in milliseconds
}

// LogEntry is one line of the visible transcript: user utterances,
// assistant replies and error notices.
type LogEntry struct {
	Role      string `json:"role"` // "user", "assistant", "system"
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp in milliseconds
}

// StateInfo is the orchestrator status pushed to the frontend.
type StateInfo struct {
	State      string  `json:"state"` // "idle", "listening", "transcribing", "thinking", "speaking"
	MicLevel   float64 `json:"micLevel"`
	LLMBusy    bool    `json:"llmBusy"`
	VisionBusy bool    `json:"visionBusy"`
}

// DetectResult represents the result of language detection.
type DetectResult struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
