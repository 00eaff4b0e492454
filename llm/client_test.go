package llm

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestToOpenAIMessagesPlainText(t *testing.T) {
	msgs := toOpenAIMessages([]Message{
		Text("system", "Ты ассистент."),
		Text("user", "Привет"),
	})

	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	content, ok := msgs[1].Content.(string)
	if !ok || content != "Привет" {
		t.Errorf("Content = %#v, want plain string", msgs[1].Content)
	}
}

func TestToOpenAIMessagesMultimodal(t *testing.T) {
	msgs := toOpenAIMessages([]Message{{
		Role: "user",
		Parts: []Part{
			{Text: "Что на экране?"},
			{ImageB64: "aGVsbG8="},
		},
	}})

	parts, ok := msgs[0].Content.([]openaiContentPart)
	if !ok {
		t.Fatalf("Content = %#v, want parts array", msgs[0].Content)
	}
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(parts))
	}
	if parts[0].Type != "text" || parts[0].Text != "Что на экране?" {
		t.Errorf("first part = %+v, want text part", parts[0])
	}
	if parts[1].Type != "image_url" || parts[1].ImageURL == nil {
		t.Fatalf("second part = %+v, want image part", parts[1])
	}
	if !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,") {
		t.Errorf("image URL = %q, want data URI", parts[1].ImageURL.URL)
	}
}

func TestClaudeSystemPromptExtracted(t *testing.T) {
	var claudeMsgs []claudeMessage
	var systemPrompt string
	for _, msg := range []Message{
		Text("system", "Будь краток."),
		Text("user", "Привет"),
	} {
		if msg.Role == "system" {
			systemPrompt += msg.Content
			continue
		}
		claudeMsgs = append(claudeMsgs, claudeMessage{Role: msg.Role, Content: toClaudeContent(msg)})
	}

	if systemPrompt != "Будь краток." {
		t.Errorf("system prompt = %q", systemPrompt)
	}
	if len(claudeMsgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(claudeMsgs))
	}
}

func TestToClaudeContentImage(t *testing.T) {
	content := toClaudeContent(Message{
		Role:  "user",
		Parts: []Part{{Text: "опиши"}, {ImageB64: "aGVsbG8="}},
	})

	blocks, ok := content.([]claudeBlock)
	if !ok {
		t.Fatalf("content = %#v, want blocks", content)
	}
	if blocks[1].Type != "image" || blocks[1].Source == nil || blocks[1].Source.MediaType != "image/png" {
		t.Errorf("image block = %+v", blocks[1])
	}
}

func TestGeminiBuildRequest(t *testing.T) {
	c := &geminiCompleter{cfg: completerConfig{maxTokens: 800, temperature: 0.4}}

	req := c.buildRequest([]Message{
		Text("system", "Будь краток."),
		Text("user", "Привет"),
		Text("assistant", "Здравствуй."),
		{Role: "user", Parts: []Part{{ImageB64: "aGVsbG8="}}},
	})

	if req.SystemInstruction == nil {
		t.Fatal("system instruction missing")
	}
	if len(req.Contents) != 3 {
		t.Fatalf("got %d contents, want 3", len(req.Contents))
	}
	if req.Contents[1].Role != "model" {
		t.Errorf("assistant role mapped to %q, want model", req.Contents[1].Role)
	}
	if req.Contents[2].Parts[0].InlineData == nil {
		t.Error("image part should use inline_data")
	}

	// The request must serialize without error.
	if _, err := json.Marshal(req); err != nil {
		t.Fatalf("marshal request: %v", err)
	}
}
