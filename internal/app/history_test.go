package app

import "testing"

func TestHistoryStartsWithSystemPrompt(t *testing.T) {
	h := NewHistory("Будь краток.")

	snap := h.Snapshot()
	if len(snap) != 1 || snap[0].Role != "system" || snap[0].Content != "Будь краток." {
		t.Fatalf("initial history = %+v", snap)
	}
}

func TestHistoryAppendExchange(t *testing.T) {
	h := NewHistory("system")

	h.AppendExchange("Привет", "Здравствуй, Владыка.")
	h.AppendExchange("Как дела?", "Отлично.")

	snap := h.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("history length = %d, want 5", len(snap))
	}
	if snap[1].Role != "user" || snap[2].Role != "assistant" {
		t.Errorf("exchange roles = %s, %s", snap[1].Role, snap[2].Role)
	}
	if snap[3].Content != "Как дела?" || snap[4].Content != "Отлично." {
		t.Errorf("second exchange = %q, %q", snap[3].Content, snap[4].Content)
	}
}

func TestHistorySnapshotIsACopy(t *testing.T) {
	h := NewHistory("system")
	h.AppendExchange("a", "b")

	snap := h.Snapshot()
	snap[0].Content = "mutated"

	if h.Snapshot()[0].Content != "system" {
		t.Error("mutating a snapshot must not affect the history")
	}
}

func TestHistorySetSystemPromptKeepsExchanges(t *testing.T) {
	h := NewHistory("old")
	h.AppendExchange("a", "b")

	h.SetSystemPrompt("new")

	snap := h.Snapshot()
	if snap[0].Content != "new" {
		t.Errorf("system prompt = %q, want new", snap[0].Content)
	}
	if len(snap) != 3 {
		t.Errorf("history length = %d, want 3", len(snap))
	}
}
