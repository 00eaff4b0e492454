package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redassist/redassist/audio"
	"github.com/redassist/redassist/config"
	"github.com/redassist/redassist/internal/types"
	"github.com/redassist/redassist/llm"
)

// testHarness fakes every component seam of the Orchestrator.
type testHarness struct {
	orch *Orchestrator

	mu           sync.Mutex
	completeMsgs [][]llm.Message
	completeErr  error
	reply        string
	spoken       []string
	recStarted   int
	recStopped   int
	stopPath     string
	stopErr      error
	lastDur      time.Duration
	captureSC    types.ScreenContext
	captureErr   error
	busyCapture  bool
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	h := &testHarness{reply: "Слушаю, Владыка.", stopPath: "/tmp/rec.wav"}

	o := &Orchestrator{
		events:  make(chan event, 16),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		history: NewHistory("Будь краток."),

		loadConfig: config.Defaults,
		startRec: func() error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.recStarted++
			return nil
		},
		stopRec: func() (string, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.recStopped++
			return h.stopPath, h.stopErr
		},
		lastDuration: func() time.Duration {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.lastDur
		},
		micLevel: func() float64 { return 0 },
		complete: func(ctx context.Context, cfg config.Snapshot, msgs []llm.Message) (string, types.Usage, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.completeMsgs = append(h.completeMsgs, msgs)
			if h.completeErr != nil {
				return "", types.Usage{}, h.completeErr
			}
			return h.reply, types.Usage{TotalTokens: 10}, nil
		},
		capture: func(ctx context.Context, cfg config.Snapshot) (types.ScreenContext, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.captureSC, h.captureErr
		},
		captureBusy: func() bool {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.busyCapture
		},
		speak: func(text string, cfg config.Snapshot, onDone func()) {
			h.mu.Lock()
			h.spoken = append(h.spoken, text)
			h.mu.Unlock()
			go onDone()
		},
		stopSpeak: func() {},
	}
	o.transcribe = func(cfg config.Snapshot, path string) {}

	h.orch = o
	o.Run()
	t.Cleanup(o.Close)
	return h
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (h *testHarness) completions() [][]llm.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]llm.Message, len(h.completeMsgs))
	copy(out, h.completeMsgs)
	return out
}

func (h *testHarness) spokenTexts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.spoken...)
}

func logContains(entries []types.LogEntry, substr string) bool {
	for _, e := range entries {
		if strings.Contains(e.Text, substr) {
			return true
		}
	}
	return false
}

func TestTypedUtteranceFlowsToLLMAndSpeech(t *testing.T) {
	h := newHarness(t)

	h.orch.SubmitText("Привет")

	waitFor(t, "speech", func() bool { return len(h.spokenTexts()) == 1 })

	msgs := h.completions()
	if len(msgs) != 1 {
		t.Fatalf("completions = %d, want 1", len(msgs))
	}
	if len(msgs[0]) != 2 || msgs[0][0].Role != "system" || msgs[0][1].Content != "Привет" {
		t.Errorf("messages = %+v, want [system, user]", msgs[0])
	}
	if got := h.spokenTexts()[0]; got != "Слушаю, Владыка." {
		t.Errorf("spoken = %q", got)
	}

	// Exchange recorded only after success: system + user + assistant.
	waitFor(t, "history", func() bool { return h.orch.history.Len() == 3 })
	waitFor(t, "idle", func() bool { return h.orch.GetState().State == "idle" })
}

func TestTypedUtteranceCarriesScreenContext(t *testing.T) {
	h := newHarness(t)
	h.orch.mu.Lock()
	h.orch.lastScreen = types.ScreenContext{Description: "Браузер: открыт YouTube"}
	h.orch.mu.Unlock()

	h.orch.SubmitText("Привет")
	waitFor(t, "completion", func() bool { return len(h.completions()) == 1 })

	msgs := h.completions()[0]
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[1].Content != "Контекст экрана: Браузер: открыт YouTube" {
		t.Errorf("context message = %q", msgs[1].Content)
	}
	if msgs[2].Role != "user" {
		t.Error("user message must come last")
	}
}

func TestUtteranceDroppedWhileLLMBusy(t *testing.T) {
	h := newHarness(t)

	// Keep the first completion in flight.
	release := make(chan struct{})
	inner := h.orch.complete
	h.orch.complete = func(ctx context.Context, cfg config.Snapshot, msgs []llm.Message) (string, types.Usage, error) {
		<-release
		return inner(ctx, cfg, msgs)
	}

	h.orch.SubmitText("первый вопрос")
	waitFor(t, "thinking", func() bool { return h.orch.GetState().LLMBusy })

	h.orch.SubmitText("второй вопрос")
	time.Sleep(50 * time.Millisecond)
	close(release)

	waitFor(t, "speech", func() bool { return len(h.spokenTexts()) == 1 })
	if got := len(h.completions()); got != 1 {
		t.Errorf("completions = %d, want 1 (second utterance dropped)", got)
	}
	// Only the first exchange reaches history.
	waitFor(t, "history", func() bool { return h.orch.history.Len() == 3 })
}

func TestLLMFailureLeavesHistoryUntouched(t *testing.T) {
	h := newHarness(t)
	h.mu.Lock()
	h.completeErr = errors.New("api error: 500")
	h.mu.Unlock()

	h.orch.SubmitText("Привет")

	waitFor(t, "error log", func() bool { return logContains(h.orch.GetLog(), "LLM ошибка") })
	waitFor(t, "idle", func() bool { return h.orch.GetState().State == "idle" })

	if h.orch.history.Len() != 1 {
		t.Errorf("history length = %d, want 1 (system prompt only)", h.orch.history.Len())
	}
	if len(h.spokenTexts()) != 0 {
		t.Error("nothing should be spoken on failure")
	}
}

func TestPushToTalkFlow(t *testing.T) {
	h := newHarness(t)

	transcribed := make(chan string, 1)
	h.orch.transcribe = func(cfg config.Snapshot, path string) {
		transcribed <- path
	}

	h.orch.PressTalk()
	waitFor(t, "listening", func() bool { return h.orch.GetState().State == "listening" })

	// Hotkey auto-repeat must not restart recording.
	h.orch.PressTalk()
	time.Sleep(20 * time.Millisecond)
	h.mu.Lock()
	started := h.recStarted
	h.mu.Unlock()
	if started != 1 {
		t.Errorf("recorder starts = %d, want 1", started)
	}

	h.orch.ReleaseTalk()
	waitFor(t, "transcribing", func() bool { return h.orch.GetState().State == "transcribing" })

	select {
	case path := <-transcribed:
		if path != "/tmp/rec.wav" {
			t.Errorf("transcribe path = %q", path)
		}
	case <-time.After(time.Second):
		t.Fatal("transcription was not dispatched")
	}
}

func TestShortRecordingDiscardedWithNotice(t *testing.T) {
	h := newHarness(t)
	h.mu.Lock()
	h.stopPath = ""
	h.stopErr = audio.ErrNoArtifact
	h.lastDur = 100 * time.Millisecond
	h.mu.Unlock()

	h.orch.PressTalk()
	waitFor(t, "listening", func() bool { return h.orch.GetState().State == "listening" })
	h.orch.ReleaseTalk()

	waitFor(t, "notice", func() bool {
		return logContains(h.orch.GetLog(), "Запись слишком короткая")
	})
	waitFor(t, "idle", func() bool { return h.orch.GetState().State == "idle" })
	if got := len(h.completions()); got != 0 {
		t.Errorf("completions = %d, want 0", got)
	}
}

func TestEmptyRecordingDiscardedSilently(t *testing.T) {
	h := newHarness(t)
	h.mu.Lock()
	h.stopPath = ""
	h.stopErr = audio.ErrNoArtifact
	h.lastDur = 0
	h.mu.Unlock()

	h.orch.PressTalk()
	waitFor(t, "listening", func() bool { return h.orch.GetState().State == "listening" })
	h.orch.ReleaseTalk()

	waitFor(t, "idle", func() bool { return h.orch.GetState().State == "idle" })
	if logContains(h.orch.GetLog(), "Запись") {
		t.Error("empty recording should not produce a notice")
	}
}

func TestEmptyTranscriptReturnsToIdle(t *testing.T) {
	h := newHarness(t)

	h.orch.post(transcriptEvent{text: ""})

	waitFor(t, "idle", func() bool { return h.orch.GetState().State == "idle" })
	if got := len(h.completions()); got != 0 {
		t.Errorf("completions = %d, want 0", got)
	}
	if h.orch.history.Len() != 1 {
		t.Error("history must stay untouched")
	}
}

func TestTranslateRequestUsesScreenOCR(t *testing.T) {
	h := newHarness(t)
	h.orch.mu.Lock()
	h.orch.lastScreen = types.ScreenContext{OCRText: "Hello world"}
	h.orch.mu.Unlock()

	h.orch.SubmitText("переведи на русский")
	waitFor(t, "completion", func() bool { return len(h.completions()) == 1 })

	msgs := h.completions()[0]
	last := msgs[len(msgs)-1]
	if !strings.Contains(last.Content, "Переведи на русский этот текст с экрана:\nHello world") {
		t.Errorf("translate message = %q", last.Content)
	}
}

func TestVisionDescribeSpeaksAndLogs(t *testing.T) {
	h := newHarness(t)
	h.mu.Lock()
	h.captureSC = types.ScreenContext{Description: "Игра: меню паузы", OCRText: "Resume Quit"}
	h.mu.Unlock()

	h.orch.DescribeScreen()

	waitFor(t, "speech", func() bool { return len(h.spokenTexts()) == 1 })
	if got := h.spokenTexts()[0]; got != "Игра: меню паузы" {
		t.Errorf("spoken = %q", got)
	}
	waitFor(t, "log", func() bool {
		return logContains(h.orch.GetLog(), "Экран: Игра: меню паузы")
	})
	if h.orch.GetScreenContext().OCRText != "Resume Quit" {
		t.Error("screen context not retained")
	}
	// The description is announced, not remembered as an exchange.
	if h.orch.history.Len() != 1 {
		t.Error("vision must not touch history")
	}
}

func TestVisionBusyIsAnnounced(t *testing.T) {
	h := newHarness(t)
	h.mu.Lock()
	h.busyCapture = true
	h.mu.Unlock()

	h.orch.DescribeScreen()

	waitFor(t, "busy notice", func() bool {
		return logContains(h.orch.GetLog(), "Vision уже выполняется")
	})
}

func TestVisionFailureIsLogged(t *testing.T) {
	h := newHarness(t)
	h.mu.Lock()
	h.captureErr = errors.New("grab screen: no screen found")
	h.mu.Unlock()

	h.orch.DescribeScreen()

	waitFor(t, "error log", func() bool {
		return logContains(h.orch.GetLog(), "Vision ошибка")
	})
	if len(h.spokenTexts()) != 0 {
		t.Error("nothing should be spoken on vision failure")
	}
}

func TestTranscriptErrorIsLogged(t *testing.T) {
	h := newHarness(t)

	h.orch.post(transcriptErrEvent{reason: "whisper.cpp failed"})

	waitFor(t, "error log", func() bool {
		return logContains(h.orch.GetLog(), "STT ошибка: whisper.cpp failed")
	})
	waitFor(t, "idle", func() bool { return h.orch.GetState().State == "idle" })
}

func TestPrefsAppliedUpdatesPromptAndLogs(t *testing.T) {
	h := newHarness(t)

	h.orch.PrefsApplied()

	waitFor(t, "notice", func() bool {
		return logContains(h.orch.GetLog(), "Настройки применены")
	})

	snap := h.orch.history.Snapshot()
	if snap[0].Content == "Будь краток." {
		t.Error("system prompt should be replaced by the configured one")
	}
}
