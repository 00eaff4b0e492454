package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redassist/redassist/audio"
	"github.com/redassist/redassist/cache"
	"github.com/redassist/redassist/config"
	"github.com/redassist/redassist/intent"
	"github.com/redassist/redassist/internal/types"
	"github.com/redassist/redassist/llm"
	"github.com/redassist/redassist/stt"
	"github.com/redassist/redassist/tts"
	"github.com/redassist/redassist/vision"
)

// State is the interaction state of the assistant. It describes the
// foreground pipeline only; LLM and vision busy-ness are tracked by
// separate guards so a running capture never blocks recording.
type State int

const (
	StateIdle State = iota
	StateListening
	StateTranscribing
	StateThinking
	StateSpeaking
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateTranscribing:
		return "transcribing"
	case StateThinking:
		return "thinking"
	case StateSpeaking:
		return "speaking"
	default:
		return "idle"
	}
}

// drainTimeout bounds how long Close waits for in-flight LLM and vision
// work before giving up.
const drainTimeout = 2 * time.Second

// Components are the orchestrator's collaborators.
type Components struct {
	Recorder  *audio.Recorder
	Providers func(cfg config.Snapshot) []stt.Provider
	Vision    *vision.Provider
	Synth     *tts.Synthesizer
	Cache     *cache.Cache // optional
	Emit      func(name string, data any)
}

// Orchestrator owns the interaction state machine. All inbound stimuli
// arrive as events on one channel; the loop goroutine is the only writer
// of state, history and the visible log.
type Orchestrator struct {
	events chan event
	quit   chan struct{}
	done   chan struct{}

	history *History
	cache   *cache.Cache

	// Component seams, replaced by fakes in tests.
	loadConfig   func() config.Snapshot
	startRec     func() error
	stopRec      func() (string, error)
	lastDuration func() time.Duration
	micLevel     func() float64
	transcribe   func(cfg config.Snapshot, path string)
	complete     func(ctx context.Context, cfg config.Snapshot, msgs []llm.Message) (string, types.Usage, error)
	capture      func(ctx context.Context, cfg config.Snapshot) (types.ScreenContext, error)
	captureBusy  func() bool
	speak        func(text string, cfg config.Snapshot, onDone func())
	stopSpeak    func()
	emit         func(name string, data any)

	mu         sync.Mutex
	state      State
	llmBusy    bool
	lastScreen types.ScreenContext
	log        []types.LogEntry
}

// NewOrchestrator wires the real components. Call Run to start the loop.
func NewOrchestrator(c Components) *Orchestrator {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		cfg = config.Defaults()
	}

	o := &Orchestrator{
		events:  make(chan event, 16),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		history: NewHistory(cfg.ResolvedSystemPrompt()),
		cache:   c.Cache,

		loadConfig: func() config.Snapshot {
			snap, err := config.Load()
			if err != nil {
				slog.Warn("reload config", "error", err)
				return config.Defaults()
			}
			return snap
		},
		startRec:     c.Recorder.Start,
		stopRec:      c.Recorder.Stop,
		lastDuration: c.Recorder.LastDuration,
		micLevel:     c.Recorder.CurrentLevel,
		complete: func(ctx context.Context, cfg config.Snapshot, msgs []llm.Message) (string, types.Usage, error) {
			completer := llm.NewCompleter(cfg.Provider, cfg.ResolvedAPIKey(), cfg.BaseURL, cfg.Model, llm.DefaultOptions())
			return completer.Complete(ctx, msgs)
		},
		capture:     c.Vision.Capture,
		captureBusy: c.Vision.Busy,
		speak:       c.Synth.Speak,
		stopSpeak:   c.Synth.Stop,
		emit:        c.Emit,
	}

	dispatcher := stt.NewDispatcher(
		func(text string) { o.post(transcriptEvent{text: text}) },
		func(reason string) { o.post(transcriptErrEvent{reason: reason}) },
	)
	o.transcribe = func(cfg config.Snapshot, path string) {
		dispatcher.Dispatch(context.Background(), c.Providers(cfg), path, "auto")
	}

	return o
}

// Run starts the event loop goroutine.
func (o *Orchestrator) Run() {
	go o.run()
}

// Close stops the loop, waiting up to the drain timeout for in-flight
// LLM and vision work.
func (o *Orchestrator) Close() {
	close(o.quit)
	<-o.done
}

// PressTalk begins recording. Safe to call repeatedly (hotkey repeat).
func (o *Orchestrator) PressTalk() { o.post(pressTalkEvent{}) }

// ReleaseTalk stops recording and hands the artifact to transcription.
func (o *Orchestrator) ReleaseTalk() { o.post(releaseTalkEvent{}) }

// SubmitText feeds a typed utterance through the same pipeline as a
// spoken one, minus recording and transcription.
func (o *Orchestrator) SubmitText(text string) { o.post(submitTextEvent{text: text}) }

// DescribeScreen captures and speaks a screen description.
func (o *Orchestrator) DescribeScreen() { o.post(visionRequestEvent{speakResult: true}) }

// PrefsApplied tells the loop that preferences changed on disk.
func (o *Orchestrator) PrefsApplied() { o.post(prefsAppliedEvent{}) }

// GetState reports the current interaction state for the frontend.
func (o *Orchestrator) GetState() types.StateInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	return types.StateInfo{
		State:      o.state.String(),
		MicLevel:   o.micLevel(),
		LLMBusy:    o.llmBusy,
		VisionBusy: o.captureBusy(),
	}
}

// GetLog returns a copy of the visible transcript.
func (o *Orchestrator) GetLog() []types.LogEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]types.LogEntry, len(o.log))
	copy(out, o.log)
	return out
}

// GetScreenContext returns the last captured screen context.
func (o *Orchestrator) GetScreenContext() types.ScreenContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastScreen
}

func (o *Orchestrator) post(ev event) {
	select {
	case o.events <- ev:
	case <-o.quit:
	}
}

func (o *Orchestrator) run() {
	defer close(o.done)

	for {
		select {
		case ev := <-o.events:
			o.handle(ev)
		case <-o.quit:
			o.shutdown()
			return
		}
	}
}

// shutdown stops speech immediately and drains outstanding background
// work for at most drainTimeout.
func (o *Orchestrator) shutdown() {
	o.stopSpeak()

	deadline := time.NewTimer(drainTimeout)
	defer deadline.Stop()

	for o.busy() {
		select {
		case ev := <-o.events:
			o.handle(ev)
		case <-deadline.C:
			slog.Warn("shutdown drain timed out")
			return
		}
	}
}

func (o *Orchestrator) busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.llmBusy || o.captureBusy()
}

func (o *Orchestrator) handle(ev event) {
	switch ev := ev.(type) {
	case pressTalkEvent:
		o.handlePressTalk()
	case releaseTalkEvent:
		o.handleReleaseTalk()
	case submitTextEvent:
		o.handleUtterance(ev.text)
	case transcriptEvent:
		o.handleTranscript(ev.text)
	case transcriptErrEvent:
		o.appendLog("assistant", "STT ошибка: "+ev.reason)
		o.setState(StateIdle)
	case llmReplyEvent:
		o.handleReply(ev)
	case llmErrEvent:
		o.setLLMBusy(false)
		o.appendLog("assistant", "LLM ошибка: "+ev.reason)
		o.setState(StateIdle)
	case speakDoneEvent:
		o.setState(StateIdle)
	case visionRequestEvent:
		o.handleVisionRequest(ev.speakResult)
	case visionReadyEvent:
		o.handleVisionReady(ev)
	case visionErrEvent:
		o.appendLog("assistant", "Vision ошибка: "+ev.reason)
	case prefsAppliedEvent:
		o.handlePrefsApplied()
	}
}

func (o *Orchestrator) handlePressTalk() {
	switch o.currentState() {
	case StateIdle:
	case StateSpeaking:
		// Talking over the assistant interrupts it.
		o.stopSpeak()
	default:
		return
	}

	if err := o.startRec(); err != nil {
		o.appendLog("assistant", "Микрофон ошибка: "+err.Error())
		o.setState(StateIdle)
		return
	}
	o.setState(StateListening)
}

func (o *Orchestrator) handleReleaseTalk() {
	if o.currentState() != StateListening {
		return
	}

	path, err := o.stopRec()
	if err != nil {
		if dur := o.lastDuration(); dur > 0 && dur < audio.MinDuration {
			o.appendLog("assistant",
				fmt.Sprintf("Запись слишком короткая (<%.2fс).", audio.MinDuration.Seconds()))
		}
		o.setState(StateIdle)
		return
	}

	o.setState(StateTranscribing)
	o.transcribe(o.loadConfig(), path)
}

func (o *Orchestrator) handleTranscript(text string) {
	if text == "" {
		o.setState(StateIdle)
		return
	}
	o.handleUtterance(text)
}

// handleUtterance routes one user utterance, spoken or typed, to the LLM.
func (o *Orchestrator) handleUtterance(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	o.mu.Lock()
	if o.llmBusy {
		// Drop-if-busy: the utterance is discarded, history untouched.
		o.mu.Unlock()
		slog.Debug("llm busy, utterance dropped", "text", text)
		o.setState(StateIdle)
		return
	}
	o.llmBusy = true
	sc := o.lastScreen
	o.mu.Unlock()

	o.appendLog("user", text)
	o.setState(StateThinking)

	translate, target := intent.Classify(text)
	go o.runCompletion(o.loadConfig(), text, translate, target, sc)
}

// runCompletion executes off the loop goroutine: best-effort OCR refresh
// for translate requests, cache consult, the LLM round trip.
func (o *Orchestrator) runCompletion(cfg config.Snapshot, userText string, translate bool, target string, sc types.ScreenContext) {
	ctx, cancel := context.WithTimeout(context.Background(), llm.RequestTimeout)
	defer cancel()

	var cacheKey string
	if translate {
		if sc.OCRText == "" {
			if fresh, err := o.capture(ctx, cfg); err == nil {
				sc = fresh
			}
		}
		if sc.OCRText != "" && o.cache != nil {
			cacheKey = cache.GenerateKey(cfg.Provider, cfg.Model, target, sc.OCRText)
			if entry, found := o.cache.Get(cacheKey); found {
				slog.Debug("translation served from cache")
				o.post(llmReplyEvent{userText: userText, reply: entry.Text})
				return
			}
		}
	}

	msgs := intent.BuildMessages(o.history.Snapshot(), userText, translate, target, sc, nil)
	reply, usage, err := o.complete(ctx, cfg, msgs)
	if err != nil {
		o.post(llmErrEvent{reason: err.Error()})
		return
	}
	slog.Debug("completion finished", "tokens", usage.TotalTokens)
	o.post(llmReplyEvent{userText: userText, reply: reply, cacheKey: cacheKey})
}

func (o *Orchestrator) handleReply(ev llmReplyEvent) {
	o.setLLMBusy(false)

	o.history.AppendExchange(ev.userText, ev.reply)
	o.appendLog("assistant", ev.reply)

	if ev.cacheKey != "" && o.cache != nil {
		entry := &cache.Entry{Text: ev.reply, CreatedAt: time.Now()}
		// Caching is best effort.
		_ = o.cache.Set(ev.cacheKey, entry, cache.DefaultTTL)
	}

	o.setState(StateSpeaking)
	o.speak(ev.reply, o.loadConfig(), func() { o.post(speakDoneEvent{}) })
}

func (o *Orchestrator) handleVisionRequest(speakResult bool) {
	if o.captureBusy() {
		o.appendLog("assistant", "Vision уже выполняется…")
		return
	}

	cfg := o.loadConfig()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), llm.RequestTimeout)
		defer cancel()

		sc, err := o.capture(ctx, cfg)
		if err != nil {
			o.post(visionErrEvent{reason: err.Error()})
			return
		}
		o.post(visionReadyEvent{sc: sc, speak: speakResult})
	}()
}

func (o *Orchestrator) handleVisionReady(ev visionReadyEvent) {
	o.mu.Lock()
	o.lastScreen = ev.sc
	o.mu.Unlock()
	o.emitEvent(EventScreenContext, ev.sc)

	if ev.speak && ev.sc.Description != "" {
		o.appendLog("assistant", "Экран: "+ev.sc.Description)
		o.setState(StateSpeaking)
		o.speak(ev.sc.Description, o.loadConfig(), func() { o.post(speakDoneEvent{}) })
	}
}

func (o *Orchestrator) handlePrefsApplied() {
	cfg := o.loadConfig()
	o.history.SetSystemPrompt(cfg.ResolvedSystemPrompt())
	o.stopSpeak()
	o.appendLog("assistant", fmt.Sprintf(
		"Настройки применены: модель=%s, TTS=%d / %.1f",
		cfg.Model, cfg.TTSRate, cfg.TTSVolume))
}

func (o *Orchestrator) currentState() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	changed := o.state != s
	o.state = s
	o.mu.Unlock()
	if changed {
		o.emitEvent(EventStateChanged, s.String())
	}
}

func (o *Orchestrator) setLLMBusy(busy bool) {
	o.mu.Lock()
	o.llmBusy = busy
	o.mu.Unlock()
}

func (o *Orchestrator) appendLog(role, text string) {
	entry := types.LogEntry{Role: role, Text: text, Timestamp: time.Now().UnixMilli()}
	o.mu.Lock()
	o.log = append(o.log, entry)
	o.mu.Unlock()
	o.emitEvent(EventLogEntry, entry)
}

func (o *Orchestrator) emitEvent(name string, data any) {
	if o.emit != nil {
		o.emit(name, data)
	}
}
