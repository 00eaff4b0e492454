package app

import "github.com/redassist/redassist/internal/types"

// Event names for frontend communication.
const (
	EventStateChanged  = "state-changed"
	EventLogEntry      = "log-entry"
	EventScreenContext = "screen-context"
)

// event is one inbound message for the orchestrator loop. Every
// component delivers through the same channel; the loop goroutine is the
// only writer of interaction state.
type event interface{ isEvent() }

type pressTalkEvent struct{}
type releaseTalkEvent struct{}

type submitTextEvent struct{ text string }

type transcriptEvent struct{ text string }
type transcriptErrEvent struct{ reason string }

type llmReplyEvent struct {
	userText string
	reply    string
	cacheKey string // non-empty for cacheable translate replies
}
type llmErrEvent struct{ reason string }

type speakDoneEvent struct{}

type visionRequestEvent struct{ speakResult bool }
type visionReadyEvent struct {
	sc    types.ScreenContext
	speak bool
}
type visionErrEvent struct{ reason string }

type prefsAppliedEvent struct{}

func (pressTalkEvent) isEvent()     {}
func (releaseTalkEvent) isEvent()   {}
func (submitTextEvent) isEvent()    {}
func (transcriptEvent) isEvent()    {}
func (transcriptErrEvent) isEvent() {}
func (llmReplyEvent) isEvent()      {}
func (llmErrEvent) isEvent()        {}
func (speakDoneEvent) isEvent()     {}
func (visionRequestEvent) isEvent() {}
func (visionReadyEvent) isEvent()   {}
func (visionErrEvent) isEvent()     {}
func (prefsAppliedEvent) isEvent()  {}
