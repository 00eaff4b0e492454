// Package hotkey registers the global push-to-talk and vision hotkeys.
// OS-level registration is delegated to gohook.
package hotkey

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	hook "github.com/robotn/gohook"
)

// Manager owns the global hook loop. PTT is press-and-hold: the down
// callback starts recording, the up callback stops it. The vision key is
// a single shot.
type Manager struct {
	pttCombo    []string
	visionCombo []string

	onPTTDown func()
	onPTTUp   func()
	onVision  func()

	started atomic.Bool
}

// NewManager creates a Manager for key specs like "ctrl+3".
func NewManager(pttKey, visionKey string, onPTTDown, onPTTUp, onVision func()) (*Manager, error) {
	pttCombo, err := parseCombo(pttKey)
	if err != nil {
		return nil, fmt.Errorf("ptt key: %w", err)
	}
	visionCombo, err := parseCombo(visionKey)
	if err != nil {
		return nil, fmt.Errorf("vision key: %w", err)
	}
	return &Manager{
		pttCombo:    pttCombo,
		visionCombo: visionCombo,
		onPTTDown:   onPTTDown,
		onPTTUp:     onPTTUp,
		onVision:    onVision,
	}, nil
}

// Start registers the hotkeys and runs the hook loop on a background
// goroutine. Key auto-repeat makes the down callback fire repeatedly
// while held; callers must be idempotent.
func (m *Manager) Start() error {
	if !m.started.CompareAndSwap(false, true) {
		return fmt.Errorf("hotkey manager already started")
	}

	hook.Register(hook.KeyDown, m.pttCombo, func(e hook.Event) {
		m.onPTTDown()
	})
	// Release of the main key alone ends push-to-talk; the modifier may
	// already be up by then.
	hook.Register(hook.KeyUp, m.pttCombo[len(m.pttCombo)-1:], func(e hook.Event) {
		m.onPTTUp()
	})
	hook.Register(hook.KeyDown, m.visionCombo, func(e hook.Event) {
		m.onVision()
	})

	events := hook.Start()
	go func() {
		<-hook.Process(events)
		slog.Info("hotkey loop stopped")
	}()

	slog.Info("hotkeys registered",
		"ptt", strings.Join(m.pttCombo, "+"),
		"vision", strings.Join(m.visionCombo, "+"))
	return nil
}

// Stop ends the hook loop. Safe to call when never started.
func (m *Manager) Stop() {
	if m.started.CompareAndSwap(true, false) {
		hook.End()
	}
}

// parseCombo splits "ctrl+3" into the key list gohook expects, modifiers
// first.
func parseCombo(spec string) ([]string, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(spec)), "+")
	combo := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("invalid key spec %q", spec)
		}
		combo = append(combo, p)
	}
	if len(combo) == 0 {
		return nil, fmt.Errorf("empty key spec")
	}
	return combo, nil
}
