package voice

import (
	"log/slog"
	"sync"
)

// AutoSend composes a burst monitor with a send action: while enabled, every
// text-input event is forwarded to the detector, and a settled burst invokes
// the send callback followed by the clear callback.
type AutoSend struct {
	mu      sync.Mutex
	enabled bool
	monitor *BurstMonitor
}

// AutoSendHooks are the actions invoked when a burst settles.
type AutoSendHooks struct {
	// Send receives the trimmed burst text.
	Send func(text string)
	// Clear empties the composing text field after a send.
	Clear func()
	// Started is invoked once when a burst is confirmed. Optional.
	Started func()
}

// NewAutoSend creates a disabled AutoSend.
func NewAutoSend() *AutoSend {
	return &AutoSend{}
}

// Enable arms auto-send with the given detection config and hooks.
// Re-enabling replaces the previous monitor and drops its pending state.
func (a *AutoSend) Enable(cfg BurstConfig, hooks AutoSendHooks) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.monitor != nil {
		a.monitor.Reset()
	}

	a.monitor = NewBurstMonitor(cfg,
		func() {
			slog.Debug("voice burst started")
			if hooks.Started != nil {
				hooks.Started()
			}
		},
		func(text string) {
			slog.Info("voice burst settled", "chars", len(text))
			if hooks.Send != nil {
				hooks.Send(text)
			}
			if hooks.Clear != nil {
				hooks.Clear()
			}
		},
	)
	a.enabled = true
}

// Disable synchronously tears down the monitor and its timer. Idempotent.
func (a *AutoSend) Disable() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.enabled = false
	if a.monitor != nil {
		a.monitor.Reset()
		a.monitor = nil
	}
}

// Enabled reports whether auto-send is active.
func (a *AutoSend) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// HandleInput forwards one text-input event. Events arriving while disabled
// are silently ignored; that is expected during teardown races, not an error.
func (a *AutoSend) HandleInput(value string) {
	a.mu.Lock()
	monitor := a.monitor
	enabled := a.enabled
	a.mu.Unlock()

	if !enabled || monitor == nil {
		return
	}
	monitor.Input(value)
}
