package voice

import (
	"sync"
	"time"
)

// BurstMonitor drives a BurstDetector with real timers. Each qualifying fast
// input re-arms a single settle timer, so at most one pending fire exists at
// any time and the completion callback only runs once input truly pauses.
type BurstMonitor struct {
	detector *BurstDetector
	onStart  func()
	onDone   func(text string)

	mu    sync.Mutex
	timer *time.Timer
}

// NewBurstMonitor creates a monitor invoking onStart when a burst is
// confirmed and onDone with the trimmed text when it settles. Either
// callback may be nil.
func NewBurstMonitor(cfg BurstConfig, onStart func(), onDone func(text string)) *BurstMonitor {
	return &BurstMonitor{
		detector: NewBurstDetector(cfg),
		onStart:  onStart,
		onDone:   onDone,
	}
}

// Input forwards one text-input event to the detector and manages the settle
// timer.
func (m *BurstMonitor) Input(value string) {
	event := m.detector.Input(value, time.Now())

	if event.JustStarted && m.onStart != nil {
		m.onStart()
	}

	if event.Bursting && event.Fast {
		m.arm()
	}
}

// arm (re)starts the settle timer, cancelling any pending fire.
func (m *BurstMonitor) arm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.detector.cfg.Settle, m.fire)
}

// fire runs when the settle timer elapses without being re-armed.
func (m *BurstMonitor) fire() {
	event := m.detector.Settle(time.Now())
	if event.JustCompleted && m.onDone != nil {
		m.onDone(event.Text)
	}
}

// Reset cancels any pending settle timer and clears detector state.
// Idempotent and safe from teardown paths.
func (m *BurstMonitor) Reset() {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()
	m.detector.Reset()
}
