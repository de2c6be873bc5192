// Package voice implements the voice input pipeline: the burst detector
// that separates injected speech-to-text insertions from human typing, the
// auto-send composition around it, and the record/transcribe lifecycle.
package voice

import (
	"strings"
	"sync"
	"time"
)

// Default burst detection parameters. Characters arriving faster than the
// threshold are treated as programmatic insertion rather than typing.
const (
	DefaultBurstThreshold = 10 * time.Millisecond
	DefaultBurstMinChars  = 5
	DefaultBurstSettle    = 400 * time.Millisecond
)

// BurstConfig holds the tunables for burst detection.
type BurstConfig struct {
	Threshold time.Duration // max inter-character gap counted as part of a burst
	MinChars  int           // consecutive fast characters before a burst is confirmed
	Settle    time.Duration // quiet period after the last fast character before emitting
}

// withDefaults fills zero fields with the default values.
func (c BurstConfig) withDefaults() BurstConfig {
	if c.Threshold <= 0 {
		c.Threshold = DefaultBurstThreshold
	}
	if c.MinChars <= 0 {
		c.MinChars = DefaultBurstMinChars
	}
	if c.Settle <= 0 {
		c.Settle = DefaultBurstSettle
	}
	return c
}

// BurstEvent represents the result of a burst detector update.
type BurstEvent struct {
	// Fast is true when the input arrived within the threshold gap.
	Fast bool
	// Bursting is true while a burst is confirmed and not yet settled.
	Bursting bool
	// JustStarted is true on the input that confirms a burst. It fires at
	// most once per contiguous fast run.
	JustStarted bool
	// JustCompleted is true when the settle deadline passed with a
	// non-empty accumulated value.
	JustCompleted bool
	// Text is the trimmed accumulated value, set only with JustCompleted.
	Text string
}

// BurstDetector classifies a stream of text-input events by inter-character
// timing. It is a pure state machine driven by injected timestamps; timer
// ownership lives in BurstMonitor. It is safe for concurrent use.
type BurstDetector struct {
	mu        sync.Mutex
	cfg       BurstConfig
	fastChars int
	lastInput time.Time
	bursting  bool
	pending   string
	settleAt  time.Time
}

// NewBurstDetector creates a detector with zero config fields defaulted.
func NewBurstDetector(cfg BurstConfig) *BurstDetector {
	return &BurstDetector{cfg: cfg.withDefaults()}
}

// Input records one text-input event carrying the full current value of the
// text field. The first event after construction or Reset always starts a
// new potential run.
func (d *BurstDetector) Input(value string, now time.Time) BurstEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	event := BurstEvent{}

	fast := !d.lastInput.IsZero() && now.Sub(d.lastInput) < d.cfg.Threshold
	d.lastInput = now
	d.pending = value

	if fast {
		d.fastChars++
		event.Fast = true
		if d.fastChars >= d.cfg.MinChars && !d.bursting {
			d.bursting = true
			event.JustStarted = true
		}
	} else {
		// The current character starts a new potential run.
		d.fastChars = 1
	}

	if d.bursting && fast {
		d.settleAt = now.Add(d.cfg.Settle)
	}
	event.Bursting = d.bursting

	return event
}

// Settle checks whether the settle deadline has passed and, if so, emits the
// accumulated text. Values that trim to empty complete silently.
func (d *BurstDetector) Settle(now time.Time) BurstEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	event := BurstEvent{Bursting: d.bursting}

	if !d.bursting || d.settleAt.IsZero() || now.Before(d.settleAt) {
		return event
	}

	text := strings.TrimSpace(d.pending)
	d.bursting = false
	d.fastChars = 0
	d.settleAt = time.Time{}
	d.pending = ""

	event.Bursting = false
	if text != "" {
		event.JustCompleted = true
		event.Text = text
	}

	return event
}

// Bursting reports whether a burst is currently confirmed.
func (d *BurstDetector) Bursting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bursting
}

// Reset clears all detector state. Idempotent; afterwards the detector
// behaves identically to a freshly constructed one.
func (d *BurstDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fastChars = 0
	d.lastInput = time.Time{}
	d.bursting = false
	d.pending = ""
	d.settleAt = time.Time{}
}
