package audio

import (
	"sync"
	"time"
)

// Default silence detection parameters. The threshold is a normalized level
// heuristic whose usefulness depends on microphone gain, so it stays
// configurable everywhere it is used.
const (
	DefaultSilenceThreshold = 0.02
	DefaultCheckInterval    = 100 * time.Millisecond
)

// SilenceConfig holds the configurable thresholds for silence detection.
type SilenceConfig struct {
	Threshold float64       // normalized level below which audio is considered silent
	Duration  time.Duration // how long the level must stay below threshold
}

// SilenceEvent represents the result of a silence tracking update.
type SilenceEvent struct {
	InSilence   bool          // level has stayed below threshold for at least Duration
	Elapsed     time.Duration // current silence window length (0 if not silent)
	Level       float64       // the level that produced this event
	JustEntered bool          // true on the update when silence is first confirmed
}

// Tracker follows a stream of level samples and reports when the level has
// stayed below a threshold continuously for a configured duration.
// It is safe for concurrent use.
type Tracker struct {
	mu           sync.Mutex
	silenceStart time.Time // when the current sub-threshold window opened
	confirmed    bool      // silence already confirmed for this window
}

// NewTracker creates a new silence tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Update feeds one level sample into the tracker and returns the resulting
// state. Any sample at or above the threshold closes the silence window.
func (t *Tracker) Update(level float64, cfg SilenceConfig, now time.Time) SilenceEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	event := SilenceEvent{Level: level}

	if level >= cfg.Threshold {
		t.silenceStart = time.Time{}
		t.confirmed = false
		return event
	}

	if t.silenceStart.IsZero() {
		t.silenceStart = now
	}

	elapsed := now.Sub(t.silenceStart)
	event.Elapsed = elapsed

	if elapsed >= cfg.Duration {
		event.InSilence = true
		if !t.confirmed {
			t.confirmed = true
			event.JustEntered = true
		}
	}

	return event
}

// Reset clears the tracking state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.silenceStart = time.Time{}
	t.confirmed = false
}

// LevelFunc samples the current normalized audio level.
type LevelFunc func() float64

// Watcher polls a level source on a fixed interval and invokes a callback
// once the level has remained below the threshold for the configured
// duration. The callback fires at most once per Watcher; after it fires the
// Watcher stops itself.
type Watcher struct {
	cfg      SilenceConfig
	interval time.Duration
	level    LevelFunc
	onSilent func()

	tracker *Tracker
	mu      sync.Mutex
	stopCh  chan struct{}
	stopped bool
}

// NewWatcher creates a silence watcher. A zero interval uses
// DefaultCheckInterval; a zero threshold uses DefaultSilenceThreshold.
func NewWatcher(cfg SilenceConfig, interval time.Duration, level LevelFunc, onSilent func()) *Watcher {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultSilenceThreshold
	}
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Watcher{
		cfg:      cfg,
		interval: interval,
		level:    level,
		onSilent: onSilent,
		tracker:  NewTracker(),
		stopCh:   make(chan struct{}),
	}
}

// Start begins polling. It returns immediately; the watcher runs until
// silence is confirmed or Stop is called.
func (w *Watcher) Start() {
	go w.run()
}

func (w *Watcher) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			event := w.tracker.Update(w.level(), w.cfg, time.Now())
			if event.JustEntered {
				w.Stop()
				w.onSilent()
				return
			}
		}
	}
}

// Stop halts polling. Idempotent, and safe to call before any tick has
// occurred or after the callback has already fired.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	close(w.stopCh)
}
