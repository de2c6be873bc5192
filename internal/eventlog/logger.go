// Package eventlog provides unified event logging for the voice daemon.
// It captures voice pipeline events (burst, silence, record, transcript),
// playback failures, and archive activity in a single JSON lines file.
package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/openclaw/voiced/internal/util"
)

// EventType represents the type of event.
type EventType string

// Voice pipeline event types.
const (
	BurstStart      EventType = "burst_start"
	BurstComplete   EventType = "burst_complete"
	SilenceDetected EventType = "silence_detected"
	RecordStarted   EventType = "record_started"
	RecordStopped   EventType = "record_stopped"
	Transcript      EventType = "transcript"
	TranscriptError EventType = "transcript_error"
	CaptureError    EventType = "capture_error"
)

// Playback and archive event types.
const (
	PlaybackError    EventType = "playback_error"
	ArchiveStored    EventType = "archive_stored"
	ArchiveUploaded  EventType = "archive_uploaded"
	ArchiveFailed    EventType = "archive_failed"
	CleanupCompleted EventType = "cleanup_completed"
)

// Event represents a single log entry with type-specific details.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	Message   string    `json:"msg,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// VoiceDetails contains voice pipeline event details.
type VoiceDetails struct {
	Chars       int     `json:"chars,omitempty"`
	DurationMs  int64   `json:"duration_ms,omitempty"`
	Level       float64 `json:"level,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
	Device      string  `json:"device,omitempty"`
	Error       string  `json:"error,omitempty"`
	ArchivePath string  `json:"archive_path,omitempty"`
}

// Logger writes events to a JSON lines file. A nil *Logger is a valid no-op
// sink, so callers never need to guard logging sites.
type Logger struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	encoder *json.Encoder
}

// NewLogger creates a new event logger at the specified path.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, util.WrapError("create log directory", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, util.WrapError("open log file", err)
	}

	return &Logger{
		path:    path,
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// Log writes an event to the log file.
func (l *Logger) Log(eventType EventType, message string, details any) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.encoder.Encode(&Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Message:   message,
		Details:   details,
	})
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Path returns the path to the log file.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// MaxReadLimit caps how many events a single read may return.
const MaxReadLimit = 500

// ReadLast reads up to n events from the log file starting at offset,
// newest first, optionally filtered to one event type. The second return
// value reports whether more events remain beyond the requested page.
func ReadLast(path string, n, offset int, filter EventType) ([]Event, bool, error) {
	if n > MaxReadLimit {
		n = MaxReadLimit
	}
	if n <= 0 {
		return []Event{}, false, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, false, nil
		}
		return nil, false, err
	}
	defer file.Close() //nolint:errcheck // read-only

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, false, err
	}

	events := make([]Event, 0, n)
	skipped := 0
	hasMore := false

	for i := len(lines) - 1; i >= 0; i-- {
		var event Event
		if err := json.Unmarshal([]byte(lines[i]), &event); err != nil {
			continue // skip malformed lines
		}
		if filter != "" && event.Type != filter {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(events) >= n {
			hasMore = true
			break
		}
		events = append(events, event)
	}

	return events, hasMore, nil
}
