// Package types provides shared type definitions used across the voice daemon.
package types

import (
	"time"
)

// VoiceState represents the current state of the voice recorder.
type VoiceState string

const (
	// VoiceIdle indicates no capture is in progress.
	VoiceIdle VoiceState = "idle"
	// VoiceRecording indicates the microphone is live and accumulating audio.
	VoiceRecording VoiceState = "recording"
	// VoiceTranscribing indicates captured audio is being transcribed.
	VoiceTranscribing VoiceState = "transcribing"
)

const (
	// InitialRetryDelay is the starting delay between gateway reconnect attempts.
	InitialRetryDelay = 3000 * time.Millisecond
	// MaxRetryDelay is the maximum delay between gateway reconnect attempts.
	MaxRetryDelay = 60000 * time.Millisecond
	// ShutdownTimeout is the duration to wait for graceful process shutdown.
	ShutdownTimeout = 3000 * time.Millisecond
)

// Audio format constants for PCM capture and encoding.
const (
	// SampleRate is the capture sample rate in Hz.
	SampleRate = 16000
	// Channels is the number of capture channels (mono).
	Channels = 1
	// BytesPerSample is the size of one S16LE sample.
	BytesPerSample = 2
)

// VoiceStatus contains runtime status for the voice pipeline.
type VoiceStatus struct {
	State       VoiceState `json:"state"`                // Current recorder state
	AutoSend    bool       `json:"auto_send"`            // Whether burst auto-send is enabled
	Playing     bool       `json:"playing"`              // Whether audio playback is active
	QueueDepth  int        `json:"queue_depth"`          // Buffers waiting for playback
	LastError   string     `json:"last_error,omitempty"` // Most recent pipeline error
	Transcripts int64      `json:"transcripts"`          // Utterances transcribed since start
	Uptime      string     `json:"uptime,omitempty"`     // Daemon uptime
	GatewayUp   bool       `json:"gateway_up"`           // Whether the gateway session is connected
}

// LevelReading is the current audio level measurement for UI meters.
type LevelReading struct {
	// Level is the normalized RMS level in [0,1].
	Level float64 `json:"level"`
	// Peak is the normalized peak level in [0,1].
	Peak float64 `json:"peak"`
	// Clip is how many samples clipped in the most recent frame.
	Clip int `json:"clip,omitzero"`
	// Silence reports whether the level is below the configured silence threshold.
	Silence bool `json:"silence,omitzero"`
	// Recording reports whether a capture session is active.
	Recording bool `json:"recording"`
}

// Device represents an available audio input device.
type Device struct {
	// ID is the device identifier.
	ID string `json:"id"`
	// Name is the device display name.
	Name string `json:"name"`
}

// Utterance describes one captured and transcribed voice segment.
type Utterance struct {
	// Text is the transcript returned by the speech-to-text backend.
	Text string `json:"text"`
	// DurationMs is the length of the captured audio in milliseconds.
	DurationMs int64 `json:"duration_ms"`
	// SizeBytes is the size of the encoded WAV.
	SizeBytes int64 `json:"size_bytes"`
	// CapturedAt is when the recording stopped.
	CapturedAt time.Time `json:"captured_at"`
	// ArchivePath is where the WAV was stored, if archiving is enabled.
	ArchivePath string `json:"archive_path,omitempty"`
}
