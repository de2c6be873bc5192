package voice

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/openclaw/voiced/internal/audio"
	"github.com/openclaw/voiced/internal/capture"
	"github.com/openclaw/voiced/internal/types"
)

// Transcriber converts a WAV-encoded utterance to text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// RecorderConfig holds the tunables for one recording session.
type RecorderConfig struct {
	Device        string              // capture device ID, empty for default
	Silence       audio.SilenceConfig // auto-stop silence parameters
	CheckInterval time.Duration       // level polling interval (0 = default)
}

// RecorderHooks receive the results of the record/transcribe lifecycle.
// All hooks are invoked from internal goroutines.
type RecorderHooks struct {
	Transcript func(u types.Utterance, wav []byte)
	Error      func(err error)
	// Silence fires when the silence watcher ends a recording, before the
	// audio is handed to transcription. Manual toggles do not fire it.
	Silence func()
}

// Recorder composes mic capture, the silence watcher, and a transcription
// call into a push-to-toggle lifecycle. Errors leave it idle and ready for
// the next toggle.
type Recorder struct {
	capture     *capture.Capture
	transcriber Transcriber
	hooks       RecorderHooks

	mu      sync.Mutex
	state   types.VoiceState
	watcher *audio.Watcher
}

// NewRecorder creates an idle Recorder.
func NewRecorder(cap *capture.Capture, transcriber Transcriber, hooks RecorderHooks) *Recorder {
	return &Recorder{
		capture:     cap,
		transcriber: transcriber,
		hooks:       hooks,
		state:       types.VoiceIdle,
	}
}

// State returns the current lifecycle state.
func (r *Recorder) State() types.VoiceState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Toggle starts recording when idle and finishes early when recording.
// Toggling during transcription is ignored.
func (r *Recorder) Toggle(cfg RecorderConfig) error {
	r.mu.Lock()
	state := r.state
	r.mu.Unlock()

	switch state {
	case types.VoiceIdle:
		return r.start(cfg)
	case types.VoiceRecording:
		r.finish()
		return nil
	default:
		return nil
	}
}

// start acquires the microphone and arms the silence watcher. Start errors
// are returned to the caller rather than reported through hooks.
func (r *Recorder) start(cfg RecorderConfig) error {
	if err := r.capture.Start(cfg.Device); err != nil {
		return err
	}

	r.mu.Lock()
	r.state = types.VoiceRecording
	r.watcher = audio.NewWatcher(cfg.Silence, cfg.CheckInterval, r.capture.Level, r.silenceStop)
	r.watcher.Start()
	r.mu.Unlock()

	slog.Info("voice recording started", "device", cfg.Device)
	return nil
}

// silenceStop is the watcher callback: report silence, then finish.
func (r *Recorder) silenceStop() {
	slog.Info("silence detected, finishing recording")
	if r.hooks.Silence != nil {
		r.hooks.Silence()
	}
	r.finish()
}

// finish stops capture and hands the audio to transcription. Called either
// by the silence watcher or by an explicit toggle.
func (r *Recorder) finish() {
	r.mu.Lock()
	if r.state != types.VoiceRecording {
		r.mu.Unlock()
		return
	}
	r.state = types.VoiceTranscribing
	watcher := r.watcher
	r.watcher = nil
	r.mu.Unlock()

	if watcher != nil {
		watcher.Stop()
	}

	elapsed := r.capture.Duration()
	pcm, err := r.capture.Stop()
	if err != nil {
		r.toIdle()
		r.reportError(err)
		return
	}

	slog.Info("voice recording finished", "elapsed", elapsed.Round(time.Millisecond))
	go r.transcribe(pcm)
}

// transcribe encodes the utterance and runs the external transcription call.
func (r *Recorder) transcribe(pcm []byte) {
	defer r.toIdle()

	wav, err := audio.EncodeWAV(pcm, types.SampleRate, types.Channels)
	if err != nil {
		// Nothing was captured; treat as a silent no-op.
		slog.Debug("skipping empty utterance", "error", err)
		return
	}

	text, err := r.transcriber.Transcribe(context.Background(), wav)
	if err != nil {
		r.reportError(err)
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		slog.Debug("transcription returned empty text")
		return
	}

	if r.hooks.Transcript != nil {
		// Duration derived from the PCM itself, not wall-clock time, so
		// process startup latency does not inflate it.
		r.hooks.Transcript(types.Utterance{
			Text:       text,
			DurationMs: audio.PCMDuration(len(pcm), types.SampleRate, types.Channels),
			SizeBytes:  int64(len(wav)),
			CapturedAt: time.Now(),
		}, wav)
	}
}

// Stop tears down any active watcher and capture session synchronously.
// Idempotent; captured audio is discarded.
func (r *Recorder) Stop() {
	r.mu.Lock()
	watcher := r.watcher
	r.watcher = nil
	r.state = types.VoiceIdle
	r.mu.Unlock()

	if watcher != nil {
		watcher.Stop()
	}
	_, _ = r.capture.Stop()
}

func (r *Recorder) toIdle() {
	r.mu.Lock()
	r.state = types.VoiceIdle
	r.mu.Unlock()
}

func (r *Recorder) reportError(err error) {
	slog.Error("voice pipeline error", "error", err)
	if r.hooks.Error != nil {
		r.hooks.Error(err)
	}
}
