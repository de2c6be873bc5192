// Package engine wires the voice pipeline together: mic capture, the
// recorder and auto-send orchestrators, playback, archive, event log,
// webhook notifications, and the gateway session.
package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/openclaw/voiced/internal/archive"
	"github.com/openclaw/voiced/internal/audio"
	"github.com/openclaw/voiced/internal/capture"
	"github.com/openclaw/voiced/internal/config"
	"github.com/openclaw/voiced/internal/eventlog"
	"github.com/openclaw/voiced/internal/gateway"
	"github.com/openclaw/voiced/internal/notify"
	"github.com/openclaw/voiced/internal/playback"
	"github.com/openclaw/voiced/internal/transcription"
	"github.com/openclaw/voiced/internal/types"
	"github.com/openclaw/voiced/internal/util"
	"github.com/openclaw/voiced/internal/voice"
)

// Broadcast pushes a message to connected control clients. Set by the server
// before Start.
type Broadcast func(msgType string, payload any)

// Engine owns the daemon's runtime state and exposes the operations the
// control server dispatches to.
type Engine struct {
	config  *config.Config
	events  *eventlog.Logger
	capture *capture.Capture

	recorder *voice.Recorder
	autoSend *voice.AutoSend
	queue    *playback.Queue
	gateway  *gateway.Client
	archive  *archive.Manager

	mu          sync.RWMutex
	broadcast   Broadcast
	lastError   string
	transcripts int64
	startTime   time.Time
	stopCh      chan struct{}
}

// New creates an engine. Call Start before dispatching commands to it.
func New(cfg *config.Config, events *eventlog.Logger) *Engine {
	snap := cfg.Snapshot()

	e := &Engine{
		config:   cfg,
		events:   events,
		capture:  capture.New(snap.FFmpegPath),
		autoSend: voice.NewAutoSend(),
		queue:    playback.NewQueue(playback.NewProcessPlayer(snap.PlaybackPlayer)),
	}
	e.recorder = voice.NewRecorder(e.capture, e, voice.RecorderHooks{
		Transcript: e.onTranscript,
		Error:      e.onPipelineError,
		Silence: func() {
			_ = e.events.Log(eventlog.SilenceDetected, "", nil)
		},
	})
	e.queue.OnError = func(err error) {
		_ = e.events.Log(eventlog.PlaybackError, err.Error(), nil)
	}
	return e
}

// SetBroadcast registers the control server's push function. Must be called
// before Start.
func (e *Engine) SetBroadcast(b Broadcast) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broadcast = b
}

// Start brings up the gateway session and the archive manager.
func (e *Engine) Start() error {
	snap := e.config.Snapshot()

	e.mu.Lock()
	e.startTime = time.Now()
	e.stopCh = make(chan struct{})
	e.mu.Unlock()

	e.gateway = gateway.New(gateway.Config{
		URL:          snap.GatewayURL,
		Token:        snap.GatewayToken,
		TokenURL:     snap.GatewayTokenURL,
		ClientID:     snap.GatewayClientID,
		ClientSecret: snap.GatewayClientSecret,
	})
	e.gateway.Start()
	go e.consumeGatewayEvents()

	if snap.ArchiveEnabled {
		mgr, err := archive.NewManager(snap, e.events)
		if err != nil {
			return err
		}
		e.archive = mgr
	}

	slog.Info("engine started", "archive", snap.ArchiveEnabled, "gateway", snap.GatewayURL != "")
	return nil
}

// Stop tears down the pipeline. Safe to call once during shutdown.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopCh != nil {
		close(e.stopCh)
		e.stopCh = nil
	}
	e.mu.Unlock()

	e.autoSend.Disable()
	e.recorder.Stop()
	e.queue.Stop()
	if e.gateway != nil {
		e.gateway.Close()
	}
	if e.archive != nil {
		e.archive.Close()
	}
	slog.Info("engine stopped")
}

// ToggleVoice starts a recording when idle and finishes one when recording.
func (e *Engine) ToggleVoice() error {
	snap := e.config.Snapshot()
	before := e.recorder.State()

	err := e.recorder.Toggle(voice.RecorderConfig{
		Device: snap.AudioInput,
		Silence: audio.SilenceConfig{
			Threshold: snap.SilenceThreshold,
			Duration:  time.Duration(snap.SilenceDurationMs) * time.Millisecond,
		},
		CheckInterval: time.Duration(snap.CheckIntervalMs) * time.Millisecond,
	})
	if err != nil {
		e.mu.Lock()
		e.lastError = err.Error()
		e.mu.Unlock()
		_ = e.events.Log(eventlog.CaptureError, err.Error(), nil)
		return err
	}

	switch {
	case before == types.VoiceIdle && e.recorder.State() == types.VoiceRecording:
		_ = e.events.Log(eventlog.RecordStarted, "", &eventlog.VoiceDetails{Device: snap.AudioInput})
	case before == types.VoiceRecording:
		_ = e.events.Log(eventlog.RecordStopped, "", nil)
	}
	return nil
}

// VoiceState returns the recorder lifecycle state.
func (e *Engine) VoiceState() types.VoiceState {
	return e.recorder.State()
}

// EnableAutoSend arms burst detection on UI text-input events.
func (e *Engine) EnableAutoSend() {
	snap := e.config.Snapshot()
	cfg := voice.BurstConfig{
		Threshold: time.Duration(snap.BurstThresholdMs) * time.Millisecond,
		MinChars:  snap.BurstMinChars,
		Settle:    time.Duration(snap.BurstSettleMs) * time.Millisecond,
	}

	e.autoSend.Enable(cfg, voice.AutoSendHooks{
		Started: func() {
			_ = e.events.Log(eventlog.BurstStart, "", nil)
		},
		Send: func(text string) {
			_ = e.events.Log(eventlog.BurstComplete, "", &eventlog.VoiceDetails{Chars: len(text)})
			e.sendMessage(text)
		},
		Clear: func() {
			e.push("voice_clear_input", nil)
		},
	})
}

// DisableAutoSend disarms burst detection and drops any pending burst.
func (e *Engine) DisableAutoSend() {
	e.autoSend.Disable()
}

// AutoSendEnabled reports whether burst auto-send is armed.
func (e *Engine) AutoSendEnabled() bool {
	return e.autoSend.Enabled()
}

// HandleTextInput forwards one composer text-input event to burst detection.
func (e *Engine) HandleTextInput(value string) {
	e.autoSend.HandleInput(value)
}

// PlayAudio queues one WAV buffer for playback.
func (e *Engine) PlayAudio(buf []byte) {
	e.queue.Enqueue(buf)
}

// StopPlayback interrupts the current sound and drops everything queued.
func (e *Engine) StopPlayback() {
	e.queue.Stop()
}

// Devices lists the available capture devices.
func (e *Engine) Devices() []types.Device {
	return capture.ListDevices()
}

// Levels returns the live mic level reading.
func (e *Engine) Levels() types.LevelReading {
	snap := e.config.Snapshot()
	levels := e.capture.Levels()
	return types.LevelReading{
		Level:     levels.RMS,
		Peak:      levels.Peak,
		Clip:      levels.Clip,
		Silence:   levels.RMS < snap.SilenceThreshold,
		Recording: e.capture.Active(),
	}
}

// Status returns a point-in-time view of the pipeline.
func (e *Engine) Status() types.VoiceStatus {
	e.mu.RLock()
	lastError := e.lastError
	transcripts := e.transcripts
	startTime := e.startTime
	e.mu.RUnlock()

	var uptime string
	if !startTime.IsZero() {
		uptime = util.FormatDuration(time.Since(startTime).Milliseconds())
	}

	return types.VoiceStatus{
		State:       e.recorder.State(),
		AutoSend:    e.autoSend.Enabled(),
		Playing:     e.queue.IsPlaying(),
		QueueDepth:  e.queue.Depth(),
		LastError:   lastError,
		Transcripts: transcripts,
		Uptime:      uptime,
		GatewayUp:   e.gateway != nil && e.gateway.Connected(),
	}
}

// Transcribe converts a WAV utterance to text. The HTTP endpoint takes
// precedence; without one the audio is relayed through the gateway.
func (e *Engine) Transcribe(ctx context.Context, wav []byte) (string, error) {
	snap := e.config.Snapshot()

	if snap.TranscriptionEndpoint != "" {
		client := transcription.NewClient(transcription.Config{
			Endpoint: snap.TranscriptionEndpoint,
			APIKey:   snap.TranscriptionAPIKey,
			Model:    snap.TranscriptionModel,
		})
		return client.Transcribe(ctx, wav)
	}

	params := map[string]string{
		"audio_b64": base64.StdEncoding.EncodeToString(wav),
		"format":    "wav",
	}
	result, err := e.gateway.Request(ctx, "voice.transcribe", params)
	if err != nil {
		return "", err
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// onTranscript runs after each successful transcription.
func (e *Engine) onTranscript(u types.Utterance, wav []byte) {
	e.mu.Lock()
	e.transcripts++
	e.lastError = ""
	e.mu.Unlock()

	_ = e.events.Log(eventlog.Transcript, u.Text, &eventlog.VoiceDetails{
		Chars:      len(u.Text),
		DurationMs: u.DurationMs,
	})

	if e.archive != nil {
		path, err := e.archive.Store(wav, u.CapturedAt)
		if err != nil {
			slog.Warn("failed to archive utterance", "error", err)
		} else {
			u.ArchivePath = path
		}
	}

	e.push("voice_transcript", u)

	snap := e.config.Snapshot()
	if snap.HasWebhook() {
		go func() {
			if err := notify.SendTranscriptWebhook(snap.WebhookURL, u.Text, u.DurationMs); err != nil {
				slog.Warn("transcript webhook failed", "error", err)
			}
		}()
	}
}

// onPipelineError records capture and transcription failures.
func (e *Engine) onPipelineError(err error) {
	e.mu.Lock()
	e.lastError = err.Error()
	e.mu.Unlock()

	_ = e.events.Log(eventlog.TranscriptError, err.Error(), nil)
	e.push("voice_error", map[string]string{"error": err.Error()})

	snap := e.config.Snapshot()
	if snap.HasWebhook() {
		go func() {
			if werr := notify.SendErrorWebhook(snap.WebhookURL, "voice_error", err); werr != nil {
				slog.Warn("error webhook failed", "error", werr)
			}
		}()
	}
}

// sendMessage delivers a settled burst. The gateway receives it when a
// session is up; control clients always see it so the UI stays in sync.
func (e *Engine) sendMessage(text string) {
	e.push("voice_send", map[string]string{"text": text})

	if e.gateway == nil || !e.gateway.Connected() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := e.gateway.Request(ctx, "chat.send", map[string]string{"text": text}); err != nil {
		slog.Warn("gateway send failed", "error", err)
	}
}

// consumeGatewayEvents handles pushes from the gateway. Audio events feed
// the playback queue; everything else is relayed to control clients.
func (e *Engine) consumeGatewayEvents() {
	e.mu.RLock()
	stopCh := e.stopCh
	e.mu.RUnlock()
	if stopCh == nil {
		return
	}

	for {
		select {
		case <-stopCh:
			return
		case ev, ok := <-e.gateway.Events():
			if !ok {
				return
			}
			e.handleGatewayEvent(ev)
		}
	}
}

func (e *Engine) handleGatewayEvent(ev gateway.Event) {
	switch ev.Name {
	case "voice.play":
		var payload struct {
			AudioB64 string `json:"audio_b64"`
		}
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			slog.Warn("malformed play event", "error", err)
			return
		}
		buf, err := base64.StdEncoding.DecodeString(payload.AudioB64)
		if err != nil {
			slog.Warn("malformed play event audio", "error", err)
			return
		}
		e.queue.Enqueue(buf)
	case "voice.stop":
		e.queue.Stop()
	default:
		e.push("gateway_event", ev)
	}
}

// push broadcasts a message to connected control clients.
func (e *Engine) push(msgType string, payload any) {
	e.mu.RLock()
	b := e.broadcast
	e.mu.RUnlock()
	if b != nil {
		b(msgType, payload)
	}
}
