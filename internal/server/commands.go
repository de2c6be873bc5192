package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openclaw/voiced/internal/archive"
	"github.com/openclaw/voiced/internal/config"
	"github.com/openclaw/voiced/internal/engine"
	"github.com/openclaw/voiced/internal/eventlog"
	"github.com/openclaw/voiced/internal/notify"
	"github.com/openclaw/voiced/internal/types"
)

// DefaultLogEntries is how many event log entries log/view returns when the
// request does not say otherwise.
const DefaultLogEntries = 100

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandHandler processes WebSocket commands.
type CommandHandler struct {
	cfg    *config.Config
	engine *engine.Engine
	events *eventlog.Logger
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(cfg *config.Config, eng *engine.Engine, events *eventlog.Logger) *CommandHandler {
	return &CommandHandler{
		cfg:    cfg,
		engine: eng,
		events: events,
	}
}

// Handle processes a WebSocket command and performs the requested action.
// Commands use slash-style format: namespace/action (e.g., "voice/toggle",
// "silence/update").
func (h *CommandHandler) Handle(cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	parts := strings.SplitN(cmd.Type, "/", 3)
	namespace := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}
	subaction := ""
	if len(parts) > 2 {
		subaction = parts[2]
	}

	switch namespace {
	case "voice":
		h.handleVoice(action, cmd, send)
	case "playback":
		h.handlePlayback(action, cmd, send)
	case "audio":
		h.handleAudio(action, cmd, send)
	case "silence":
		h.handleSilence(action, cmd, send)
	case "burst":
		h.handleBurst(action, cmd, send)
	case "transcription":
		h.handleTranscription(action, cmd, send)
	case "notifications":
		h.handleNotifications(action, subaction, cmd, send)
	case "archive":
		h.handleArchive(action, cmd, send)
	case "config":
		h.handleConfig(action, cmd, send)
	case "log":
		h.handleLog(action, cmd, send)
	case "status":
		h.handleStatus(action)
	default:
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
	}

	triggerStatusUpdate()
}

// --- Namespace handlers ---

// handleVoice routes voice/* commands
func (h *CommandHandler) handleVoice(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "toggle":
		if err := h.engine.ToggleVoice(); err != nil {
			SendError(send, cmd.Type, err)
			return
		}
		SendSuccess(send, cmd.Type, map[string]types.VoiceState{"state": h.engine.VoiceState()})
	case "input":
		HandleCommand(cmd, send, func(req *TextInputRequest) error {
			h.engine.HandleTextInput(req.Value)
			return nil
		})
	case "autosend":
		h.handleAutoSend(cmd, send)
	default:
		slog.Warn("unknown voice action", "action", action)
	}
}

// handleAutoSend routes voice/autosend with an enabled flag in the body.
func (h *CommandHandler) handleAutoSend(cmd WSCommand, send chan<- any) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}

	if req.Enabled {
		h.engine.EnableAutoSend()
	} else {
		h.engine.DisableAutoSend()
	}
	SendSuccess(send, cmd.Type, map[string]bool{"enabled": h.engine.AutoSendEnabled()})
}

// handlePlayback routes playback/* commands
func (h *CommandHandler) handlePlayback(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "play":
		HandleCommand(cmd, send, func(req *PlayRequest) error {
			buf, err := base64.StdEncoding.DecodeString(req.AudioB64)
			if err != nil {
				return fmt.Errorf("decode audio: %w", err)
			}
			h.engine.PlayAudio(buf)
			return nil
		})
	case "stop":
		h.engine.StopPlayback()
		SendSuccess(send, cmd.Type, nil)
	default:
		slog.Warn("unknown playback action", "action", action)
	}
}

// handleAudio routes audio/* commands
func (h *CommandHandler) handleAudio(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		HandleCommand(cmd, send, func(req *AudioUpdateRequest) error {
			return h.cfg.SetAudioInput(req.Input)
		})
	case "devices":
		SendSuccess(send, cmd.Type, h.engine.Devices())
	case "get":
		SendSuccess(send, cmd.Type, map[string]string{"input": h.cfg.Snapshot().AudioInput})
	default:
		slog.Warn("unknown audio action", "action", action)
	}
}

// handleSilence routes silence/* commands
func (h *CommandHandler) handleSilence(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		HandleCommand(cmd, send, func(req *SilenceUpdateRequest) error {
			snap := h.cfg.Snapshot()
			threshold := snap.SilenceThreshold
			durationMs := snap.SilenceDurationMs
			intervalMs := snap.CheckIntervalMs
			if req.Threshold != nil {
				threshold = *req.Threshold
			}
			if req.DurationMs != nil {
				durationMs = *req.DurationMs
			}
			if req.CheckIntervalMs != nil {
				intervalMs = *req.CheckIntervalMs
			}
			return h.cfg.SetSilence(threshold, durationMs, intervalMs)
		})
	case "get":
		snap := h.cfg.Snapshot()
		SendSuccess(send, cmd.Type, map[string]any{
			"threshold":         snap.SilenceThreshold,
			"duration_ms":       snap.SilenceDurationMs,
			"check_interval_ms": snap.CheckIntervalMs,
		})
	default:
		slog.Warn("unknown silence action", "action", action)
	}
}

// handleBurst routes burst/* commands
func (h *CommandHandler) handleBurst(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		HandleCommand(cmd, send, func(req *BurstUpdateRequest) error {
			snap := h.cfg.Snapshot()
			thresholdMs := snap.BurstThresholdMs
			minChars := snap.BurstMinChars
			settleMs := snap.BurstSettleMs
			if req.ThresholdMs != nil {
				thresholdMs = *req.ThresholdMs
			}
			if req.MinChars != nil {
				minChars = *req.MinChars
			}
			if req.SettleMs != nil {
				settleMs = *req.SettleMs
			}
			if err := h.cfg.SetBurst(thresholdMs, minChars, settleMs); err != nil {
				return err
			}
			// Re-arm with the new parameters if currently enabled
			if h.engine.AutoSendEnabled() {
				h.engine.EnableAutoSend()
			}
			return nil
		})
	case "get":
		snap := h.cfg.Snapshot()
		SendSuccess(send, cmd.Type, map[string]any{
			"threshold_ms": snap.BurstThresholdMs,
			"min_chars":    snap.BurstMinChars,
			"settle_ms":    snap.BurstSettleMs,
		})
	default:
		slog.Warn("unknown burst action", "action", action)
	}
}

// handleTranscription routes transcription/* commands
func (h *CommandHandler) handleTranscription(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		HandleCommand(cmd, send, func(req *TranscriptionUpdateRequest) error {
			return h.cfg.SetTranscription(req.Endpoint, req.APIKey, req.Model)
		})
	case "get":
		snap := h.cfg.Snapshot()
		SendSuccess(send, cmd.Type, map[string]any{
			"endpoint":   snap.TranscriptionEndpoint,
			"model":      snap.TranscriptionModel,
			"key_is_set": snap.TranscriptionAPIKey != "",
		})
	default:
		slog.Warn("unknown transcription action", "action", action)
	}
}

// handleNotifications routes notifications/*/* commands
func (h *CommandHandler) handleNotifications(action, subaction string, cmd WSCommand, send chan<- any) {
	if action != "webhook" {
		slog.Warn("unknown notifications action", "action", action)
		return
	}

	switch subaction {
	case "update":
		HandleCommand(cmd, send, func(req *WebhookUpdateRequest) error {
			return h.cfg.SetWebhookURL(req.URL)
		})
	case "test":
		HandleActionAsync(cmd, send, func() (any, error) {
			return nil, notify.SendTestWebhook(h.cfg.Snapshot().WebhookURL)
		})
	case "get":
		SendSuccess(send, cmd.Type, map[string]string{"url": h.cfg.Snapshot().WebhookURL})
	default:
		slog.Warn("unknown webhook action", "subaction", subaction)
	}
}

// handleArchive routes archive/* commands
func (h *CommandHandler) handleArchive(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		HandleCommand(cmd, send, func(req *ArchiveUpdateRequest) error {
			snap := h.cfg.Snapshot()
			cfg := config.ArchiveConfig{
				Enabled:       snap.ArchiveEnabled,
				Dir:           snap.ArchiveDir,
				RetentionDays: snap.ArchiveRetention,
				S3:            snap.ArchiveS3,
			}
			if req.Enabled != nil {
				cfg.Enabled = *req.Enabled
			}
			if req.Dir != "" {
				cfg.Dir = req.Dir
			}
			if req.RetentionDays != nil {
				cfg.RetentionDays = *req.RetentionDays
			}
			return h.cfg.SetArchive(cfg)
		})
	case "test-s3":
		HandleActionAsync(cmd, send, func() (any, error) {
			s3cfg := h.cfg.Snapshot().ArchiveS3
			return nil, archive.TestS3Connection(&s3cfg)
		})
	case "get":
		snap := h.cfg.Snapshot()
		SendSuccess(send, cmd.Type, map[string]any{
			"enabled":        snap.ArchiveEnabled,
			"dir":            snap.ArchiveDir,
			"retention_days": snap.ArchiveRetention,
			"s3_configured":  snap.ArchiveS3.IsConfigured(),
		})
	default:
		slog.Warn("unknown archive action", "action", action)
	}
}

// handleConfig routes config/* commands
func (h *CommandHandler) handleConfig(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "get":
		trySend(send, cmd.Type, types.WSConfigResponse{
			Type:   "config",
			Config: h.cfg.Redacted(),
		})
	case "regenerate-key":
		key, err := h.cfg.RegenerateAPIKey()
		if err != nil {
			SendError(send, cmd.Type, err)
			return
		}
		SendSuccess(send, cmd.Type, map[string]string{"api_key": key})
	default:
		slog.Warn("unknown config action", "action", action)
	}
}

// handleLog routes log/* commands
func (h *CommandHandler) handleLog(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "view":
		var req LogViewRequest
		if len(cmd.Data) > 0 && !DecodeAndValidate(cmd, send, &req) {
			return
		}
		if req.Limit == 0 {
			req.Limit = DefaultLogEntries
		}

		entries, hasMore, err := eventlog.ReadLast(h.events.Path(), req.Limit, req.Offset, eventlog.EventType(req.Filter))
		if err != nil {
			SendError(send, cmd.Type, err)
			return
		}
		SendSuccess(send, cmd.Type, map[string]any{
			"entries":  entries,
			"has_more": hasMore,
		})
	default:
		slog.Warn("unknown log action", "action", action)
	}
}

// handleStatus routes status/* commands
func (h *CommandHandler) handleStatus(action string) {
	switch action {
	case "get":
		// Status is pushed on every command; nothing extra to do here.
	default:
		slog.Warn("unknown status action", "action", action)
	}
}
