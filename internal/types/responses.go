package types

// WSConfigResponse is sent in response to config/get.
// Contains the full configuration without runtime state.
type WSConfigResponse struct {
	Type   string `json:"type"` // "config"
	Config any    `json:"config"`
}

// WSCommandResult is the standard response for command execution.
// Used by slash-style commands (voice/toggle, silence/update, etc.)
type WSCommandResult struct {
	Type    string           `json:"type"`            // "<command>_result"
	Success bool             `json:"success"`         // true if command succeeded
	Error   *ValidationError `json:"error,omitempty"` // Validation errors if failed
	Data    any              `json:"data,omitempty"`  // Optional response data
}

// WSLevelsResponse carries a level meter sample to the UI.
type WSLevelsResponse struct {
	Type   string       `json:"type"` // "levels"
	Levels LevelReading `json:"levels"`
}

// WSStatusResponse carries full daemon status to the UI.
type WSStatusResponse struct {
	Type              string      `json:"type"` // "status"
	Voice             VoiceStatus `json:"voice"`
	Devices           []Device    `json:"devices"`
	AudioInput        string      `json:"audio_input"`
	SilenceThreshold  float64     `json:"silence_threshold"`
	SilenceDurationMs int64       `json:"silence_duration_ms"`
	BurstThresholdMs  int64       `json:"burst_threshold_ms"`
	BurstMinChars     int         `json:"burst_min_chars"`
	BurstSettleMs     int64       `json:"burst_settle_ms"`
	GatewayURL        string      `json:"gateway_url,omitempty"`
	Platform          string      `json:"platform"`
	Version           any         `json:"version,omitempty"`
}
