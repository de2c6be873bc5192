package server

// Request types for WebSocket commands with validation tags.
// These define the expected input for each command and use
// go-playground/validator struct tags for automatic validation.

// TextInputRequest is the request body for voice/input. It carries the
// current composer contents after a keystroke.
type TextInputRequest struct {
	Value string `json:"value" validate:"max=100000"`
}

// AudioUpdateRequest is the request body for audio/update.
type AudioUpdateRequest struct {
	Input string `json:"input" validate:"omitempty,max=256"`
}

// SilenceUpdateRequest is the request body for silence/update.
// Pointer fields distinguish "not provided" from zero values.
type SilenceUpdateRequest struct {
	Threshold       *float64 `json:"threshold" validate:"omitempty,gte=0,lte=1"`
	DurationMs      *int64   `json:"duration_ms" validate:"omitempty,gte=100,lte=60000"`
	CheckIntervalMs *int64   `json:"check_interval_ms" validate:"omitempty,gte=10,lte=5000"`
}

// BurstUpdateRequest is the request body for burst/update.
type BurstUpdateRequest struct {
	ThresholdMs *int64 `json:"threshold_ms" validate:"omitempty,gte=1,lte=1000"`
	MinChars    *int   `json:"min_chars" validate:"omitempty,gte=1,lte=100"`
	SettleMs    *int64 `json:"settle_ms" validate:"omitempty,gte=50,lte=10000"`
}

// PlayRequest is the request body for playback/play.
type PlayRequest struct {
	AudioB64 string `json:"audio_b64" validate:"required,base64"`
}

// TranscriptionUpdateRequest is the request body for transcription/update.
type TranscriptionUpdateRequest struct {
	Endpoint string `json:"endpoint" validate:"omitempty,url,max=2048"`
	APIKey   string `json:"api_key" validate:"omitempty,max=512"`
	Model    string `json:"model" validate:"omitempty,max=128"`
}

// WebhookUpdateRequest is the request body for notifications/webhook/update.
type WebhookUpdateRequest struct {
	URL string `json:"url" validate:"omitempty,url,max=2048"`
}

// ArchiveUpdateRequest is the request body for archive/update.
type ArchiveUpdateRequest struct {
	Enabled       *bool  `json:"enabled"`
	Dir           string `json:"dir" validate:"omitempty,max=4096"`
	RetentionDays *int   `json:"retention_days" validate:"omitempty,gte=1,lte=365"`
}

// LogViewRequest is the request body for log/view.
type LogViewRequest struct {
	Limit  int    `json:"limit" validate:"omitempty,gte=1,lte=500"`
	Offset int    `json:"offset" validate:"omitempty,gte=0"`
	Filter string `json:"filter" validate:"omitempty,max=64"`
}
