// Package config provides application configuration management.
package config

import (
	"cmp"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/openclaw/voiced/internal/util"
)

// validate checks the struct tags on loaded and saved configuration.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Configuration defaults are used when values are not specified.
const (
	DefaultPort              = 8765
	DefaultSilenceThreshold  = 0.02 // normalized level; depends on mic gain, keep tunable
	DefaultSilenceDurationMs = 2000
	DefaultCheckIntervalMs   = 100
	DefaultBurstThresholdMs  = 10
	DefaultBurstMinChars     = 5
	DefaultBurstSettleMs     = 400
	DefaultArchiveRetention  = 14 // days
)

// SystemConfig holds daemon-level settings that require restart.
type SystemConfig struct {
	Port       int    `json:"port"`        // local control server port
	APIKey     string `json:"api_key"`     // key the desktop UI presents
	FFmpegPath string `json:"ffmpeg_path"` // path to FFmpeg binary (empty = use PATH)
	LogPath    string `json:"log_path"`    // event log file (empty = disabled)
}

// AudioConfig holds audio input device settings.
type AudioConfig struct {
	Input string `json:"input"` // audio input device identifier, empty = default
}

// SilenceConfig holds auto-stop silence detection parameters.
type SilenceConfig struct {
	Threshold       float64 `json:"threshold" validate:"omitempty,gte=0,lte=1"` // normalized level
	DurationMs      int64   `json:"duration_ms" validate:"omitempty,gte=100,lte=60000"`
	CheckIntervalMs int64   `json:"check_interval_ms" validate:"omitempty,gte=10,lte=5000"`
}

// BurstConfig holds burst detection parameters for auto-send.
type BurstConfig struct {
	ThresholdMs int64 `json:"threshold_ms" validate:"omitempty,gte=1,lte=1000"`
	MinChars    int   `json:"min_chars" validate:"omitempty,gte=1,lte=100"`
	SettleMs    int64 `json:"settle_ms" validate:"omitempty,gte=50,lte=10000"`
}

// TranscriptionConfig holds speech-to-text service settings.
type TranscriptionConfig struct {
	Endpoint string `json:"endpoint" validate:"omitempty,url"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
}

// GatewayConfig holds the remote gateway connection settings.
type GatewayConfig struct {
	URL          string `json:"url" validate:"omitempty,url"`
	Token        string `json:"token"`
	TokenURL     string `json:"token_url" validate:"omitempty,url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// PlaybackConfig holds audio playback settings.
type PlaybackConfig struct {
	Player string `json:"player"` // player binary (empty = ffplay from PATH)
}

// S3Config holds object storage settings for utterance uploads.
type S3Config struct {
	Endpoint        string `json:"endpoint" validate:"omitempty,url"`
	Bucket          string `json:"bucket"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Prefix          string `json:"prefix"`
}

// IsConfigured reports whether the minimum S3 settings are present.
func (s *S3Config) IsConfigured() bool {
	return s.Bucket != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// ArchiveConfig holds utterance archive settings.
type ArchiveConfig struct {
	Enabled       bool     `json:"enabled"`
	Dir           string   `json:"dir"`
	RetentionDays int      `json:"retention_days" validate:"omitempty,gte=1,lte=365"`
	S3            S3Config `json:"s3"`
}

// NotificationsConfig holds notification channel settings.
type NotificationsConfig struct {
	WebhookURL string `json:"webhook_url" validate:"omitempty,url"`
}

// Config holds all daemon configuration. It is safe for concurrent use.
type Config struct {
	System        SystemConfig        `json:"system"`
	Audio         AudioConfig         `json:"audio"`
	Silence       SilenceConfig       `json:"silence"`
	Burst         BurstConfig         `json:"burst"`
	Transcription TranscriptionConfig `json:"transcription"`
	Gateway       GatewayConfig       `json:"gateway"`
	Playback      PlaybackConfig      `json:"playback"`
	Archive       ArchiveConfig       `json:"archive"`
	Notifications NotificationsConfig `json:"notifications"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		System: SystemConfig{
			Port: DefaultPort,
		},
		filePath: filePath,
	}
}

// Load reads config from file, creating a default if none exists.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		c.applyDefaults()
		return c.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return util.WrapError("parse config", err)
	}

	c.applyDefaults()

	if err := validate.Struct(c); err != nil {
		return util.WrapError("validate config", err)
	}
	return nil
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	if c.System.Port == 0 {
		c.System.Port = DefaultPort
	}
	if c.System.APIKey == "" {
		if key, err := GenerateAPIKey(); err == nil {
			c.System.APIKey = key
		}
	}
	if c.Archive.Dir == "" {
		c.Archive.Dir = defaultArchiveDir()
	}
}

// defaultArchiveDir places the archive next to the user's other app data.
func defaultArchiveDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "openclaw", "utterances")
}

// Save persists configuration to disk.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	if err := validate.Struct(c); err != nil {
		return util.WrapError("validate config", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	// Write-then-rename so a crash mid-write never truncates the config.
	tmpPath := c.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}
	if err := os.Rename(tmpPath, c.filePath); err != nil {
		_ = os.Remove(tmpPath)
		return util.WrapError("replace config", err)
	}

	return nil
}

// --- Setters used by the control surface ---

// SetAudioInput updates the capture device and saves.
func (c *Config) SetAudioInput(input string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Audio.Input = input
	return c.saveLocked()
}

// SetSilence updates silence detection parameters and saves.
func (c *Config) SetSilence(threshold float64, durationMs, intervalMs int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Silence.Threshold = threshold
	c.Silence.DurationMs = durationMs
	c.Silence.CheckIntervalMs = intervalMs
	return c.saveLocked()
}

// SetBurst updates burst detection parameters and saves.
func (c *Config) SetBurst(thresholdMs int64, minChars int, settleMs int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Burst.ThresholdMs = thresholdMs
	c.Burst.MinChars = minChars
	c.Burst.SettleMs = settleMs
	return c.saveLocked()
}

// SetWebhookURL updates the notification webhook and saves.
func (c *Config) SetWebhookURL(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.WebhookURL = url
	return c.saveLocked()
}

// SetTranscription updates speech-to-text settings and saves.
func (c *Config) SetTranscription(endpoint, apiKey, model string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transcription.Endpoint = endpoint
	c.Transcription.APIKey = apiKey
	c.Transcription.Model = model
	return c.saveLocked()
}

// SetArchive updates archive settings and saves.
func (c *Config) SetArchive(cfg ArchiveConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg.Dir == "" {
		cfg.Dir = c.Archive.Dir
	}
	c.Archive = cfg
	return c.saveLocked()
}

// RegenerateAPIKey replaces the control API key and saves.
func (c *Config) RegenerateAPIKey() (string, error) {
	key, err := GenerateAPIKey()
	if err != nil {
		return "", util.WrapError("generate API key", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.System.APIKey = key
	return key, c.saveLocked()
}

// APIKey returns the control API key.
func (c *Config) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.System.APIKey
}

// Snapshot is a point-in-time copy of configuration values with defaults
// applied.
type Snapshot struct {
	Port       int
	APIKey     string
	FFmpegPath string
	LogPath    string

	AudioInput string

	SilenceThreshold  float64
	SilenceDurationMs int64
	CheckIntervalMs   int64

	BurstThresholdMs int64
	BurstMinChars    int
	BurstSettleMs    int64

	TranscriptionEndpoint string
	TranscriptionAPIKey   string
	TranscriptionModel    string

	GatewayURL          string
	GatewayToken        string
	GatewayTokenURL     string
	GatewayClientID     string
	GatewayClientSecret string

	PlaybackPlayer string

	ArchiveEnabled   bool
	ArchiveDir       string
	ArchiveRetention int
	ArchiveS3        S3Config

	WebhookURL string
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		Port:       c.System.Port,
		APIKey:     c.System.APIKey,
		FFmpegPath: c.System.FFmpegPath,
		LogPath:    c.System.LogPath,

		AudioInput: c.Audio.Input,

		SilenceThreshold:  cmp.Or(c.Silence.Threshold, DefaultSilenceThreshold),
		SilenceDurationMs: cmp.Or(c.Silence.DurationMs, DefaultSilenceDurationMs),
		CheckIntervalMs:   cmp.Or(c.Silence.CheckIntervalMs, DefaultCheckIntervalMs),

		BurstThresholdMs: cmp.Or(c.Burst.ThresholdMs, DefaultBurstThresholdMs),
		BurstMinChars:    cmp.Or(c.Burst.MinChars, DefaultBurstMinChars),
		BurstSettleMs:    cmp.Or(c.Burst.SettleMs, DefaultBurstSettleMs),

		TranscriptionEndpoint: c.Transcription.Endpoint,
		TranscriptionAPIKey:   c.Transcription.APIKey,
		TranscriptionModel:    c.Transcription.Model,

		GatewayURL:          c.Gateway.URL,
		GatewayToken:        c.Gateway.Token,
		GatewayTokenURL:     c.Gateway.TokenURL,
		GatewayClientID:     c.Gateway.ClientID,
		GatewayClientSecret: c.Gateway.ClientSecret,

		PlaybackPlayer: c.Playback.Player,

		ArchiveEnabled:   c.Archive.Enabled,
		ArchiveDir:       c.Archive.Dir,
		ArchiveRetention: cmp.Or(c.Archive.RetentionDays, DefaultArchiveRetention),
		ArchiveS3:        c.Archive.S3,

		WebhookURL: c.Notifications.WebhookURL,
	}
}

// HasWebhook reports whether a webhook URL is configured.
func (s *Snapshot) HasWebhook() bool {
	return s.WebhookURL != ""
}

// RedactedView mirrors the persisted configuration with secrets masked. It
// is what config/get hands to the UI.
type RedactedView struct {
	System        SystemConfig        `json:"system"`
	Audio         AudioConfig         `json:"audio"`
	Silence       SilenceConfig       `json:"silence"`
	Burst         BurstConfig         `json:"burst"`
	Transcription TranscriptionConfig `json:"transcription"`
	Gateway       GatewayConfig       `json:"gateway"`
	Playback      PlaybackConfig      `json:"playback"`
	Archive       ArchiveConfig       `json:"archive"`
	Notifications NotificationsConfig `json:"notifications"`
}

// Redacted returns the configuration for display, with every credential
// replaced by a placeholder when set.
func (c *Config) Redacted() RedactedView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v := RedactedView{
		System:        c.System,
		Audio:         c.Audio,
		Silence:       c.Silence,
		Burst:         c.Burst,
		Transcription: c.Transcription,
		Gateway:       c.Gateway,
		Playback:      c.Playback,
		Archive:       c.Archive,
		Notifications: c.Notifications,
	}
	v.System.APIKey = maskSecret(v.System.APIKey)
	v.Transcription.APIKey = maskSecret(v.Transcription.APIKey)
	v.Gateway.Token = maskSecret(v.Gateway.Token)
	v.Gateway.ClientSecret = maskSecret(v.Gateway.ClientSecret)
	v.Archive.S3.SecretAccessKey = maskSecret(v.Archive.S3.SecretAccessKey)
	return v
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// GenerateAPIKey generates a new random 32-character alphanumeric API key.
func GenerateAPIKey() (string, error) {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 32
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		result[i] = chars[n.Int64()]
	}
	return string(result), nil
}
