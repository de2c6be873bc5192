package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voiced.json")
	cfg := New(path)
	require.NoError(t, cfg.Load())
	return cfg
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voiced.json")
	cfg := New(path)
	require.NoError(t, cfg.Load())

	// Missing file is created with defaults filled in.
	_, err := os.Stat(path)
	require.NoError(t, err)

	snap := cfg.Snapshot()
	assert.Equal(t, DefaultPort, snap.Port)
	assert.NotEmpty(t, snap.APIKey, "a fresh config gets a generated API key")
	assert.NotEmpty(t, snap.ArchiveDir)
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voiced.json")

	cfg := New(path)
	require.NoError(t, cfg.Load())
	require.NoError(t, cfg.SetSilence(0.05, 1500, 50))
	require.NoError(t, cfg.SetBurst(20, 8, 600))
	require.NoError(t, cfg.SetAudioInput("hw:1,0"))

	reloaded := New(path)
	require.NoError(t, reloaded.Load())

	snap := reloaded.Snapshot()
	assert.Equal(t, 0.05, snap.SilenceThreshold)
	assert.Equal(t, int64(1500), snap.SilenceDurationMs)
	assert.Equal(t, int64(50), snap.CheckIntervalMs)
	assert.Equal(t, int64(20), snap.BurstThresholdMs)
	assert.Equal(t, 8, snap.BurstMinChars)
	assert.Equal(t, int64(600), snap.BurstSettleMs)
	assert.Equal(t, "hw:1,0", snap.AudioInput)
}

func TestSnapshotAppliesDefaults(t *testing.T) {
	cfg := testConfig(t)

	snap := cfg.Snapshot()
	assert.Equal(t, DefaultSilenceThreshold, snap.SilenceThreshold)
	assert.Equal(t, int64(DefaultSilenceDurationMs), snap.SilenceDurationMs)
	assert.Equal(t, int64(DefaultCheckIntervalMs), snap.CheckIntervalMs)
	assert.Equal(t, int64(DefaultBurstThresholdMs), snap.BurstThresholdMs)
	assert.Equal(t, DefaultBurstMinChars, snap.BurstMinChars)
	assert.Equal(t, int64(DefaultBurstSettleMs), snap.BurstSettleMs)
	assert.Equal(t, DefaultArchiveRetention, snap.ArchiveRetention)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voiced.json")
	raw := map[string]any{
		"silence": map[string]any{"threshold": 3.5},
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg := New(path)
	assert.Error(t, cfg.Load(), "out-of-range threshold must be rejected")
}

func TestSaveReplacesFileWithoutLeavingTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voiced.json")
	cfg := New(path)
	require.NoError(t, cfg.Load())
	require.NoError(t, cfg.SetAudioInput("hw:1,0"))

	assert.NoFileExists(t, path+".tmp")

	// The file on disk is always a complete document.
	reloaded := New(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, "hw:1,0", reloaded.Snapshot().AudioInput)
}

func TestSetWebhookURLValidates(t *testing.T) {
	cfg := testConfig(t)

	assert.Error(t, cfg.SetWebhookURL("not a url"))
	require.NoError(t, cfg.SetWebhookURL("https://hooks.example.com/voiced"))
	snap := cfg.Snapshot()
	assert.True(t, snap.HasWebhook())

	require.NoError(t, cfg.SetWebhookURL(""))
	snap = cfg.Snapshot()
	assert.False(t, snap.HasWebhook())
}

func TestRegenerateAPIKey(t *testing.T) {
	cfg := testConfig(t)

	before := cfg.APIKey()
	key, err := cfg.RegenerateAPIKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)
	assert.NotEqual(t, before, key)
	assert.Equal(t, key, cfg.APIKey())
}

func TestSetArchiveKeepsDirWhenOmitted(t *testing.T) {
	cfg := testConfig(t)
	originalDir := cfg.Snapshot().ArchiveDir

	require.NoError(t, cfg.SetArchive(ArchiveConfig{Enabled: true, RetentionDays: 7}))

	snap := cfg.Snapshot()
	assert.True(t, snap.ArchiveEnabled)
	assert.Equal(t, 7, snap.ArchiveRetention)
	assert.Equal(t, originalDir, snap.ArchiveDir, "empty dir falls back to the existing one")
}

func TestS3ConfigIsConfigured(t *testing.T) {
	var s3 S3Config
	assert.False(t, s3.IsConfigured())

	s3 = S3Config{Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s"}
	assert.True(t, s3.IsConfigured())

	s3.SecretAccessKey = ""
	assert.False(t, s3.IsConfigured())
}

func TestGenerateAPIKeyShape(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)

	other, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestRedactedMasksSecrets(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, cfg.SetTranscription("https://stt.example.com/v1/audio", "sk-secret", "whisper-1"))
	cfg.Gateway.Token = "gw-token"
	cfg.Archive.S3.SecretAccessKey = "s3-secret"

	view := cfg.Redacted()
	assert.Equal(t, "********", view.System.APIKey)
	assert.Equal(t, "********", view.Transcription.APIKey)
	assert.Equal(t, "********", view.Gateway.Token)
	assert.Equal(t, "********", view.Archive.S3.SecretAccessKey)
	assert.Empty(t, view.Gateway.ClientSecret, "unset secrets stay empty")
	assert.Equal(t, "https://stt.example.com/v1/audio", view.Transcription.Endpoint)
	assert.Equal(t, "whisper-1", view.Transcription.Model)
}

func TestConfigFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voiced.json")
	cfg := New(path)
	require.NoError(t, cfg.Load())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "config holds secrets")
}
