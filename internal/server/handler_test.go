package server

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/voiced/internal/types"
)

func command(t *testing.T, cmdType string, data any) WSCommand {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return WSCommand{Type: cmdType, Data: raw}
}

func drainResult(t *testing.T, send chan any) types.WSCommandResult {
	t.Helper()
	select {
	case msg := <-send:
		result, ok := msg.(types.WSCommandResult)
		require.True(t, ok, "expected WSCommandResult, got %T", msg)
		return result
	default:
		t.Fatal("no response sent")
		return types.WSCommandResult{}
	}
}

func TestDecodeAndValidateAccepts(t *testing.T) {
	send := make(chan any, 1)
	cmd := command(t, "silence/update", map[string]any{"threshold": 0.05})

	var req SilenceUpdateRequest
	ok := DecodeAndValidate(cmd, send, &req)
	require.True(t, ok)
	require.NotNil(t, req.Threshold)
	assert.Equal(t, 0.05, *req.Threshold)
	assert.Nil(t, req.DurationMs)
	assert.Empty(t, send)
}

func TestDecodeAndValidateRejectsBadJSON(t *testing.T) {
	send := make(chan any, 1)
	cmd := WSCommand{Type: "silence/update", Data: json.RawMessage(`{broken`)}

	var req SilenceUpdateRequest
	ok := DecodeAndValidate(cmd, send, &req)
	assert.False(t, ok)

	result := drainResult(t, send)
	assert.Equal(t, "silence/update_result", result.Type)
	assert.False(t, result.Success)
}

func TestDecodeAndValidateRejectsOutOfRange(t *testing.T) {
	send := make(chan any, 1)
	cmd := command(t, "silence/update", map[string]any{"threshold": 2.0})

	var req SilenceUpdateRequest
	ok := DecodeAndValidate(cmd, send, &req)
	assert.False(t, ok)

	result := drainResult(t, send)
	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	require.Len(t, result.Error.Errors, 1)
	// Field names come from JSON tags, not Go field names.
	assert.Equal(t, "threshold", result.Error.Errors[0].Field)
	assert.Contains(t, result.Error.Errors[0].Message, "less than or equal to")
}

func TestPlayRequestValidation(t *testing.T) {
	send := make(chan any, 1)

	var req PlayRequest
	ok := DecodeAndValidate(command(t, "playback/play", map[string]any{}), send, &req)
	assert.False(t, ok, "audio_b64 is required")
	result := drainResult(t, send)
	require.NotNil(t, result.Error)
	assert.Equal(t, "audio_b64", result.Error.Errors[0].Field)

	ok = DecodeAndValidate(command(t, "playback/play", map[string]any{"audio_b64": "!!!"}), send, &req)
	assert.False(t, ok, "audio_b64 must be base64")
	drainResult(t, send)

	ok = DecodeAndValidate(command(t, "playback/play", map[string]any{"audio_b64": "UklGRg=="}), send, &req)
	assert.True(t, ok)
}

func TestHandleCommandSendsSuccess(t *testing.T) {
	send := make(chan any, 1)
	cmd := command(t, "audio/update", map[string]any{"input": "hw:1,0"})

	var got string
	HandleCommand(cmd, send, func(req *AudioUpdateRequest) error {
		got = req.Input
		return nil
	})

	assert.Equal(t, "hw:1,0", got)
	result := drainResult(t, send)
	assert.True(t, result.Success)
	assert.Equal(t, "audio/update_result", result.Type)
}

func TestHandleCommandSendsProcessError(t *testing.T) {
	send := make(chan any, 1)
	cmd := command(t, "audio/update", map[string]any{"input": "hw:1,0"})

	HandleCommand(cmd, send, func(req *AudioUpdateRequest) error {
		return errors.New("device not found")
	})

	result := drainResult(t, send)
	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Errors[0].Message, "device not found")
}

func TestTrySendDropsWhenFull(t *testing.T) {
	send := make(chan any) // unbuffered and never read
	// Must not block.
	SendSuccess(send, "status/get", nil)
}

func TestWebhookUpdateRequestValidation(t *testing.T) {
	send := make(chan any, 1)

	var req WebhookUpdateRequest
	ok := DecodeAndValidate(command(t, "notifications/webhook/update", map[string]any{"url": "not a url"}), send, &req)
	assert.False(t, ok)
	drainResult(t, send)

	ok = DecodeAndValidate(command(t, "notifications/webhook/update", map[string]any{"url": "https://example.com/hook"}), send, &req)
	assert.True(t, ok)

	// Empty clears the webhook and is allowed.
	ok = DecodeAndValidate(command(t, "notifications/webhook/update", map[string]any{}), send, &req)
	assert.True(t, ok)
}
