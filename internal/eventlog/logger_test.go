package eventlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })
	return logger, path
}

func TestLogAndReadBack(t *testing.T) {
	logger, path := testLogger(t)

	require.NoError(t, logger.Log(RecordStarted, "", &VoiceDetails{Device: "hw:1,0"}))
	require.NoError(t, logger.Log(SilenceDetected, "", &VoiceDetails{Level: 0.01, Threshold: 0.02}))
	require.NoError(t, logger.Log(Transcript, "hello world", &VoiceDetails{Chars: 11, DurationMs: 1200}))

	events, hasMore, err := ReadLast(path, 10, 0, "")
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, events, 3)

	// Newest first.
	assert.Equal(t, Transcript, events[0].Type)
	assert.Equal(t, "hello world", events[0].Message)
	assert.Equal(t, SilenceDetected, events[1].Type)
	assert.Equal(t, RecordStarted, events[2].Type)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestReadLastPagination(t *testing.T) {
	logger, path := testLogger(t)

	for range 5 {
		require.NoError(t, logger.Log(BurstStart, "", nil))
	}

	page1, hasMore, err := ReadLast(path, 2, 0, "")
	require.NoError(t, err)
	assert.Len(t, page1, 2)
	assert.True(t, hasMore)

	page3, hasMore, err := ReadLast(path, 2, 4, "")
	require.NoError(t, err)
	assert.Len(t, page3, 1)
	assert.False(t, hasMore)
}

func TestReadLastFilter(t *testing.T) {
	logger, path := testLogger(t)

	require.NoError(t, logger.Log(Transcript, "one", nil))
	require.NoError(t, logger.Log(PlaybackError, "boom", nil))
	require.NoError(t, logger.Log(Transcript, "two", nil))

	events, _, err := ReadLast(path, 10, 0, Transcript)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "two", events[0].Message)
	assert.Equal(t, "one", events[1].Message)
}

func TestReadLastMissingFile(t *testing.T) {
	events, hasMore, err := ReadLast(filepath.Join(t.TempDir(), "absent.log"), 10, 0, "")
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.False(t, hasMore)
}

func TestReadLastSkipsMalformedLines(t *testing.T) {
	logger, path := testLogger(t)
	require.NoError(t, logger.Log(Transcript, "good", nil))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	events, _, err := ReadLast(path, 10, 0, "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "good", events[0].Message)
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	assert.NoError(t, logger.Log(Transcript, "ignored", nil))
	assert.NoError(t, logger.Close())
	assert.Empty(t, logger.Path())
}
