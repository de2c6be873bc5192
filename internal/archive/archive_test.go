package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/voiced/internal/config"
)

func testManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	m, err := NewManager(config.Snapshot{
		ArchiveDir:       dir,
		ArchiveRetention: 14,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, dir
}

func TestStoreWritesTimestampedFile(t *testing.T) {
	m, dir := testManager(t)

	capturedAt := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	path, err := m.Store([]byte("RIFFfake"), capturedAt)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "utterance-2026-03-14-15-09-26.wav"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFFfake"), data)
}

func TestNewManagerRequiresDir(t *testing.T) {
	_, err := NewManager(config.Snapshot{}, nil)
	assert.Error(t, err)
}

func TestNewManagerCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "utterances")
	m, err := NewManager(config.Snapshot{ArchiveDir: dir, ArchiveRetention: 1}, nil)
	require.NoError(t, err)
	defer m.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCleanupDirRemovesOldFiles(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, "utterance-2026-01-01-10-00-00.wav")
	recent := filepath.Join(dir, "utterance-2026-03-10-10-00-00.wav")
	undated := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(recent, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(undated, []byte("x"), 0o644))

	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	deleted := CleanupDir(dir, cutoff)

	assert.Equal(t, 1, deleted)
	assert.NoFileExists(t, old)
	assert.FileExists(t, recent, "files inside the retention window stay")
	assert.FileExists(t, undated, "files without a date in the name are left alone")
}

func TestCleanupDirMissingDirectory(t *testing.T) {
	deleted := CleanupDir(filepath.Join(t.TempDir(), "absent"), time.Now())
	assert.Zero(t, deleted)
}

func TestRunCleanupHonorsRetention(t *testing.T) {
	m, dir := testManager(t)

	oldName := "utterance-2020-01-01-00-00-00.wav"
	require.NoError(t, os.WriteFile(filepath.Join(dir, oldName), []byte("x"), 0o644))

	m.RunCleanup()
	assert.NoFileExists(t, filepath.Join(dir, oldName))
}

func TestNewManagerSweepsExpiredFilesAtStartup(t *testing.T) {
	dir := t.TempDir()
	expired := filepath.Join(dir, "utterance-2020-01-01-00-00-00.wav")
	require.NoError(t, os.WriteFile(expired, []byte("x"), 0o644))

	m, err := NewManager(config.Snapshot{ArchiveDir: dir, ArchiveRetention: 14}, nil)
	require.NoError(t, err)
	defer m.Close()

	assert.NoFileExists(t, expired, "retention applies at startup, not only at the scheduled hour")
}

func TestNewManagerZeroRetentionKeepsEverything(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "utterance-2020-01-01-00-00-00.wav")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))

	m, err := NewManager(config.Snapshot{ArchiveDir: dir}, nil)
	require.NoError(t, err)
	defer m.Close()

	assert.FileExists(t, old, "zero retention disables the sweep")
}

func TestManagerCloseIdempotent(t *testing.T) {
	m, _ := testManager(t)
	m.Close()
	m.Close()
}
