// Package archive persists captured utterances. Each stored WAV gets a
// timestamped filename; storage is local with optional S3 upload, and old
// files are removed by a daily retention sweep.
package archive

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/openclaw/voiced/internal/config"
	"github.com/openclaw/voiced/internal/eventlog"
	"github.com/openclaw/voiced/internal/util"
)

// cleanupHour is the local hour at which the daily retention sweep runs.
const cleanupHour = 3

// Manager stores utterance WAVs and owns the retention sweep.
// It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	dir      string
	retain   int // days; 0 keeps forever
	s3       *Uploader
	events   *eventlog.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewManager creates an archive manager rooted at dir. The events logger
// may be nil.
func NewManager(cfg config.Snapshot, events *eventlog.Logger) (*Manager, error) {
	if cfg.ArchiveDir == "" {
		return nil, fmt.Errorf("archive directory not configured")
	}
	if err := os.MkdirAll(cfg.ArchiveDir, 0o755); err != nil {
		return nil, util.WrapError("create archive directory", err)
	}

	m := &Manager{
		dir:    cfg.ArchiveDir,
		retain: cfg.ArchiveRetention,
		events: events,
		stopCh: make(chan struct{}),
	}

	if cfg.ArchiveS3.IsConfigured() {
		up, err := NewUploader(&cfg.ArchiveS3)
		if err != nil {
			return nil, util.WrapError("create S3 uploader", err)
		}
		m.s3 = up
	}

	// Sweep once at startup so retention is enforced even on daemons that
	// never stay up until the scheduled hour.
	m.RunCleanup()
	m.startCleanupScheduler()
	return m, nil
}

// Store writes one utterance WAV to the archive and queues an S3 upload if
// configured. Returns the local path.
func (m *Manager) Store(wav []byte, capturedAt time.Time) (string, error) {
	m.mu.RLock()
	dir := m.dir
	uploader := m.s3
	m.mu.RUnlock()

	name := fmt.Sprintf("utterance-%s.wav", capturedAt.Format("2006-01-02-15-04-05"))
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, wav, 0o644); err != nil {
		_ = m.events.Log(eventlog.ArchiveFailed, "local store failed", &eventlog.VoiceDetails{Error: err.Error()})
		return "", util.WrapError("write utterance file", err)
	}

	_ = m.events.Log(eventlog.ArchiveStored, name, nil)

	if uploader != nil {
		go func() {
			if err := uploader.Upload(path, name); err != nil {
				slog.Warn("utterance upload failed", "file", name, "error", err)
				_ = m.events.Log(eventlog.ArchiveFailed, "upload failed", &eventlog.VoiceDetails{Error: err.Error(), ArchivePath: name})
				return
			}
			_ = m.events.Log(eventlog.ArchiveUploaded, name, nil)
		}()
	}

	return path, nil
}

// startCleanupScheduler arranges a daily retention sweep at cleanupHour.
func (m *Manager) startCleanupScheduler() {
	go func() {
		for {
			now := time.Now()
			next := time.Date(now.Year(), now.Month(), now.Day(), cleanupHour, 0, 0, 0, now.Location())
			if now.After(next) {
				next = next.Add(24 * time.Hour)
			}

			select {
			case <-time.After(next.Sub(now)):
				m.RunCleanup()
			case <-m.stopCh:
				return
			}
		}
	}()
}

// RunCleanup removes archived files older than the retention window.
func (m *Manager) RunCleanup() {
	m.mu.RLock()
	dir := m.dir
	retain := m.retain
	m.mu.RUnlock()

	if retain <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -retain)
	deleted := CleanupDir(dir, cutoff)
	if deleted > 0 {
		slog.Info("archive cleanup completed", "deleted", deleted)
		_ = m.events.Log(eventlog.CleanupCompleted, "", map[string]int{"files_deleted": deleted})
	}
}

// Close stops the cleanup scheduler. Idempotent.
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

// CleanupDir deletes files in dir whose embedded filename date is before
// cutoff. Files without a recognizable date are left alone. Returns how many
// files were removed.
func CleanupDir(dir string, cutoff time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("archive cleanup: failed to read directory", "path", dir, "error", err)
		return 0
	}

	var deleted int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		fileDate, ok := util.ExtractDateFromFilename(entry.Name())
		if !ok {
			continue
		}

		if fileDate.Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				slog.Warn("archive cleanup: failed to delete file", "file", entry.Name(), "error", err)
				continue
			}
			deleted++
		}
	}

	return deleted
}
