package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/openclaw/voiced/internal/audio"
	"github.com/openclaw/voiced/internal/types"
	"github.com/openclaw/voiced/internal/util"
)

// readBufferSize is ~100ms of S16LE mono audio at types.SampleRate.
const readBufferSize = types.SampleRate * types.Channels * types.BytesPerSample / 10

// ErrCaptureFailed is returned when the capture process could not be started.
var ErrCaptureFailed = errors.New("audio capture failed to start")

// Capture owns at most one live audio capture session. It spawns a platform
// capture process, reads raw PCM from its stdout, meters every frame, and
// accumulates the audio until Stop.
type Capture struct {
	ffmpegPath string

	mu         sync.Mutex
	cmd        *exec.Cmd
	cancel     context.CancelFunc
	readerDone chan struct{}
	pcm        bytes.Buffer
	levels     audio.Levels
	active     bool
	stopping   bool
	startedAt  time.Time
}

// New creates a Capture. ffmpegPath overrides the FFmpeg binary on platforms
// that capture through FFmpeg; empty means use PATH.
func New(ffmpegPath string) *Capture {
	return &Capture{ffmpegPath: ffmpegPath}
}

// Start acquires the audio input and begins recording. Starting while a
// session is already active is a no-op. A device-access failure is returned
// once; the caller decides whether to surface or retry.
func (c *Capture) Start(device string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return nil
	}

	cmdName, args, err := BuildCaptureCommand(device, c.ffmpegPath)
	if err != nil {
		return err
	}

	slog.Info("starting audio capture", "command", cmdName, "device", device)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, cmdName, args...)
	cmd.Cancel = func() error {
		return util.GracefulSignal(cmd.Process)
	}
	cmd.WaitDelay = types.ShutdownTimeout

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return util.WrapError("open capture pipe", err)
	}

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	c.cmd = cmd
	c.cancel = cancel
	c.readerDone = make(chan struct{})
	c.pcm.Reset()
	c.levels = audio.Levels{}
	c.active = true
	c.stopping = false
	c.startedAt = time.Now()

	go c.runReader(cmd, stdout, &stderrBuf, c.readerDone)

	return nil
}

// runReader drains capture stdout, metering and accumulating each frame.
func (c *Capture) runReader(cmd *exec.Cmd, stdout io.Reader, stderr *bytes.Buffer, done chan struct{}) {
	defer close(done)

	buf := make([]byte, readBufferSize)
	var data audio.LevelData

	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			data.Reset()
			audio.ProcessSamples(buf, n, &data)
			levels := audio.CalculateLevels(&data)

			c.mu.Lock()
			c.levels = levels
			c.pcm.Write(buf[:n])
			c.mu.Unlock()
		}
		if err != nil {
			break
		}
	}

	err := cmd.Wait()

	c.mu.Lock()
	unexpected := c.active && !c.stopping
	c.active = false
	c.levels = audio.Levels{}
	c.mu.Unlock()

	// A user-initiated Stop signals the process, so its exit status is not
	// worth a warning. Only an exit nobody asked for gets logged.
	if err != nil && unexpected {
		msg := util.ExtractLastError(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		slog.Warn("capture process exited", "error", msg)
	}
}

// Active reports whether a capture session is currently running.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Level returns the current normalized level in [0,1], or 0 when no session
// is active.
func (c *Capture) Level() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return 0
	}
	return c.levels.RMS
}

// Levels returns the most recent frame measurement.
func (c *Capture) Levels() audio.Levels {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.levels
}

// Duration returns how long the current or finished session has been
// recording.
func (c *Capture) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startedAt.IsZero() {
		return 0
	}
	return time.Since(c.startedAt)
}

// Stop finalizes the session and returns the accumulated PCM. Safe to call
// when the process already stopped itself: whatever was accumulated is
// returned. Idempotent; a second call returns the same buffer.
func (c *Capture) Stop() ([]byte, error) {
	c.mu.Lock()
	cancel := c.cancel
	done := c.readerDone
	active := c.active
	c.cancel = nil
	if active {
		c.stopping = true
	}
	c.mu.Unlock()

	if active && cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
		case <-time.After(types.ShutdownTimeout + time.Second):
			slog.Warn("capture reader did not drain in time")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cmd = nil
	c.readerDone = nil
	c.active = false

	out := make([]byte, c.pcm.Len())
	copy(out, c.pcm.Bytes())
	return out, nil
}
