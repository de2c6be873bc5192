package playback

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/openclaw/voiced/internal/types"
	"github.com/openclaw/voiced/internal/util"
)

// DefaultPlayerCommand is used when no player binary is configured.
const DefaultPlayerCommand = "ffplay"

// ProcessPlayer plays audio buffers through an external player process.
// Players that read stdin get the buffer piped; the rest (afplay and other
// file-only players) get it through a temporary file.
type ProcessPlayer struct {
	command string
}

// NewProcessPlayer creates a player using the given binary, or ffplay from
// PATH when empty.
func NewProcessPlayer(command string) *ProcessPlayer {
	if command == "" {
		command = DefaultPlayerCommand
	}
	return &ProcessPlayer{command: command}
}

// playerArgs returns the playback arguments for a player binary and whether
// it reads audio from stdin.
func playerArgs(base string) (args []string, viaStdin bool) {
	switch base {
	case "ffplay":
		return []string{
			"-autoexit",
			"-nodisp",
			"-hide_banner",
			"-loglevel", "error",
			"-i", "pipe:0",
		}, true
	case "paplay":
		return nil, true
	case "aplay":
		return []string{"-q"}, true
	case "mpv":
		return []string{"--really-quiet", "--no-video", "-"}, true
	default:
		// afplay and unknown players take a file path argument.
		return nil, false
	}
}

// Play decodes and plays one buffer to completion, or until ctx is
// cancelled.
func (p *ProcessPlayer) Play(ctx context.Context, buf []byte) error {
	base := strings.TrimSuffix(filepath.Base(p.command), ".exe")
	args, viaStdin := playerArgs(base)

	if !viaStdin {
		tmp, err := os.CreateTemp("", "voiced-play-*.wav")
		if err != nil {
			return util.WrapError("create playback temp file", err)
		}
		tmpPath := tmp.Name()
		defer os.Remove(tmpPath)

		if _, err := tmp.Write(buf); err != nil {
			_ = tmp.Close()
			return util.WrapError("write playback temp file", err)
		}
		if err := tmp.Close(); err != nil {
			return util.WrapError("close playback temp file", err)
		}
		args = append(args, tmpPath)
	}

	cmd := exec.CommandContext(ctx, p.command, args...)
	cmd.Cancel = func() error {
		return util.GracefulSignal(cmd.Process)
	}
	cmd.WaitDelay = types.ShutdownTimeout
	if viaStdin {
		cmd.Stdin = bytes.NewReader(buf)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := util.ExtractLastError(stderr.String()); msg != "" {
			return util.WrapError("play audio: "+msg, err)
		}
		return util.WrapError("play audio", err)
	}
	return nil
}
