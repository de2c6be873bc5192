//go:build windows

package util

import (
	"io"
	"os"
)

// ShutdownSignals returns the signals to listen for graceful shutdown.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// GracefulSignal attempts graceful process termination.
// On Windows SIGINT is not deliverable, so capture processes are stopped
// via stdin instead and this returns nil to keep shutdown sequences clean.
func GracefulSignal(p *os.Process) error {
	return nil
}

// StopCaptureViaStdin sends 'q' to an FFmpeg-based capture process for
// graceful shutdown. Preferred method on Windows.
func StopCaptureViaStdin(stdin io.WriteCloser) error {
	if stdin == nil {
		return nil
	}
	_, _ = stdin.Write([]byte("q"))
	return stdin.Close()
}
