// Package main provides a local voice companion daemon: it captures and
// transcribes microphone audio, watches for speech-to-text keystroke bursts
// to auto-send messages, and plays back synthesized audio, all controlled by
// a desktop UI over a local WebSocket.
//
// Usage:
//
//	voiced [-config path/to/config.json]
//
// If -config is not specified, the daemon looks for voiced.json in the
// user's config directory.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/openclaw/voiced/internal/config"
	"github.com/openclaw/voiced/internal/engine"
	"github.com/openclaw/voiced/internal/eventlog"
	"github.com/openclaw/voiced/internal/util"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: voiced.json in the user config dir)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *configPath == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			slog.Error("failed to resolve config directory", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(configDir, "openclaw", "voiced.json")
	}

	slog.Info("using config file", "path", *configPath)

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var events *eventlog.Logger
	if logPath := cfg.Snapshot().LogPath; logPath != "" {
		var err error
		events, err = eventlog.NewLogger(logPath)
		if err != nil {
			slog.Warn("event log disabled", "error", err)
		}
	}

	eng := engine.New(cfg, events)
	srv := NewServer(cfg, eng, events)
	eng.SetBroadcast(srv.Broadcast)

	if err := eng.Start(); err != nil {
		slog.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	httpServer := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)
	<-sigChan

	slog.Info("shutting down")

	srv.version.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	eng.Stop()

	if err := events.Close(); err != nil {
		slog.Warn("failed to close event log", "error", err)
	}

	slog.Info("shutdown complete")
}
