package main

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/openclaw/voiced/internal/config"
	"github.com/openclaw/voiced/internal/engine"
	"github.com/openclaw/voiced/internal/eventlog"
	"github.com/openclaw/voiced/internal/server"
	"github.com/openclaw/voiced/internal/types"
)

// sendBufferSize is the per-client buffered message queue. A stalled client
// drops messages rather than blocking the pipeline.
const sendBufferSize = 32

// Server exposes the daemon's control surface: a WebSocket for the desktop
// UI plus a small HTTP API.
type Server struct {
	config   *config.Config
	engine   *engine.Engine
	commands *server.CommandHandler
	version  *VersionChecker

	mu      sync.Mutex
	clients map[chan any]struct{}
}

// NewServer returns a new Server wired to the given engine.
func NewServer(cfg *config.Config, eng *engine.Engine, events *eventlog.Logger) *Server {
	return &Server{
		config:   cfg,
		engine:   eng,
		commands: server.NewCommandHandler(cfg, eng, events),
		version:  NewVersionChecker(),
		clients:  make(map[chan any]struct{}),
	}
}

// Broadcast pushes a message to every connected client. Messages to slow
// clients are dropped.
func (s *Server) Broadcast(msgType string, payload any) {
	msg := map[string]any{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for send := range s.clients {
		select {
		case send <- msg:
		default:
			slog.Debug("dropping broadcast for slow client", "type", msgType)
		}
	}
}

// addClient registers a client send channel for broadcasts.
func (s *Server) addClient(send chan any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[send] = struct{}{}
}

// removeClient unregisters a client send channel.
func (s *Server) removeClient(send chan any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, send)
}

// handleWebSocket handles bidirectional WebSocket communication with the UI.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	// Buffered send channel for thread-safe writes. Only the writer
	// goroutine touches the connection.
	send := make(chan any, sendBufferSize)
	done := make(chan struct{})
	statusUpdate := make(chan struct{}, 1)

	s.addClient(send)
	defer s.removeClient(send)

	go s.runWebSocketWriter(conn, send, done)
	go s.runWebSocketReader(conn, send, done, statusUpdate)

	s.runWebSocketEventLoop(send, done, statusUpdate)
}

// runWebSocketWriter writes messages from the send channel to the connection
// until the reader signals disconnect. The send channel is never closed, so
// late producers (broadcasts, async command results) can never panic on it;
// anything they send after disconnect is simply dropped.
func (s *Server) runWebSocketWriter(conn server.WebSocketConn, send <-chan any, done <-chan struct{}) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("WebSocket close error", "error", err)
		}
	}()
	for {
		select {
		case <-done:
			return
		case msg := <-send:
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

// runWebSocketReader reads commands from the connection and dispatches them.
func (s *Server) runWebSocketReader(conn server.WebSocketConn, send chan<- any, done, statusUpdate chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in WebSocket reader", "panic", r)
		}
		close(done)
	}()

	for {
		var cmd server.WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.commands.Handle(cmd, send, func() {
			select {
			case statusUpdate <- struct{}{}:
			default:
			}
		})
	}
}

// runWebSocketEventLoop handles periodic status and level updates.
func (s *Server) runWebSocketEventLoop(send chan any, done, statusUpdate <-chan struct{}) {
	levelsTicker := time.NewTicker(100 * time.Millisecond) // 10 fps for the mic meter
	statusTicker := time.NewTicker(3 * time.Second)
	defer levelsTicker.Stop()
	defer statusTicker.Stop()

	trySend := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	if !trySend(s.buildWSStatus()) {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-statusUpdate:
			if !trySend(s.buildWSStatus()) {
				return
			}
		case <-levelsTicker.C:
			if !trySend(types.WSLevelsResponse{Type: "levels", Levels: s.engine.Levels()}) {
				return
			}
		case <-statusTicker.C:
			if !trySend(s.buildWSStatus()) {
				return
			}
		}
	}
}

// buildWSStatus returns the current WebSocket status response.
func (s *Server) buildWSStatus() types.WSStatusResponse {
	cfg := s.config.Snapshot()

	return types.WSStatusResponse{
		Type:              "status",
		Voice:             s.engine.Status(),
		Devices:           s.engine.Devices(),
		AudioInput:        cfg.AudioInput,
		SilenceThreshold:  cfg.SilenceThreshold,
		SilenceDurationMs: cfg.SilenceDurationMs,
		BurstThresholdMs:  cfg.BurstThresholdMs,
		BurstMinChars:     cfg.BurstMinChars,
		BurstSettleMs:     cfg.BurstSettleMs,
		GatewayURL:        cfg.GatewayURL,
		Platform:          runtime.GOOS,
		Version:           s.version.Info(),
	}
}

// SetupRoutes returns an [http.Handler] configured with all routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Health check needs no auth so launchers can probe for the daemon
	mux.HandleFunc("/healthz", s.handleHealth)

	mux.HandleFunc("/ws", s.apiKeyAuth(s.handleWebSocket))
	mux.HandleFunc("/api/status", s.apiKeyAuth(s.handleAPIStatus))
	mux.HandleFunc("/api/voice/toggle", s.apiKeyAuth(s.handleAPIVoiceToggle))
	mux.HandleFunc("/api/playback/stop", s.apiKeyAuth(s.handleAPIPlaybackStop))

	return securityHeaders(mux)
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// apiKeyAuth returns middleware for API key authentication. The key may come
// from the X-API-Key header or, for WebSocket clients that cannot set
// headers, the key query parameter.
func (s *Server) apiKeyAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := s.config.APIKey()
		if apiKey == "" {
			http.Error(w, "API key not configured", http.StatusServiceUnavailable)
			return
		}

		providedKey := r.Header.Get("X-API-Key")
		if providedKey == "" {
			providedKey = r.URL.Query().Get("key")
		}
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// Start begins the HTTP server on the loopback interface.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf("127.0.0.1:%d", s.config.Snapshot().Port)
	slog.Info("starting control server", "addr", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.SetupRoutes(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}
