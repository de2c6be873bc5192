package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/voiced/internal/config"
	"github.com/openclaw/voiced/internal/engine"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.New(filepath.Join(t.TempDir(), "voiced.json"))
	require.NoError(t, cfg.Load())
	srv := NewServer(cfg, engine.New(cfg, nil), nil)
	t.Cleanup(srv.version.Stop)
	return srv
}

func TestBroadcastAfterClientDisconnect(t *testing.T) {
	srv := testServer(t)

	send := make(chan any, sendBufferSize)
	done := make(chan struct{})
	statusUpdate := make(chan struct{}, 1)

	srv.addClient(send)
	close(done)
	srv.runWebSocketEventLoop(send, done, statusUpdate)
	srv.removeClient(send)

	// Engine goroutines keep pushing after the client is gone.
	require.NotPanics(t, func() {
		srv.Broadcast("voice_transcript", map[string]string{"text": "hello"})
	})

	// Late async command results land on the per-client channel directly.
	require.NotPanics(t, func() {
		for range sendBufferSize + 1 {
			select {
			case send <- "late result":
			default:
			}
		}
	})
}

func TestBroadcastDoesNotBlockOnStalledClient(t *testing.T) {
	srv := testServer(t)

	stalled := make(chan any) // unbuffered, nobody reading
	srv.addClient(stalled)
	defer srv.removeClient(stalled)

	finished := make(chan struct{})
	go func() {
		srv.Broadcast("levels", nil)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a stalled client")
	}
}

func TestBroadcastReachesRegisteredClients(t *testing.T) {
	srv := testServer(t)

	a := make(chan any, 1)
	b := make(chan any, 1)
	srv.addClient(a)
	srv.addClient(b)
	defer srv.removeClient(a)
	defer srv.removeClient(b)

	srv.Broadcast("voice_send", map[string]string{"text": "hi"})

	for _, ch := range []chan any{a, b} {
		select {
		case msg := <-ch:
			m, ok := msg.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "voice_send", m["type"])
		default:
			t.Fatal("broadcast did not reach a registered client")
		}
	}
}
