// Package playback serializes audio buffers for strictly sequential
// playback. Buffers play in enqueue order through an injected Player; a
// failing buffer is logged and skipped, never aborting the queue.
package playback

import (
	"context"
	"log/slog"
	"sync"
)

// Player decodes and plays one audio buffer to completion. Play must honor
// context cancellation for forced stops.
type Player interface {
	Play(ctx context.Context, buf []byte) error
}

// Queue is a FIFO playback queue with at most one buffer playing at a time.
// The drain loop starts lazily on the first Enqueue, exits when the queue
// empties, and restarts on a later Enqueue. Queues are explicitly
// constructed and independent; there is no shared package state.
type Queue struct {
	player Player

	// OnError, when set before the first Enqueue, receives each per-buffer
	// playback failure after the buffer is skipped.
	OnError func(err error)

	mu       sync.Mutex
	pending  [][]byte
	draining bool
	playing  bool
	cancel   context.CancelFunc
}

// NewQueue creates an idle queue draining through the given player.
func NewQueue(player Player) *Queue {
	return &Queue{player: player}
}

// Enqueue appends a buffer to the tail of the queue and starts the drain
// loop if none is running.
func (q *Queue) Enqueue(buf []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, buf)
	if !q.draining {
		q.draining = true
		go q.drain()
	}
}

// drain plays queued buffers head-first until the queue empties.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		buf := q.pending[0]
		q.pending = q.pending[1:]

		ctx, cancel := context.WithCancel(context.Background())
		q.cancel = cancel
		q.playing = true
		q.mu.Unlock()

		err := q.player.Play(ctx, buf)

		q.mu.Lock()
		q.playing = false
		q.cancel = nil
		q.mu.Unlock()
		cancel()

		if err != nil && ctx.Err() == nil {
			// One bad buffer must not starve the rest of the queue.
			slog.Warn("playback failed, skipping buffer", "bytes", len(buf), "error", err)
			if q.OnError != nil {
				q.OnError(err)
			}
		}
	}
}

// Stop clears all pending buffers and halts any in-progress playback. Errors
// from playback that already ended naturally are ignored. Idempotent.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.pending = nil
	cancel := q.cancel
	q.playing = false
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// IsPlaying reports whether a buffer is currently being played.
func (q *Queue) IsPlaying() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.playing
}

// Depth returns the number of buffers waiting to be played.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
