package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlayer records the buffers it plays, optionally failing or blocking on
// selected buffers.
type fakePlayer struct {
	mu      sync.Mutex
	played  [][]byte
	failOn  map[string]error
	blockOn map[string]chan struct{} // Play waits for ctx or channel close
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{
		failOn:  make(map[string]error),
		blockOn: make(map[string]chan struct{}),
	}
}

func (p *fakePlayer) Play(ctx context.Context, buf []byte) error {
	p.mu.Lock()
	block := p.blockOn[string(buf)]
	failErr := p.failOn[string(buf)]
	p.mu.Unlock()

	if block != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-block:
		}
	}

	if failErr != nil {
		return failErr
	}

	p.mu.Lock()
	p.played = append(p.played, buf)
	p.mu.Unlock()
	return nil
}

func (p *fakePlayer) playedStrings() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.played))
	for i, b := range p.played {
		out[i] = string(b)
	}
	return out
}

func TestQueuePlaysInOrder(t *testing.T) {
	player := newFakePlayer()
	q := NewQueue(player)

	q.Enqueue([]byte("a"))
	q.Enqueue([]byte("b"))
	q.Enqueue([]byte("c"))

	require.Eventually(t, func() bool { return len(player.playedStrings()) == 3 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, player.playedStrings())
	assert.False(t, q.IsPlaying())
	assert.Zero(t, q.Depth())
}

func TestQueueSkipsFailedBuffer(t *testing.T) {
	player := newFakePlayer()
	player.failOn["b"] = errors.New("decoder blew up")
	q := NewQueue(player)

	q.Enqueue([]byte("a"))
	q.Enqueue([]byte("b"))
	q.Enqueue([]byte("c"))

	require.Eventually(t, func() bool { return len(player.playedStrings()) == 2 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "c"}, player.playedStrings(),
		"a failing buffer must not block the ones behind it")
}

func TestQueueReportsFailuresThroughOnError(t *testing.T) {
	player := newFakePlayer()
	player.failOn["b"] = errors.New("decoder blew up")
	q := NewQueue(player)

	var mu sync.Mutex
	var reported []string
	q.OnError = func(err error) {
		mu.Lock()
		reported = append(reported, err.Error())
		mu.Unlock()
	}

	q.Enqueue([]byte("a"))
	q.Enqueue([]byte("b"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reported) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"decoder blew up"}, reported)
	mu.Unlock()
	assert.Equal(t, []string{"a"}, player.playedStrings())
}

func TestQueueStopInterruptsAndClears(t *testing.T) {
	player := newFakePlayer()
	player.blockOn["a"] = make(chan struct{}) // never closed; only ctx releases it
	q := NewQueue(player)

	q.Enqueue([]byte("a"))
	q.Enqueue([]byte("b"))

	require.Eventually(t, func() bool { return q.IsPlaying() },
		time.Second, time.Millisecond)
	assert.Equal(t, 1, q.Depth())

	q.Stop()

	require.Eventually(t, func() bool { return !q.IsPlaying() },
		time.Second, time.Millisecond)
	assert.Zero(t, q.Depth())

	// Nothing completed, and the pending buffer never plays.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, player.playedStrings())
}

func TestQueueRestartsAfterDrain(t *testing.T) {
	player := newFakePlayer()
	q := NewQueue(player)

	q.Enqueue([]byte("a"))
	require.Eventually(t, func() bool { return len(player.playedStrings()) == 1 },
		time.Second, time.Millisecond)

	// A later enqueue restarts the drain loop.
	q.Enqueue([]byte("b"))
	require.Eventually(t, func() bool { return len(player.playedStrings()) == 2 },
		time.Second, time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, player.playedStrings())
}

func TestQueueStopIdempotent(t *testing.T) {
	q := NewQueue(newFakePlayer())
	q.Stop()
	q.Stop()
	assert.False(t, q.IsPlaying())
}

func TestQueueResumesAfterStop(t *testing.T) {
	player := newFakePlayer()
	q := NewQueue(player)

	q.Stop()
	q.Enqueue([]byte("a"))

	require.Eventually(t, func() bool { return len(player.playedStrings()) == 1 },
		time.Second, time.Millisecond)
}
