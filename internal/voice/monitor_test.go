package voice

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig keeps timer tests quick while preserving the shape of the
// production parameters.
var fastConfig = BurstConfig{
	Threshold: 10 * time.Millisecond,
	MinChars:  3,
	Settle:    50 * time.Millisecond,
}

// inject simulates an insertion burst: prefixes of text delivered
// back-to-back, well inside the fast threshold.
func inject(m *BurstMonitor, text string) {
	for i := range text {
		m.Input(text[:i+1])
	}
}

func TestBurstMonitorFiresAfterSettle(t *testing.T) {
	var started, done atomic.Int32
	var got atomic.Value

	m := NewBurstMonitor(fastConfig,
		func() { started.Add(1) },
		func(text string) {
			got.Store(text)
			done.Add(1)
		},
	)

	inject(m, "hey there")

	require.Eventually(t, func() bool { return done.Load() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), started.Load())
	assert.Equal(t, "hey there", got.Load())

	// No stray second fire.
	time.Sleep(3 * fastConfig.Settle)
	assert.Equal(t, int32(1), done.Load())
}

func TestBurstMonitorResetCancelsPendingFire(t *testing.T) {
	var done atomic.Int32

	m := NewBurstMonitor(fastConfig, nil, func(string) { done.Add(1) })

	inject(m, "hey there")
	m.Reset()

	time.Sleep(3 * fastConfig.Settle)
	assert.Equal(t, int32(0), done.Load(), "reset must cancel the settle timer")
}

func TestBurstMonitorResetIdempotent(t *testing.T) {
	m := NewBurstMonitor(fastConfig, nil, nil)
	m.Reset()
	m.Reset()
	inject(m, "abc")
	m.Reset()
	m.Reset()
}

func TestAutoSendLifecycle(t *testing.T) {
	var sent atomic.Value
	var cleared atomic.Int32

	a := NewAutoSend()
	assert.False(t, a.Enabled())

	// Input while disabled is silently dropped.
	a.HandleInput("ignored")

	a.Enable(fastConfig, AutoSendHooks{
		Send:  func(text string) { sent.Store(text) },
		Clear: func() { cleared.Add(1) },
	})
	require.True(t, a.Enabled())

	text := "ship it"
	for i := range text {
		a.HandleInput(text[:i+1])
	}

	require.Eventually(t, func() bool { return cleared.Load() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, "ship it", sent.Load())

	a.Disable()
	assert.False(t, a.Enabled())
	a.Disable() // idempotent
}

func TestAutoSendDisableDropsPendingBurst(t *testing.T) {
	var sent atomic.Int32

	a := NewAutoSend()
	a.Enable(fastConfig, AutoSendHooks{
		Send: func(string) { sent.Add(1) },
	})

	text := "almost"
	for i := range text {
		a.HandleInput(text[:i+1])
	}
	a.Disable()

	time.Sleep(3 * fastConfig.Settle)
	assert.Equal(t, int32(0), sent.Load(), "disable must drop the pending burst")
}
