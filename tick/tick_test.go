package tick

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerStartStop(t *testing.T) {
	ticker := NewTicker()

	var n int64
	require.NoError(t, ticker.Start(time.Millisecond, func() { atomic.AddInt64(&n, 1) }))
	assert.Equal(t, time.Millisecond, ticker.Period())
	assert.ErrorIs(t, ticker.Start(time.Millisecond, func() {}), ErrStarted)

	require.Eventually(t, func() bool { return atomic.LoadInt64(&n) >= 5 }, time.Second, time.Millisecond)

	ticker.Stop()
	ticker.Stop()
	assert.Equal(t, time.Duration(0), ticker.Period())

	// 停止后等待在途 tick 结束, 之后计数不再增长.
	time.Sleep(10 * time.Millisecond)
	stopped := atomic.LoadInt64(&n)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt64(&n))
}

func TestTickerRestart(t *testing.T) {
	ticker := NewTicker()
	defer ticker.Stop()

	var first, second int64
	require.NoError(t, ticker.Start(time.Millisecond, func() { atomic.AddInt64(&first, 1) }))
	ticker.Stop()
	require.NoError(t, ticker.Start(time.Millisecond, func() { atomic.AddInt64(&second, 1) }))

	require.Eventually(t, func() bool { return atomic.LoadInt64(&second) >= 3 }, time.Second, time.Millisecond)
}

func TestTickerHandlerNotConcurrent(t *testing.T) {
	ticker := NewTicker()
	defer ticker.Stop()

	var inFlight, overlapped, calls int64
	require.NoError(t, ticker.Start(time.Millisecond, func() {
		if atomic.AddInt64(&inFlight, 1) > 1 {
			atomic.StoreInt64(&overlapped, 1)
		}
		time.Sleep(3 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		atomic.AddInt64(&calls, 1)
	}))

	require.Eventually(t, func() bool { return atomic.LoadInt64(&calls) >= 5 }, time.Second, time.Millisecond)
	assert.Zero(t, atomic.LoadInt64(&overlapped))
}

func TestStartArguments(t *testing.T) {
	for name, src := range map[string]Source{"ticker": NewTicker(), "manual": NewManual()} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, src.Start(0, func() {}), ErrInvalidPeriod)
			assert.ErrorIs(t, src.Start(-time.Second, func() {}), ErrInvalidPeriod)
			assert.ErrorIs(t, src.Start(time.Millisecond, nil), ErrNilHandler)
		})
	}
}

func TestManual(t *testing.T) {
	m := NewManual()
	assert.Zero(t, m.Advance(3), "not started")

	n := 0
	require.NoError(t, m.Start(time.Millisecond, func() { n++ }))
	assert.True(t, m.Started())
	assert.ErrorIs(t, m.Start(time.Millisecond, func() {}), ErrStarted)

	assert.Equal(t, 4, m.Advance(4))
	assert.Equal(t, 4, n)

	m.Stop()
	assert.False(t, m.Started())
	assert.Zero(t, m.Advance(2))
	assert.Equal(t, 4, n)

	require.NoError(t, m.Start(2*time.Millisecond, func() { n += 10 }))
	assert.Equal(t, 2, m.Starts())
	assert.Equal(t, 2*time.Millisecond, m.Period())
	m.Advance(1)
	assert.Equal(t, 14, n)
}

func TestManualStopDuringAdvance(t *testing.T) {
	m := NewManual()
	n := 0
	require.NoError(t, m.Start(time.Millisecond, func() {
		n++
		if n == 2 {
			m.Stop()
		}
	}))
	assert.Equal(t, 2, m.Advance(10))
	assert.Equal(t, 2, n)
}

func TestTickerStopFromHandler(t *testing.T) {
	ticker := NewTicker()

	var calls int64
	done := make(chan struct{})
	require.NoError(t, ticker.Start(time.Millisecond, func() {
		if atomic.AddInt64(&calls, 1) == 1 {
			ticker.Stop()
			close(done)
		}
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked inside handler")
	}

	time.Sleep(10 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
	assert.Equal(t, time.Duration(0), ticker.Period())
	require.NoError(t, ticker.Start(time.Millisecond, func() {}))
	ticker.Stop()
}
