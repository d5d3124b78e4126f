package tick

import (
	"sync"
	"time"
)

// Manual 手动驱动的 tick 源, 用于测试和仿真.
// Advance 在调用方 goroutine 中同步调用 handler.
type Manual struct {
	mtx     sync.Mutex
	handler Handler
	period  time.Duration
	starts  int
}

// NewManual 构造 Manual.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Start(period time.Duration, handler Handler) error {
	if err := checkStart(period, handler); err != nil {
		return err
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.handler != nil {
		return ErrStarted
	}

	m.handler = handler
	m.period = period
	m.starts++
	return nil
}

func (m *Manual) Stop() {
	m.mtx.Lock()
	m.handler = nil
	m.mtx.Unlock()
}

// Started 是否已启动.
func (m *Manual) Started() bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.handler != nil
}

// Starts 累计启动次数.
func (m *Manual) Starts() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.starts
}

// Period 最近一次启动的周期.
func (m *Manual) Period() time.Duration {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.period
}

// Advance 产生 n 次 tick. 未启动时不产生任何 tick, 返回实际 tick 次数.
// 若 handler 在 tick 过程中停止了 Manual, 剩余 tick 被丢弃.
func (m *Manual) Advance(n int) int {
	fired := 0
	for i := 0; i < n; i++ {
		m.mtx.Lock()
		h := m.handler
		m.mtx.Unlock()
		if h == nil {
			break
		}
		h()
		fired++
	}
	return fired
}
