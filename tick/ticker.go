package tick

import (
	"sync"
	"time"
)

// Ticker 基于 time.Ticker 的实时 tick 源.
// 所有 tick 在同一个 goroutine 中顺序处理, Stop 后可再次 Start.
type Ticker struct {
	mtx      sync.Mutex    // 互斥锁.
	ticker   *time.Ticker  // 系统 ticker.
	cStopped chan struct{} // 已停止信号.
	period   time.Duration // 周期.
}

// NewTicker 构造 Ticker.
func NewTicker() *Ticker {
	return &Ticker{}
}

// Start 启动 Ticker.
func (t *Ticker) Start(period time.Duration, handler Handler) error {
	if err := checkStart(period, handler); err != nil {
		return err
	}

	t.mtx.Lock()
	defer t.mtx.Unlock()

	if t.ticker != nil {
		return ErrStarted
	}

	t.ticker = time.NewTicker(period)
	t.cStopped = make(chan struct{})
	t.period = period

	go t.loop(t.ticker, t.cStopped, handler)

	return nil
}

// Stop 停止 Ticker. 不等待在途的 handler, 可在 handler 中调用.
func (t *Ticker) Stop() {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if t.ticker == nil {
		return
	}

	t.ticker.Stop()
	close(t.cStopped)
	t.ticker = nil
	t.cStopped = nil
}

// Period 返回当前周期, 未启动时为 0.
func (t *Ticker) Period() time.Duration {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.ticker == nil {
		return 0
	}
	return t.period
}

// loop 主循环逻辑.
func (t *Ticker) loop(ticker *time.Ticker, cStopped chan struct{}, handler Handler) {
	for {
		select {
		case <-ticker.C:
			// Stop 与 tick 同时就绪时, 优先退出.
			select {
			case <-cStopped:
				return
			default:
			}
			handler()
		case <-cStopped:
			return
		}
	}
}
