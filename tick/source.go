package tick

import (
	"errors"
	"time"
)

// Handler 基础 tick 回调. 同一次 Start 产生的 tick 不会并发调用 Handler.
// Stop 不等待在途的 Handler 返回, 因此 Handler 中可以调用 Stop; Stop 后立即
// 重新 Start 时, 上一次的在途 Handler 可能与新的 Handler 并发执行.
type Handler func()

// Source 基础 tick 源.
type Source interface {
	// Start 以 period 为周期开始产生 tick, 每次 tick 调用一次 handler.
	Start(period time.Duration, handler Handler) error

	// Stop 停止产生 tick, 不等待在途的 handler 返回. 未启动时调用无副作用.
	Stop()
}

// ErrStarted tick 源已启动.
var ErrStarted = errors.New("tick source started")

// ErrInvalidPeriod tick 周期非法.
var ErrInvalidPeriod = errors.New("tick period must > 0")

// ErrNilHandler handler 为空.
var ErrNilHandler = errors.New("tick handler nil")

func checkStart(period time.Duration, handler Handler) error {
	if period <= 0 {
		return ErrInvalidPeriod
	}
	if handler == nil {
		return ErrNilHandler
	}
	return nil
}
