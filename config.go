package gtick

import (
	"errors"
	"time"

	"github.com/godyy/gtick/tick"
)

// DefaultTickPeriod 默认基础 tick 周期.
const DefaultTickPeriod = time.Millisecond

// DefaultName 默认名称.
const DefaultName = "default"

// Config Multiplexer 配置.
type Config struct {
	// Name 名称, 用于日志和指标标签. 默认 DefaultName.
	Name string

	// TickPeriod 基础 tick 周期, 逻辑定时器的精度不高于该值. 默认 DefaultTickPeriod.
	TickPeriod time.Duration

	// Source 基础 tick 源. 默认使用 tick.NewTicker().
	Source tick.Source
}

func (c *Config) init() error {
	if c == nil {
		return errors.New("Config nil")
	}

	if c.Name == "" {
		c.Name = DefaultName
	}

	if c.TickPeriod < 0 {
		return errors.New("Config.TickPeriod must >= 0")
	}

	if c.TickPeriod == 0 {
		c.TickPeriod = DefaultTickPeriod
	}

	if c.Source == nil {
		c.Source = tick.NewTicker()
	}

	return nil
}
