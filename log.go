package gtick

import (
	"fmt"
	"time"

	"github.com/godyy/glog"
	"go.uber.org/zap"
)

// createStdLogger 创建面向标准输出的 logger.
func createStdLogger(level glog.Level) glog.Logger {
	return glog.NewLogger(&glog.Config{
		Level:        level,
		EnableCaller: true,
		CallerSkip:   0,
		Development:  false,
		Cores:        []glog.CoreConfig{glog.NewStdCoreConfig()},
	})
}

func lfdName(name string) zap.Field {
	return zap.String("name", name)
}

func lfdTarget(target Target) zap.Field {
	return zap.String("target", fmt.Sprintf("%v", target))
}

func lfdAction(action Action) zap.Field {
	return zap.String("action", string(action))
}

func lfdEntryId(id EntryId) zap.Field {
	return zap.Uint64("entryId", id)
}

func lfdPeriod(period time.Duration) zap.Field {
	return zap.Duration("period", period)
}

func lfdTickPeriod(period time.Duration) zap.Field {
	return zap.Duration("tickPeriod", period)
}

func lfdRepeat(repeat bool) zap.Field {
	return zap.Bool("repeat", repeat)
}

func lfdRemoved(n int) zap.Field {
	return zap.Int("removed", n)
}

func lfdPanic(r any) zap.Field {
	if err, ok := r.(error); ok {
		return zap.NamedError("panic", err)
	}
	return zap.Any("panic", r)
}

func lfdError(err error) zap.Field {
	return zap.NamedError("error", err)
}
