package gtick

import (
	"github.com/godyy/glog"
	"github.com/prometheus/client_golang/prometheus"
)

// optionSet 选项集合.
type optionSet struct {
	logger     glog.Logger           // 日志工具.
	registerer prometheus.Registerer // 指标注册器.
}

// Option 选项.
type Option func(*optionSet)

// WithLogger 日志工具选项.
func WithLogger(logger glog.Logger) Option {
	return func(opts *optionSet) {
		opts.logger = logger
	}
}

// WithMetrics 指标选项. 指标注册到 registerer, 为空时不采集指标.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(opts *optionSet) {
		opts.registerer = registerer
	}
}
