package gtick

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	pkgerrors "github.com/pkg/errors"
)

const metricsNamespace = "gtick"

// metrics Multiplexer 指标. nil 时所有方法为空操作.
type metrics struct {
	ticks        prometheus.Counter
	fires        *prometheus.CounterVec
	panics       prometheus.Counter
	entries      prometheus.Gauge
	tickDuration prometheus.Histogram
}

func newMetrics(registerer prometheus.Registerer, name string) (*metrics, error) {
	if registerer == nil {
		return nil, nil
	}

	labels := prometheus.Labels{"multiplexer": name}
	m := &metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "ticks_total",
			Help:        "Number of base ticks processed.",
			ConstLabels: labels,
		}),
		fires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "fires_total",
			Help:        "Number of logical timer callbacks fired.",
			ConstLabels: labels,
		}, []string{"repeat"}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "callback_panics_total",
			Help:        "Number of recovered callback panics.",
			ConstLabels: labels,
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "entries",
			Help:        "Number of registered logical timers.",
			ConstLabels: labels,
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   metricsNamespace,
			Name:        "tick_duration_seconds",
			Help:        "Time spent processing one base tick, callbacks included.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}

	collectors := []prometheus.Collector{m.ticks, m.fires, m.panics, m.entries, m.tickDuration}
	for i, c := range collectors {
		if err := registerer.Register(c); err != nil {
			// 回滚已注册的指标.
			for _, registered := range collectors[:i] {
				registerer.Unregister(registered)
			}
			return nil, pkgerrors.WithMessage(err, "register metrics")
		}
	}

	return m, nil
}

func (m *metrics) tick(d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
}

func (m *metrics) fire(repeat bool) {
	if m == nil {
		return
	}
	m.fires.WithLabelValues(strconv.FormatBool(repeat)).Inc()
}

func (m *metrics) recovered() {
	if m == nil {
		return
	}
	m.panics.Inc()
}

func (m *metrics) setEntries(n int) {
	if m == nil {
		return
	}
	m.entries.Set(float64(n))
}
