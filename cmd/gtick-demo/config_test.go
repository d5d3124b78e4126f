package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/godyy/glog"
	"github.com/godyy/gtick"
	"github.com/godyy/gtick/tick"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
name: demo
tick_period: 2ms
log_level: debug
metrics_addr: ":0"
duration: 1s
timers:
  - name: heartbeat
    period: 10ms
  - name: once
    period: 4ms
    repeat: false
    parameter: hello
`

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig([]byte(testConfig))
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Name)
	assert.Equal(t, 2*time.Millisecond, cfg.TickPeriod)
	assert.Equal(t, time.Second, cfg.Duration)
	require.Len(t, cfg.Timers, 2)
	assert.Equal(t, 10*time.Millisecond, cfg.Timers[0].Period)
	assert.True(t, cfg.Timers[0].repeat())
	assert.False(t, cfg.Timers[1].repeat())
	assert.Equal(t, "hello", cfg.Timers[1].Parameter)

	level, err := parseLevel(cfg.LogLevel)
	require.NoError(t, err)
	assert.Equal(t, glog.DebugLevel, level)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gtick-demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Name)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseConfigInvalid(t *testing.T) {
	cases := map[string]string{
		"no timers":       "name: x\n",
		"negative tick":   "tick_period: -1ms\ntimers: [{name: a, period: 1ms}]\n",
		"unnamed timer":   "timers: [{period: 1ms}]\n",
		"duplicate timer": "timers: [{name: a, period: 1ms}, {name: a, period: 2ms}]\n",
		"negative period": "timers: [{name: a, period: -1ms}]\n",
		"bad level":       "log_level: loud\ntimers: [{name: a, period: 1ms}]\n",
		"bad yaml":        "timers: [\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseConfig([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestRegisterTimers(t *testing.T) {
	cfg, err := parseConfig([]byte(testConfig))
	require.NoError(t, err)

	src := tick.NewManual()
	mux, err := gtick.New(&gtick.Config{TickPeriod: cfg.TickPeriod, Source: src})
	require.NoError(t, err)
	require.NoError(t, mux.Start())
	defer mux.Kill()

	logger := glog.NewLogger(&glog.Config{
		Level: glog.WarnLevel,
		Cores: []glog.CoreConfig{glog.NewStdCoreConfig()},
	})
	require.NoError(t, registerTimers(mux, cfg.Timers, logger))
	assert.Equal(t, 2, mux.Len())
	assert.True(t, mux.Contains(&cfg.Timers[0], "heartbeat"))

	src.Advance(2)
	assert.False(t, mux.Contains(&cfg.Timers[1], "once"))
	assert.Equal(t, 1, mux.Len())
}
