package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/godyy/glog"
	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TimerConfig 逻辑定时器配置.
type TimerConfig struct {
	Name      string        `yaml:"name"`
	Period    time.Duration `yaml:"period"`
	Repeat    *bool         `yaml:"repeat"`
	Parameter string        `yaml:"parameter"`
}

func (c *TimerConfig) repeat() bool {
	return c.Repeat == nil || *c.Repeat
}

// Config 演示程序配置.
type Config struct {
	Name        string        `yaml:"name"`
	TickPeriod  time.Duration `yaml:"tick_period"`
	LogLevel    string        `yaml:"log_level"`
	MetricsAddr string        `yaml:"metrics_addr"`
	Duration    time.Duration `yaml:"duration"`
	Timers      []TimerConfig `yaml:"timers"`
}

func (c *Config) init() error {
	if c == nil {
		return errors.New("Config nil")
	}

	if c.TickPeriod < 0 {
		return errors.New("Config.TickPeriod must >= 0")
	}

	if c.Duration < 0 {
		return errors.New("Config.Duration must >= 0")
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	if len(c.Timers) == 0 {
		return errors.New("Config.Timers not specified")
	}

	names := make(map[string]struct{}, len(c.Timers))
	for i := range c.Timers {
		t := &c.Timers[i]
		if t.Name == "" {
			return fmt.Errorf("Config.Timers[%d].Name not specified", i)
		}
		if _, ok := names[t.Name]; ok {
			return fmt.Errorf("Config.Timers[%d].Name %q duplicated", i, t.Name)
		}
		names[t.Name] = struct{}{}
		if t.Period < 0 {
			return fmt.Errorf("Config.Timers[%d].Period must >= 0", i)
		}
	}

	return nil
}

// loadConfig 从 path 读取 YAML 配置.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "read config")
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, pkgerrors.WithMessage(err, "decode config")
	}
	if err := cfg.init(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseLevel(s string) (glog.Level, error) {
	switch s {
	case "debug":
		return glog.DebugLevel, nil
	case "", "info":
		return glog.InfoLevel, nil
	case "warn":
		return glog.WarnLevel, nil
	case "error":
		return glog.ErrorLevel, nil
	default:
		return glog.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
