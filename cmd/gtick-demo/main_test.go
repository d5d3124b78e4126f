package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/godyy/glog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownServer(t *testing.T) {
	logger := glog.NewLogger(&glog.Config{
		Level: glog.WarnLevel,
		Cores: []glog.CoreConfig{glog.NewStdCoreConfig()},
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(entered)
			<-release
		}),
		ReadHeaderTimeout: time.Second,
	}
	go func() { _ = server.Serve(listener) }()

	go func() {
		resp, err := http.Get("http://" + listener.Addr().String())
		if err == nil {
			_ = resp.Body.Close()
		}
	}()
	<-entered

	// 有请求未完成时, 超时关闭返回错误.
	err = shutdownServer(server, 10*time.Millisecond, logger)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	assert.NoError(t, shutdownServer(server, time.Second, logger))
}
