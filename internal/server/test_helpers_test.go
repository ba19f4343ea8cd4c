package server

import (
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"draw-royale/internal/config"
	"draw-royale/internal/game"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.RateLimitPerSecond = 1000
	cfg.RateLimitBurst = 1000
	return cfg
}

func newTestService() *game.Service {
	return game.NewService(game.NewMemoryStore(), game.Options{
		AppURL: "http://draw.test",
		Logger: quietLogger(),
		Rand:   rand.New(rand.NewPCG(7, 11)),
	})
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

// startTestServer serves a fresh in-memory game.
func startTestServer(t *testing.T, cfg config.Config) (*httptest.Server, *game.Service) {
	t.Helper()
	svc := newTestService()
	srv := New(svc, cfg, quietLogger())
	return newTestServer(t, srv.Handler()), svc
}
