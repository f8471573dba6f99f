package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"VolRank/internal/domain/models"
	xlogger "VolRank/pkg/logger"

	"github.com/gorilla/websocket"
)

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newTestStreamServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestStreamSubscribeRequiresConnection(t *testing.T) {
	s := NewStream("ws://127.0.0.1:0", models.Interval1h, time.Second, time.Second, testLogger(t))
	if s.IsConnected() {
		t.Fatalf("stream connected before Connect")
	}
	if err := s.Subscribe(context.Background(), []string{"BTCUSDT"}); err == nil {
		t.Fatalf("expected error subscribing before connect")
	}
}

func TestStreamConnectionStateUnderConcurrentReads(t *testing.T) {
	srv := newTestStreamServer(t)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	s := NewStream(url, models.Interval1h, time.Second, time.Second, testLogger(t))
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !s.IsConnected() {
		t.Fatalf("expected connected after Connect")
	}
	if err := s.Subscribe(context.Background(), []string{"BTCUSDT", "ETHUSDT"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// IsConnected is polled by the collector while the read loop flips the
	// flag; hammer both sides.
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s.IsConnected()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Close()
	}()
	wg.Wait()

	if s.IsConnected() {
		t.Fatalf("expected disconnected after Close")
	}
}
