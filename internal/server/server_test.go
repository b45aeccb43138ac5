package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/dltctl/internal/channel"
	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/danmuck/dltctl/internal/testutil/testlog"
)

func get(t *testing.T, s *Server, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	var body map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rr.Code, body
}

func TestHealthAndReady(t *testing.T) {
	testlog.Start(t)
	s := New("dltdump", ":0", channel.NewMux(dlt.FramingNetwork), nil)

	code, body := get(t, s, "/health")
	if code != http.StatusOK || body["status"] != "ok" || body["service"] != "dltdump" {
		t.Fatalf("unexpected health %d %#v", code, body)
	}

	code, body = get(t, s, "/ready")
	if code != http.StatusServiceUnavailable || body["ready"] != false {
		t.Fatalf("expected not ready, got %d %#v", code, body)
	}
	s.SetReady(true)
	if code, _ = get(t, s, "/ready"); code != http.StatusOK {
		t.Fatalf("expected ready, got %d", code)
	}
}

func TestChannelRoutes(t *testing.T) {
	testlog.Start(t)
	mux := channel.NewMux(dlt.FramingNetwork)
	ch, _ := mux.Open("10.0.0.7:3490")
	ch.Decode([]byte{0x01, 0x02})
	s := New("dltdump", ":0", mux, nil)

	code, body := get(t, s, "/channels")
	if code != http.StatusOK || body["framing"] != "network" {
		t.Fatalf("unexpected channels %d %#v", code, body)
	}
	list, ok := body["channels"].([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("unexpected channel list %#v", body["channels"])
	}

	code, body = get(t, s, "/channels/10.0.0.7:3490")
	if code != http.StatusOK || body["key"] != "10.0.0.7:3490" || body["bytes"] != float64(2) {
		t.Fatalf("unexpected channel %d %#v", code, body)
	}
	if code, _ = get(t, s, "/channels/missing"); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	for _, want := range []string{
		`dltctl_status_channel_lookups_total{channel="10.0.0.7:3490",result="found"} 1`,
		`dltctl_status_channel_lookups_total{channel="missing",result="missing"} 1`,
	} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Fatalf("metrics missing %s", want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	testlog.Start(t)
	s := New("dltdump", ":0", channel.NewMux(dlt.FramingFile), nil)
	get(t, s, "/health")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "dltctl_http_requests_total") {
		t.Fatalf("metrics missing request counter")
	}
}

func TestServeListenerStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("tcp listen unavailable: %v", err)
	}
	s := New("dltdump", ln.Addr().String(), channel.NewMux(dlt.FramingFile), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}
