package http

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

func newTestServer(t *testing.T, handler func(shardId uint64, req []byte) []byte) *httptest.Server {
	t.Helper()
	tr := &httpServerTransport{}
	if handler != nil {
		tr.RegisterHandler(handler)
	}
	ts := httptest.NewServer(tr.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestRequestRouting(t *testing.T) {
	ts := newTestServer(t, func(shardId uint64, req []byte) []byte {
		return append([]byte{byte(shardId)}, req...)
	})

	resp, err := http.Post(ts.URL+"/3", "application/octet-stream", bytes.NewReader([]byte("ping")))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !bytes.Equal(body, []byte("\x03ping")) {
		t.Errorf("body = %q, want %q", body, "\x03ping")
	}
}

func TestRequestErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler func(uint64, []byte) []byte
		path    string
		status  int
	}{
		{"invalid shard id", func(uint64, []byte) []byte { return nil }, "/abc", http.StatusBadRequest},
		{"no handler", nil, "/1", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.handler)
			resp, err := http.Post(ts.URL+tt.path, "application/octet-stream", strings.NewReader("x"))
			if err != nil {
				t.Fatalf("Post() error = %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.GetOrCreateCounter("ddoc_transport_test_total").Inc()
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "ddoc_transport_test_total 1") {
		t.Errorf("metrics output does not contain the test counter:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Errorf("metrics output does not contain process metrics")
	}
}

func TestClientRoundRobin(t *testing.T) {
	var hits [2]atomic.Int32
	servers := make([]string, 2)
	for i := range servers {
		ts := newTestServer(t, func(uint64, []byte) []byte {
			hits[i].Add(1)
			return []byte("ok")
		})
		servers[i] = ts.URL
	}

	client := NewHttpClientTransport()
	if err := client.Connect(common.ClientConfig{Endpoints: servers, TimeoutSecond: 5, RetryCount: 1}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	for i := 0; i < 4; i++ {
		if _, err := client.Send(1, []byte("req")); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if hits[0].Load() != 2 || hits[1].Load() != 2 {
		t.Errorf("requests per server = [%d %d], want [2 2]", hits[0].Load(), hits[1].Load())
	}
}

func TestClientFailsOver(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	alive := newTestServer(t, func(uint64, []byte) []byte { return []byte("ok") })

	client := NewHttpClientTransport()
	if err := client.Connect(common.ClientConfig{
		Endpoints:     []string{dead.URL, alive.URL},
		TimeoutSecond: 5,
		RetryCount:    2,
	}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	for i := 0; i < 3; i++ {
		resp, err := client.Send(1, []byte("req"))
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if string(resp) != "ok" {
			t.Errorf("Send() = %q, want ok", resp)
		}
	}
}
