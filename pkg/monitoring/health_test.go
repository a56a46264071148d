package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestUpdateConnection(t *testing.T) {
	hc := NewHealthChecker(ServiceName, "1.0.0")
	defer hc.Shutdown()

	hc.UpdateConnection("osm_api", StatusConnected, 100, nil)
	hc.UpdateConnection("osm_api", StatusError, 250, errors.New("503 from upstream"))

	conn := hc.GetHealth().Connections["osm_api"]
	if conn.Status != StatusError || conn.Latency != 250 {
		t.Errorf("connection = %+v, want the latest update", conn)
	}
	if conn.LastError != "503 from upstream" {
		t.Errorf("LastError = %q", conn.LastError)
	}
	if conn.CheckedAt.IsZero() {
		t.Error("CheckedAt should be set")
	}
}

func TestGetHealthStatus(t *testing.T) {
	tests := []struct {
		name  string
		conns map[string]string
		want  string
	}{
		{"no connections", nil, "healthy"},
		{"all connected", map[string]string{"osm_api": StatusConnected, "otlp": StatusConnected}, "healthy"},
		{"one degraded", map[string]string{"osm_api": StatusDegraded, "otlp": StatusConnected}, "degraded"},
		{"minority failing", map[string]string{"osm_api": StatusError, "otlp": StatusConnected, "cache": StatusConnected}, "degraded"},
		{"majority failing", map[string]string{"osm_api": StatusError, "otlp": StatusDisconnected, "cache": StatusConnected}, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker(ServiceName, "1.0.0")
			defer hc.Shutdown()
			for name, status := range tt.conns {
				hc.UpdateConnection(name, status, 10, nil)
			}
			if got := hc.GetHealth().Status; got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGetHealthFields(t *testing.T) {
	hc := NewHealthChecker(ServiceName, "2.1.0")
	defer hc.Shutdown()

	h := hc.GetHealth()
	if h.Service != ServiceName || h.Version != "2.1.0" {
		t.Errorf("identity = %s %s", h.Service, h.Version)
	}
	if h.StartTime.IsZero() || h.UptimeSeconds < 0 {
		t.Errorf("start %v uptime %d", h.StartTime, h.UptimeSeconds)
	}
	for _, key := range []string{"goroutines", "memory_alloc_mb", "version_info"} {
		if _, ok := h.Metrics[key]; !ok {
			t.Errorf("metrics missing %s", key)
		}
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		status string
		code   int
	}{
		{"connected", StatusConnected, http.StatusOK},
		{"failing", StatusError, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker(ServiceName, "1.0.0")
			defer hc.Shutdown()
			hc.UpdateConnection("osm_api", tt.status, 10, nil)

			rec := httptest.NewRecorder()
			hc.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.code {
				t.Errorf("code = %d, want %d", rec.Code, tt.code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %s", ct)
			}
			var body ServiceHealth
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Connections["osm_api"].Status != tt.status {
				t.Errorf("body connections = %+v", body.Connections)
			}
		})
	}
}

// waitForConnection polls until name has been reported
func waitForConnection(t *testing.T, hc *HealthChecker, name string) ConnStatus {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if conn, ok := hc.GetHealth().Connections[name]; ok {
			return conn
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("connection %s never reported", name)
	return ConnStatus{}
}

func TestConnectionMonitor(t *testing.T) {
	tests := []struct {
		name    string
		check   error
		status  string
		lastErr string
	}{
		{"reachable", nil, StatusConnected, ""},
		{"unreachable", errors.New("dial tcp: connection refused"), StatusError, "dial tcp: connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker(ServiceName, "1.0.0")
			defer hc.Shutdown()

			monitor := NewConnectionMonitor("osm_api", hc, func(ctx context.Context) error { return tt.check }, time.Hour)
			monitor.Start()
			defer monitor.Stop()

			conn := waitForConnection(t, hc, "osm_api")
			if conn.Status != tt.status || conn.LastError != tt.lastErr {
				t.Errorf("connection = %+v, want %s %q", conn, tt.status, tt.lastErr)
			}
		})
	}
}

func TestConnectionMonitorStop(t *testing.T) {
	hc := NewHealthChecker(ServiceName, "1.0.0")
	defer hc.Shutdown()

	calls := make(chan struct{}, 16)
	monitor := NewConnectionMonitor("osm_api", hc, func(ctx context.Context) error {
		calls <- struct{}{}
		return nil
	}, 10*time.Millisecond)
	monitor.Start()
	<-calls
	monitor.Stop()

	// drain anything in flight, then make sure the ticker is gone
	time.Sleep(30 * time.Millisecond)
	for len(calls) > 0 {
		<-calls
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(calls); n != 0 {
		t.Errorf("%d checks ran after Stop", n)
	}
}

func BenchmarkGetHealth(b *testing.B) {
	hc := NewHealthChecker(ServiceName, "1.0.0")
	defer hc.Shutdown()
	hc.UpdateConnection("osm_api", StatusConnected, 100, nil)
	hc.UpdateConnection("otlp", StatusError, 300, errors.New("timeout"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hc.GetHealth()
	}
}
