package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordReconstruction(t *testing.T) {
	ReconstructionsTotal.Reset()

	RecordReconstruction("way", 250*time.Millisecond, "")
	RecordReconstruction("way", 100*time.Millisecond, "NOT_FOUND")
	RecordReconstruction("way", 100*time.Millisecond, "NOT_FOUND")

	if got := testutil.ToFloat64(ReconstructionsTotal.WithLabelValues("way", "success", "")); got != 1 {
		t.Errorf("Expected 1 successful reconstruction, got %v", got)
	}
	if got := testutil.ToFloat64(ReconstructionsTotal.WithLabelValues("way", "error", "NOT_FOUND")); got != 2 {
		t.Errorf("Expected 2 failed reconstructions, got %v", got)
	}
}

func TestRecordMesh(t *testing.T) {
	RoofShapesTotal.Reset()

	RecordMesh("skillion", 120)
	if got := testutil.ToFloat64(RoofShapesTotal.WithLabelValues("skillion")); got != 1 {
		t.Errorf("Expected 1 skillion roof, got %v", got)
	}
	if n := testutil.CollectAndCount(MeshFaces); n != 1 {
		t.Errorf("Expected mesh faces histogram to be collected once, got %d", n)
	}
}

func TestRecordMCPRequest(t *testing.T) {
	MCPRequestsTotal.Reset()

	RecordMCPRequest("building_mesh", 100*time.Millisecond, true)
	if got := testutil.ToFloat64(MCPRequestsTotal.WithLabelValues("building_mesh", "success")); got != 1 {
		t.Errorf("Expected 1 successful request, got %v", got)
	}

	RecordMCPRequest("building_mesh", 200*time.Millisecond, false)
	if got := testutil.ToFloat64(MCPRequestsTotal.WithLabelValues("building_mesh", "error")); got != 1 {
		t.Errorf("Expected 1 failed request, got %v", got)
	}
}

func TestRecordExternalServiceRequest(t *testing.T) {
	ExternalServiceRequestsTotal.Reset()

	RecordExternalServiceRequest("osmapi", "full", 500*time.Millisecond, true)
	if got := testutil.ToFloat64(ExternalServiceRequestsTotal.WithLabelValues("osmapi", "full", "success")); got != 1 {
		t.Errorf("Expected 1 successful external request, got %v", got)
	}

	RecordExternalServiceRequest("osmapi", "map", 300*time.Millisecond, false)
	if got := testutil.ToFloat64(ExternalServiceRequestsTotal.WithLabelValues("osmapi", "map", "error")); got != 1 {
		t.Errorf("Expected 1 failed external request, got %v", got)
	}
}

func TestCacheMetrics(t *testing.T) {
	CacheHits.Reset()
	CacheMisses.Reset()
	CacheSize.Reset()

	RecordCacheHit("osmapi")
	if got := testutil.ToFloat64(CacheHits.WithLabelValues("osmapi")); got != 1 {
		t.Errorf("Expected 1 cache hit, got %v", got)
	}

	RecordCacheMiss("osmapi")
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues("osmapi")); got != 1 {
		t.Errorf("Expected 1 cache miss, got %v", got)
	}

	UpdateCacheSize("osmapi", 42)
	if got := testutil.ToFloat64(CacheSize.WithLabelValues("osmapi")); got != 42 {
		t.Errorf("Expected cache size 42, got %v", got)
	}
}

func TestErrorMetrics(t *testing.T) {
	ErrorsTotal.Reset()

	RecordError("osmapi", "request_error")
	if got := testutil.ToFloat64(ErrorsTotal.WithLabelValues("osmapi", "request_error")); got != 1 {
		t.Errorf("Expected 1 error, got %v", got)
	}
}

func TestRateLimitWait(t *testing.T) {
	RateLimitWaitTime.Reset()
	RecordRateLimitWait("osmapi", time.Second)
	if n := testutil.CollectAndCount(RateLimitWaitTime); n != 1 {
		t.Errorf("Expected 1 rate limit series, got %d", n)
	}
}

func BenchmarkRecordReconstruction(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordReconstruction("way", 100*time.Millisecond, "")
	}
}
