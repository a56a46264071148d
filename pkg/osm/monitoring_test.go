package osm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSetAndGetMonitoringHooks(t *testing.T) {
	SetMonitoringHooks(nil)
	if getMonitoringHooks() != nil {
		t.Fatal("expected hooks to be cleared")
	}

	var requestCalled bool
	SetMonitoringHooks(&MonitoringHooks{
		OnRequest: func(service, operation string) {
			requestCalled = true
		},
	})
	defer SetMonitoringHooks(nil)

	retrieved := getMonitoringHooks()
	if retrieved == nil || retrieved.OnRequest == nil {
		t.Fatal("Expected hooks to be set")
	}
	retrieved.OnRequest("test", "test")
	if !requestCalled {
		t.Error("OnRequest should have been called")
	}
}

func TestClientDoSuccess(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	var requestCalled, responseCalled, capturedSuccess bool
	var capturedService, capturedOperation string

	SetMonitoringHooks(&MonitoringHooks{
		OnRequest: func(service, operation string) {
			requestCalled = true
			capturedService = service
			capturedOperation = operation
		},
		OnResponse: func(service, operation string, duration time.Duration, success bool) {
			responseCalled = true
			capturedSuccess = success
		},
	})
	defer SetMonitoringHooks(nil)

	client := NewClient(server.Client(), 100, 10)
	client.SetUserAgent("osmbuildings-test/1.0")

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(context.Background(), req, "full")
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	defer resp.Body.Close()

	if !requestCalled || !responseCalled {
		t.Error("expected request and response hooks to be called")
	}
	if capturedService != "osmapi" {
		t.Errorf("Expected service 'osmapi', got %s", capturedService)
	}
	if capturedOperation != "full" {
		t.Errorf("Expected operation 'full', got %s", capturedOperation)
	}
	if !capturedSuccess {
		t.Error("Request should have been successful")
	}
	if gotUA != "osmbuildings-test/1.0" {
		t.Errorf("Expected custom User-Agent, got %q", gotUA)
	}
}

func TestClientDoHTTPErrorIsNotNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var errorCalled, capturedSuccess bool
	SetMonitoringHooks(&MonitoringHooks{
		OnResponse: func(service, operation string, duration time.Duration, success bool) {
			capturedSuccess = success
		},
		OnError: func(service, errorType string) {
			errorCalled = true
		},
	})
	defer SetMonitoringHooks(nil)

	client := NewClient(server.Client(), 100, 10)
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)

	resp, err := client.Do(context.Background(), req, "map")
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	defer resp.Body.Close()

	if capturedSuccess {
		t.Error("Request should not have been successful")
	}
	if errorCalled {
		t.Error("OnError should not have been called for HTTP error status")
	}
}

func TestClientDoNetworkError(t *testing.T) {
	var capturedErrorType string
	SetMonitoringHooks(&MonitoringHooks{
		OnError: func(service, errorType string) {
			capturedErrorType = errorType
		},
	})
	defer SetMonitoringHooks(nil)

	client := NewClient(nil, 100, 10)
	req, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1:1", nil)

	if _, err := client.Do(context.Background(), req, "full"); err == nil {
		t.Error("Expected network error")
	}
	if capturedErrorType != "request_error" {
		t.Errorf("Expected error type 'request_error', got %s", capturedErrorType)
	}
}

func TestClientDoRateLimitCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// one token, refilled every ~17 minutes
	client := NewClient(server.Client(), 0.001, 1)

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := client.Do(context.Background(), req, "full")
	if err != nil {
		t.Fatalf("first request should pass: %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req2, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	if _, err := client.Do(ctx, req2, "full"); err == nil {
		t.Error("expected rate limit wait to fail once the context expires")
	}
}
