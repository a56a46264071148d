package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/time/rate"

	"github.com/NERVsystems/osmbuildings/pkg/core"
	"github.com/NERVsystems/osmbuildings/pkg/monitoring"
)

// HTTPTransportConfig holds configuration for the HTTP transport
type HTTPTransportConfig struct {
	Addr           string  `yaml:"addr"`
	BaseURL        string  `yaml:"base_url"`   // Base URL for service discovery
	AuthToken      string  `yaml:"auth_token"` // Bearer token, empty disables auth
	SSEEndpoint    string  `yaml:"sse_endpoint"`
	MsgEndpoint    string  `yaml:"msg_endpoint"`
	RateLimit      float64 `yaml:"rate_limit"` // Requests per second per IP, 0 disables
	RateBurst      int     `yaml:"rate_burst"`
	MaxRequestSize int64   `yaml:"max_request_size"`
}

// DefaultHTTPTransportConfig returns sensible defaults
func DefaultHTTPTransportConfig() HTTPTransportConfig {
	return HTTPTransportConfig{
		Addr:           ":7082",
		SSEEndpoint:    "/sse",
		MsgEndpoint:    "/message",
		RateLimit:      10,
		RateBurst:      20,
		MaxRequestSize: 1 << 20,
	}
}

// HTTPTransport serves MCP over HTTP+SSE next to a health endpoint
type HTTPTransport struct {
	config        HTTPTransportConfig
	logger        *slog.Logger
	sseServer     *mcpserver.SSEServer
	mux           *http.ServeMux
	rateLimiter   *RateLimiter
	healthChecker *monitoring.HealthChecker

	mu      sync.Mutex
	httpSrv *http.Server
}

// NewHTTPTransport creates a new HTTP transport instance
func NewHTTPTransport(mcpServer *mcpserver.MCPServer, config HTTPTransportConfig, logger *slog.Logger) *HTTPTransport {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultHTTPTransportConfig()
	if config.SSEEndpoint == "" {
		config.SSEEndpoint = defaults.SSEEndpoint
	}
	if config.MsgEndpoint == "" {
		config.MsgEndpoint = defaults.MsgEndpoint
	}
	if config.MaxRequestSize <= 0 {
		config.MaxRequestSize = defaults.MaxRequestSize
	}

	t := &HTTPTransport{
		config: config,
		logger: logger.With("component", "http_transport"),
		sseServer: mcpserver.NewSSEServer(
			mcpServer,
			mcpserver.WithSSEEndpoint(config.SSEEndpoint),
			mcpserver.WithMessageEndpoint(config.MsgEndpoint),
			mcpserver.WithBaseURL(config.BaseURL),
		),
		mux: http.NewServeMux(),
	}
	if config.RateLimit > 0 {
		t.rateLimiter = NewRateLimiter(rate.Limit(config.RateLimit), max(config.RateBurst, 1))
	}
	t.setupRoutes()
	return t
}

// SetHealthChecker makes /health report the checker's state
func (t *HTTPTransport) SetHealthChecker(hc *monitoring.HealthChecker) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.healthChecker = hc
}

func (t *HTTPTransport) setupRoutes() {
	t.mux.HandleFunc("/", t.handleServiceDiscovery)
	t.mux.HandleFunc("/health", t.handleHealth)

	t.mux.Handle(t.config.SSEEndpoint, t.authMiddleware(t.sseServer.SSEHandler()))
	t.mux.Handle(t.config.MsgEndpoint, t.authMiddleware(t.sseServer.MessageHandler()))
}

// Handler returns the mux wrapped in the middleware chain
func (t *HTTPTransport) Handler() http.Handler {
	handler := http.Handler(t.mux)
	if t.rateLimiter != nil {
		handler = t.rateLimiter.Middleware(handler)
	}
	handler = TracingMiddleware()(handler)
	handler = LoggingMiddleware(t.logger)(handler)
	handler = SecurityHeaders(handler)
	handler = RequestSizeLimiter(t.config.MaxRequestSize)(handler)
	return handler
}

// authMiddleware requires the configured bearer token
func (t *HTTPTransport) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if t.config.AuthToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(t.config.AuthToken)) != 1 {
			t.logger.Warn("authentication failed", "remote_addr", getIP(r), "path", r.URL.Path)
			w.Header().Set("WWW-Authenticate", "Bearer")
			t.writeJSONRPCError(w, http.StatusUnauthorized, -32001, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *HTTPTransport) handleServiceDiscovery(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	baseURL := t.config.BaseURL
	if baseURL == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}

	t.writeJSON(w, http.StatusOK, map[string]any{
		"service":   ServerName,
		"transport": "HTTP+SSE",
		"endpoints": map[string]string{
			"sse":     baseURL + t.config.SSEEndpoint,
			"message": baseURL + t.config.MsgEndpoint,
		},
		"auth": map[string]any{
			"required": t.config.AuthToken != "",
		},
	})
}

func (t *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	t.mu.Lock()
	hc := t.healthChecker
	t.mu.Unlock()

	if hc != nil {
		hc.HealthHandler()(w, r)
		return
	}
	t.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (t *HTTPTransport) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.logger.Error("failed to encode response", "error", err)
	}
}

func (t *HTTPTransport) writeJSONRPCError(w http.ResponseWriter, status, code int, message string) {
	t.writeJSON(w, status, map[string]any{
		"jsonrpc": "2.0",
		"id":      nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

// Start serves HTTP until Shutdown is called
func (t *HTTPTransport) Start() error {
	t.mu.Lock()
	if t.httpSrv != nil {
		t.mu.Unlock()
		return core.NewError(core.ErrInternalError, "HTTP transport already started").
			WithGuidance("Stop the running transport before starting it again.")
	}
	t.httpSrv = &http.Server{
		Addr:              t.config.Addr,
		Handler:           t.Handler(),
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := t.httpSrv
	t.mu.Unlock()

	t.logger.Info("starting HTTP transport",
		"addr", t.config.Addr,
		"sse_endpoint", t.config.SSEEndpoint,
		"message_endpoint", t.config.MsgEndpoint,
		"auth", t.config.AuthToken != "",
		"rate_limit", t.config.RateLimit)
	return srv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP transport
func (t *HTTPTransport) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rateLimiter != nil {
		t.rateLimiter.Stop()
		t.rateLimiter = nil
	}
	if t.httpSrv == nil {
		return nil
	}

	t.logger.Info("shutting down HTTP transport")
	if err := t.sseServer.Shutdown(ctx); err != nil {
		t.logger.Error("failed to shutdown SSE server", "error", err)
	}
	err := t.httpSrv.Shutdown(ctx)
	t.httpSrv = nil
	return err
}
