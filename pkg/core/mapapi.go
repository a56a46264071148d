package core

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	gosm "github.com/paulmach/osm"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/osmbuildings/pkg/geo"
	"github.com/NERVsystems/osmbuildings/pkg/monitoring"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
	"github.com/NERVsystems/osmbuildings/pkg/tracing"
)

const (
	// DefaultCacheSize is the number of responses kept in memory
	DefaultCacheSize = 128

	// DefaultCacheTTL bounds how stale a cached response may be
	DefaultCacheTTL = 5 * time.Minute

	// maxResponseBytes caps a single map API response
	maxResponseBytes = 64 << 20

	// cacheType labels the response cache in metrics
	cacheType = "osmapi"
)

// MapAPIOptions configures a MapAPI
type MapAPIOptions struct {
	// BaseURL is the API root including the trailing slash
	BaseURL   string
	CacheSize int
	CacheTTL  time.Duration
	Retry     RetryOptions
}

// DefaultMapAPIOptions returns options targeting the public OSM API
func DefaultMapAPIOptions() MapAPIOptions {
	return MapAPIOptions{
		BaseURL:   osm.APIBaseURL,
		CacheSize: DefaultCacheSize,
		CacheTTL:  DefaultCacheTTL,
		Retry:     DefaultRetryOptions,
	}
}

// MapAPI fetches element context from the OSM editing API. Responses are
// cached by request path; it is safe for concurrent use.
type MapAPI struct {
	client  *osm.Client
	baseURL string
	retry   RetryOptions
	cache   *expirable.LRU[string, []byte]
	logger  *slog.Logger
}

// NewMapAPI creates a MapAPI on top of a rate limited client
func NewMapAPI(client *osm.Client, opts MapAPIOptions) *MapAPI {
	if client == nil {
		client = osm.NewClient(nil, osm.DefaultRPS, osm.DefaultBurst)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = osm.APIBaseURL
	}
	if !strings.HasSuffix(opts.BaseURL, "/") {
		opts.BaseURL += "/"
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryOptions
	}

	return &MapAPI{
		client:  client,
		baseURL: opts.BaseURL,
		retry:   opts.Retry,
		cache:   expirable.NewLRU[string, []byte](opts.CacheSize, nil, opts.CacheTTL),
		logger:  slog.Default().With("component", "mapapi"),
	}
}

// FullPath returns the request path of the full-members query for ref
func FullPath(ref osm.ElementRef) string {
	return fmt.Sprintf("%s/%d/full", ref.Kind, ref.ID)
}

// MapPath returns the request path of the bounding box query
func MapPath(bbox geo.BoundingBox) string {
	return "map?bbox=" + bbox.String()
}

// FetchFull returns ref together with all its members and their nodes
func (a *MapAPI) FetchFull(ctx context.Context, ref osm.ElementRef) (*gosm.OSM, error) {
	if ref.Kind != osm.KindWay && ref.Kind != osm.KindRelation {
		return nil, Errorf(ErrInvalidInput, "no full query for kind %q", ref.Kind).WithElement(ref)
	}

	doc, err := a.get(ctx, FullPath(ref), "full")
	if err != nil {
		if HasCode(err, ErrNotFound) {
			return nil, AsError(err).WithElement(ref)
		}
		return nil, fmt.Errorf("fetching %s: %w", ref, err)
	}
	return doc, nil
}

// FetchMap returns every element inside bbox
func (a *MapAPI) FetchMap(ctx context.Context, bbox geo.BoundingBox) (*gosm.OSM, error) {
	if err := bbox.Validate(); err != nil {
		return nil, NewError(ErrInvalidInput, "invalid bounding box").WithCause(err)
	}

	doc, err := a.get(ctx, MapPath(bbox), "map")
	if err != nil {
		return nil, fmt.Errorf("fetching map %s: %w", bbox, err)
	}
	return doc, nil
}

// Ping checks that the API answers its capabilities endpoint
func (a *MapAPI) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"capabilities", nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(ctx, req, "capabilities")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ServiceError(tracing.ServiceMapAPI, resp.StatusCode, "capabilities check failed")
	}
	return nil
}

// CacheLen returns the number of cached responses
func (a *MapAPI) CacheLen() int {
	return a.cache.Len()
}

func (a *MapAPI) get(ctx context.Context, path, operation string) (*gosm.OSM, error) {
	if body, ok := a.cache.Get(path); ok {
		monitoring.RecordCacheHit(cacheType)
		tracing.AddEvent(ctx, "cache_hit", trace.WithAttributes(tracing.CacheAttributes(true, path)...))
		a.logger.Debug("cache hit", "path", path)
		return DecodeOSM(bytes.NewReader(body))
	}
	monitoring.RecordCacheMiss(cacheType)

	url := a.baseURL + path
	resp, err := WithRetry(ctx, a.client, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}, operation, a.retry)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, NewError(ErrNetworkError, "reading response body").WithCause(err)
	}

	doc, err := DecodeOSM(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	a.cache.Add(path, body)
	monitoring.UpdateCacheSize(cacheType, a.cache.Len())
	return doc, nil
}

// DecodeOSM parses an OSM XML document
func DecodeOSM(r io.Reader) (*gosm.OSM, error) {
	doc := &gosm.OSM{}
	if err := xml.NewDecoder(r).Decode(doc); err != nil {
		return nil, NewError(ErrParseError, "invalid OSM XML").WithCause(err)
	}
	return doc, nil
}
