// Package config loads the YAML configuration of osmbuildings.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NERVsystems/osmbuildings/pkg/attributes"
	"github.com/NERVsystems/osmbuildings/pkg/building"
	"github.com/NERVsystems/osmbuildings/pkg/cache"
	"github.com/NERVsystems/osmbuildings/pkg/core"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
	"github.com/NERVsystems/osmbuildings/pkg/server"
)

// API configures access to the map API
type API struct {
	BaseURL     string        `yaml:"base_url"`
	UserAgent   string        `yaml:"user_agent"`
	RPS         float64       `yaml:"rps"`
	Burst       int           `yaml:"burst"`
	Timeout     time.Duration `yaml:"timeout"`
	CacheSize   int           `yaml:"cache_size"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// Resources configures the mesh resource store of the MCP server
type Resources struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// Server configures the MCP transports and monitoring
type Server struct {
	HTTP           server.HTTPTransportConfig `yaml:"http"`
	MonitoringAddr string                     `yaml:"monitoring_addr"`
	Resources      Resources                  `yaml:"mesh_resources"`
}

// Config is the complete file configuration
type Config struct {
	API        API               `yaml:"api"`
	Attributes attributes.Config `yaml:"attributes"`
	Server     Server            `yaml:"server"`
	// Concurrency bounds parallel reconstructions
	Concurrency int `yaml:"concurrency"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		API: API{
			BaseURL:     osm.APIBaseURL,
			UserAgent:   osm.UserAgent,
			RPS:         osm.DefaultRPS,
			Burst:       osm.DefaultBurst,
			Timeout:     30 * time.Second,
			CacheSize:   core.DefaultCacheSize,
			CacheTTL:    core.DefaultCacheTTL,
			MaxAttempts: core.DefaultRetryOptions.MaxAttempts,
		},
		Attributes: attributes.DefaultConfig(),
		Server: Server{
			HTTP:           server.DefaultHTTPTransportConfig(),
			MonitoringAddr: ":9090",
			Resources:      Resources{Size: cache.DefaultSize, TTL: cache.DefaultTTL},
		},
		Concurrency: building.DefaultConcurrency,
	}
}

// Load reads path over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting
func (c Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL))
	}
	if c.API.RPS <= 0 {
		errs = append(errs, fmt.Errorf("api.rps must be positive, got %v", c.API.RPS))
	}
	if c.API.Burst < 1 {
		errs = append(errs, fmt.Errorf("api.burst must be at least 1, got %d", c.API.Burst))
	}
	if c.API.Timeout < 0 {
		errs = append(errs, fmt.Errorf("api.timeout must not be negative"))
	}
	if c.API.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("api.cache_size must not be negative"))
	}
	if c.API.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("api.max_attempts must be at least 1, got %d", c.API.MaxAttempts))
	}
	if c.Attributes.LevelHeight <= 0 {
		errs = append(errs, fmt.Errorf("attributes.level_height must be positive"))
	}
	if c.Attributes.DefaultHeight <= 0 {
		errs = append(errs, fmt.Errorf("attributes.default_height must be positive"))
	}
	if c.Attributes.BBoxMargin < 0 || c.Attributes.BBoxMargin > 0.01 {
		errs = append(errs, fmt.Errorf("attributes.bbox_margin must be within [0, 0.01] degrees, got %v", c.Attributes.BBoxMargin))
	}
	for shape, r := range c.Attributes.RoofRatios {
		if attributes.ParseRoofShape(string(shape)) != shape {
			errs = append(errs, fmt.Errorf("attributes.roof_ratios: unknown roof shape %q", shape))
		}
		if r < 0 {
			errs = append(errs, fmt.Errorf("attributes.roof_ratios.%s must not be negative", shape))
		}
	}
	if c.Server.HTTP.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.http.rate_limit must not be negative"))
	}
	if c.Server.Resources.Size < 0 {
		errs = append(errs, fmt.Errorf("server.mesh_resources.size must not be negative"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	return errors.Join(errs...)
}

// NewClient returns a rate limited HTTP client for the map API
func (c Config) NewClient(logger *slog.Logger) *osm.Client {
	var hc *http.Client
	if c.API.Timeout > 0 {
		hc = &http.Client{Timeout: c.API.Timeout}
	}
	client := osm.NewClient(hc, c.API.RPS, c.API.Burst)
	if c.API.UserAgent != "" {
		client.SetUserAgent(c.API.UserAgent)
	}
	if logger != nil {
		client.SetLogger(logger)
	}
	return client
}

// NewMapAPI returns the map API client described by the configuration
func (c Config) NewMapAPI(logger *slog.Logger) *core.MapAPI {
	retry := core.DefaultRetryOptions
	retry.MaxAttempts = c.API.MaxAttempts
	return core.NewMapAPI(c.NewClient(logger), core.MapAPIOptions{
		BaseURL:   c.API.BaseURL,
		CacheSize: c.API.CacheSize,
		CacheTTL:  c.API.CacheTTL,
		Retry:     retry,
	})
}

// NewMeshResources returns the mesh resource store, nil when disabled by a zero size
func (c Config) NewMeshResources(logger *slog.Logger) *cache.MeshResources {
	if c.Server.Resources.Size == 0 {
		return nil
	}
	return cache.NewMeshResources(c.Server.Resources.Size, c.Server.Resources.TTL, logger)
}

// Building returns the reconstruction settings
func (c Config) Building(logger *slog.Logger) building.Config {
	return building.Config{Attributes: c.Attributes, Logger: logger}
}
