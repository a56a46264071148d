package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NERVsystems/osmbuildings/pkg/attributes"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.API.BaseURL != osm.APIBaseURL {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.Attributes.LevelHeight != 3 {
		t.Errorf("level height = %v", cfg.Attributes.LevelHeight)
	}
}

func TestParseOverrides(t *testing.T) {
	data := []byte(`
api:
  base_url: https://master.apis.dev.openstreetmap.org/api/0.6/
  rps: 4
  cache_ttl: 90s
  max_attempts: 5
attributes:
  level_height: 3.5
  roof_ratios:
    gabled: 0.4
server:
  http:
    addr: ":8088"
    auth_token: abc
  mesh_resources:
    size: 0
concurrency: 8
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.BaseURL != "https://master.apis.dev.openstreetmap.org/api/0.6/" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.RPS != 4 || cfg.API.MaxAttempts != 5 || cfg.Concurrency != 8 {
		t.Errorf("api = %+v, concurrency = %d", cfg.API, cfg.Concurrency)
	}
	if cfg.API.CacheTTL != 90*time.Second {
		t.Errorf("cache ttl = %v", cfg.API.CacheTTL)
	}
	// untouched keys keep their defaults
	if cfg.API.Burst != osm.DefaultBurst || cfg.Attributes.DefaultHeight != 3 {
		t.Errorf("defaults lost: burst %d, default height %v", cfg.API.Burst, cfg.Attributes.DefaultHeight)
	}
	if cfg.Attributes.LevelHeight != 3.5 {
		t.Errorf("level height = %v", cfg.Attributes.LevelHeight)
	}
	if cfg.Server.HTTP.Addr != ":8088" || cfg.Server.HTTP.AuthToken != "abc" || cfg.Server.HTTP.SSEEndpoint != "/sse" {
		t.Errorf("http = %+v", cfg.Server.HTTP)
	}
	if cfg.NewMeshResources(nil) != nil {
		t.Error("mesh resources enabled with size 0")
	}
	if cfg.Attributes.RoofRatios[attributes.RoofGabled] != 0.4 {
		t.Errorf("gabled ratio = %v", cfg.Attributes.RoofRatios[attributes.RoofGabled])
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"syntax", "api: [", "parsing config"},
		{"base url", "api:\n  base_url: not a url\n", "api.base_url"},
		{"rps", "api:\n  rps: -1\n", "api.rps"},
		{"level height", "attributes:\n  level_height: 0\n", "attributes.level_height"},
		{"margin", "attributes:\n  bbox_margin: 1\n", "attributes.bbox_margin"},
		{"roof shape", "attributes:\n  roof_ratios:\n    onion: 0.5\n", "unknown roof shape"},
		{"concurrency", "concurrency: 0\n", "concurrency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osmbuildings.yaml")
	if err := os.WriteFile(path, []byte("api:\n  burst: 5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.Burst != 5 {
		t.Errorf("burst = %d", cfg.API.Burst)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBuildingConfig(t *testing.T) {
	cfg := Default()
	cfg.Attributes.DefaultHeight = 5
	if got := cfg.Building(nil).Attributes.DefaultHeight; got != 5 {
		t.Errorf("building default height = %v", got)
	}
	if cfg.NewMeshResources(nil) == nil {
		t.Error("default config has no mesh resources")
	}
	if api := cfg.NewMapAPI(nil); api == nil {
		t.Error("NewMapAPI returned nil")
	}
}
