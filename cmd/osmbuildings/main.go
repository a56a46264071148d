// Command osmbuildings reconstructs 3D building meshes from OpenStreetMap.
//
// It resolves buildings by reference or position and prints their summary,
// optionally writing Wavefront OBJ files, or serves the same functionality
// as MCP tools over stdio and HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NERVsystems/osmbuildings/pkg/building"
	"github.com/NERVsystems/osmbuildings/pkg/config"
	"github.com/NERVsystems/osmbuildings/pkg/coords"
	"github.com/NERVsystems/osmbuildings/pkg/core"
	"github.com/NERVsystems/osmbuildings/pkg/monitoring"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
	"github.com/NERVsystems/osmbuildings/pkg/server"
	"github.com/NERVsystems/osmbuildings/pkg/store"
	"github.com/NERVsystems/osmbuildings/pkg/tools"
	"github.com/NERVsystems/osmbuildings/pkg/tracing"
	ver "github.com/NERVsystems/osmbuildings/pkg/version"
)

var (
	showVersionFlag bool
	debug           bool
	configPath      string

	refs    string
	at      string
	objDir  string
	offline string

	serveMCP       bool
	httpAddr       string
	httpOnly       bool
	httpAuthToken  string
	monitoringAddr string
)

func init() {
	flag.BoolVar(&showVersionFlag, "version", false, "Display version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVar(&configPath, "config", "", "YAML configuration file")

	flag.StringVar(&refs, "ref", "", "Comma separated element references to reconstruct, e.g. way/201181659,relation/42")
	flag.StringVar(&at, "at", "", "Reconstruct the building at a position (decimal, DMS or MGRS)")
	flag.StringVar(&objDir, "obj", "", "Directory to write one Wavefront OBJ file per building")
	flag.StringVar(&offline, "file", "", "Read elements from an OSM XML file instead of the map API")

	flag.BoolVar(&serveMCP, "mcp", false, "Serve the building tools over MCP on stdio")
	flag.StringVar(&httpAddr, "http-addr", "", "Also serve MCP over HTTP+SSE on this address")
	flag.BoolVar(&httpOnly, "http-only", false, "Serve HTTP only, skip stdio (requires -http-addr)")
	flag.StringVar(&httpAuthToken, "http-auth-token", "", "Bearer token required by the HTTP transport")
	flag.StringVar(&monitoringAddr, "monitoring-addr", "", "Prometheus metrics and health address (overrides the config)")
}

func main() {
	flag.Parse()

	if showVersionFlag {
		fmt.Printf("osmbuildings %s\n", ver.String())
		return
	}

	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(2)
		}
	}
	if monitoringAddr != "" {
		cfg.Server.MonitoringAddr = monitoringAddr
	}
	if httpAddr != "" {
		cfg.Server.HTTP.Addr = httpAddr
	}
	if httpAuthToken != "" {
		cfg.Server.HTTP.AuthToken = httpAuthToken
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracing(ctx, ver.Version)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("error shutting down tracing", "error", err)
			}
		}()
	}

	switch {
	case serveMCP || httpAddr != "":
		err = runServer(ctx, cfg, logger)
	case refs != "" || at != "":
		err = runCLI(ctx, cfg, logger, os.Stdout)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("osmbuildings failed", "error", err)
		os.Exit(1)
	}
}

// runCLI reconstructs the requested buildings and prints one JSON summary per line
func runCLI(ctx context.Context, cfg config.Config, logger *slog.Logger, out io.Writer) error {
	bcfg := cfg.Building(logger)

	var results []building.Result
	if offline != "" {
		st, err := loadFile(offline)
		if err != nil {
			return err
		}
		targets, err := targetsIn(st, bcfg)
		if err != nil {
			return err
		}
		for _, ref := range targets {
			b, err := building.New(st, ref, bcfg)
			results = append(results, building.Result{Ref: ref, Building: b, Err: err})
		}
	} else {
		api := cfg.NewMapAPI(logger)
		targets, err := parseRefs(refs)
		if err != nil {
			return err
		}
		if at != "" {
			loc, _, err := coords.Parse(at)
			if err != nil {
				return core.NewError(core.ErrInvalidInput, err.Error()).WithGuidance(tools.GuidancePosition)
			}
			ref, err := building.Locate(ctx, api, loc, bcfg)
			if err != nil {
				return err
			}
			targets = append(targets, ref)
		}
		results = building.ResolveAll(ctx, api, targets, bcfg, cfg.Concurrency)
	}

	return writeResults(out, results, objDir, logger)
}

// targetsIn returns the refs to reconstruct from an offline store
func targetsIn(st *store.Store, cfg building.Config) ([]osm.ElementRef, error) {
	targets, err := parseRefs(refs)
	if err != nil {
		return nil, err
	}
	if at != "" {
		loc, _, err := coords.Parse(at)
		if err != nil {
			return nil, core.NewError(core.ErrInvalidInput, err.Error()).WithGuidance(tools.GuidancePosition)
		}
		ref, err := building.LocateIn(st, loc, cfg)
		if err != nil {
			return nil, err
		}
		targets = append(targets, ref)
	}
	return targets, nil
}

func parseRefs(list string) ([]osm.ElementRef, error) {
	var out []osm.ElementRef
	for _, s := range strings.Split(list, ",") {
		if strings.TrimSpace(s) == "" {
			continue
		}
		ref, err := core.ParseRef(s)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

func loadFile(path string) (*store.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := store.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return store.FromOSM(doc), nil
}

// resultLine is one line of CLI output
type resultLine struct {
	Ref      string            `json:"ref"`
	Building *building.Summary `json:"building,omitempty"`
	OBJ      string            `json:"obj,omitempty"`
	Error    *core.Error       `json:"error,omitempty"`
}

// writeResults prints the results and writes OBJ files. It fails when any
// building failed, after printing all of them.
func writeResults(out io.Writer, results []building.Result, dir string, logger *slog.Logger) error {
	enc := json.NewEncoder(out)
	failed := 0
	for _, r := range results {
		line := resultLine{Ref: r.Ref.String()}
		if r.Err != nil {
			failed++
			line.Error = core.AsError(r.Err)
		} else {
			s := r.Building.Summary()
			line.Building = &s
			if dir != "" {
				path, err := writeOBJ(dir, r.Building)
				if err != nil {
					return err
				}
				line.OBJ = path
				logger.Info("wrote mesh", "ref", line.Ref, "path", path)
			}
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d buildings failed", failed, len(results))
	}
	return nil
}

func writeOBJ(dir string, b *building.Building) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ref := b.Ref()
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.obj", ref.Kind, ref.ID))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := b.Mesh().WriteOBJ(f, ref.String()); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// setMonitoringHooks routes map API client events to the Prometheus metrics
func setMonitoringHooks() {
	osm.SetMonitoringHooks(&osm.MonitoringHooks{
		OnResponse:  monitoring.RecordExternalServiceRequest,
		OnRateLimit: monitoring.RecordRateLimitWait,
		OnError:     monitoring.RecordError,
	})
}

// runServer serves MCP until ctx is done or stdin closes
func runServer(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	setMonitoringHooks()
	api := cfg.NewMapAPI(logger)
	buildings := tools.NewBuildings(api, cfg.Building(logger))
	buildings.SetResources(cfg.NewMeshResources(logger))
	s := server.NewServer(buildings, logger)

	logger.Info("starting osmbuildings MCP server",
		"version", ver.String(),
		"api", cfg.API.BaseURL,
		"rps", cfg.API.RPS,
		"stdio", !httpOnly,
		"http_addr", httpAddr,
		"monitoring_addr", cfg.Server.MonitoringAddr)

	var healthChecker *monitoring.HealthChecker
	if cfg.Server.MonitoringAddr != "" {
		healthChecker = monitoring.NewHealthChecker(monitoring.ServiceName, ver.Version)
		defer healthChecker.Shutdown()

		apiMonitor := monitoring.NewConnectionMonitor("osm_api", healthChecker, api.Ping, time.Minute)
		apiMonitor.Start()
		defer apiMonitor.Stop()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/health", healthChecker.HealthHandler())
		monitoringServer := &http.Server{
			Addr:              cfg.Server.MonitoringAddr,
			Handler:           mux,
			ReadHeaderTimeout: 30 * time.Second,
		}
		go func() {
			logger.Info("starting monitoring server", "addr", cfg.Server.MonitoringAddr)
			if err := monitoringServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("monitoring server error", "error", err)
			}
		}()
		defer shutdown(monitoringServer.Shutdown, logger, "monitoring server")
	}

	if httpAddr != "" {
		transport := server.NewHTTPTransport(s.MCPServer(), cfg.Server.HTTP, logger)
		if healthChecker != nil {
			transport.SetHealthChecker(healthChecker)
		}
		go func() {
			if err := transport.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP transport error", "error", err)
			}
		}()
		defer shutdown(transport.Shutdown, logger, "HTTP transport")
	}

	if httpAddr != "" && httpOnly {
		logger.Info("server ready", "transports", []string{"http"})
		<-ctx.Done()
		return nil
	}
	return s.ServeStdio(ctx, os.Stdin, os.Stdout)
}

func shutdown(fn func(context.Context) error, logger *slog.Logger, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Error("failed to shut down "+name, "error", err)
	}
}
