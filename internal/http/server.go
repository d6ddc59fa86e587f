// Package http serves the dashboard page and the JSON API behind it. All
// read endpoints are derived from the loader's cached dataset; degraded
// fetches surface as warnings in the response envelope, never as 5xx.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"regalias/internal/analysis"
	"regalias/internal/cache"
	"regalias/internal/charts"
	"regalias/internal/config"
	"regalias/internal/dataset"
	"regalias/internal/geo"
	appweb "regalias/web"
)

// DataLoader is the dataset surface the read endpoints use.
type DataLoader interface {
	Load(ctx context.Context) (*dataset.Result, error)
}

// Refresher forces a refetch; implemented by services.RefreshService.
type Refresher interface {
	Refresh(ctx context.Context) (*dataset.Result, error)
}

// GeoSource provides the static geographic reference tables.
type GeoSource interface {
	Municipalities() (map[int64]geo.Municipality, error)
	Boundaries() (*geo.FeatureCollection, error)
}

type appMetrics struct {
	uptime      time.Time
	cacheHits   int64
	cacheMisses int64
	refreshes   int64
}

type Server struct {
	http.Server
	templates *template.Template

	loader    DataLoader
	refresher Refresher
	geo       GeoSource

	allowlist []string
	resolve   analysis.AliasResolver
	view      charts.ViewState
	datasetID string

	rateLimiter *rateLimiter
	secMetrics  *securityMetrics
	appMetrics  *appMetrics

	// Marshaled responses per endpoint + filter + dataset generation. Keying
	// by the result's FetchedAt means a refresh naturally misses the cache.
	responses *cache.TTLStore[[]byte]
	cleanup   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(cfg *config.Config, loader DataLoader, refresher Refresher, geoSrc GeoSource) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		loader:      loader,
		refresher:   refresher,
		geo:         geoSrc,
		allowlist:   config.FondosInteres,
		resolve:     analysis.NewAliasResolver(config.DeptNameMapping),
		view:        charts.ViewState{Latitude: config.MapCenterLat, Longitude: config.MapCenterLon, Zoom: config.MapZoom},
		datasetID:   cfg.DatasetID,
		rateLimiter: newRateLimiter(cfg.RateLimit, cfg.RateLimitWindow),
		secMetrics:  &securityMetrics{},
		appMetrics:  &appMetrics{uptime: time.Now()},
		responses:   cache.NewTTLStore[[]byte](256, cfg.CacheTTL),
		cleanup:     cache.NewManager(),
	}

	s.cleanup.Register(s.responses)
	s.cleanup.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withMiddleware(s.handleIndex))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/api/summary", s.withMiddleware(s.handleSummary))
	mux.HandleFunc("/api/filters", s.withMiddleware(s.handleFilters))
	mux.HandleFunc("/api/table", s.withMiddleware(s.handleTable))
	mux.HandleFunc("/api/charts", s.withMiddleware(s.handleCharts))
	mux.HandleFunc("/api/maps/departments", s.withMiddleware(s.handleMapDepartments))
	mux.HandleFunc("/api/maps/municipalities", s.withMiddleware(s.handleMapMunicipalities))
	mux.HandleFunc("/api/export", s.withMiddleware(s.handleExport))
	mux.HandleFunc("/api/refresh", s.withMiddleware(s.handleRefresh))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cleanup.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// cachedResponse returns the marshaled body for key, building it on miss.
func (s *Server) cachedResponse(key string, build func() ([]byte, error)) ([]byte, error) {
	if body, ok := s.responses.Get(key); ok {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		return body, nil
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	body, err := build()
	if err != nil {
		return nil, err
	}
	s.responses.Set(key, body)
	return body, nil
}
