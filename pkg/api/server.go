// Package api serves read-only JSON queries over a building graph.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-bim/pkg/aggregate"
	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/derive"
	"github.com/dd0wney/cluso-bim/pkg/health"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/metrics"
	"github.com/dd0wney/cluso-bim/pkg/storage"
	"github.com/dd0wney/cluso-bim/pkg/traversal"
)

// Config wires a Server. Loader may be nil when the graph is loaded by
// another process.
type Config struct {
	Engine         *traversal.Engine
	Aggregator     *aggregate.Aggregator
	Loader         *derive.Loader
	Anchors        bim.AnchorSet
	Metrics        *metrics.Registry
	Logger         logging.Logger
	RequestTimeout time.Duration
}

// Server represents the HTTP API server
type Server struct {
	engine         *traversal.Engine
	aggregator     *aggregate.Aggregator
	loader         *derive.Loader
	anchors        bim.AnchorSet
	metrics        *metrics.Registry
	health         *health.Checker
	logger         logging.Logger
	requestTimeout time.Duration
}

// pinger is implemented by stores with a connectivity check
type pinger interface {
	Ping(ctx context.Context) error
}

// NewServer creates a new API server
func NewServer(cfg Config) *Server {
	s := &Server{
		engine:         cfg.Engine,
		aggregator:     cfg.Aggregator,
		loader:         cfg.Loader,
		anchors:        cfg.Anchors,
		metrics:        cfg.Metrics,
		logger:         logging.OrDefault(cfg.Logger).With(logging.Component("api")),
		requestTimeout: cfg.RequestTimeout,
		health:         health.NewChecker(),
	}
	if s.metrics == nil {
		s.metrics = metrics.DefaultRegistry()
	}
	if s.anchors == nil {
		s.anchors = bim.DefaultAnchors()
	}
	s.initHealthChecks()
	return s
}

func (s *Server) initHealthChecks() {
	store := s.engine.Store()
	ping := func(ctx context.Context) error {
		if p, ok := store.(pinger); ok {
			return p.Ping(ctx)
		}
		_, err := store.CountVertices(ctx)
		return err
	}

	s.health.RegisterLivenessCheck("memory", health.MemoryCheck(0))
	s.health.RegisterReadinessCheck("store", health.StoreCheck(storage.Describe(store), ping))
	if s.loader != nil {
		s.health.RegisterReadinessCheck("graph", health.GraphLoadedCheck(func() (string, time.Time, bool) {
			last := s.loader.Last()
			if last == nil {
				return "", time.Time{}, false
			}
			return last.LoadID, last.LoadedAt, true
		}))
	}
}

// Handler returns the routed API with its middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health.LivenessHandler())
	mux.HandleFunc("GET /ready", s.health.ReadinessHandler())
	mux.Handle("GET /metrics", s.metricsHandler())

	mux.HandleFunc("GET /elements", s.handleElementsByType)
	mux.HandleFunc("GET /elements/{id}", s.handleElement)
	mux.HandleFunc("GET /elements/{id}/children", s.handleChildren)
	mux.HandleFunc("GET /elements/{id}/descendants", s.handleDescendants)
	mux.HandleFunc("GET /elements/{id}/ancestors", s.handleAncestors)
	mux.HandleFunc("GET /elements/{id}/connected-rooms", s.handleConnectedRooms)
	mux.HandleFunc("GET /elements/{id}/openings", s.handleOpenings)
	mux.HandleFunc("GET /path", s.handlePath)

	mux.HandleFunc("GET /buildings/{id}/statistics", s.handleStatistics)
	mux.HandleFunc("GET /buildings/{id}/capacity", s.handleCapacity)
	mux.HandleFunc("GET /metadata", s.handleMetadata)
	mux.HandleFunc("GET /info", s.handleInfo)

	var h http.Handler = mux
	h = s.metricsMiddleware(h)
	h = s.timeoutMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.panicRecoveryMiddleware(h)
	return h
}

func (s *Server) metricsHandler() http.Handler {
	inner := promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.UpdateSystemMetrics()
		inner.ServeHTTP(w, r)
	})
}
