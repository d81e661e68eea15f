// Package server provides the HTTP gateway that wires the retrieval
// pipeline together.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fusesearch/fuse-search/internal/breaker"
	"github.com/fusesearch/fuse-search/internal/bus"
	"github.com/fusesearch/fuse-search/internal/cache"
	"github.com/fusesearch/fuse-search/internal/config"
	"github.com/fusesearch/fuse-search/internal/embed"
	"github.com/fusesearch/fuse-search/internal/fusion"
	"github.com/fusesearch/fuse-search/internal/graph"
	"github.com/fusesearch/fuse-search/internal/lane"
	"github.com/fusesearch/fuse-search/internal/metrics"
	"github.com/fusesearch/fuse-search/internal/orchestrator"
	reqctx "github.com/fusesearch/fuse-search/internal/pkg/context"
	"github.com/fusesearch/fuse-search/internal/pkg/logger"
	"github.com/fusesearch/fuse-search/internal/pkg/middleware"
	"github.com/fusesearch/fuse-search/internal/pkg/security"
	"github.com/fusesearch/fuse-search/internal/provider"
	"github.com/fusesearch/fuse-search/internal/qdrant"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// Server is the HTTP gateway for the retrieval pipeline.
type Server struct {
	cfg     *config.Config
	version string
	log     *logger.Logger

	orch     *orchestrator.Orchestrator
	cache    cache.Cache
	metrics  *metrics.Metrics
	bus      bus.Bus
	breakers *breaker.Registry
	limiter  *middleware.RateLimiter

	qdrant     *qdrant.Client
	httpServer *http.Server

	mu      sync.RWMutex
	started bool
}

// New wires the full pipeline from configuration.
func New(cfg *config.Config, version string, log *logger.Logger) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		version: version,
		log:     log,
	}

	if cfg.Observability.MetricsEnabled {
		s.metrics = metrics.New()
	}

	eventBus, err := bus.NewBus(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("create event bus: %w", err)
	}
	s.bus = eventBus

	s.breakers = breaker.NewRegistry(breaker.Config{
		Threshold: cfg.Breaker.Threshold,
		Cooldown:  time.Duration(cfg.Breaker.CooldownSeconds) * time.Second,
		OnStateChange: func(upstream string, from, to breaker.State) {
			if s.metrics != nil {
				s.metrics.SetBreakerState(upstream, breakerStateValue(to))
			}
			event := bus.NewEvent(bus.TopicBreakerStateChanged, map[string]string{
				"upstream": upstream,
				"from":     from.String(),
				"to":       to.String(),
			})
			if err := s.bus.Publish(context.Background(), bus.TopicBreakerStateChanged, event); err != nil {
				log.Warn("breaker event publish failed", "error", err)
			}
		},
	}, log)

	executors, err := s.buildExecutors()
	if err != nil {
		return nil, err
	}

	fuser, err := fusion.New(cfg.Fusion.Strategy, fusion.Weights{
		Web:    cfg.Fusion.WebWeight,
		Vector: cfg.Fusion.VectorWeight,
		Graph:  cfg.Fusion.GraphWeight,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("create fuser: %w", err)
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Budget: orchestrator.BudgetFromConfig(cfg.Budgets),
		Enabled: map[retrieval.Lane]bool{
			retrieval.LaneWebSearch:      cfg.Lanes.WebSearch,
			retrieval.LaneVectorSearch:   cfg.Lanes.VectorSearch,
			retrieval.LaneKnowledgeGraph: cfg.Lanes.KnowledgeGraph,
		},
		Sequential: cfg.Lanes.Sequential,
	}, executors, fuser, s.metrics, s.bus, log)
	if err != nil {
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}
	s.orch = orch

	inner, err := cache.NewCache(cfg.Cache, log)
	if err != nil {
		return nil, fmt.Errorf("create response cache: %w", err)
	}
	s.cache = cache.NewGuarded(inner, s.breakers.Get("cache"), log)

	if cfg.Security.RateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: float64(cfg.Security.RateLimit),
			Burst:             cfg.Security.RateLimit * 2,
			CleanupInterval:   time.Minute,
		})
	}

	return s, nil
}

// buildExecutors constructs the lane executors for the lanes enabled in
// config. Disabled lanes get no executor and no backend connection.
func (s *Server) buildExecutors() ([]lane.Executor, error) {
	var executors []lane.Executor
	cfg := s.cfg

	if cfg.Lanes.WebSearch {
		providers := s.buildWebProviders()

		keyed := append([]string{}, cfg.Providers.Keyed...)
		keyless := append([]string{}, cfg.Providers.Keyless...)
		credentials := map[string]string{
			"brave":  cfg.Providers.BraveAPIKey,
			"serper": cfg.Providers.SerperAPIKey,
		}
		for _, f := range cfg.Providers.Feeds {
			providers[f.Name] = provider.NewFeed(f.Name, f.URL, f.APIKey)
			if f.APIKey != "" {
				keyed = append(keyed, f.Name)
				credentials[f.Name] = f.APIKey
			} else {
				keyless = append(keyless, f.Name)
			}
		}

		manager := provider.NewManager(
			map[retrieval.Lane]provider.Table{
				retrieval.LaneWebSearch: {
					Keyed:   keyed,
					Keyless: keyless,
				},
			},
			credentials,
			cfg.Providers.KeylessFallback,
		)
		executors = append(executors, lane.NewWebSearch(
			providers,
			manager,
			s.breakers,
			time.Duration(cfg.Providers.ProviderTimeoutMs)*time.Millisecond,
			s.log,
		))
	}

	if cfg.Lanes.VectorSearch {
		qc, err := qdrant.NewClient(qdrant.ClientConfig{
			Host:   cfg.Qdrant.Host,
			Port:   cfg.Qdrant.Port,
			APIKey: cfg.Qdrant.APIKey,
			UseTLS: cfg.Qdrant.UseTLS,
		})
		if err != nil {
			return nil, fmt.Errorf("create qdrant client: %w", err)
		}
		s.qdrant = qc

		embedder := embed.NewClient(embed.Config{
			URL:    cfg.Embedder.URL,
			APIKey: cfg.Embedder.APIKey,
			Model:  cfg.Embedder.Model,
		})
		executors = append(executors, lane.NewVectorSearch(
			embedder, qc, cfg.Qdrant.Collection, s.breakers, s.log))
	}

	if cfg.Lanes.KnowledgeGraph {
		querier := graph.NewClient(graph.Config{
			URL:    cfg.Graph.URL,
			APIKey: cfg.Graph.APIKey,
		})
		executors = append(executors, lane.NewKnowledgeGraph(querier, s.breakers, s.log))
	}

	return executors, nil
}

// buildWebProviders constructs every provider named in the lane tables.
func (s *Server) buildWebProviders() map[string]provider.WebProvider {
	cfg := s.cfg.Providers
	providers := make(map[string]provider.WebProvider)

	names := append(append([]string{}, cfg.Keyed...), cfg.Keyless...)
	for _, name := range names {
		switch name {
		case "brave":
			providers[name] = provider.NewBrave(cfg.BraveAPIKey)
		case "serper":
			providers[name] = provider.NewSerper(cfg.SerperAPIKey)
		case "duckduckgo":
			providers[name] = provider.NewDuckDuckGo()
		case "wikipedia":
			providers[name] = provider.NewWikipedia()
		default:
			s.log.Warn("unknown web provider in config", "provider", name)
		}
	}
	return providers
}

func breakerStateValue(s breaker.State) float64 {
	switch s {
	case breaker.StateOpen:
		return 2
	case breaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}

// Start starts the HTTP server. Blocks until the listener fails or the
// server is stopped.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true
	s.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	s.log.Info("starting HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server and closes backends.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("HTTP shutdown error", "error", err)
	}

	if s.qdrant != nil {
		s.qdrant.Close()
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.bus != nil {
		s.bus.Close()
	}

	s.started = false
	s.log.Info("server stopped")
	return nil
}

// routes configures all HTTP routes.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/retrieve", s.handleRetrieve)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/version", s.handleVersion)

	if s.metrics != nil {
		path := s.cfg.Observability.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, s.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = corsMiddleware(handler, s.cfg.Security.CORSOrigins)
	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}
	return s.logRequests(handler)
}

// logRequests wraps the handler with request-ID assignment and logging.
func (s *Server) logRequests(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = reqctx.NewRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		r = r.WithContext(reqctx.WithRequestID(r.Context(), requestID))

		handler.ServeHTTP(wrapped, r)

		s.log.Debug("HTTP request",
			"method", r.Method,
			"path", security.SanitizeForLog(r.URL.Path),
			"status", wrapped.status,
			"request_id", requestID,
			"duration_ms", time.Since(start).Milliseconds(),
			"headers", security.MaskSensitiveHeaders(r.Header),
		)
	})
}

// statusWriter captures the response status for logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// corsMiddleware applies the configured CORS policy.
func corsMiddleware(next http.Handler, origins string) http.Handler {
	if origins == "" {
		origins = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
