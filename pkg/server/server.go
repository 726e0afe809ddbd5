package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kacperjurak/govarcore/internal/processing"
	"github.com/kacperjurak/govarcore/pkg/config"
	"github.com/kacperjurak/govarcore/pkg/handlers"
	"github.com/kacperjurak/govarcore/pkg/profiling"
	"github.com/kacperjurak/govarcore/pkg/store"
	"github.com/kacperjurak/govarcore/pkg/telemetry"
	"github.com/kacperjurak/govarcore/pkg/webhook"
	"github.com/kacperjurak/govarcore/pkg/worker"
)

// Server represents the HTTP server with all dependencies
type Server struct {
	config         *config.Config
	serverConfig   *config.ServerConfig
	registry       *prometheus.Registry
	metrics        *telemetry.Metrics
	store          *store.ResultStore
	ownsStore      bool
	workerPool     *worker.Pool
	webhookClient  *webhook.Client
	batchHandler   *handlers.BatchHandler
	httpServer     *http.Server
	profiler       *profiling.Profiler
	memoryProfiler *profiling.MemoryProfiler
	middleware     *profiling.Middleware
	tracer         *sdktrace.TracerProvider
}

// Options holds configuration for creating a new server
type Options struct {
	Config       *config.Config
	ServerConfig *config.ServerConfig
	// Registry defaults to a fresh registry with Go runtime collectors.
	Registry *prometheus.Registry
	// Store defaults to ServerConfig.StorePath, in memory when empty.
	Store *store.ResultStore
}

// New creates a new server instance
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.ServerConfig == nil {
		opts.ServerConfig = config.DefaultServerConfig()
	}
	if err := opts.Config.Bounds().Validate(); err != nil {
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	metrics := telemetry.InitMetrics(registry)

	s := &Server{
		config:       opts.Config,
		serverConfig: opts.ServerConfig,
		registry:     registry,
		metrics:      metrics,
		store:        opts.Store,
	}

	if s.store == nil {
		var err error
		if opts.ServerConfig.StorePath != "" {
			s.store, err = store.Open(opts.ServerConfig.StorePath)
		} else {
			s.store, err = store.OpenInMemory()
		}
		if err != nil {
			return nil, err
		}
		s.ownsStore = true
	}

	processor := processing.NewFitProcessor(opts.Config.Bounds(), opts.Config.Quiet, metrics)
	processor.MaxSearchSize = opts.ServerConfig.MaxSearchSize
	processor.Profile = opts.ServerConfig.EnableProfiling
	s.webhookClient = webhook.NewClient(opts.ServerConfig.WebhookURL, opts.Config.Quiet)

	s.workerPool = worker.New(worker.Options{
		Workers:   opts.ServerConfig.WorkerCount,
		Processor: processor.ProcessorFunc(),
		Sender:    s.webhookClient,
		Metrics:   metrics,
	})

	s.profiler = profiling.New(opts.ServerConfig)
	s.middleware = profiling.NewMiddleware(metrics, opts.ServerConfig.EnableProfiling)

	s.setupRoutes(processor)
	return s, nil
}

// setupRoutes configures HTTP routes and handlers
func (s *Server) setupRoutes(processor *processing.FitProcessor) {
	router := mux.NewRouter()

	fitHandler := handlers.NewFitHandler(processor.ProcessorFunc(), s.store, s.config.Quiet)
	s.batchHandler = handlers.NewBatchHandler(s.workerPool, s.store, handlers.BatchOptions{
		TimingFile:  s.serverConfig.TimingFile,
		Concurrency: s.serverConfig.WorkerCount,
		Quiet:       s.config.Quiet,
	})
	combinationHandler := handlers.NewCombinationHandler(s.config.Bounds(), s.serverConfig.MaxSearchSize, s.metrics)
	resultsHandler := handlers.NewResultsHandler(s.store)

	router.Handle("/fit", s.middleware.ProfiledHandler("fit", fitHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.Handle("/fit/batch", s.middleware.ProfiledHandler("fit-batch", s.batchHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.Handle("/combination", s.middleware.ProfiledHandler("combination", combinationHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.Handle("/fits", s.middleware.ProfiledHandlerFunc("fits-list", resultsHandler.List)).Methods(http.MethodGet)
	router.Handle("/fits/{id}", s.middleware.ProfiledHandlerFunc("fits-get", resultsHandler.Get)).Methods(http.MethodGet)
	router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	router.HandleFunc("/debug/gc", s.gcHandler)
	router.HandleFunc("/debug/memory", s.memoryHandler)
	if s.serverConfig.EnableMetrics {
		router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	}

	s.httpServer = &http.Server{
		Addr:         ":" + s.serverConfig.Port,
		Handler:      otelhttp.NewHandler(router, "govar"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // synchronous fits
		IdleTimeout:  60 * time.Second,
	}
}

// Handler returns the root handler of the server
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Store returns the result store
func (s *Server) Store() *store.ResultStore {
	return s.store
}

// healthHandler provides a simple health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// gcHandler triggers garbage collection and returns stats
func (s *Server) gcHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(profiling.ForceGC())
}

// memoryHandler refreshes the runtime gauges and returns memory statistics
func (s *Server) memoryHandler(w http.ResponseWriter, r *http.Request) {
	profiling.SampleRuntime(s.metrics)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(profiling.ReadRuntimeInfo())
}

// Start starts the HTTP server and blocks until it is shut down
func (s *Server) Start() error {
	if s.serverConfig.EnableTracing {
		tp, err := telemetry.InitTracing(context.Background())
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		s.tracer = tp
		log.Println("🛰️  Tracing enabled")
	}

	if err := s.profiler.Start(); err != nil {
		log.Printf("❌ Failed to start profiler: %v", err)
	}
	if s.serverConfig.EnableProfiling {
		s.memoryProfiler = profiling.NewMemoryProfiler(30*time.Second, s.metrics, s.config.Quiet)
		s.memoryProfiler.Start()
	}

	log.Println("🚀 Starting HTTP server on port", s.serverConfig.Port)
	log.Println("📡 Endpoints available:")
	log.Printf("  - Fit:         http://localhost:%s/fit", s.serverConfig.Port)
	log.Printf("  - Batch:       http://localhost:%s/fit/batch", s.serverConfig.Port)
	log.Printf("  - Combination: http://localhost:%s/combination", s.serverConfig.Port)
	log.Printf("  - Results:     http://localhost:%s/fits/{id}", s.serverConfig.Port)
	log.Printf("  - Health:      http://localhost:%s/health", s.serverConfig.Port)
	if s.serverConfig.EnableMetrics {
		log.Printf("  - Metrics:     http://localhost:%s/metrics", s.serverConfig.Port)
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, drains running batches and webhooks and
// releases the store.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("🛑 Shutting down server...")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}

	s.batchHandler.Wait()
	s.workerPool.Shutdown()

	if err := s.profiler.Stop(); err != nil {
		log.Printf("⚠️ Profiler shutdown error: %v", err)
	}
	if s.memoryProfiler != nil {
		s.memoryProfiler.Stop()
	}
	if s.tracer != nil {
		if err := s.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer: %w", err))
		}
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	log.Println("✅ Server shutdown complete")
	return errors.Join(errs...)
}
