package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/liamcoop/pdc/answerers"
	"github.com/liamcoop/pdc/calculator"
	"github.com/liamcoop/pdc/flowchart"
	"github.com/liamcoop/pdc/internal/config"
	"github.com/liamcoop/pdc/internal/logger"
	"github.com/liamcoop/pdc/jurisdiction"
	"github.com/liamcoop/pdc/metadata"
)

type Server struct {
	db         *sql.DB
	charts     *jurisdiction.Manager
	items      metadata.Store
	calculator *calculator.Calculator
	router     *chi.Mux
}

// NewServer connects to the configured database and wires the server.
// Without a database URL everything lives in memory.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	if cfg.Database.URL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		return NewServerWithDB(ctx, nil, cfg)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s, err := NewServerWithDB(ctx, db, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewServerWithDB wires stores, charts and calculator around db. A nil db selects in-memory stores.
func NewServerWithDB(ctx context.Context, db *sql.DB, cfg *config.Config) (*Server, error) {
	compiler, err := answerers.NewCompiler()
	if err != nil {
		return nil, fmt.Errorf("failed to create expression compiler: %w", err)
	}
	registry, err := answerers.Builtins(compiler)
	if err != nil {
		return nil, fmt.Errorf("failed to register answerers: %w", err)
	}

	var (
		chartStore flowchart.Store
		itemStore  metadata.Store
	)
	if db != nil {
		chartStore = flowchart.NewPostgresStore(db)
		itemStore = metadata.NewPostgresStore(db)
	} else {
		chartStore = flowchart.NewInMemoryStore()
		itemStore = metadata.NewInMemoryStore()
	}

	cache := metadata.NewInMemoryCache(metadata.CacheConfig{
		TTL:        cfg.Cache.ItemTTL,
		MaxEntries: cfg.Cache.MaxEntries,
	})

	charts := jurisdiction.NewManager(chartStore, registry, compiler)
	logger.Info("Loading flow charts...")
	if err := charts.LoadAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to load flow charts: %w", err)
	}
	if err := seedCharts(ctx, charts, cfg.Charts.Dir); err != nil {
		return nil, err
	}
	logger.Info("Flow charts ready", "jurisdictions", charts.List())

	calc := calculator.New(calculator.Options{
		MaxSteps:          cfg.Calculator.MaxSteps,
		Concurrency:       cfg.Calculator.Concurrency,
		DefaultAssumption: cfg.Calculator.Assumption,
	})

	s := NewServerWithStores(charts, metadata.NewCachedStore(itemStore, cache), calc)
	s.db = db
	return s, nil
}

// NewServerWithStores builds a server around already wired components
func NewServerWithStores(charts *jurisdiction.Manager, items metadata.Store, calc *calculator.Calculator) *Server {
	s := &Server{
		charts:     charts,
		items:      items,
		calculator: calc,
	}
	s.setupRoutes()
	return s
}

// seedCharts publishes the definitions in dir for every jurisdiction that has no chart yet
func seedCharts(ctx context.Context, charts *jurisdiction.Manager, dir string) error {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		logger.Warn("Flow chart directory not found, skipping seed", "dir", dir)
		return nil
	}

	defs, err := flowchart.LoadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to load flow charts from %s: %w", dir, err)
	}

	for _, def := range defs {
		if _, err := charts.Get(def.Jurisdiction); err == nil {
			continue
		}
		if _, err := charts.Update(ctx, def); err != nil {
			return fmt.Errorf("failed to seed flow chart %s: %w", def.ID, err)
		}
	}
	return nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Calculation
		r.Post("/calculate", s.handleCalculate)
		r.Post("/calculate/batch", s.handleCalculateBatch)

		// Flow chart management
		r.Route("/jurisdictions", func(r chi.Router) {
			r.Get("/", s.handleListJurisdictions)
			r.Get("/{jurisdiction}/flowchart", s.handleGetFlowchart)
			r.Put("/{jurisdiction}/flowchart", s.handlePutFlowchart)
			r.Delete("/{jurisdiction}/flowchart", s.handleDeleteFlowchart)
		})

		// Item metadata
		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.handleListItems)
			r.Post("/", s.handleCreateItem)
			r.Get("/{itemId}", s.handleGetItem)
			r.Delete("/{itemId}", s.handleDeleteItem)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// newHTTPServer applies the configured timeouts and instruments every request
func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      otelhttp.NewHandler(handler, "pdc-server"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func main() {
	configPath := flag.String("config", "pdc.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		logger.Fatal("Invalid environment", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid config", "error", err)
	}
	if level, err := logger.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	server, err := NewServer(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to create server", "error", err)
	}
	defer server.Close()

	httpServer := newHTTPServer(cfg, server)

	// Graceful shutdown handling
	go func() {
		logger.Info("Server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}
