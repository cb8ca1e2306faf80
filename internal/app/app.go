package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vadim/beehiiv-metric/internal/config"
	httpcontroller "github.com/vadim/beehiiv-metric/internal/controller/http"
	"github.com/vadim/beehiiv-metric/internal/domain/report/policy"
	"github.com/vadim/beehiiv-metric/internal/domain/report/scheduler"
	"github.com/vadim/beehiiv-metric/internal/domain/report/service"
	"github.com/vadim/beehiiv-metric/internal/export"
	"github.com/vadim/beehiiv-metric/internal/httpx/upstream/analyzer"
	"github.com/vadim/beehiiv-metric/internal/httpx/upstream/beehiiv"
	"github.com/vadim/beehiiv-metric/internal/session"
	"github.com/vadim/beehiiv-metric/internal/storage"
)

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	// Infrastructure
	store    session.Store
	sessions *session.Manager
	renderer *export.ChromedpRenderer
	archive  *storage.S3Storage

	// Upstream clients
	beehiiv  *beehiiv.Client
	analyzer *analyzer.Client

	// Report domain
	workspaces   *service.Workspaces
	reportPolicy *policy.Policy
	exporter     *export.Exporter

	// Scheduler releasing the images of idle sessions
	sweeper *scheduler.Scheduler
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Log.Level),
	}))

	// Initialize router with middleware
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", httpcontroller.HeaderAPIKey, httpcontroller.HeaderPublicationID},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: !allowsAnyOrigin(cfg.Server.AllowedOrigins),
		MaxAge:           300,
	}))

	app := &App{
		cfg:    cfg,
		router: r,
		logger: logger,
	}

	// Initialize infrastructure
	if err := app.initInfrastructure(ctx); err != nil {
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	// Initialize domain layers
	if err := app.initDomains(ctx); err != nil {
		return nil, fmt.Errorf("initializing domains: %w", err)
	}

	// Register routes
	app.registerRoutes()

	// Initialize HTTP server
	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Initialize sweeper
	app.sweeper = scheduler.New(app.workspaces, cfg.Report.SweepInterval, cfg.Session.TTL, logger)

	return app, nil
}

// initInfrastructure initializes infrastructure components (session store, renderer, archive)
func (a *App) initInfrastructure(ctx context.Context) error {
	store, err := session.NewStore(a.cfg.Session.RedisURL, a.cfg.Session.RedisPrefix)
	if err != nil {
		return err
	}
	if a.cfg.Session.RedisURL != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		a.logger.Info("using redis session store")
	} else {
		a.logger.Warn("REDIS_URL not set, keeping sessions in memory")
	}
	a.store = store

	a.sessions = session.NewManager(session.CookieOptions{
		Secret: a.cfg.Session.Secret,
		MaxAge: int(a.cfg.Session.TTL.Seconds()),
		Secure: a.cfg.Session.CookieSecure,
	}, a.logger)

	a.renderer = export.NewChromedpRenderer(export.ChromedpConfig{
		RemoteURL: a.cfg.Export.ChromeURL,
		NoSandbox: a.cfg.Export.NoSandbox,
		Timeout:   a.cfg.Export.Timeout,
		Logger:    a.logger,
	})

	if a.cfg.Export.ArchiveEnabled {
		archive, err := storage.NewS3Storage(storage.S3Config{
			Endpoint:        a.cfg.S3.Endpoint,
			AccessKeyID:     a.cfg.S3.AccessKeyID,
			SecretAccessKey: a.cfg.S3.SecretAccessKey,
			Bucket:          a.cfg.S3.Bucket,
			Region:          a.cfg.S3.Region,
			PublicURL:       a.cfg.S3.PublicURL,
		})
		if err != nil {
			return fmt.Errorf("creating export archive: %w", err)
		}
		a.archive = archive
	}

	return nil
}

// initDomains initializes upstream clients and domain layers (Service, Policy)
func (a *App) initDomains(ctx context.Context) error {
	a.beehiiv = beehiiv.New(
		beehiiv.WithBaseURL(a.cfg.Beehiiv.BaseURL),
		beehiiv.WithTimeout(a.cfg.Beehiiv.Timeout),
	)

	a.analyzer = analyzer.New(
		analyzer.WithBaseURL(a.cfg.Analyzer.BaseURL),
		analyzer.WithAPIKey(a.cfg.Analyzer.APIKey),
		analyzer.WithHTTPClient(&http.Client{Timeout: a.cfg.Analyzer.Timeout}),
	)
	if a.cfg.Analyzer.BaseURL == "" {
		a.logger.Warn("ANALYZER_BASE_URL not set, image analysis is unavailable")
	}

	a.workspaces = service.NewWorkspaces()
	analysis := service.NewAnalysis(&imageAnalyzerAdapter{a.analyzer}, a.cfg.Report.AnalysisConcurrency, a.logger)
	a.reportPolicy = policy.New(analysis, &summaryGeneratorAdapter{a.analyzer}, a.logger)

	var archive export.Archiver
	if a.archive != nil {
		archive = a.archive
	}
	a.exporter = export.NewExporter(a.renderer, archive, a.logger)

	return nil
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() {
	// Health checks
	healthHandler := httpcontroller.NewHealthHandler(a.store, a.logger)
	healthHandler.RegisterRoutes(a.router)

	credentials := httpcontroller.NewCredentialResolver(a.store, beehiiv.Credentials{
		APIKey:        a.cfg.Beehiiv.APIKey,
		PublicationID: a.cfg.Beehiiv.PublicationID,
	}, a.logger)
	ttl := a.cfg.Session.TTL

	a.router.Route("/api", func(r chi.Router) {
		r.Use(a.sessions.Middleware)

		// Beehiiv proxy and single-shot analysis
		proxyHandler := httpcontroller.NewProxyHandler(a.beehiiv, credentials, a.logger)
		proxyHandler.RegisterRoutes(r)

		analysisHandler := httpcontroller.NewAnalysisHandler(a.analyzer, a.cfg.Analyzer.MaxImageWidth, a.logger)
		analysisHandler.RegisterRoutes(r)

		// API v1
		r.Route("/v1", func(r chi.Router) {
			sessionHandler := httpcontroller.NewSessionHandler(a.store, ttl, a.workspaces, a.logger)
			sessionHandler.RegisterRoutes(r)

			postsHandler := httpcontroller.NewPostsHandler(a.beehiiv, credentials, a.store, ttl, a.workspaces, a.logger)
			postsHandler.RegisterRoutes(r)

			dashboardHandler := httpcontroller.NewDashboardHandler(a.beehiiv, credentials, a.exporter, a.logger)
			dashboardHandler.RegisterRoutes(r)

			reportHandler := httpcontroller.NewReportHandler(httpcontroller.ReportHandlerConfig{
				Policy:        a.reportPolicy,
				Store:         a.store,
				TTL:           ttl,
				Workspaces:    a.workspaces,
				Exporter:      a.exporter,
				MaxImageWidth: a.cfg.Analyzer.MaxImageWidth,
				Logger:        a.logger,
			})
			reportHandler.RegisterRoutes(r)
		})
	})
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	a.sweeper.Start(ctx)

	// Channel to receive errors from server
	errCh := make(chan error, 1)

	// Start HTTP server in goroutine
	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	// Graceful shutdown
	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	a.sweeper.Stop()

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	a.renderer.Close()
	if rs, ok := a.store.(*session.RedisStore); ok {
		if err := rs.Close(); err != nil {
			a.logger.Warn("closing redis", "error", err)
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
