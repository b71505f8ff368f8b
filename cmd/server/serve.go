package main

import (
	"context"
	"database/sql"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/gshare/gallery-editor/internal/backend"
	"github.com/gshare/gallery-editor/internal/config"
	"github.com/gshare/gallery-editor/internal/handlers"
	custommw "github.com/gshare/gallery-editor/internal/middleware"
	"github.com/gshare/gallery-editor/internal/observability"
	"github.com/gshare/gallery-editor/internal/repository"
	"github.com/gshare/gallery-editor/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the editor server",
	Long: `Start the HTTP server that hosts editing sessions, layouts and the
session WebSocket stream.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address, overrides SERVER_ADDRESS")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.ServerAddress = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry, err := observability.Initialize(ctx, observability.Config{
		ServiceName:    "gallery-editor",
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		OTLPEndpoint:   cfg.Telemetry.Endpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Telemetry shutdown failed")
		}
	}()

	// Initialize database and draft repository
	db, drafts, err := openDrafts(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := backend.NewClient(backend.Config{
		BaseURL:   cfg.Backend.BaseURL,
		PublicURL: cfg.Backend.PublicURL,
		Token:     cfg.Backend.Token,
		Timeout:   cfg.Backend.Timeout(),
	})
	if err != nil {
		return err
	}

	grids, err := cfg.BuildGrids()
	if err != nil {
		return err
	}

	editorMetrics, err := observability.NewEditorMetrics()
	if err != nil {
		return err
	}
	httpMetrics, err := observability.NewHTTPMetrics()
	if err != nil {
		return err
	}

	// Initialize services
	hub := services.NewWebSocketHub()
	go hub.Run(ctx)

	editor := services.NewEditorService(client, drafts, hub, editorMetrics, services.EditorConfig{
		CommitTimeout: cfg.Editor.CommitTimeout(),
	})

	var placeholders services.PlaceholderFiller
	if cfg.Images.GeneratePlaceholders {
		pcfg := services.DefaultPlaceholderConfig()
		pcfg.Width = cfg.Images.BlurWidth
		pcfg.Quality = cfg.Images.BlurQuality
		pcfg.CacheSize = cfg.Images.PlaceholderCacheSize
		placeholders = services.NewPlaceholderService(client, pcfg)
	}

	layouts := services.NewLayoutService(services.LayoutConfig{
		Grids:  grids,
		Admin:  cfg.Images.AdminRender(),
		Client: cfg.Images.ClientRender(),
	}, client, client, editor, placeholders)

	maintenance := services.NewMaintenanceService(editor, services.MaintenanceConfig{
		Interval:       cfg.Editor.SweepInterval(),
		SessionIdle:    cfg.Editor.SessionIdle(),
		DraftRetention: cfg.Editor.DraftRetention(),
	})
	maintenance.Start()
	defer maintenance.Stop()

	// Initialize handlers
	editorHandler := handlers.NewEditorHandler(editor)
	layoutHandler := handlers.NewLayoutHandler(layouts)
	wsHandler := handlers.NewWebSocketHandler(hub, editor, cfg.CORS.AllowedOrigins)
	healthHandler := handlers.NewHealthHandler(editor, maintenance)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(custommw.CORSHandler(cfg.CORS.AllowedOrigins, cfg.Security.APIKeyHeader))
	r.Use(observability.TracingMiddleware("gallery-editor"))
	r.Use(observability.MetricsMiddleware(httpMetrics))
	r.Use(custommw.APIKeyAuth(cfg.Security.APIKey, cfg.Security.APIKeyHeader))

	// Routes
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/health", healthHandler.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/grids", layoutHandler.ListGrids)
		r.Get("/maintenance", healthHandler.MaintenanceStatus)

		r.Route("/galleries/{galleryID}", func(r chi.Router) {
			r.Post("/sessions", editorHandler.OpenSession)
			r.Get("/layout", layoutHandler.GalleryLayout)
		})

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", editorHandler.GetSession)
			r.Delete("/", editorHandler.CloseSession)
			r.Post("/drag", editorHandler.Drag)
			r.Post("/pointer", editorHandler.Pointer)
			r.Post("/keys", editorHandler.Key)
			r.Post("/moves", editorHandler.Move)
			r.Post("/commit", editorHandler.Commit)
			r.Post("/refresh", editorHandler.Refresh)
			r.Get("/layout", layoutHandler.SessionLayout)
			r.Get("/ws", wsHandler.HandleSessionConnection)
		})
	})

	// Create server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(map[string]interface{}{
			"addr":    cfg.ServerAddress,
			"backend": cfg.Backend.BaseURL,
			"grids":   grids.Names(),
		}).Info("Gallery editor starting")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	editor.CloseAll(shutdownCtx)

	logger.Info("Server stopped")
	return nil
}

// openDrafts connects the draft store: PostgreSQL when DATABASE_URL is set,
// SQLite otherwise
func openDrafts(cfg *config.Config) (*sql.DB, repository.DraftRepo, error) {
	logger := observability.GetLogger()

	if cfg.UsePostgres() {
		logger.Info("Using PostgreSQL draft store")
		db, err := repository.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		traced, err := observability.NewTraceDB(db, "postgresql")
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, repository.NewDraftRepositoryPostgres(traced), nil
	}

	logger.WithField("path", cfg.DatabasePath).Info("Using SQLite draft store")
	db, err := repository.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	traced, err := observability.NewTraceDB(db, "sqlite")
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, repository.NewDraftRepository(traced), nil
}
