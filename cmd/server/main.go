package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dressline/internal/app"
	"dressline/internal/appmode"
	"dressline/internal/auth"
	"dressline/internal/config"
	"dressline/internal/handler"
	"dressline/internal/middleware"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	logger, closeLog, err := config.NewLogger(cfg, "server")
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"backup_backend", cfg.BackupBackend,
		"remote", cfg.RemoteDBURL != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open stores and build services
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer application.Close()

	source, err := application.Seeder.Bootstrap(ctx, cfg.StaticDataFile)
	if err != nil {
		log.Fatalf("Failed to bootstrap local store: %v", err)
	}
	logger.Info("local store ready", "source", source)

	// Admin token verification is optional
	var jwtVerifier auth.JWTVerifier
	if cfg.JWKSURL != "" {
		jwtVerifier, err = auth.NewJWTVerifier(ctx, cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer jwtVerifier.Close()
	} else {
		logger.Warn("JWKS_URL not set: write routes are guarded by app mode only")
	}

	unsubscribe := application.Mode.Subscribe(func(mode appmode.Mode) {
		logger.Info("app mode switched", "mode", mode)
	})
	defer unsubscribe()

	// Start scheduled backups
	application.Runner.Start()

	handlers := &handler.Handlers{
		Books:    handler.NewBookHandler(application.Books, application.Modules, logger),
		Modules:  handler.NewModuleHandler(application.Modules, application.Handles, logger),
		Backup:   handler.NewBackupHandler(application.Backups, logger),
		Snapshot: handler.NewSnapshotHandler(application.Snapshot, logger),
		Sync:     handler.NewSyncHandler(application.Sync, logger),
		Mode:     handler.NewModeHandler(application.Mode, logger),
	}

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handlers.Register(mux,
		middleware.RequireAdmin(application.Mode, jwtVerifier, logger),
		middleware.RequireToken(jwtVerifier, logger),
	)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → RequestLogger → Routes
	h = middleware.RequestLogger(logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be outermost to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     h,
		ReadTimeout: 60 * time.Second, // large PDF and snapshot uploads
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
