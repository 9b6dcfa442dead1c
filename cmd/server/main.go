// Package main provides the entry point for the CEPREUNA enrollment
// statistics service. It initializes all dependencies, sets up HTTP routes
// with middleware, and starts the server with graceful shutdown support.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/edwingoed13/c3pr3-2025-2/internal/cache"
	"github.com/edwingoed13/c3pr3-2025-2/internal/config"
	"github.com/edwingoed13/c3pr3-2025-2/internal/handlers"
	"github.com/edwingoed13/c3pr3-2025-2/internal/lookup"
	"github.com/edwingoed13/c3pr3-2025-2/internal/middleware"
	"github.com/edwingoed13/c3pr3-2025-2/internal/portal"
	"github.com/edwingoed13/c3pr3-2025-2/pkg/logger"
)

func main() {
	// Load .env.local file only in development (when GO_ENV is not set or set to "development")
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" || goEnv == "development" {
		if err := godotenv.Load(".env.local"); err != nil {
			// Only log if the error is not "file not found"
			if !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "Warning: Error loading .env.local file: %v\n", err)
			}
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log.Info("Starting CEPREUNA enrollment statistics service")
	log.WithFields(logrus.Fields{
		"port":         cfg.Server.Port,
		"host":         cfg.Server.Host,
		"portal":       cfg.Portal.BaseURL,
		"has_email":    cfg.Portal.Email != "",
		"has_password": cfg.Portal.Password != "",
	}).Info("Service configuration loaded")

	if !cfg.HasCredentials() {
		log.Warn("CEPREUNA_EMAIL and CEPREUNA_PASSWORD are not set; portal fetches will fail until a manual login")
	}

	// Set up HTTP server
	server := setupServer(cfg, log)

	// Start and run server with graceful shutdown
	runServer(server, cfg, log)
}

func setupServer(cfg *config.Config, log *logrus.Logger) *http.Server {
	// Core portal machinery: session, fetcher, retry
	sessions := portal.NewSessionManager(&cfg.Portal, log)
	fetcher := portal.NewFetcher(&cfg.Portal, sessions, log)
	retrier := portal.NewRetrier(sessions, cfg.Portal.RetryAttempts, cfg.Portal.RetryBackoff, log)

	// Statistics cache and lookup service
	store := cache.NewStore(cfg.Cache.Duration, sessions, log)
	sheets := lookup.NewService(&cfg.Portal, fetcher, log)

	// Handlers and metrics
	metrics := handlers.NewMetrics()
	apiHandler := handlers.NewAPIHandler(cfg, sessions, fetcher, retrier, store, sheets, metrics, log)
	healthHandler := handlers.NewHealthHandler(log)

	// Initialize middleware
	middlewareStack := middleware.NewStack(cfg, metrics, log)

	// Set up routes
	router := mux.NewRouter()

	// Health probes and metrics
	router.HandleFunc("/health", healthHandler.Liveness).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/api/health", healthHandler.Health).Methods(http.MethodGet, http.MethodHead)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// API routes
	apiHandler.RegisterRoutes(router)

	// Apply middleware to the entire router
	finalHandler := middlewareStack.Chain(
		router,
		middlewareStack.Recovery,
		middlewareStack.RequestLogger,
		middlewareStack.SecurityHeaders,
		middlewareStack.CORS,
	)

	// Create HTTP server
	return &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      finalHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func runServer(server *http.Server, cfg *config.Config, log *logrus.Logger) {
	// Start server in a goroutine
	go startServer(server, log)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Create context with timeout for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.WithError(shutdownErr).Error("Server forced to shutdown")
	} else {
		log.Info("Server exited gracefully")
	}
}

func startServer(server *http.Server, log *logrus.Logger) {
	log.WithField("addr", server.Addr).Info("Starting HTTP server")

	if startErr := server.ListenAndServe(); startErr != nil && startErr != http.ErrServerClosed {
		log.WithError(startErr).Fatal("Failed to start server")
	}
}
