/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the tally service: the sales-performance
  tracking module of the Lariv platform.

STARTUP SEQUENCE:
  1. Load configuration (env + optional .env)
  2. Parse command-line flags (override config)
  3. Initialize SQLite store
  4. Create API handler and session scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides TALLY_DB)
           Use ":memory:" for an in-memory database

ENVIRONMENT:
  PORT, TALLY_DB, LOG_LEVEL, ENVIRONMENT, CORS_ORIGINS,
  SESSION_SEED_FROM, SESSION_CRON_SPEC - see config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the session scheduler
  4. Close the database connection

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Session pre-generation
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lariv/tally-engine/api"
	"github.com/lariv/tally-engine/config"
	"github.com/lariv/tally-engine/logger"
	"github.com/lariv/tally-engine/store/sqlite"
	"github.com/lariv/tally-engine/tally"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags override environment
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	log := logger.New(cfg)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Initialize handler and session scheduler
	handler := api.NewHandler(store, log)

	seedFrom, err := tally.ParseDate(cfg.SessionSeedFrom)
	if err != nil {
		log.WithError(err).Fatal("invalid SESSION_SEED_FROM")
	}
	scheduler := api.NewSessionScheduler(handler.Service, seedFrom, cfg.SessionCronSpec, log)
	if err := scheduler.Start(); err != nil {
		log.WithError(err).Fatal("failed to start session scheduler")
	}
	defer scheduler.Stop()

	// Create server
	router := api.NewRouter(handler, cfg.AllowedOrigins)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infof("tally service listening on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
