/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the bookkeeping server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (file, BOOKS_* environment, defaults)
  3. Build the zap logger
  4. Initialize SQLite store
  5. Create API handler and router
  6. Start the audit scheduler when enabled
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to a books.yaml / books.toml file
  -port    HTTP server port (overrides app.port)
  -db      SQLite database path (overrides database.path)
           Use ":memory:" for in-memory database
  -readonly  Reject every write

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/books.db"
  ./server -db=":memory:" -port=3000
  BOOKS_SCHEDULER_ENABLED=true BOOKS_SCHEDULER_INTERVAL=15m ./server

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/bookkeeper/api"
	"github.com/warp/bookkeeper/config"
	"github.com/warp/bookkeeper/logger"
	"github.com/warp/bookkeeper/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Config file path")
	port := flag.Int("port", 0, "HTTP server port")
	dbPath := flag.String("db", "", "SQLite database path")
	readOnly := flag.Bool("readonly", false, "Reject every write")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.App.Port = fmt.Sprint(*port)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *readOnly {
		cfg.App.ReadOnly = true
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, log)
	handler.DefaultProfile = cfg.Profile.Default
	handler.ReadOnly = cfg.App.ReadOnly
	handler.Epsilon = cfg.Audit.Epsilon

	scheduler := api.NewAuditScheduler(handler, cfg.Scheduler.Profiles)
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.CheckInterval = cfg.Scheduler.Interval
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, cfg.HTTP.CORSAllowOrigins...),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("database", cfg.Database.Path),
			zap.String("env", cfg.App.Env),
			zap.Bool("readOnly", cfg.App.ReadOnly))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
