// The waypostd command runs the Waypost development ingestion server. It
// accepts batches on POST /monitoring/<category> and stores them in memory
// or, when a database URL is configured, in PostgreSQL.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/waypost/waypost/internal/waypost/database"
	"github.com/waypost/waypost/internal/waypost/ingest"
	ingestpg "github.com/waypost/waypost/internal/waypost/ingest/postgres"
)

func main() {
	addr := flag.String("addr", ":8420", "listen address")
	databaseURL := flag.String("database-url", os.Getenv("WAYPOST_DATABASE_URL"), "postgres connection string (empty for in-memory store)")
	flag.Parse()

	// Initialize structured logging with JSON format for easier parsing
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	zlogger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	var repo ingest.Repository
	if *databaseURL != "" {
		db, err := database.SetupDatabase(*databaseURL, 5, time.Second)
		if err != nil {
			logger.Error("failed to setup database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		repo = ingestpg.NewRepository(db)
		logger.Info("using postgres event store")
	} else {
		repo = ingest.NewMemoryRepository()
		logger.Info("using in-memory event store")
	}

	service := ingest.NewService(repo, logger)
	handler := ingest.NewHandler(service, zlogger)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Mount("/monitoring", handler.Router())

	server := &http.Server{
		Addr:         *addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the server in a goroutine to allow for graceful shutdown
	go func() {
		logger.Info("starting ingestion server", "addr", *addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Set up graceful shutdown on interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	<-shutdown
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
