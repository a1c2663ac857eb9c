package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"scandesk/internal/config"
	"scandesk/internal/handler"
	"scandesk/internal/intakeapi"
	"scandesk/internal/port"
	"scandesk/internal/router"
	"scandesk/internal/service"
	"scandesk/internal/storage/noop"
	s3storage "scandesk/internal/storage/s3"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Analysis service client
	client := intakeapi.NewClient(&cfg.Service)

	// Initialize storage
	storage, err := newArchiveStorage(&cfg.Archive)
	if err != nil {
		return fmt.Errorf("failed to initialize archive storage: %w", err)
	}

	// Initialize services
	analyzer := service.NewAnalyzer(&cfg.Service, client, client)
	sessions := service.NewSessionRegistry(analyzer)
	defer sessions.CloseAll()
	historySvc := service.NewHistoryService(client, client, cfg.History.Limit)
	archiveSvc := service.NewArchiveService(client, storage, service.ArchiveConfig{
		Bucket:        cfg.Archive.Bucket,
		Prefix:        cfg.Archive.Prefix,
		PresignExpiry: cfg.Archive.PresignExpiry,
	})

	// Initialize handlers
	sessionH := handler.NewSessionHandler(sessions, archiveSvc)
	historyH := handler.NewHistoryHandler(historySvc)
	healthH := handler.NewHealthHandler(client)

	// Setup router
	r := router.Setup(cfg.CORS.AllowedOrigins, sessionH, historyH, healthH)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idle := cfg.Server.SessionIdleTimeout
	go sessions.RunExpiry(ctx, sessionSweepInterval(idle), idle)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s (analysis service %s, %s transport)", cfg.Server.Port, cfg.Service.BaseURL, cfg.Service.Transport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down server")
	// Close sessions first so open event streams end and drain.
	sessions.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// sessionSweepInterval checks a few times per idle window, at most once a minute.
func sessionSweepInterval(idle time.Duration) time.Duration {
	return min(idle/4, time.Minute)
}

func newArchiveStorage(cfg *config.ArchiveConfig) (port.ObjectStorage, error) {
	if cfg.Provider == config.ArchiveS3 {
		return s3storage.NewS3Client(cfg)
	}
	log.Printf("archive: provider %q, snapshots are not mirrored", cfg.Provider)
	return noop.NewNoopStorage(), nil
}
