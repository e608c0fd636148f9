package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"detectserver/internal/config"
	"detectserver/internal/logger"
	"detectserver/internal/repository"
	"detectserver/internal/repository/sqlite"
	"detectserver/internal/route"
	"detectserver/internal/service"
	"detectserver/internal/service/ai"
	"detectserver/internal/service/history"
	"detectserver/internal/service/storage"
	"detectserver/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlite.DB
	adapter       *ai.Adapter
	hubService    *websocket.HubService
	manager       *service.Manager
	uploadRepo    repository.UploadRepository
	detectionRepo repository.DetectionRepository
}

// NewApp builds every service from cfg. A model that fails to load leaves the
// app running degraded; storage and database failures are fatal.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &App{config: cfg, logger: log}

	store, err := storage.NewUploadStore(cfg.Storage.UploadDir)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := os.MkdirAll(cfg.Storage.RunsDir, 0755); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create runs directory: %w", err)
	}

	if cfg.Storage.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0755); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err := sqlite.New(cfg.Storage.DBPath)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
		a.uploadRepo = sqlite.NewUploadRepository(db)
		a.detectionRepo = sqlite.NewDetectionRepository(db)
		log.Info("Upload journal: %s", cfg.Storage.DBPath)
	} else {
		log.Info("Upload journal disabled")
	}

	a.adapter = ai.NewAdapterFromConfig(ctx, cfg, log)
	a.hubService = websocket.NewHubService(log)
	a.manager = service.NewManager(cfg, store, a.adapter,
		history.NewRecorder(a.uploadRepo, a.detectionRepo), a.hubService, log)

	return a, nil
}

// Handler returns the fully wired HTTP handler.
func (a *App) Handler() http.Handler {
	return route.SetupRoutes(a.manager, a.config, a.logger, a.uploadRepo, a.detectionRepo)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hubService.Run(hubCtx)

	srv := &http.Server{
		Addr:              a.config.Addr(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: a.config.Server.ReadHeaderTimeout,
	}

	a.logger.Info("Detection server listening on %s", srv.Addr)
	a.logger.Info("Uploads: %s, runs: %s", a.config.Storage.UploadDir, a.config.Storage.RunsDir)
	if err := a.adapter.Ready(); err != nil {
		a.logger.Warning("Serving without a model: %v", err)
	} else {
		a.logger.Info("Model backend: %s", a.adapter.Backend())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	stopHub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// Close releases the model, the database and the log files.
func (a *App) Close() error {
	var errs []error
	if a.adapter != nil {
		errs = append(errs, a.adapter.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.logger != nil {
		errs = append(errs, a.logger.Close())
	}
	return errors.Join(errs...)
}
