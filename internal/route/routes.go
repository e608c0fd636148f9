package route

import (
	"net/http"

	"detectserver/internal/config"
	"detectserver/internal/handler"
	"detectserver/internal/logger"
	"detectserver/internal/middleware"
	"detectserver/internal/repository"
	"detectserver/internal/service"
)

// SetupRoutes registers the upload gateway, run file serving, the journal
// API and the live feed, and wraps the mux with the middleware chain.
// uploadRepo and detectionRepo may be nil when history is disabled.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger,
	uploadRepo repository.UploadRepository, detectionRepo repository.DetectionRepository) http.Handler {
	mux := http.NewServeMux()

	// Gateway
	mux.Handle("POST /upload", middleware.MaxBytes(cfg.Server.MaxUploadBytes)(
		handler.UploadHandler(manager, cfg, logger)))
	mux.HandleFunc("GET /health", handler.HealthHandler(manager))
	mux.HandleFunc("GET /runs/{run}/{file...}", handler.RunFileHandler(manager.GetAdapter().RunsDir()))

	// Journal endpoints
	mux.HandleFunc("GET /api/uploads", handler.GetUploadsHandler(logger, uploadRepo, detectionRepo))
	mux.HandleFunc("GET /api/uploads/{name}", handler.GetUploadHandler(cfg, logger, uploadRepo, detectionRepo))
	mux.HandleFunc("GET /api/classes", handler.GetClassesHandler(logger, detectionRepo))

	// Live feed
	mux.HandleFunc("GET /ws", handler.LiveWebsocketHandler(manager, logger))

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(logger))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(logger))

	return middleware.Chain(mux,
		middleware.Recover(logger),
		middleware.Logging(logger),
		middleware.CORS(cfg.Server.AllowOrigins),
	)
}
