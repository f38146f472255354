package routes

import (
	"net/http"
	"time"

	"anprserver/internal/anpr"
	"anprserver/internal/config"
	"anprserver/internal/handlers"
	"anprserver/internal/logger"
	"anprserver/internal/middleware"
	"anprserver/internal/repository"
	"anprserver/internal/services/artifacts"
	"anprserver/internal/services/logstream"
	"anprserver/internal/services/pipeline"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Engines     *anpr.State
	Repo        repository.DetectionRepository
	Artifacts   *artifacts.Manager
	Broadcaster *logstream.Broadcaster
	Pipeline    *pipeline.Pipeline
	StartTime   time.Time
}

// Setup registers all API endpoints, static result serving and the API key
// middleware.
func Setup(d Deps) http.Handler {
	mux := http.NewServeMux()

	// Saved result images and thumbnails
	mux.Handle("/results/", http.StripPrefix("/results/",
		http.FileServer(http.Dir(d.Config.ResultsDirectory))))

	// Detection endpoints
	mux.HandleFunc("POST /api/detect", handlers.DetectFileHandler(d.Pipeline, d.Logger))
	mux.HandleFunc("POST /api/detect/binary", handlers.DetectBinaryHandler(d.Pipeline, d.Logger))
	mux.HandleFunc("POST /api/detect/base64", handlers.DetectBase64Handler(d.Pipeline, d.Logger))

	// History and statistics
	mux.HandleFunc("GET /api/stats", handlers.GetStatsHandler(d.Repo, d.StartTime, d.Logger))
	mux.HandleFunc("GET /api/daily-stats", handlers.GetDailyStatsHandler(d.Repo, d.Logger))
	mux.HandleFunc("GET /api/history", handlers.GetHistoryHandler(d.Repo, d.Logger))
	mux.HandleFunc("GET /api/history/{id}", handlers.GetDetectionHandler(d.Repo, d.Logger))

	// Operational log
	mux.HandleFunc("GET /api/logs", handlers.GetLogsHandler(d.Broadcaster))
	mux.HandleFunc("GET /api/logs/stream", handlers.StreamLogsHandler(d.Broadcaster))
	mux.HandleFunc("GET /api/logs/ws", handlers.LogsWebsocketHandler(d.Broadcaster, d.Logger))
	mux.HandleFunc("POST /api/logs/clear", handlers.ClearLogsHandler(d.Broadcaster))

	// Engine configuration
	mux.HandleFunc("POST /api/configure", handlers.ConfigureHandler(d.Engines, d.Config, d.Broadcaster, d.Logger))
	mux.HandleFunc("GET /api/models/status", handlers.ModelsStatusHandler(d.Engines, d.Config))
	mux.HandleFunc("POST /api/models/update", handlers.UpdateModelsHandler(d.Engines, d.Config, d.Broadcaster, d.Logger))

	// Maintenance
	mux.HandleFunc("POST /api/database/clear", handlers.ClearDatabaseHandler(d.Repo, d.Artifacts, d.Broadcaster, d.Logger))
	mux.HandleFunc("GET /api/health", handlers.HealthHandler(d.Engines, d.Pipeline, d.Config, d.StartTime))

	return middleware.APIKeyMiddleware(d.Config.APIKey, mux)
}
