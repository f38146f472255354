package app

import (
	"fmt"
	"net/http"
	"time"

	"anprserver/internal/anpr"
	"anprserver/internal/config"
	"anprserver/internal/logger"
	"anprserver/internal/repository"
	"anprserver/internal/repository/sqlite"
	"anprserver/internal/routes"
	"anprserver/internal/services/artifacts"
	"anprserver/internal/services/logstream"
	"anprserver/internal/services/pipeline"
)

// App owns the long-lived components of the management server.
type App struct {
	config      *config.Config
	logger      *logger.Logger
	db          *sqlite.DB
	repo        repository.DetectionRepository
	engines     *anpr.State
	artifacts   *artifacts.Manager
	broadcaster *logstream.Broadcaster
	pipeline    *pipeline.Pipeline
	startTime   time.Time
}

// New builds the application from the startup configuration.
func New() (*App, error) {
	cfg := config.Load()
	log := logger.New(cfg.LogDirectory)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	repo := sqlite.NewDetectionRepository(db)

	art, err := artifacts.New(cfg.ResultsDirectory, cfg.SaveImages, log)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare results directory: %w", err)
	}

	broadcaster := logstream.New(cfg.MaxLogEntries, log)
	engines := anpr.NewState(anpr.NewFactory(cfg.ModelsDirectory))
	pl := pipeline.New(engines, repo, art, broadcaster)

	return &App{
		config:      cfg,
		logger:      log,
		db:          db,
		repo:        repo,
		engines:     engines,
		artifacts:   art,
		broadcaster: broadcaster,
		pipeline:    pl,
		startTime:   time.Now(),
	}, nil
}

// Run loads the engine, starts background maintenance and serves HTTP.
func (a *App) Run() error {
	a.broadcaster.Emit(logstream.LevelInfo, "Server starting...")
	a.loadInitialEngine()

	if a.config.RetentionDays > 0 {
		go a.retentionLoop()
	}

	router := routes.Setup(routes.Deps{
		Config:      a.config,
		Logger:      a.logger,
		Engines:     a.engines,
		Repo:        a.repo,
		Artifacts:   a.artifacts,
		Broadcaster: a.broadcaster,
		Pipeline:    a.pipeline,
		StartTime:   a.startTime,
	})

	addr := fmt.Sprintf("%s:%d", a.config.Host, a.config.Port)
	a.broadcaster.Emit(logstream.LevelSuccess, "Server ready on %s", addr)
	return http.ListenAndServe(addr, router)
}

// Close releases the database.
func (a *App) Close() error {
	return a.db.Close()
}

// loadInitialEngine tries the startup configuration. Missing credentials are
// not fatal: the server runs and waits for /api/configure.
func (a *App) loadInitialEngine() {
	if !a.config.HasCredentials() {
		a.broadcaster.Emit(logstream.LevelWarning,
			"Credentials not configured - detection disabled until /api/configure")
		return
	}

	cfg := anpr.Config{
		DetectorModel:       a.config.DetectorModel,
		OCRModel:            a.config.OCRModel,
		Region:              a.config.Region,
		Backend:             a.config.Backend,
		ConfidenceThreshold: a.config.ConfidenceThreshold,
		Credentials: anpr.Credentials{
			Username:  a.config.Username,
			SerialKey: a.config.SerialKey,
			Signature: a.config.Signature,
		},
	}

	if err := a.engines.Reconfigure(cfg); err != nil {
		a.broadcaster.Emit(logstream.LevelError, "Engine load failed: %v", err)
		return
	}
	a.broadcaster.Emit(logstream.LevelSuccess, "Engine loaded: %s + %s (%s)",
		cfg.DetectorModel, cfg.OCRModel, cfg.Region)
}

// retentionLoop purges records older than the configured retention once a day.
func (a *App) retentionLoop() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		removed, err := a.repo.PurgeOlderThan(a.config.RetentionDays)
		if err != nil {
			a.logger.Error("Retention sweep failed: %v", err)
			continue
		}
		if removed > 0 {
			a.broadcaster.Emit(logstream.LevelInfo,
				"Retention sweep removed %d record(s) older than %d days", removed, a.config.RetentionDays)
		}
	}
}
