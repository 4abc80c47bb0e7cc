package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartcache/app/api"
	"smartcache/app/cfg"
	"smartcache/app/database"
	"smartcache/app/download"
	"smartcache/app/ingest"
	"smartcache/app/sources"
	"smartcache/app/storage"
	"smartcache/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting SmartCache server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations applied", "version", version, "dirty", dirty)

	sourceRepo := database.NewSourceRepository(db)
	itemRepo := database.NewItemRepository(db)
	downloadRepo := database.NewDownloadRepository(db)

	registerSources(sourceRepo, appCfg.SourcesDir)

	backend, err := storage.New(appCfg)
	if err != nil {
		slog.Error("Failed to initialize storage backend", "provider", appCfg.StorageProvider, "error", err)
		os.Exit(1)
	}
	if backend != nil {
		slog.Info("Storage backend initialized", "provider", backend.Provider())
	} else {
		slog.Info("No storage backend configured, items will be metadata-only")
	}

	httpClient := &http.Client{Timeout: time.Duration(appCfg.HTTPTimeout) * time.Second}
	// Media transfers get their own client: a large file cannot finish inside
	// the metadata timeout, so cancellation is left to the task context.
	mediaClient := &http.Client{}

	cacher := ingest.NewCacher(backend, mediaClient, appCfg.UserAgent)

	coordinator := ingest.NewCoordinator(sourceRepo,
		ingest.NewFeedAdapter(httpClient, itemRepo, cacher, appCfg.UserAgent),
		ingest.NewVideoAdapter(ingest.NewYTDLPExtractor(), itemRepo),
		ingest.NewImageAdapter(httpClient, itemRepo, cacher, appCfg.UserAgent),
		ingest.NewNewsAdapter(httpClient, itemRepo, cacher, appCfg.UserAgent, appCfg.NewsAPIKey),
	)

	engine := download.NewEngine(downloadRepo, mediaClient, appCfg.DownloadDir, appCfg.MaxDownloadBytes(), appCfg.UserAgent)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(sourceRepo, downloadRepo, coordinator, engine)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(sourceRepo, itemRepo, downloadRepo, coordinator, engine, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("SmartCache server started successfully")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("SmartCache server shutdown complete")
}

// registerSources loads the YAML source declarations and syncs them into the
// database. A source that fails to register is logged and skipped, the rest
// of the startup proceeds.
func registerSources(sourceRepo database.SourceRepository, sourcesDir string) {
	slog.Info("Loading source declarations", "dir", sourcesDir)

	loader := sources.NewLoader(sourcesDir)
	configs, err := loader.LoadAll()
	if err != nil {
		slog.Error("Failed to load source declarations", "error", err)
		os.Exit(1)
	}

	registered := 0
	changed := 0
	for _, source := range configs {
		id, locatorChanged, err := sourceRepo.UpsertSource(source.Name, source.Kind, source.Locator, source.Policy, source.IsEnabled())
		if err != nil {
			slog.Warn("Failed to register source", "source", source.Name, "error", err)
			continue
		}

		if locatorChanged {
			slog.Info("Source locator updated", "source", source.Name, "id", id, "locator", source.Locator)
			changed++
		} else {
			slog.Debug("Registered source", "source", source.Name, "id", id, "kind", source.Kind)
		}
		registered++
	}

	slog.Info("Source registration complete", "registered", registered, "total", len(configs), "locator_changes", changed)
}
