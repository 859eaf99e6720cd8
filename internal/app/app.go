package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"lyra/internal/api"
	"lyra/internal/ingest"
	"lyra/internal/metrics"
	"lyra/internal/relay"
	"lyra/pkg/rtsp"
)

// App represents the main application
type App struct {
	config        *Config
	rtspServer    *rtsp.Server
	ingestServer  *ingest.Server
	apiServer     *api.Server
	metricsServer *metrics.Server
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewApp creates a new application instance
func NewApp() *App {
	config, err := LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	InitLogger(config)

	ctx, cancel := context.WithCancel(context.Background())

	// stream controller, injected into the dispatcher
	streamRelay := relay.New(config.RTSP.Interface, config.RTSP.PortBase)

	registry := rtsp.NewRegistry()

	var stats rtsp.Stats
	var metricsServer *metrics.Server
	if config.Metrics.Enabled {
		stats = metrics.New()
		metricsServer = metrics.NewServer(config.Metrics.Port)
	}

	dispatcher := rtsp.NewDispatcher(streamRelay, registry, stats)
	rtspServer := rtsp.NewServer(config.ToRTSPConfig(), dispatcher)

	var ingestServer *ingest.Server
	if config.Ingest.Enabled {
		ingestServer = ingest.NewServer(ingest.Config{
			Enabled: true,
			Port:    config.Ingest.Port,
		}, streamRelay)
	}

	apiServer := api.NewServer(strconv.Itoa(config.API.Port), registry, streamRelay)

	return &App{
		config:        config,
		rtspServer:    rtspServer,
		ingestServer:  ingestServer,
		apiServer:     apiServer,
		metricsServer: metricsServer,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start starts the application
func (app *App) Start() {
	slog.Info("Application starting...")

	if err := app.rtspServer.Start(); err != nil {
		slog.Error("Failed to start RTSP server", "err", err)
		os.Exit(1)
	}

	if app.ingestServer != nil {
		if err := app.ingestServer.Start(); err != nil {
			slog.Error("Failed to start SRT ingest", "err", err)
			os.Exit(1)
		}
	}

	if app.metricsServer != nil {
		if err := app.metricsServer.Start(); err != nil {
			slog.Error("Failed to start metrics server", "err", err)
			os.Exit(1)
		}
		slog.Info("Metrics server started", "port", app.config.Metrics.Port)
	}

	if err := app.apiServer.Start(); err != nil {
		slog.Error("Failed to start API server", "err", err)
		os.Exit(1)
	}

	slog.Info("API server started", "port", app.config.API.Port)

	app.waitForShutdown()
}

// waitForShutdown waits for shutdown signals and performs graceful shutdown
func (app *App) waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down application", "signal", sig)
	case <-app.ctx.Done():
		slog.Info("Context cancelled, shutting down application")
	}

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *App) shutdown() {
	slog.Info("Stopping application...")

	app.cancel()

	app.rtspServer.Stop()

	if app.ingestServer != nil {
		app.ingestServer.Stop()
	}

	if app.metricsServer != nil {
		app.metricsServer.Stop()
	}

	slog.Info("Application stopped successfully")
}
