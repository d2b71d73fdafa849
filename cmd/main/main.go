package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"live-stats/src/config"
	datasource "live-stats/src/data_source"
	"live-stats/src/livesync"
	"live-stats/src/logger"
	"live-stats/src/metrics"
)

// -----------------------------------------------------------------------------

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)
	if conf.Render.Terminal {
		// stdout belongs to the table
		logger.SetOutput(os.Stderr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Setup Components
	store, err := setupStorage(conf.MConfig, appLogger)
	if err != nil {
		os.Exit(1)
	}
	defer store.Close()

	creds, err := setupCredentials(ctx, conf, appLogger)
	if err != nil {
		os.Exit(1)
	}

	networkManager := setupNetwork(conf.MConfig)
	source := datasource.NewLiveStatsSource(conf.MConfig, networkManager, creds)
	collector := metrics.NewCollector()

	// Following clients starts in the background until a renderer attaches.
	visibility := livesync.NewVisibilityMonitor(!conf.Visibility.FollowClients)

	manager, err := setupSync(conf, networkManager, source, creds, collector, !visibility.Visible(), appLogger)
	if err != nil {
		os.Exit(1)
	}
	visibility.Subscribe(manager.SetVisible)

	// 5. Bootstrap (restore scope)
	params := resolveParams(loadPreferences(store, appLogger), conf.MConfig, creds.CurrentCredential(), time.Now())
	appLogger.Info("Starting live stats for country=%q locale=%s via %s", params.Country, params.Locale, conf.Stream.Transport)

	// 6. Start Servers
	srv := setupServer(conf.MConfig, manager, source, store, visibility, collector)
	startServers(ctx, srv, manager, conf.MConfig, params.Locale, appLogger)

	// 7. Start syncing
	manager.Start(params)
	go manager.WatchCredentials(ctx)

	// 8. Block until SIGINT/SIGTERM
	runSignalLoop(visibility, appLogger)

	appLogger.Info("Shutting down...")
	cancel()
	manager.Stop()
	if err := srv.Stop(); err != nil {
		appLogger.Warning("Server shutdown: %v", err)
	}
	appLogger.Info("Shutdown complete.")
}
