package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"live-stats/src/interfaces"
	"live-stats/src/livesync"
	"live-stats/src/logger"
	"live-stats/src/models"
	"live-stats/src/render"
)

// -----------------------------------------------------------------------------

// startServers starts the local API and, if enabled, the terminal renderer
func startServers(
	ctx context.Context,
	srv interfaces.IDataExchanger,
	live interfaces.ILiveSync,
	config *models.MConfig,
	locale string,
	appLogger *logger.Logger,
) {
	// 1. Local API + websocket hub
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 2. Terminal renderer
	if config.Render.Terminal {
		views, cancel := live.Watch()
		go func() {
			defer cancel()
			render.NewTerminal(os.Stdout, locale).Run(ctx, views)
		}()
	}
}

// -----------------------------------------------------------------------------

// runSignalLoop blocks until SIGINT or SIGTERM. SIGUSR1 sends the client to the
// background, SIGUSR2 brings it back.
func runSignalLoop(visibility *livesync.VisibilityMonitor, appLogger *logger.Logger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigs)

	for sig := range sigs {
		switch sig {
		case syscall.SIGUSR1:
			appLogger.Info("Going to background")
			visibility.Set(false)
		case syscall.SIGUSR2:
			appLogger.Info("Coming to foreground")
			visibility.Set(true)
		default:
			return
		}
	}
}
