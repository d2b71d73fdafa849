package main

import (
	"context"

	"live-stats/src/auth"
	"live-stats/src/config"
	datasource "live-stats/src/data_source"
	"live-stats/src/interfaces"
	"live-stats/src/livesync"
	"live-stats/src/logger"
	"live-stats/src/metrics"
	"live-stats/src/models"
	"live-stats/src/network"
	"live-stats/src/server"
	"live-stats/src/storage"
	"live-stats/src/stream"
)

// -----------------------------------------------------------------------------

// setupStorage opens the preferences store configured under storage
func setupStorage(config *models.MConfig, appLogger *logger.Logger) (interfaces.IPreferencesStore, error) {
	storeLogger := logger.NewLogger(config, "Preferences")
	store, err := storage.NewPreferencesStore(config, storeLogger)
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
		return nil, err
	}
	if err := store.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
		return nil, err
	}
	return store, nil
}

// -----------------------------------------------------------------------------

// setupCredentials builds the credential provider and follows the token file if there is one
func setupCredentials(ctx context.Context, conf *config.Config, appLogger *logger.Logger) (interfaces.ICredentialProvider, error) {
	creds, err := auth.NewProvider(conf)
	if err != nil {
		appLogger.Critical("Failed to load credentials: %v", err)
		return nil, err
	}

	if file, ok := creds.(*auth.FileCredentials); ok {
		if err := file.Watch(ctx); err != nil {
			appLogger.Warning("Token file will not be reloaded: %v", err)
		}
	}
	if token := creds.CurrentCredential(); token != "" {
		if exp, ok := auth.ExpiresAt(token); ok {
			appLogger.Info("Credential expires at %s", exp.Format("2006-01-02 15:04:05"))
		}
	}
	return creds, nil
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(config *models.MConfig) *network.AsyncNetworkManager {
	networkLogger := logger.NewLogger(config, "NetworkManager")
	return network.NewAsyncNetworkManager(config, networkLogger)
}

// -----------------------------------------------------------------------------

// setupSync builds the stream transport and the manager around it
func setupSync(
	conf *config.Config,
	networkManager *network.AsyncNetworkManager,
	source interfaces.ISnapshotSource,
	creds interfaces.ICredentialProvider,
	collector *metrics.Collector,
	startHidden bool,
	appLogger *logger.Logger,
) (*livesync.StreamManager, error) {
	subscriber, err := stream.NewSubscriber(conf, networkManager.Client())
	if err != nil {
		appLogger.Critical("Failed to build stream transport: %v", err)
		return nil, err
	}

	return livesync.NewStreamManager(source, subscriber, creds, livesync.Options{
		BaseURL:            conf.API.BaseURL,
		StreamPath:         conf.API.StreamPath,
		PollInterval:       conf.PollInterval(),
		HiddenPollInterval: conf.HiddenPollInterval(),
		StartHidden:        startHidden,
		Metrics:            collector,
		Logger:             logger.NewLogger(conf.MConfig, "StreamManager"),
	}), nil
}

// -----------------------------------------------------------------------------

// setupServer wires the local API to the manager and its collaborators
func setupServer(
	config *models.MConfig,
	manager *livesync.StreamManager,
	source *datasource.LiveStatsSource,
	store interfaces.IPreferencesStore,
	visibility *livesync.VisibilityMonitor,
	collector *metrics.Collector,
) *server.FastAPIServer {
	srv := server.NewFastAPIServer(config, logger.NewLogger(config, "LocalAPI"), manager)
	srv.Submitter = source
	srv.Prefs = store
	srv.Visibility = visibility
	srv.Metrics = collector
	return srv
}
