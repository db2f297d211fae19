package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coindash/src/config"
	"coindash/src/interfaces"
	"coindash/src/logger"
	"coindash/src/network"
	"coindash/src/provider"
	"coindash/src/server"
	"coindash/src/storage"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name+"-edge")

	// 1. Persistent cache store
	var store interfaces.ICacheStore

	switch cfg.Storage.DBType {
	case "postgres":
		store, err = storage.NewPostgresCacheStore(cfg.MConfig, appLogger)
	default:
		// Default to SQLite
		store, err = storage.NewSQLiteCacheStore(cfg.MConfig, appLogger)
	}
	if err != nil {
		appLogger.Critical("Failed to init cache store: %v", err)
	}
	if err := store.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate cache store: %v", err)
	}
	defer store.Close()

	// 2. Upstream provider chain
	netMgr := network.NewNetworkManager(cfg.MConfig, appLogger)

	var providers []interfaces.IUpstreamProvider
	for _, pCfg := range cfg.Upstream.Providers {
		switch pCfg.Type {
		case "coingecko":
			providers = append(providers, provider.NewCoinGeckoProvider(pCfg, netMgr))
		default:
			appLogger.Warning("Unsupported provider type %s, skipping %s", pCfg.Type, pCfg.Name)
		}
	}
	if len(providers) == 0 {
		appLogger.Critical("No upstream providers configured")
	}
	chain := provider.NewChain(providers, appLogger)

	// 3. Cache service + edge server. The server doubles as the broadcaster.
	retention := 24 * time.Hour
	if cfg.Storage.RetentionHours > 0 {
		retention = time.Duration(cfg.Storage.RetentionHours) * time.Hour
	}
	service := server.NewCacheService(store, chain, nil, retention, appLogger)
	srv := server.NewEdgeServer(cfg.MConfig, service, appLogger)
	service.Broadcaster = srv

	// 4. Out-of-band cleanup sweep
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupDone:
				return
			case <-ticker.C:
				service.RunCleanup()
			}
		}
	}()

	// 5. Run until signalled
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		appLogger.Error("Server stopped: %v", err)
	case sig := <-sigChan:
		appLogger.Info("Received signal %v, shutting down", sig)
	}

	close(cleanupDone)
	srv.Stop()
}
