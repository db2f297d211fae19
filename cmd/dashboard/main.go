package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coindash/src/cache"
	"coindash/src/client"
	"coindash/src/config"
	"coindash/src/controller"
	"coindash/src/logger"
	"coindash/src/network"
	"coindash/src/queue"
	"coindash/src/realtime"
)

// -----------------------------------------------------------------------------

// logNotifier surfaces user-facing notices on the process log.
type logNotifier struct {
	log *logger.Logger
}

func (n *logNotifier) Notify(kind string, message string) {
	n.log.Info("[notice:%s] %s", kind, message)
}

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
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name+"-dashboard")

	if cfg.Edge.BaseURL == "" || cfg.Edge.WebsocketURL == "" {
		appLogger.Critical("edge.base_url and edge.websocket_url must be configured")
	}
	if len(cfg.Watch) == 0 {
		appLogger.Critical("No watchlist entries configured")
	}

	// 1. Acquisition pipeline
	netMgr := network.NewNetworkManager(cfg.MConfig, appLogger)
	edgeClient := client.NewEdgeClient(cfg.Edge.BaseURL, netMgr, appLogger)
	memCache := cache.NewMemoryCache(appLogger)
	reqQueue := queue.NewRequestQueue(appLogger)
	acq := client.NewAcquisitionClient(memCache, reqQueue, edgeClient, appLogger)

	// 2. Realtime layer
	notifier := &logNotifier{log: appLogger}
	transport := realtime.NewWSTransport(cfg.Edge.WebsocketURL, appLogger)
	subs := realtime.NewSubscriptionManager(transport, notifier, appLogger)

	// 3. One controller per watchlist entry
	registry := controller.NewRegistry()
	controllers := make([]*controller.Controller, 0, len(cfg.Watch))
	for _, w := range cfg.Watch {
		ctrl := controller.NewController(acq, subs, registry, notifier, appLogger)
		ctrl.SetParams(w.AssetID, w.Range, w.Currency)
		controllers = append(controllers, ctrl)
		appLogger.Info("Watching %s/%s/%s", w.AssetID, w.Range, w.Currency)
	}

	// 4. Periodic state report
	reportDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-reportDone:
				return
			case <-ticker.C:
				for i, ctrl := range controllers {
					st := ctrl.Snapshot()
					if st.Series == nil {
						continue
					}
					price := "n/a"
					if m := st.Series.Metadata; m != nil && m.CurrentPrice != nil {
						price = fmt.Sprintf("%.2f", *m.CurrentPrice)
					}
					appLogger.Info("%s/%s/%s price=%s source=%s realtime=%v",
						cfg.Watch[i].AssetID, cfg.Watch[i].Range, cfg.Watch[i].Currency,
						price, st.DataSource, st.IsRealtime)
				}
			}
		}
	}()

	// 5. Run until signalled
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	appLogger.Info("Received signal %v, shutting down", sig)

	close(reportDone)
	for _, ctrl := range controllers {
		ctrl.Close()
	}
	subs.Close()
	reqQueue.Close()
}
