package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"

	"github.com/fundedsim/engine/src/config"
	"github.com/fundedsim/engine/src/database"
	"github.com/fundedsim/engine/src/engine"
	"github.com/fundedsim/engine/src/eventpubsub"
	"github.com/fundedsim/engine/src/marketdata"
	"github.com/fundedsim/engine/src/router"
	"github.com/fundedsim/engine/src/utils"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	if err := utils.InitEnvironmentVariables(); err != nil {
		log.Fatalf("failed to initialize environment: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		appLogger.SetLevel(level)
		log.SetLevel(level)
	}

	// setup storage
	var store database.Store
	if cfg.Database.DSN != "" {
		pg, err := database.NewPostgresStore(cfg.Database.DSN, appLogger)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}

		store = pg
	} else {
		log.Warn("no database configured, using in-memory store")
		store = database.NewMemoryStore()
	}

	// setup the synthetic price feed
	feed := marketdata.NewPriceFeed(cfg.Instruments, cfg.Engine.BarPeriod, cfg.Engine.PriceSeed)

	// setup the engine
	tiers := cfg.TierMap()
	bus := eventpubsub.NewBus()
	validator := engine.NewValidator(cfg.Engine.AdverseMoveTicks)
	simulator := engine.NewSimulator(cfg.Engine.MaxSlippageTicks, cfg.Engine.SlippageSizeFactor, cfg.Engine.PriceSeed)
	evaluator := engine.NewEvaluator()
	lifecycle := engine.NewLifecycle(store, feed, validator, simulator, evaluator, bus, tiers)
	monitor := engine.NewMonitor(store, feed, lifecycle)

	// reconcile any fill units interrupted by a previous shutdown
	reconciler := engine.NewReconciler(store, cfg.InstrumentMap(), tiers)
	if err := reconciler.Run(); err != nil {
		log.Fatalf("failed to reconcile state: %v", err)
	}

	// setup router
	r := mux.NewRouter()
	handler := router.NewHandler(store, feed, lifecycle, monitor, tiers)
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Handler: r,
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
	}

	go func() {
		log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: failed to listen and serve: %v", err)
		}
	}()

	// The host owns the cadence: advance the feed one step, then sweep.
	// The monitor itself never schedules anything.
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.Engine.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				feed.Tick()

				result, err := monitor.RunSweep()
				if err != nil {
					log.Errorf("monitor sweep failed: %v", err)
					continue
				}

				if result.Filled > 0 || result.Triggered > 0 {
					bus.Publish(eventpubsub.SweepCompletedEvent, result)
					log.WithFields(log.Fields{
						"checked":   result.Checked,
						"triggered": result.Triggered,
						"filled":    result.Filled,
					}).Info("monitor sweep completed")
				}
			}
		}
	}()

	// wait for a shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	close(done)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("http: shutdown: %v", err)
	}

	log.Info("shutdown complete")
}
