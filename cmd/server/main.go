package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ippclub/gem-poller/internal/config"
	"github.com/ippclub/gem-poller/internal/handler"
	"github.com/ippclub/gem-poller/internal/logger"
	"github.com/ippclub/gem-poller/internal/protocol"
	"github.com/ippclub/gem-poller/internal/service"
	"github.com/ippclub/gem-poller/internal/store"
	"github.com/ippclub/gem-poller/pkg/gem"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.InitLogger(cfg.Log)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Gem repository access
	client := gem.NewClient(gem.NewExecRunner(log), gem.Options{
		Binary:        cfg.Gem.Binary,
		Timeout:       cfg.Gem.Timeout,
		MaxConcurrent: cfg.Gem.MaxConcurrent,
	}, log)
	poller := service.NewPoller(client, service.NewNetProber(cfg.Connection.Timeout), log)
	dispatcher := protocol.NewDispatcher(poller, log)

	// Revision history of watched packages
	dbStore, err := store.NewSQLiteStore(cfg.Storage.Path, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer dbStore.Close()

	watchService := service.NewWatchService(cfg.Watch.Packages, poller, dbStore, log)

	api := handler.NewAPI(cfg, log, dispatcher, dbStore, watchService)
	defer api.Close()

	r := chi.NewRouter()
	api.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in a goroutine
	go func() {
		log.Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Start periodic polling of watched packages
	var polling sync.WaitGroup
	if len(cfg.Watch.Packages) > 0 {
		polling.Add(1)
		go func() {
			defer polling.Done()
			ticker := time.NewTicker(cfg.Watch.Interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := watchService.SyncAll(ctx); err != nil {
						log.Error("periodic sync failed", zap.Error(err))
					} else {
						log.Info("periodic sync completed successfully")
					}
				}
			}
		}()
	}

	// Wait for interrupt signal
	<-ctx.Done()

	// Graceful shutdown
	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	// polls in flight finish before the store is closed
	polling.Wait()
	if err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("server exited properly")
}
