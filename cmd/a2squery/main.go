// main is the entry point of a2squery.
// It queries Source engine servers once and prints the results, or serves the HTTP API
// with optional background monitoring into a SQLite history.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/a2squery/internal/config"
	"github.com/woozymasta/a2squery/internal/fake"
	"github.com/woozymasta/a2squery/internal/game"
	"github.com/woozymasta/a2squery/internal/geoip"
	"github.com/woozymasta/a2squery/internal/logger"
	"github.com/woozymasta/a2squery/internal/maintenance"
	"github.com/woozymasta/a2squery/internal/monitor"
	"github.com/woozymasta/a2squery/internal/report"
	"github.com/woozymasta/a2squery/internal/server"
	"github.com/woozymasta/a2squery/internal/storage"
)

func main() {
	cfg := config.Parse()

	logger.Setup(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// GeoIP
	var geo monitor.Locator
	if cfg.GeoIP.Path != "" {
		if _, err := geoip.EnsureDB(ctx, cfg.GeoIP.Path, cfg.GeoIP.URL, cfg.GeoIP.Interval); err != nil {
			log.Error().Err(err).Msg("Failed to download GeoIP database")
		}

		provider, err := geoip.Open(cfg.GeoIP.Path)
		if err != nil {
			log.Error().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		} else {
			geo = provider
			defer func() {
				if err := provider.Close(); err != nil {
					log.Error().Err(err).Msg("Error closing GeoIP provider")
				}
			}()
			if cfg.Server.Serve {
				go provider.Watch(ctx, cfg.GeoIP.URL, cfg.GeoIP.Interval)
			}
		}
	}

	// Database
	var store *storage.Repository
	if cfg.Storage.Path != "" {
		var err error
		store, err = storage.New(cfg.Storage.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing database")
			}
		}()

		// data generation or database maintenance
		if cfg.Storage.GenerateCount > 0 {
			fake.GenerateData(store, cfg.Storage.GenerateCount)
			return
		} else if maintenance.Run(ctx, cfg, store, geo) {
			return
		}
	}

	targets, err := cfg.Targets()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load targets")
	}

	var (
		history monitor.Store
		repo    server.Repository
	)
	if store != nil {
		history, repo = store, store
	}

	mon := monitor.New(history, geo, targets, cfg.Query, cfg.Monitor)

	if cfg.Server.Serve {
		serve(ctx, cfg, mon, repo, geo)
		return
	}

	if !queryOnce(ctx, cfg, mon) {
		stop()
		os.Exit(1)
	}
}

// queryOnce queries every target and prints the reports.
// It returns false when no server answered.
func queryOnce(ctx context.Context, cfg *config.Config, mon *monitor.Monitor) bool {
	if len(mon.Targets()) == 0 {
		log.Error().Msg("No servers to query, pass host[:port] arguments or --query-targets")
		return false
	}

	var (
		reports []*game.Report
		online  bool
	)
	for _, r := range mon.Poll(ctx) {
		if r == nil {
			continue
		}
		reports = append(reports, r)
		online = online || r.Online()
	}

	if err := report.Write(os.Stdout, cfg.Query.Output, reports); err != nil {
		log.Error().Err(err).Msg("Failed to write report")
		return false
	}

	return online
}

func serve(ctx context.Context, cfg *config.Config, mon *monitor.Monitor, repo server.Repository, geo monitor.Locator) {
	srvHandler := server.New(repo, geo, cfg)
	defer srvHandler.Close()

	// Background polling
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		mon.Run(ctx)
	}()

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: srvHandler.Run(),
		// live queries end at the per-server query deadline
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5*time.Second + cfg.Query.Deadline,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// wait for the current monitor round
	<-monitorDone

	log.Info().Msg("Server exited")
}
