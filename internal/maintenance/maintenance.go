// Package maintenance provides one-shot tasks that clean and refresh the server database.
package maintenance

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/a2squery/internal/config"
	"github.com/woozymasta/a2squery/internal/monitor"
)

// Repository is the storage used by maintenance tasks.
type Repository interface {
	monitor.Store
	ListAddresses() ([]string, error)
	DeleteServer(address string) error
	DeleteStale(before time.Time) (int64, error)
}

// Run checks if any maintenance flags are set and executes the corresponding tasks.
// Returns true if a maintenance task was executed (indicating the program should exit).
func Run(ctx context.Context, cfg *config.Config, store Repository, geo monitor.Locator) bool {
	ran := false

	if cfg.Storage.PruneStale > 0 {
		ran = true
		pruneStale(store, cfg.Storage.PruneStale)
	}

	if cfg.Storage.CheckAll {
		ran = true
		checkAll(ctx, cfg, store, geo)
	}

	return ran
}

func pruneStale(store Repository, age time.Duration) {
	before := time.Now().Add(-age)
	log.Info().Time("before", before).Msg("Pruning stale servers...")

	count, err := store.DeleteStale(before)
	if err != nil {
		log.Error().Err(err).Msg("Failed to prune servers")
		return
	}

	log.Info().Int64("deleted", count).Msg("Prune finished")
}

// checkAll re-queries every stored server. Servers answering A2S_INFO are updated,
// the rest are deleted.
func checkAll(ctx context.Context, cfg *config.Config, store Repository, geo monitor.Locator) {
	addresses, err := store.ListAddresses()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch servers")
		return
	}

	if len(addresses) == 0 {
		log.Info().Msg("No servers found for maintenance")
		return
	}

	targets := make([]config.Target, 0, len(addresses))
	for _, a := range addresses {
		targets = append(targets, config.Target{Address: a})
	}

	options := cfg.Query
	options.What = []string{config.WhatInfo, config.WhatPlayers}

	log.Info().Int("count", len(targets)).Int("workers", cfg.Monitor.Workers).Msg("Starting re-check of all servers...")

	reports := monitor.New(store, geo, targets, options, cfg.Monitor).Poll(ctx)

	deleted := 0
	for i, r := range reports {
		if r == nil || r.Info != nil {
			continue
		}

		logCtx := log.With().Str("address", targets[i].Address).Logger()
		logCtx.Debug().Interface("errors", r.Errors).Msg("Server unreachable, deleting")
		if err := store.DeleteServer(targets[i].Address); err != nil {
			logCtx.Error().Err(err).Msg("Failed to delete unreachable server")
			continue
		}
		deleted++
	}

	log.Info().Int("checked", len(targets)).Int("deleted", deleted).Msg("Maintenance task completed")
}
