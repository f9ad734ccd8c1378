// Package monitor queries lists of game servers with a bounded worker pool,
// annotates the reports with a country code and records reachable servers in storage.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/a2squery/internal/config"
	"github.com/woozymasta/a2squery/internal/game"
	"github.com/woozymasta/a2squery/internal/models"
	"golang.org/x/time/rate"
)

// Store persists servers that answered A2S_INFO.
type Store interface {
	UpsertServer(s models.Server) error
}

// Locator resolves an IP address to an ISO country code, empty when unknown.
type Locator interface {
	CountryCode(ip string) string
}

// QueryFunc queries one target. game.Query is the default.
type QueryFunc func(target config.Target, options config.Query) *game.Report

// Monitor runs query rounds over a target list.
type Monitor struct {
	store    Store
	geo      Locator
	limiter  *rate.Limiter
	query    QueryFunc
	targets  []config.Target
	options  config.Query
	workers  int
	interval time.Duration
}

// New creates a Monitor. store and geo may be nil to skip persistence or country lookup.
func New(store Store, geo Locator, targets []config.Target, options config.Query, cfg config.Monitor) *Monitor {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	return &Monitor{
		store:    store,
		geo:      geo,
		limiter:  rate.NewLimiter(limit, 1),
		query:    game.Query,
		targets:  targets,
		options:  options,
		workers:  workers,
		interval: cfg.Interval,
	}
}

// Targets returns the monitored targets.
func (m *Monitor) Targets() []config.Target {
	return m.targets
}

// Run polls all targets every interval until ctx is done. The first round starts immediately.
func (m *Monitor) Run(ctx context.Context) {
	if m.interval <= 0 || len(m.targets) == 0 {
		return
	}

	log.Info().
		Int("targets", len(m.targets)).
		Dur("interval", m.interval).
		Int("workers", m.workers).
		Msg("Monitor started")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		reports := m.Poll(ctx)
		online := 0
		for _, r := range reports {
			if r != nil && r.Online() {
				online++
			}
		}
		log.Debug().Int("online", online).Int("total", len(m.targets)).Msg("Monitor round finished")

		select {
		case <-ctx.Done():
			log.Info().Msg("Monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// Poll queries every target once and returns the reports in target order.
// Targets not dispatched before ctx is done are left nil.
func (m *Monitor) Poll(ctx context.Context) []*game.Report {
	reports := make([]*game.Report, len(m.targets))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				reports[idx] = m.process(m.targets[idx])
			}
		}()
	}

	for i := range m.targets {
		if err := m.limiter.Wait(ctx); err != nil {
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)

	wg.Wait()

	return reports
}

func (m *Monitor) process(target config.Target) *game.Report {
	report := m.query(target, m.options)

	if m.geo != nil && report.IP != "" {
		report.Country = m.geo.CountryCode(report.IP)
	}

	if m.store == nil {
		return report
	}

	server, ok := models.FromReport(report)
	if !ok {
		log.Debug().Str("address", target.Address).Msg("Server did not answer A2S_INFO, not stored")
		return report
	}

	if err := m.store.UpsertServer(server); err != nil {
		log.Error().Err(err).Str("address", target.Address).Msg("Failed to save server")
	}

	return report
}
