package geoip

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/rs/zerolog/log"
)

// Provider wraps the GeoIP2 database reader to provide country lookup functionality.
// The reader can be swapped by Reload while lookups are running.
type Provider struct {
	db   *geoip2.Reader
	path string
	mu   sync.RWMutex
}

// Open initializes the GeoIP database reader from a specific file path.
func Open(path string) (*Provider, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	return &Provider{db: db, path: path}, nil
}

// Close closes the underlying GeoIP database reader.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.db.Close()
}

// Reload reopens the database file and replaces the current reader.
func (p *Provider) Reload() error {
	db, err := geoip2.Open(p.path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	old := p.db
	p.db = db
	p.mu.Unlock()

	return old.Close()
}

// CountryCode looks up the ISO country code (e.g., "US", "DE") for an IP address string.
// It returns an empty string if p is nil, the IP is invalid or the country cannot be determined.
func (p *Provider) CountryCode(ipStr string) string {
	if p == nil {
		return ""
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	record, err := p.db.Country(ip)
	if err != nil {
		return ""
	}

	return record.Country.IsoCode
}

// Watch re-checks the database every interval until ctx is done,
// downloading a fresh copy when it is older than interval and reloading the reader.
func (p *Provider) Watch(ctx context.Context, url string, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updated, err := EnsureDB(ctx, p.path, url, interval)
			if err != nil {
				log.Error().Err(err).Msg("Failed to update GeoIP database")
				continue
			}
			if !updated {
				continue
			}
			if err := p.Reload(); err != nil {
				log.Error().Err(err).Msg("Failed to reload GeoIP database")
				continue
			}
			log.Info().Str("path", p.path).Msg("GeoIP database reloaded")
		}
	}
}
