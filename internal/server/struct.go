package server

import (
	"sync"
	"time"

	"github.com/woozymasta/a2squery/internal/a2s"
	"github.com/woozymasta/a2squery/internal/config"
	"github.com/woozymasta/a2squery/internal/game"
	"github.com/woozymasta/a2squery/internal/models"
	"github.com/woozymasta/a2squery/internal/monitor"
)

// Repository is the stored server history exposed on the admin endpoints.
type Repository interface {
	GetServers() ([]models.Server, error)
	GetServer(address string) (*models.Server, error)
	DeleteServer(address string) error
}

// Server holds the dependencies, configuration, and runtime state required
// to handle HTTP requests.
type Server struct {
	// storage provides access to stored server snapshots.
	// It is nil when the database is disabled, admin endpoints then answer 503.
	storage Repository

	// geoip resolves the IP of queried servers to country codes. It can be nil.
	geoip monitor.Locator

	// allowedHosts is a set of hashed host names (using xxhash) that live queries may target.
	// An empty set allows any host.
	allowedHosts map[uint64]struct{}

	// shutdown stops the rate limiter cleanup routine.
	shutdown chan struct{}

	// query runs the live A2S requests, game package functions outside of tests.
	query queryFuncs

	// authToken is the secret token required to access administrative API endpoints.
	authToken string

	// options holds timeouts applied to live queries.
	options config.Query

	// closeOnce guards shutdown.
	closeOnce sync.Once

	// limitCount is the maximum number of requests allowed per IP address within limitWin.
	limitCount int

	// limitWin is the time window duration for the rate limiter.
	limitWin time.Duration

	// trustProxy indicates whether the server should trust headers like X-Forwarded-For
	// or CF-Connecting-IP when determining the client's real IP address.
	trustProxy bool
}

type queryFuncs struct {
	info    func(address string, options config.Query) (*a2s.Info, error)
	players func(address string, options config.Query) ([]a2s.Player, error)
	rules   func(address string, options config.Query) ([]a2s.Rule, error)
	summary func(address string, options config.Query) (*game.Summary, error)
}
