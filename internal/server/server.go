// Package server implements the HTTP API: live A2S queries and stored server history.
package server

import (
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/woozymasta/a2squery/internal/config"
	"github.com/woozymasta/a2squery/internal/game"
	"github.com/woozymasta/a2squery/internal/monitor"
)

// New creates a new Server. store and geo may be nil.
func New(store Repository, geo monitor.Locator, cfg *config.Config) *Server {
	hostMap := make(map[uint64]struct{})
	for _, host := range cfg.Server.AllowedHosts {
		hostMap[xxhash.Sum64String(strings.ToLower(host))] = struct{}{}
	}

	return &Server{
		storage:      store,
		geoip:        geo,
		options:      cfg.Query,
		authToken:    cfg.Server.AuthToken,
		allowedHosts: hostMap,
		trustProxy:   cfg.Server.TrustProxy,
		limitCount:   cfg.RateLimit.Count,
		limitWin:     cfg.RateLimit.Window,
		shutdown:     make(chan struct{}),
		query: queryFuncs{
			info:    game.QueryInfo,
			players: game.QueryPlayers,
			rules:   game.QueryRules,
			summary: game.QuerySummary,
		},
	}
}

// Close stops background routines started by Run.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.shutdown) })
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	live := s.RateLimitMiddleware(s.liveRoutes())
	mux.Handle("GET /api/info", live)
	mux.Handle("GET /api/players", live)
	mux.Handle("GET /api/rules", live)
	mux.Handle("GET /api/summary", live)

	mux.Handle("GET /api/servers", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleServers)))
	mux.Handle("GET /api/server", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleGetServer)))
	mux.Handle("DELETE /api/server", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleDeleteServer)))

	mux.HandleFunc("GET /api/version", s.handleVersion)

	return s.LoggingMiddleware(mux)
}

func (s *Server) liveRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/info", s.handleInfo)
	mux.HandleFunc("GET /api/players", s.handlePlayers)
	mux.HandleFunc("GET /api/rules", s.handleRules)
	mux.HandleFunc("GET /api/summary", s.handleSummary)

	return mux
}
