package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/a2squery/internal/a2s"
	"github.com/woozymasta/a2squery/internal/config"
	"github.com/woozymasta/a2squery/internal/models"
	"github.com/woozymasta/a2squery/internal/vars"
)

// handleVersion returns build information.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, vars.Info())
}

// handleInfo proxies A2S_INFO. Query params: ?address=1.2.3.4:27015
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	address, ok := s.target(w, r)
	if !ok {
		return
	}

	info, err := s.query.info(address, s.options)
	if err != nil {
		writeQueryError(w, address, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// handlePlayers proxies A2S_PLAYER.
func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	address, ok := s.target(w, r)
	if !ok {
		return
	}

	players, err := s.query.players(address, s.options)
	if err != nil {
		writeQueryError(w, address, err)
		return
	}
	if players == nil {
		players = []a2s.Player{}
	}

	writeJSON(w, http.StatusOK, players)
}

// handleRules proxies A2S_RULES.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	address, ok := s.target(w, r)
	if !ok {
		return
	}

	rules, err := s.query.rules(address, s.options)
	if err != nil {
		writeQueryError(w, address, err)
		return
	}
	if rules == nil {
		rules = []a2s.Rule{}
	}

	writeJSON(w, http.StatusOK, rules)
}

// handleSummary returns the server name and player names from A2S_INFO and A2S_PLAYER.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	address, ok := s.target(w, r)
	if !ok {
		return
	}

	summary, err := s.query.summary(address, s.options)
	if err != nil {
		writeQueryError(w, address, err)
		return
	}

	type response struct {
		Country string   `json:"country,omitempty"`
		Name    string   `json:"name"`
		Players []string `json:"players"`
	}

	resp := response{Name: summary.Name, Players: summary.Players}
	if s.geoip != nil {
		host, _, _ := net.SplitHostPort(address)
		resp.Country = s.geoip.CountryCode(host)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleServers returns all stored servers.
func (s *Server) handleServers(w http.ResponseWriter, _ *http.Request) {
	if !s.storageEnabled(w) {
		return
	}

	servers, err := s.storage.GetServers()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch servers")
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if servers == nil {
		servers = []models.Server{}
	}

	writeJSON(w, http.StatusOK, servers)
}

// handleGetServer returns one stored server with its players.
// Query params: ?address=1.2.3.4:27015
func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	if !s.storageEnabled(w) {
		return
	}

	address, err := config.NormalizeAddress(r.URL.Query().Get("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	server, err := s.storage.GetServer(address)
	if err != nil {
		log.Error().Err(err).Str("address", address).Msg("Failed to fetch server")
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if server == nil {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}

	writeJSON(w, http.StatusOK, server)
}

// handleDeleteServer removes a stored server.
func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	if !s.storageEnabled(w) {
		return
	}

	address, err := config.NormalizeAddress(r.URL.Query().Get("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.storage.DeleteServer(address); err != nil {
		log.Error().Err(err).Str("address", address).Msg("Failed to delete server")
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	log.Info().Str("address", address).Msg("Server deleted manually")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Server deleted"})
}

// target reads and validates the address parameter of live queries.
func (s *Server) target(w http.ResponseWriter, r *http.Request) (string, bool) {
	address, err := config.NormalizeAddress(r.URL.Query().Get("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}

	if !s.hostAllowed(address) {
		log.Debug().Str("address", address).Str("ip", GetRealIP(r, s.trustProxy)).Msg("Host not allowed")
		writeError(w, http.StatusForbidden, "host not allowed")
		return "", false
	}

	return address, true
}

func (s *Server) hostAllowed(address string) bool {
	if len(s.allowedHosts) == 0 {
		return true
	}

	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return false
	}

	_, ok := s.allowedHosts[xxhash.Sum64String(strings.ToLower(host))]
	return ok
}

func (s *Server) storageEnabled(w http.ResponseWriter) bool {
	if s.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "storage disabled")
		return false
	}

	return true
}

// writeQueryError maps engine error kinds to gateway statuses.
func writeQueryError(w http.ResponseWriter, address string, err error) {
	log.Debug().Err(err).Str("address", address).Msg("Live query failed")

	status := http.StatusGatewayTimeout
	if errors.Is(err, a2s.ErrInvalidData) || errors.Is(err, a2s.ErrConnect) {
		status = http.StatusBadGateway
	}

	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
