package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/a2squery/internal/a2s"
	"github.com/woozymasta/a2squery/internal/config"
	"github.com/woozymasta/a2squery/internal/game"
	"github.com/woozymasta/a2squery/internal/models"
)

const token = "secret"

type memoryRepo struct {
	servers map[string]models.Server
	deleted []string
}

func (m *memoryRepo) GetServers() ([]models.Server, error) {
	var out []models.Server
	for _, s := range m.servers {
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryRepo) GetServer(address string) (*models.Server, error) {
	s, ok := m.servers[address]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memoryRepo) DeleteServer(address string) error {
	m.deleted = append(m.deleted, address)
	delete(m.servers, address)
	return nil
}

type staticLocator map[string]string

func (l staticLocator) CountryCode(ip string) string { return l[ip] }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.AuthToken = token
	cfg.RateLimit.Count = 100
	cfg.RateLimit.Window = time.Minute
	return cfg
}

func newTestServer(t *testing.T, repo Repository, cfg *config.Config) (*Server, http.Handler) {
	t.Helper()

	s := New(repo, staticLocator{"192.0.2.1": "FR"}, cfg)
	s.query = queryFuncs{
		info: func(address string, _ config.Query) (*a2s.Info, error) {
			if address == "192.0.2.9:27015" {
				return nil, a2s.NewError(a2s.ErrReceive, "receive", os.ErrDeadlineExceeded)
			}
			if address == "192.0.2.8:27015" {
				return nil, a2s.NewError(a2s.ErrInvalidData, "decode info", errors.New("bad marker"))
			}
			return &a2s.Info{Name: "Test Server", Map: "de_dust2", ServerType: a2s.ServerDedicated}, nil
		},
		players: func(string, config.Query) ([]a2s.Player, error) {
			return nil, nil
		},
		rules: func(string, config.Query) ([]a2s.Rule, error) {
			return []a2s.Rule{{Name: "sv_cheats", Value: "0"}}, nil
		},
		summary: func(string, config.Query) (*game.Summary, error) {
			return &game.Summary{Name: "Test Server", Players: []string{"alice"}}, nil
		},
	}
	t.Cleanup(s.Close)

	return s, s.Run()
}

func do(h http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestLiveInfo(t *testing.T) {
	_, h := newTestServer(t, nil, testConfig())

	rec := do(h, http.MethodGet, "/api/info?address=192.0.2.1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "Test Server", body["name"])
	assert.Equal(t, "Dedicated", body["server_type"])
}

func TestLiveQueryErrors(t *testing.T) {
	_, h := newTestServer(t, nil, testConfig())

	tests := []struct {
		target string
		status int
	}{
		{"/api/info", http.StatusBadRequest},
		{"/api/info?address=192.0.2.1:99999", http.StatusBadRequest},
		{"/api/info?address=192.0.2.9", http.StatusGatewayTimeout},
		{"/api/info?address=192.0.2.8", http.StatusBadGateway},
	}

	for _, tt := range tests {
		rec := do(h, http.MethodGet, tt.target, nil)
		assert.Equal(t, tt.status, rec.Code, tt.target)

		var body map[string]string
		decode(t, rec, &body)
		assert.NotEmpty(t, body["error"], tt.target)
	}
}

func TestLiveLists(t *testing.T) {
	_, h := newTestServer(t, nil, testConfig())

	rec := do(h, http.MethodGet, "/api/players?address=192.0.2.1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(h, http.MethodGet, "/api/rules?address=192.0.2.1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"sv_cheats","value":"0"}]`, rec.Body.String())

	rec = do(h, http.MethodGet, "/api/summary?address=192.0.2.1:27016", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"country":"FR","name":"Test Server","players":["alice"]}`, rec.Body.String())
}

func TestAllowedHosts(t *testing.T) {
	cfg := testConfig()
	cfg.Server.AllowedHosts = []string{"Game.Example.org"}
	_, h := newTestServer(t, nil, cfg)

	rec := do(h, http.MethodGet, "/api/info?address=192.0.2.1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(h, http.MethodGet, "/api/info?address=game.example.org:27015", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Count = 2
	cfg.RateLimit.Window = time.Hour
	_, h := newTestServer(t, nil, cfg)

	for i := 0; i < 2; i++ {
		rec := do(h, http.MethodGet, "/api/rules?address=192.0.2.1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(h, http.MethodGet, "/api/info?address=192.0.2.1", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "limit is shared by all live endpoints")

	rec = do(h, http.MethodGet, "/api/version", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminEndpoints(t *testing.T) {
	repo := &memoryRepo{servers: map[string]models.Server{
		"192.0.2.1:27015": {Address: "192.0.2.1:27015", ServerName: "Test Server"},
	}}
	_, h := newTestServer(t, repo, testConfig())
	auth := map[string]string{"Authorization": "Bearer " + token}

	rec := do(h, http.MethodGet, "/api/servers", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodGet, "/api/servers", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodGet, "/api/servers", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var servers []models.Server
	decode(t, rec, &servers)
	require.Len(t, servers, 1)

	rec = do(h, http.MethodGet, "/api/server?address=192.0.2.1", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var server models.Server
	decode(t, rec, &server)
	assert.Equal(t, "Test Server", server.ServerName)

	rec = do(h, http.MethodGet, "/api/server?address=192.0.2.2", auth)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodDelete, "/api/server?address=192.0.2.1", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"192.0.2.1:27015"}, repo.deleted)

	rec = do(h, http.MethodGet, "/api/servers", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAdminWithoutStorage(t *testing.T) {
	_, h := newTestServer(t, nil, testConfig())

	rec := do(h, http.MethodGet, "/api/servers", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVersion(t *testing.T) {
	_, h := newTestServer(t, nil, testConfig())

	rec := do(h, http.MethodGet, "/api/version", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "a2squery", body["name"])
}

func TestGetRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")

	assert.Equal(t, "198.51.100.1", GetRealIP(req, false))
	assert.Equal(t, "203.0.113.5", GetRealIP(req, true))

	req.Header.Set("CF-Connecting-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", GetRealIP(req, true))
}
