// Package game queries game servers using the Source Engine Query (A2S) protocol.
// It owns the UDP sockets and drives the protocol engine in internal/a2s.
package game

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/a2squery/internal/a2s"
	"github.com/woozymasta/a2squery/internal/config"
)

// Summary is the server name with the names of connected players.
type Summary struct {
	Name    string   `json:"name"`
	Players []string `json:"players"`
}

// Report collects the results of every query run against one server.
// Failed queries leave their field empty and record the error under the query kind.
type Report struct {
	QueriedAt time.Time         `json:"queried_at"`
	Info      *a2s.Info         `json:"info,omitempty"`
	Summary   *Summary          `json:"summary,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	Name      string            `json:"name,omitempty"`
	Address   string            `json:"address"`
	IP        string            `json:"ip,omitempty"`
	Country   string            `json:"country,omitempty"`
	Players   []a2s.Player      `json:"players,omitempty"`
	Rules     []a2s.Rule        `json:"rules,omitempty"`
	Latency   time.Duration     `json:"latency_ns"`
}

// Online reports whether at least one query succeeded.
func (r *Report) Online() bool {
	return r.Info != nil || r.Summary != nil || r.Players != nil || r.Rules != nil
}

func (r *Report) fail(kind string, err error) {
	if r.Errors == nil {
		r.Errors = make(map[string]string)
	}
	r.Errors[kind] = err.Error()
}

// dial opens a socket for one server and starts its overall deadline.
func dial(address string, options config.Query) (*Conn, error) {
	conn, err := Dial(address, options.Timeout)
	if err != nil {
		return nil, err
	}

	if options.Deadline > 0 {
		conn.SetLimit(time.Now().Add(options.Deadline))
	}

	return conn, nil
}

// QueryInfo connects to a game server and requests A2S_INFO.
func QueryInfo(address string, options config.Query) (*a2s.Info, error) {
	conn, err := dial(address, options)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	return a2s.QueryInfo(conn, a2s.InfoTemplate())
}

// QueryPlayers connects to a game server and requests A2S_PLAYER.
func QueryPlayers(address string, options config.Query) ([]a2s.Player, error) {
	conn, err := dial(address, options)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	return a2s.QueryPlayers(conn, a2s.PlayersTemplate())
}

// QueryRules connects to a game server and requests A2S_RULES.
func QueryRules(address string, options config.Query) ([]a2s.Rule, error) {
	conn, err := dial(address, options)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	return a2s.QueryRules(conn, a2s.RulesTemplate())
}

// QuerySummary requests A2S_INFO and then A2S_PLAYER over one socket.
func QuerySummary(address string, options config.Query) (*Summary, error) {
	conn, err := dial(address, options)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	return querySummary(conn)
}

func querySummary(conn a2s.Conn) (*Summary, error) {
	info, err := a2s.QueryInfo(conn, a2s.InfoTemplate())
	if err != nil {
		return nil, err
	}

	players, err := a2s.QueryPlayers(conn, a2s.PlayersTemplate())
	if err != nil {
		return nil, err
	}

	return summarize(info, players), nil
}

func summarize(info *a2s.Info, players []a2s.Player) *Summary {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Name)
	}

	return &Summary{Name: info.Name, Players: names}
}

// Query runs the query kinds selected in options against target over one socket,
// one after another. It never fails as a whole; errors are kept in the report.
func Query(target config.Target, options config.Query) *Report {
	report := &Report{
		Name:      target.Name,
		Address:   target.Address,
		QueriedAt: time.Now().UTC(),
	}

	start := time.Now()
	defer func() { report.Latency = time.Since(start) }()

	conn, err := dial(target.Address, options)
	if err != nil {
		for _, kind := range options.What {
			report.fail(kind, err)
		}
		return report
	}
	defer func() { _ = conn.Close() }()

	if ip := conn.RemoteIP(); ip != nil {
		report.IP = ip.String()
	}

	run(conn, report, options)

	return report
}

func run(conn a2s.Conn, report *Report, options config.Query) {
	logCtx := log.With().Str("address", report.Address).Logger()

	if options.Wants(config.WhatInfo) || options.Wants(config.WhatSummary) {
		info, err := a2s.QueryInfo(conn, a2s.InfoTemplate())
		if err != nil {
			logCtx.Debug().Err(err).Msg("A2S_INFO query failed")
			report.fail(config.WhatInfo, err)
		} else {
			report.Info = info
		}
	}

	if options.Wants(config.WhatPlayers) || options.Wants(config.WhatSummary) {
		players, err := a2s.QueryPlayers(conn, a2s.PlayersTemplate())
		if err != nil {
			logCtx.Debug().Err(err).Msg("A2S_PLAYER query failed")
			report.fail(config.WhatPlayers, err)
		} else {
			report.Players = players
		}
	}

	if options.Wants(config.WhatRules) {
		rules, err := a2s.QueryRules(conn, a2s.RulesTemplate())
		if err != nil {
			logCtx.Debug().Err(err).Msg("A2S_RULES query failed")
			report.fail(config.WhatRules, err)
		} else {
			report.Rules = rules
		}
	}

	if options.Wants(config.WhatSummary) && report.Info != nil && report.Players != nil {
		report.Summary = summarize(report.Info, report.Players)
	}

	logCtx.Trace().Bool("online", report.Online()).Int("errors", len(report.Errors)).Msg("Server queried")
}
