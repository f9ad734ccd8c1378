// Package storage handles database connections, schema migrations, and data operations using SQLite.
package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/woozymasta/a2squery/internal/a2s"
	"github.com/woozymasta/a2squery/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

const serverColumns = `address, label, country_code, server_name, map_name, folder, game_name, game_id,
	game_version, server_type, server_os, players, max_players, bots, password, vac,
	count, first_seen, last_seen`

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New initializes a new SQLite connection, sets connection pool parameters, and runs migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// UpsertServer inserts a server or refreshes an existing one, bumping its seen counter.
// The stored player list is replaced only when s.PlayerList is not nil,
// so a failed A2S_PLAYER query keeps the previous list.
func (r *Repository) UpsertServer(s models.Server) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO servers (` + serverColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	ON CONFLICT(address) DO UPDATE SET
		count = count + 1,
		last_seen = excluded.last_seen,

		-- Keep a known label or country when the new one is blank
		label        = CASE WHEN excluded.label != '' THEN excluded.label ELSE servers.label END,
		country_code = CASE WHEN excluded.country_code != '' THEN excluded.country_code ELSE servers.country_code END,

		server_name  = excluded.server_name,
		map_name     = excluded.map_name,
		folder       = excluded.folder,
		game_name    = excluded.game_name,
		game_id      = excluded.game_id,
		game_version = excluded.game_version,
		server_type  = excluded.server_type,
		server_os    = excluded.server_os,
		players      = excluded.players,
		max_players  = excluded.max_players,
		bots         = excluded.bots,
		password     = excluded.password,
		vac          = excluded.vac;
	`

	// LastSeen doubles as FirstSeen for new records
	if _, err := tx.Exec(query,
		s.Address, s.Label, s.CountryCode, s.ServerName, s.MapName, s.Folder, s.GameName, s.GameID,
		s.GameVersion, s.ServerType, s.ServerOS, s.Players, s.MaxPlayers, s.Bots, s.Password, s.VAC,
		s.LastSeen, s.LastSeen,
	); err != nil {
		return err
	}

	if s.PlayerList != nil {
		if _, err := tx.Exec(`DELETE FROM players WHERE address = ?`, s.Address); err != nil {
			return err
		}
		for i, p := range s.PlayerList {
			if _, err := tx.Exec(
				`INSERT INTO players (address, position, name, score, duration) VALUES (?, ?, ?, ?, ?)`,
				s.Address, i, p.Name, p.Score, p.Duration,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// GetServers retrieves all servers without player lists, most recently seen first.
func (r *Repository) GetServers() ([]models.Server, error) {
	rows, err := r.db.Query(`SELECT ` + serverColumns + ` FROM servers ORDER BY last_seen DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var servers []models.Server
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			continue
		}
		servers = append(servers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return servers, nil
}

// GetServer retrieves one server with its player list.
// It returns nil without an error when the address is unknown.
func (r *Repository) GetServer(address string) (*models.Server, error) {
	row := r.db.QueryRow(`SELECT `+serverColumns+` FROM servers WHERE address = ?`, address)

	s, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}

	if s.PlayerList, err = r.players(address); err != nil {
		return nil, err
	}

	return &s, nil
}

// ListAddresses returns the addresses of all stored servers.
func (r *Repository) ListAddresses() ([]string, error) {
	rows, err := r.db.Query(`SELECT address FROM servers ORDER BY address`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var addresses []string
	for rows.Next() {
		var address string
		if err := rows.Scan(&address); err != nil {
			return nil, err
		}
		addresses = append(addresses, address)
	}

	return addresses, rows.Err()
}

// DeleteServer removes a server and its players.
func (r *Repository) DeleteServer(address string) error {
	_, err := r.db.Exec(`DELETE FROM servers WHERE address = ?`, address)
	return err
}

// DeleteStale removes servers whose last_seen is before the cutoff and returns how many were removed.
func (r *Repository) DeleteStale(before time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM servers WHERE last_seen < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) players(address string) ([]a2s.Player, error) {
	rows, err := r.db.Query(`SELECT name, score, duration FROM players WHERE address = ? ORDER BY position`, address)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var players []a2s.Player
	for rows.Next() {
		var p a2s.Player
		if err := rows.Scan(&p.Name, &p.Score, &p.Duration); err != nil {
			return nil, err
		}
		players = append(players, p)
	}

	return players, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanServer(row scanner) (models.Server, error) {
	var s models.Server
	err := row.Scan(
		&s.Address, &s.Label, &s.CountryCode, &s.ServerName, &s.MapName, &s.Folder, &s.GameName, &s.GameID,
		&s.GameVersion, &s.ServerType, &s.ServerOS, &s.Players, &s.MaxPlayers, &s.Bots, &s.Password, &s.VAC,
		&s.Count, &s.FirstSeen, &s.LastSeen,
	)

	return s, err
}
