// Package models defines the data structures used for API responses and database persistence.
package models

import (
	"time"

	"github.com/woozymasta/a2squery/internal/a2s"
	"github.com/woozymasta/a2squery/internal/game"
)

// Server is the last known state of a queried game server stored in the database.
type Server struct {
	FirstSeen   time.Time    `json:"first_seen"`
	LastSeen    time.Time    `json:"last_seen"`
	Address     string       `json:"address"`
	Label       string       `json:"label,omitempty"`
	CountryCode string       `json:"country_code"`
	ServerName  string       `json:"server_name"`
	MapName     string       `json:"map_name"`
	Folder      string       `json:"folder"`
	GameName    string       `json:"game_name"`
	GameVersion string       `json:"game_version"`
	ServerType  string       `json:"server_type"`
	ServerOS    string       `json:"server_os"`
	PlayerList  []a2s.Player `json:"player_list,omitempty"`
	Count       int64        `json:"count"`
	GameID      int          `json:"game_id"`
	Players     byte         `json:"players"`
	MaxPlayers  byte         `json:"max_players"`
	Bots        byte         `json:"bots"`
	Password    bool         `json:"password"`
	VAC         bool         `json:"vac"`
}

// FromReport builds a Server from a report whose A2S_INFO query succeeded.
// It returns false when there is no info to store.
func FromReport(r *game.Report) (Server, bool) {
	if r.Info == nil {
		return Server{}, false
	}

	info := r.Info
	s := Server{
		Address:     r.Address,
		Label:       r.Name,
		CountryCode: r.Country,
		ServerName:  info.Name,
		MapName:     info.Map,
		Folder:      info.Folder,
		GameName:    info.Game,
		GameID:      int(info.GameID),
		ServerType:  info.ServerType.String(),
		ServerOS:    info.Environment.String(),
		Players:     info.Players,
		MaxPlayers:  info.MaxPlayers,
		Bots:        info.Bots,
		Password:    info.Password,
		VAC:         info.VAC,
		PlayerList:  r.Players,
		FirstSeen:   r.QueriedAt,
		LastSeen:    r.QueriedAt,
	}
	if info.Extended != nil {
		s.GameVersion = info.Extended.Version
	}

	return s, true
}
