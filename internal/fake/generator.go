// Package fake generates random server history for development of API clients.
package fake

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/a2squery/internal/a2s"
	"github.com/woozymasta/a2squery/internal/models"
	"github.com/woozymasta/a2squery/internal/monitor"
)

type game struct {
	name   string
	folder string
	maps   []string
	id     int
	slots  int
}

var games = []game{
	{name: "Counter-Strike 2", folder: "cs2", id: 730, slots: 32, maps: []string{"de_dust2", "de_mirage", "de_inferno", "de_nuke", "de_ancient"}},
	{name: "Team Fortress", folder: "tf", id: 440, slots: 24, maps: []string{"ctf_2fort", "pl_badwater", "cp_dustbowl", "koth_harvest"}},
	{name: "Garry's Mod", folder: "garrysmod", id: 4000, slots: 64, maps: []string{"gm_construct", "gm_flatgrass", "rp_downtown_v4c"}},
	{name: "DayZ", folder: "dayz", id: 0, slots: 60, maps: []string{"chernarusplus", "livonia", "sakhal"}},
}

// GenerateData populates the store with count randomized servers, some of them
// upserted repeatedly to spread the seen counters.
func GenerateData(store monitor.Store, count int) {
	osTypes := []string{a2s.EnvironmentLinux.String(), a2s.EnvironmentWindows.String()}
	countries := []string{"US", "DE", "RU", "BR", "FR", "GB", "PL", "NL", "SE", "FI", "CA", "AU"}
	names := []string{"Cyber", "Rusty", "Frosty", "Midnight", "Lucky", "Old School"}
	nicks := []string{"alice", "bob", "carol", "dave", "eve", "mallory", "trent", "peggy"}

	for i := 0; i < count; i++ {
		g := games[rand.Intn(len(games))]

		// Random date-time in 30 days range
		seenTime := time.Now().UTC().
			Add(-time.Duration(rand.Intn(30)) * 24 * time.Hour).
			Add(-time.Duration(rand.Intn(1440)) * time.Minute)

		players := make([]a2s.Player, rand.Intn(g.slots/2+1))
		for j := range players {
			players[j] = a2s.Player{
				Name:     fmt.Sprintf("%s%d", nicks[rand.Intn(len(nicks))], rand.Intn(100)),
				Score:    int32(rand.Intn(50)),
				Duration: rand.Float32() * 7200,
			}
		}

		server := models.Server{
			Address:     fmt.Sprintf("%d.%d.%d.%d:%d", rand.Intn(220)+1, rand.Intn(255), rand.Intn(255), rand.Intn(255), 27015+rand.Intn(20)),
			CountryCode: countries[rand.Intn(len(countries))],
			ServerName:  fmt.Sprintf("%s %s #%d", names[rand.Intn(len(names))], g.name, rand.Intn(1000)),
			MapName:     g.maps[rand.Intn(len(g.maps))],
			Folder:      g.folder,
			GameName:    g.name,
			GameID:      g.id,
			GameVersion: fmt.Sprintf("1.%d.%d", rand.Intn(40), rand.Intn(10)),
			ServerType:  a2s.ServerDedicated.String(),
			ServerOS:    osTypes[rand.Intn(len(osTypes))],
			Players:     byte(len(players)),
			MaxPlayers:  byte(g.slots),
			Bots:        byte(rand.Intn(3)),
			Password:    rand.Float32() < 0.1,
			VAC:         rand.Float32() < 0.8,
			PlayerList:  players,
			FirstSeen:   seenTime,
			LastSeen:    seenTime,
		}

		if err := store.UpsertServer(server); err != nil {
			log.Warn().Err(err).Msg("Failed to generate fake server")
			continue
		}

		if rand.Float32() < 0.3 { // 30% chance seen again
			_ = store.UpsertServer(server)
			_ = store.UpsertServer(server)
		}
	}

	log.Info().Int("count", count).Msg("Fake servers generated")
}
