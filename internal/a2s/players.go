package a2s

import (
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/a2squery/internal/bytestream"
)

// Player is one entry of an A2S_PLAYER response.
type Player struct {
	Name     string  `json:"name"`
	Score    int32   `json:"score"`
	Duration float32 `json:"duration"`
}

// decodePlayers reads an A2S_PLAYER payload, response marker already removed.
// Servers sometimes truncate the list, so a record that fails to decode ends
// the list and the players read so far are returned.
func decodePlayers(c *bytestream.Cursor) ([]Player, error) {
	count, err := c.Uint8()
	if err != nil {
		return nil, invalidData("decode players", "player count: %w", err)
	}

	players := make([]Player, 0, count)
	for i := 0; i < int(count); i++ {
		player, err := decodePlayer(c)
		if err != nil {
			log.Warn().
				Err(err).
				Int("expected", int(count)).
				Int("decoded", len(players)).
				Msg("Could not read all players")
			break
		}

		players = append(players, player)
	}

	return players, nil
}

func decodePlayer(c *bytestream.Cursor) (Player, error) {
	var (
		p   Player
		err error
	)

	// index is always zero on most servers
	if err = c.Skip(1); err != nil {
		return p, err
	}
	if p.Name, err = c.String(); err != nil {
		return p, err
	}
	if p.Score, err = c.Int32(); err != nil {
		return p, err
	}
	if p.Duration, err = c.Float32(); err != nil {
		return p, err
	}

	return p, nil
}
