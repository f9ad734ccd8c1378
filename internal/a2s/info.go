package a2s

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/a2squery/internal/bytestream"
)

// Extra Data Flag bits.
const (
	edfPort     = 0x80
	edfSteamID  = 0x10
	edfSourceTV = 0x40
	edfKeywords = 0x20
	edfGameID   = 0x01
)

// Info is a decoded A2S_INFO response.
type Info struct {
	// Extended is set when the server appended the version string and extra data block.
	Extended *ExtendedInfo `json:"extended,omitempty"`

	Name        string      `json:"name"`
	Map         string      `json:"map"`
	Folder      string      `json:"folder"`
	Game        string      `json:"game"`
	GameID      int16       `json:"game_id"`
	Protocol    uint8       `json:"protocol"`
	Players     uint8       `json:"players"`
	MaxPlayers  uint8       `json:"max_players"`
	Bots        uint8       `json:"bots"`
	ServerType  ServerType  `json:"server_type"`
	Environment Environment `json:"environment"`
	Password    bool        `json:"password"`
	VAC         bool        `json:"vac"`
}

// ExtendedInfo holds the optional fields that follow the VAC flag.
type ExtendedInfo struct {
	Version      string `json:"version"`
	Keywords     string `json:"keywords,omitempty"`
	SourceTVName string `json:"sourcetv_name,omitempty"`
	SteamID      uint64 `json:"steam_id,omitempty"`
	GameID       uint64 `json:"game_id,omitempty"`
	Port         uint16 `json:"port,omitempty"`
	SourceTVPort uint16 `json:"sourcetv_port,omitempty"`
	Flags        uint8  `json:"flags"`
}

// decodeInfo reads an A2S_INFO payload, response marker already removed.
// Fields are read in wire order and a missing or invalid required field fails the whole record.
// The optional extended block is dropped when it cannot be decoded.
func decodeInfo(c *bytestream.Cursor) (*Info, error) {
	var (
		info Info
		err  error
	)

	fail := func(field string, err error) (*Info, error) {
		return nil, invalidData("decode info", "%s: %w", field, err)
	}

	if info.Protocol, err = c.Uint8(); err != nil {
		return fail("protocol", err)
	}
	if info.Name, err = c.String(); err != nil {
		return fail("name", err)
	}
	if info.Map, err = c.String(); err != nil {
		return fail("map", err)
	}
	if info.Folder, err = c.String(); err != nil {
		return fail("folder", err)
	}
	if info.Game, err = c.String(); err != nil {
		return fail("game", err)
	}
	if info.GameID, err = c.Int16(); err != nil {
		return fail("game id", err)
	}
	if info.Players, err = c.Uint8(); err != nil {
		return fail("players", err)
	}
	if info.MaxPlayers, err = c.Uint8(); err != nil {
		return fail("max players", err)
	}
	if info.Bots, err = c.Uint8(); err != nil {
		return fail("bots", err)
	}
	if info.ServerType, err = decodeServerType(c); err != nil {
		return fail("server type", err)
	}
	if info.Environment, err = decodeEnvironment(c); err != nil {
		return fail("environment", err)
	}
	if info.Password, err = c.Bool(); err != nil {
		return fail("password", err)
	}
	if info.VAC, err = c.Bool(); err != nil {
		return fail("vac", err)
	}

	if c.Len() == 0 {
		return &info, nil
	}

	// the tail is optional, a malformed one does not spoil the required fields
	if info.Extended, err = decodeExtendedInfo(c); err != nil {
		log.Debug().Err(err).Int("remaining", c.Len()).Msg("Could not read extended server info")
		info.Extended = nil
	}

	return &info, nil
}

// decodeExtendedInfo reads the version string and, when present, the extra data block.
// Every field announced by the flag byte must be present.
func decodeExtendedInfo(c *bytestream.Cursor) (*ExtendedInfo, error) {
	var (
		ext ExtendedInfo
		err error
	)

	if ext.Version, err = c.String(); err != nil {
		return nil, fmt.Errorf("version: %w", err)
	}
	if c.Len() == 0 {
		return &ext, nil
	}

	if ext.Flags, err = c.Uint8(); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}

	if ext.Flags&edfPort != 0 {
		port, err := c.Int16()
		if err != nil {
			return nil, fmt.Errorf("port: %w", err)
		}
		ext.Port = uint16(port)
	}
	if ext.Flags&edfSteamID != 0 {
		if ext.SteamID, err = c.Uint64(); err != nil {
			return nil, fmt.Errorf("steam id: %w", err)
		}
	}
	if ext.Flags&edfSourceTV != 0 {
		port, err := c.Int16()
		if err != nil {
			return nil, fmt.Errorf("sourcetv port: %w", err)
		}
		ext.SourceTVPort = uint16(port)

		if ext.SourceTVName, err = c.String(); err != nil {
			return nil, fmt.Errorf("sourcetv name: %w", err)
		}
	}
	if ext.Flags&edfKeywords != 0 {
		if ext.Keywords, err = c.String(); err != nil {
			return nil, fmt.Errorf("keywords: %w", err)
		}
	}
	if ext.Flags&edfGameID != 0 {
		if ext.GameID, err = c.Uint64(); err != nil {
			return nil, fmt.Errorf("game id: %w", err)
		}
	}

	return &ext, nil
}
