package a2s

import (
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/a2squery/internal/bytestream"
)

// QueryInfo requests A2S_INFO over conn using tmpl.
func QueryInfo(conn Conn, tmpl *Template) (*Info, error) {
	c, err := exchange(conn, tmpl, ResponseInfo)
	if err != nil {
		return nil, err
	}

	return decodeInfo(c)
}

// QueryPlayers requests A2S_PLAYER over conn using tmpl.
func QueryPlayers(conn Conn, tmpl *Template) ([]Player, error) {
	c, err := exchange(conn, tmpl, ResponsePlayers)
	if err != nil {
		return nil, err
	}

	return decodePlayers(c)
}

// QueryRules requests A2S_RULES over conn using tmpl.
func QueryRules(conn Conn, tmpl *Template) ([]Rule, error) {
	c, err := exchange(conn, tmpl, ResponseRules)
	if err != nil {
		return nil, err
	}

	return decodeRules(c)
}

// exchange sends the initial request and answers challenges until the server
// replies with something else. The reply must start with want; the returned
// cursor is positioned right after it.
func exchange(conn Conn, tmpl *Template, want byte) (*bytestream.Cursor, error) {
	if err := send(conn, tmpl.Initial()); err != nil {
		return nil, err
	}

	resp, err := readResponse(conn)
	if err != nil {
		return nil, err
	}

	for len(resp) >= 1+ChallengeSize && resp[0] == ResponseChallenge {
		var token Challenge
		copy(token[:], resp[1:1+ChallengeSize])
		tmpl.SetChallenge(token)

		log.Trace().
			Hex("challenge", token[:]).
			Uint8("want", want).
			Msg("Server issued challenge, resending")

		if err := send(conn, tmpl.Resend()); err != nil {
			return nil, err
		}

		if resp, err = readResponse(conn); err != nil {
			return nil, err
		}
	}

	if len(resp) == 0 {
		return nil, invalidData("read response", "empty response")
	}
	if resp[0] != want {
		return nil, invalidData("read response", "expected response type 0x%02x, got 0x%02x", want, resp[0])
	}

	return bytestream.New(resp[1:]), nil
}

func send(conn Conn, b []byte) error {
	if _, err := conn.Write(b); err != nil {
		return wrap(ErrSend, "send", err)
	}

	return nil
}
