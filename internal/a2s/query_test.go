package a2s

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/a2squery/internal/bytestream"
)

func infoPayload() []byte {
	b := []byte{ResponseInfo, 0x07}
	b = append(b, "name\x00map\x00folder\x00game\x00"...)
	return append(b, 0xE1, 0x10, 0x03, 0x04, 0x01, 'd', 'l', 0x00, 0x01)
}

func playerRecord(name string, score int32, duration float32) []byte {
	b := append([]byte{0x00}, name...)
	b = append(b, 0x00)
	b = binary.LittleEndian.AppendUint32(b, uint32(score))
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(duration))
}

func TestQueryInfoScenario(t *testing.T) {
	conn := &scriptedConn{reads: [][]byte{single(infoPayload()...)}}

	info, err := QueryInfo(conn, InfoTemplate())
	require.NoError(t, err)

	assert.Equal(t, &Info{
		Protocol:    7,
		Name:        "name",
		Map:         "map",
		Folder:      "folder",
		Game:        "game",
		GameID:      0x10E1,
		Players:     3,
		MaxPlayers:  4,
		Bots:        1,
		ServerType:  ServerDedicated,
		Environment: EnvironmentLinux,
		Password:    false,
		VAC:         true,
	}, info)

	require.Len(t, conn.writes, 1)
	assert.Equal(t, append([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x54}, "Source Engine Query\x00"...), conn.writes[0])
}

func TestQueryInfoChallenge(t *testing.T) {
	conn := &scriptedConn{reads: [][]byte{
		single(ResponseChallenge, 0xAA, 0xBB, 0xCC, 0xDD),
		single(infoPayload()...),
	}}

	tmpl := InfoTemplate()
	info, err := QueryInfo(conn, tmpl)
	require.NoError(t, err)
	assert.Equal(t, "name", info.Name)

	require.Len(t, conn.writes, 2, "expected exactly one resend")
	resend := conn.writes[1]
	assert.Equal(t, conn.writes[0], resend[:len(resend)-ChallengeSize])
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, resend[len(resend)-ChallengeSize:])
	assert.Equal(t, Challenge{0xAA, 0xBB, 0xCC, 0xDD}, tmpl.Challenge())
}

func TestQueryRepeatedChallenges(t *testing.T) {
	conn := &scriptedConn{reads: [][]byte{
		single(ResponseChallenge, 1, 2, 3, 4),
		single(ResponseChallenge, 5, 6, 7, 8),
		single(ResponsePlayers, 0),
	}}

	players, err := QueryPlayers(conn, PlayersTemplate())
	require.NoError(t, err)
	assert.Empty(t, players)

	require.Len(t, conn.writes, 3)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x55, 0xFF, 0xFF, 0xFF, 0xFF}, conn.writes[0])
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x55, 1, 2, 3, 4}, conn.writes[1])
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x55, 5, 6, 7, 8}, conn.writes[2])
}

func TestQueryShortChallengeIsNotAChallenge(t *testing.T) {
	conn := &scriptedConn{reads: [][]byte{single(ResponseChallenge, 1, 2)}}

	_, err := QueryRules(conn, RulesTemplate())
	require.ErrorIs(t, err, ErrInvalidData)
	assert.Len(t, conn.writes, 1)
}

func TestQueryKeepsConnErrorKind(t *testing.T) {
	setupErr := NewError(ErrSetup, "set deadline", errTimeout)

	_, err := QueryInfo(&scriptedConn{writeErr: setupErr}, InfoTemplate())
	require.ErrorIs(t, err, ErrSetup)
	assert.NotErrorIs(t, err, ErrSend)

	_, err = QueryRules(&scriptedConn{readErr: setupErr}, RulesTemplate())
	require.ErrorIs(t, err, ErrSetup)
	assert.NotErrorIs(t, err, ErrReceive)
}

func TestQueryUnexpectedResponse(t *testing.T) {
	tests := []struct {
		name  string
		reads [][]byte
	}{
		{"empty", [][]byte{single()}},
		{"wrong marker", [][]byte{single(ResponseRules, 0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := QueryInfo(&scriptedConn{reads: tt.reads}, InfoTemplate())
			require.ErrorIs(t, err, ErrInvalidData)
		})
	}
}

func TestQueryTransportErrors(t *testing.T) {
	_, err := QueryInfo(&scriptedConn{writeErr: errTimeout}, InfoTemplate())
	require.ErrorIs(t, err, ErrSend)
	require.ErrorIs(t, err, errTimeout)

	// no retry after a failed receive
	conn := &scriptedConn{readErr: errTimeout}
	_, err = QueryPlayers(conn, PlayersTemplate())
	require.ErrorIs(t, err, ErrReceive)
	assert.Len(t, conn.writes, 1)
}

func TestQueryPlayersTruncated(t *testing.T) {
	payload := []byte{ResponsePlayers, 3}
	payload = append(payload, playerRecord("alice", 10, 1.5)...)
	payload = append(payload, playerRecord("bob", -2, 60)...)
	payload = append(payload, 0x00, 'c', 'a') // third record cut inside the name

	players, err := QueryPlayers(&scriptedConn{reads: [][]byte{single(payload...)}}, PlayersTemplate())
	require.NoError(t, err)
	assert.Equal(t, []Player{
		{Name: "alice", Score: 10, Duration: 1.5},
		{Name: "bob", Score: -2, Duration: 60},
	}, players)
}

func TestQueryPlayersMissingCount(t *testing.T) {
	_, err := QueryPlayers(&scriptedConn{reads: [][]byte{single(ResponsePlayers)}}, PlayersTemplate())
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestQueryRules(t *testing.T) {
	payload := append([]byte{ResponseRules, 3}, "sv_cheats\x000\x00mp_timelimit\x0030\x00sv_gravity"...)

	rules, err := QueryRules(&scriptedConn{reads: [][]byte{single(payload...)}}, RulesTemplate())
	require.NoError(t, err)
	assert.Equal(t, []Rule{
		{Name: "sv_cheats", Value: "0"},
		{Name: "mp_timelimit", Value: "30"},
	}, rules)
}

func TestQueryRulesSplit(t *testing.T) {
	payload := []byte{ResponseRules, 2}
	payload = append(payload, "a\x001\x00b\x002\x00"...)
	parts := chunk(payload, 2)

	conn := &scriptedConn{reads: [][]byte{
		single(ResponseChallenge, 9, 9, 9, 9),
		split(3, 2, 1, parts[1]),
		split(3, 2, 0, parts[0]),
	}}

	rules, err := QueryRules(conn, RulesTemplate())
	require.NoError(t, err)
	assert.Equal(t, []Rule{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}, rules)
}

func TestDecodeInfoFailures(t *testing.T) {
	full := infoPayload()[1:]

	// every strict prefix misses a required field
	for n := 0; n < len(full); n++ {
		_, err := decodeInfo(bytestream.New(full[:n]))
		require.ErrorIs(t, err, ErrInvalidData, "prefix %d", n)
	}

	badType := append([]byte(nil), full...)
	badType[len(badType)-4] = 'x'
	_, err := decodeInfo(bytestream.New(badType))
	require.ErrorIs(t, err, ErrInvalidData)

	badEnv := append([]byte(nil), full...)
	badEnv[len(badEnv)-3] = 'x'
	_, err = decodeInfo(bytestream.New(badEnv))
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestDecodeEnvironmentTags(t *testing.T) {
	tests := map[byte]Environment{
		'l': EnvironmentLinux,
		'w': EnvironmentWindows,
		'm': EnvironmentMac,
		'o': EnvironmentMac,
	}

	for tag, want := range tests {
		got, err := decodeEnvironment(bytestream.New([]byte{tag}))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDecodeInfoExtended(t *testing.T) {
	b := infoPayload()[1:]
	b = append(b, "1.2.3\x00"...)
	b = append(b, edfPort|edfSteamID|edfSourceTV|edfKeywords|edfGameID)
	b = binary.LittleEndian.AppendUint16(b, 27015)
	b = binary.LittleEndian.AppendUint64(b, 90071992547409920)
	b = binary.LittleEndian.AppendUint16(b, 27020)
	b = append(b, "tv\x00pvp,eu\x00"...)
	b = binary.LittleEndian.AppendUint64(b, 221100)

	info, err := decodeInfo(bytestream.New(b))
	require.NoError(t, err)
	require.NotNil(t, info.Extended)
	assert.Equal(t, ExtendedInfo{
		Version:      "1.2.3",
		Flags:        0xF1,
		Port:         27015,
		SteamID:      90071992547409920,
		SourceTVPort: 27020,
		SourceTVName: "tv",
		Keywords:     "pvp,eu",
		GameID:       221100,
	}, *info.Extended)

	// flagged field missing
	info, err = decodeInfo(bytestream.New(b[:len(b)-3]))
	require.NoError(t, err)
	assert.Equal(t, "name", info.Name)
	assert.Nil(t, info.Extended)
}

func TestDecodeInfoMalformedTail(t *testing.T) {
	tails := map[string]string{
		"stray byte":           "x",
		"unterminated version": "1.0.0",
	}

	for name, tail := range tails {
		t.Run(name, func(t *testing.T) {
			b := append(infoPayload()[1:], tail...)

			info, err := decodeInfo(bytestream.New(b))
			require.NoError(t, err)
			assert.Equal(t, "name", info.Name)
			assert.True(t, info.VAC)
			assert.Nil(t, info.Extended)
		})
	}
}
