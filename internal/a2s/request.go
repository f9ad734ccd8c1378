package a2s

import (
	"errors"
	"fmt"
)

// ChallengeSize is the length of a challenge token and of the template slot it is written to.
const ChallengeSize = 4

// Challenge is the anti-spoofing token a server sends before answering.
type Challenge [ChallengeSize]byte

var errTemplateTooShort = errors.New("template shorter than challenge slot")

// Template holds the request bytes for one query kind.
// The initial request is sent as is; the resend buffer ends with the challenge slot,
// which is overwritten each time the server issues a challenge.
// A Template is owned by one query at a time.
type Template struct {
	initial []byte
	resend  []byte
}

// NewTemplate copies initial and resend into a new template.
// The last ChallengeSize bytes of resend form the challenge slot.
func NewTemplate(initial, resend []byte) (*Template, error) {
	if len(resend) < ChallengeSize {
		return nil, fmt.Errorf("%w: %d bytes", errTemplateTooShort, len(resend))
	}

	return &Template{
		initial: clone(initial),
		resend:  clone(resend),
	}, nil
}

// InfoTemplate returns the A2S_INFO request. The first request carries no challenge.
func InfoTemplate() *Template {
	query := append([]byte{0xFF, 0xFF, 0xFF, 0xFF, RequestInfo}, "Source Engine Query\x00"...)
	return mustTemplate(query, append(clone(query), 0xFF, 0xFF, 0xFF, 0xFF))
}

// PlayersTemplate returns the A2S_PLAYER request with an empty (-1) challenge.
func PlayersTemplate() *Template {
	query := []byte{0xFF, 0xFF, 0xFF, 0xFF, RequestPlayers, 0xFF, 0xFF, 0xFF, 0xFF}
	return mustTemplate(query, query)
}

// RulesTemplate returns the A2S_RULES request with an empty (-1) challenge.
func RulesTemplate() *Template {
	query := []byte{0xFF, 0xFF, 0xFF, 0xFF, RequestRules, 0xFF, 0xFF, 0xFF, 0xFF}
	return mustTemplate(query, query)
}

func mustTemplate(initial, resend []byte) *Template {
	t, err := NewTemplate(initial, resend)
	if err != nil {
		panic(err)
	}

	return t
}

// Initial returns the first request to send.
func (t *Template) Initial() []byte {
	return t.initial
}

// Resend returns the request sent after a challenge, slot included.
func (t *Template) Resend() []byte {
	return t.resend
}

// SetChallenge writes the token into the challenge slot.
func (t *Template) SetChallenge(token Challenge) {
	copy(t.resend[len(t.resend)-ChallengeSize:], token[:])
}

// Challenge returns the current content of the challenge slot.
func (t *Template) Challenge() Challenge {
	var token Challenge
	copy(token[:], t.resend[len(t.resend)-ChallengeSize:])

	return token
}
