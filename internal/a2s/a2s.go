// Package a2s implements the client side of the Source Engine query protocol (A2S):
// request templates with a challenge slot, the challenge handshake, multi-packet
// reassembly and decoding of INFO, PLAYER and RULES responses.
//
// The package owns no sockets. Callers pass a connected datagram channel and are
// responsible for its timeouts; a server that keeps answering with challenges is
// bounded only by those timeouts.
package a2s

// Request type bytes.
const (
	RequestInfo    byte = 0x54 // 'T'
	RequestPlayers byte = 0x55 // 'U'
	RequestRules   byte = 0x56 // 'V'
)

// Response type bytes.
const (
	ResponseChallenge byte = 0x41 // 'A'
	ResponseInfo      byte = 0x49 // 'I'
	ResponsePlayers   byte = 0x44 // 'D'
	ResponseRules     byte = 0x45 // 'E'
)

// Datagram headers.
const (
	singlePacket int32 = -1
	multiPacket  int32 = -2
)

// MaxPacketSize is the largest datagram the protocol sends.
const MaxPacketSize = 1400

// Conn is a connected datagram channel. Each Read returns exactly one datagram and
// each Write sends exactly one. A connected *net.UDPConn satisfies it.
type Conn interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
}
