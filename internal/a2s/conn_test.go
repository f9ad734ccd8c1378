package a2s

import (
	"encoding/binary"
	"errors"
	"io"
)

// scriptedConn replays datagrams and records every write.
type scriptedConn struct {
	reads  [][]byte
	writes [][]byte
	// readErr is returned once reads are exhausted
	readErr  error
	writeErr error
}

func (c *scriptedConn) Read(b []byte) (int, error) {
	if len(c.reads) == 0 {
		if c.readErr != nil {
			return 0, c.readErr
		}
		return 0, io.EOF
	}

	n := copy(b, c.reads[0])
	c.reads = c.reads[1:]

	return n, nil
}

func (c *scriptedConn) Write(b []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}

	c.writes = append(c.writes, append([]byte(nil), b...))

	return len(b), nil
}

var errTimeout = errors.New("i/o timeout")

func single(payload ...byte) []byte {
	return append([]byte{0xFF, 0xFF, 0xFF, 0xFF}, payload...)
}

// split builds a -2 datagram.
func split(id int32, total, index uint8, payload []byte) []byte {
	b := make([]byte, 12, 12+len(payload))
	binary.LittleEndian.PutUint32(b[0:4], 0xFFFFFFFE)
	binary.LittleEndian.PutUint32(b[4:8], uint32(id))
	b[8] = total
	b[9] = index
	binary.LittleEndian.PutUint16(b[10:12], MaxPacketSize)

	return append(b, payload...)
}

// chunk cuts payload into n parts of near equal size.
func chunk(payload []byte, n int) [][]byte {
	parts := make([][]byte, n)
	size := (len(payload) + n - 1) / n
	for i := 0; i < n; i++ {
		lo := min(i*size, len(payload))
		hi := min(lo+size, len(payload))
		parts[i] = payload[lo:hi]
	}

	return parts
}
