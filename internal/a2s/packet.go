package a2s

import (
	"bytes"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/a2squery/internal/bytestream"
)

// fragment is one datagram of a split response.
type fragment struct {
	payload    []byte
	id         int32
	maxSize    int16
	total      uint8
	index      uint8
	compressed bool
}

var singlePacketPrefix = []byte{0xFF, 0xFF, 0xFF, 0xFF}

// readResponse receives one logical response from conn, collecting and ordering
// every fragment when the server splits it across datagrams.
func readResponse(conn Conn) ([]byte, error) {
	buf := make([]byte, MaxPacketSize)

	c, err := receive(conn, buf)
	if err != nil {
		return nil, err
	}

	header, err := c.Int32()
	if err != nil {
		return nil, invalidData("read header", "datagram shorter than header")
	}

	switch header {
	case singlePacket:
		return clone(c.Bytes()), nil
	case multiPacket:
	default:
		return nil, invalidData("read header", "unexpected packet header %d", header)
	}

	first, err := parseFragment(c)
	if err != nil {
		return nil, err
	}

	parts := make([][]byte, first.total)
	parts[first.index] = first.payload

	for i := 1; i < int(first.total); i++ {
		c, err := receive(conn, buf)
		if err != nil {
			return nil, err
		}

		header, err := c.Int32()
		if err != nil {
			return nil, invalidData("read header", "fragment shorter than header")
		}
		if header != multiPacket {
			return nil, invalidData("read header", "expected multi-packet header, got %d", header)
		}

		next, err := parseFragment(c)
		if err != nil {
			return nil, err
		}
		if next.id != first.id || next.total != first.total {
			return nil, invalidData("reassemble", "fragment %d/%d of response %d does not belong to response %d",
				next.index, next.total, next.id, first.id)
		}
		if parts[next.index] != nil {
			return nil, invalidData("reassemble", "duplicate fragment %d", next.index)
		}

		parts[next.index] = next.payload
	}

	log.Trace().
		Int32("id", first.id).
		Uint8("fragments", first.total).
		Msg("Reassembled multi-packet response")

	payload := bytes.Join(parts, nil)

	// some servers repeat the single packet header inside split payloads
	return bytes.TrimPrefix(payload, singlePacketPrefix), nil
}

// receive reads one datagram into buf.
func receive(conn Conn, buf []byte) (*bytestream.Cursor, error) {
	n, err := conn.Read(buf)
	if err != nil {
		return nil, wrap(ErrReceive, "receive", err)
	}

	return bytestream.New(buf[:n]), nil
}

// parseFragment reads the split packet descriptor that follows the -2 header.
// The payload is copied because the receive buffer is reused for the next datagram.
func parseFragment(c *bytestream.Cursor) (fragment, error) {
	var f fragment

	id, err := c.Int32()
	if err != nil {
		return f, invalidData("read fragment", "missing id")
	}
	f.id = id & 0x7FFFFFFF
	f.compressed = uint32(id)&0x80000000 != 0

	if f.total, err = c.Uint8(); err != nil {
		return f, invalidData("read fragment", "missing total")
	}
	if f.index, err = c.Uint8(); err != nil {
		return f, invalidData("read fragment", "missing index")
	}
	if f.maxSize, err = c.Int16(); err != nil {
		return f, invalidData("read fragment", "missing max packet size")
	}

	if f.compressed {
		return f, invalidData("read fragment", "compressed response %d is not supported", f.id)
	}
	if f.total == 0 || f.index >= f.total {
		return f, invalidData("read fragment", "fragment index %d out of range for total %d", f.index, f.total)
	}

	f.payload = clone(c.Bytes())

	return f, nil
}

func clone(b []byte) []byte {
	return append(make([]byte, 0, len(b)), b...)
}
