package game

import (
	"net"
	"time"

	"github.com/woozymasta/a2squery/internal/a2s"
)

// Conn is a connected UDP socket that applies the configured timeout to every
// datagram read and write. A zero timeout blocks indefinitely.
// An optional limit caps every deadline, bounding servers that never stop issuing challenges.
type Conn struct {
	limit   time.Time
	conn    *net.UDPConn
	timeout time.Duration
}

// Dial resolves address and opens a UDP socket connected to it.
func Dial(address string, timeout time.Duration) (*Conn, error) {
	raddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, a2s.NewError(a2s.ErrConnect, "resolve "+address, err)
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, a2s.NewError(a2s.ErrSetup, "dial "+address, err)
	}

	return &Conn{conn: conn, timeout: timeout}, nil
}

// SetLimit sets the point in time after which every read and write fails.
// The zero time removes the limit.
func (c *Conn) SetLimit(t time.Time) {
	c.limit = t
}

// Read receives one datagram.
func (c *Conn) Read(b []byte) (int, error) {
	if deadline := c.deadline(); !deadline.IsZero() {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return 0, a2s.NewError(a2s.ErrSetup, "set read deadline", err)
		}
	}

	return c.conn.Read(b)
}

// Write sends one datagram.
func (c *Conn) Write(b []byte) (int, error) {
	if deadline := c.deadline(); !deadline.IsZero() {
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return 0, a2s.NewError(a2s.ErrSetup, "set write deadline", err)
		}
	}

	return c.conn.Write(b)
}

// deadline is now+timeout capped by the limit; zero means none.
func (c *Conn) deadline() time.Time {
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if !c.limit.IsZero() && (deadline.IsZero() || c.limit.Before(deadline)) {
		deadline = c.limit
	}

	return deadline
}

// RemoteIP returns the resolved address of the server.
func (c *Conn) RemoteIP() net.IP {
	if addr, ok := c.conn.RemoteAddr().(*net.UDPAddr); ok {
		return addr.IP
	}

	return nil
}

// Close closes the socket.
func (c *Conn) Close() error {
	return c.conn.Close()
}
