// Package bytestream implements a forward-only little-endian cursor used to decode
// binary protocol payloads field by field.
package bytestream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
)

// ErrShortBuffer is returned when the cursor holds fewer bytes than the requested value needs.
var ErrShortBuffer = errors.New("insufficient data")

// Cursor is a read position over a byte slice.
// A read either consumes exactly the bytes of one value or leaves the position untouched.
type Cursor struct {
	buf []byte
	pos int
}

// New returns a cursor positioned at the start of b. The slice is not copied.
func New(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// Len returns the number of unread bytes.
func (c *Cursor) Len() int {
	return len(c.buf) - c.pos
}

// Bytes returns the unread bytes without consuming them.
func (c *Cursor) Bytes() []byte {
	return c.buf[c.pos:]
}

// Skip consumes n bytes.
func (c *Cursor) Skip(n int) error {
	_, err := c.take(n)
	return err
}

func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || c.Len() < n {
		return nil, ErrShortBuffer
	}

	b := c.buf[c.pos : c.pos+n]
	c.pos += n

	return b, nil
}

// Uint8 reads one unsigned byte.
func (c *Cursor) Uint8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// Bool reads one byte, any non-zero value is true.
func (c *Cursor) Bool() (bool, error) {
	v, err := c.Uint8()
	return v != 0, err
}

// Int16 reads a signed 16-bit little-endian integer.
func (c *Cursor) Int16() (int16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}

	return int16(binary.LittleEndian.Uint16(b)), nil
}

// Int32 reads a signed 32-bit little-endian integer.
func (c *Cursor) Int32() (int32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}

	return int32(binary.LittleEndian.Uint32(b)), nil
}

// Uint64 reads an unsigned 64-bit little-endian integer.
func (c *Cursor) Uint64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(b), nil
}

// Float32 reads a 32-bit IEEE 754 little-endian float.
func (c *Cursor) Float32() (float32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}

	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// String reads a null-terminated string and consumes the terminator.
// Invalid UTF-8 sequences are replaced with U+FFFD. A missing terminator is ErrShortBuffer.
func (c *Cursor) String() (string, error) {
	rest := c.Bytes()
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return "", ErrShortBuffer
	}

	s := strings.ToValidUTF8(string(rest[:end]), "�")
	c.pos += end + 1

	return s, nil
}
