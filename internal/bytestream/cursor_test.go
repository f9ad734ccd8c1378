package bytestream

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortReadsDoNotAdvance(t *testing.T) {
	tests := []struct {
		name  string
		width int
		read  func(c *Cursor) error
	}{
		{"uint8", 1, func(c *Cursor) error { _, err := c.Uint8(); return err }},
		{"bool", 1, func(c *Cursor) error { _, err := c.Bool(); return err }},
		{"int16", 2, func(c *Cursor) error { _, err := c.Int16(); return err }},
		{"int32", 4, func(c *Cursor) error { _, err := c.Int32(); return err }},
		{"uint64", 8, func(c *Cursor) error { _, err := c.Uint64(); return err }},
		{"float32", 4, func(c *Cursor) error { _, err := c.Float32(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for n := 0; n < tt.width; n++ {
				c := New(make([]byte, n))
				err := tt.read(c)
				require.ErrorIs(t, err, ErrShortBuffer)
				assert.Equal(t, n, c.Len(), "cursor advanced on failed read")
			}

			c := New(make([]byte, tt.width))
			require.NoError(t, tt.read(c))
			assert.Zero(t, c.Len())
		})
	}
}

func TestLittleEndianValues(t *testing.T) {
	c := New([]byte{
		0x7F,
		0x02,
		0xE1, 0x10,
		0xFE, 0xFF, 0xFF, 0xFF,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x00, 0x00, 0x80, 0x3F,
	})

	u8, err := c.Uint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x7F), u8)

	b, err := c.Bool()
	require.NoError(t, err)
	assert.True(t, b)

	i16, err := c.Int16()
	require.NoError(t, err)
	assert.Equal(t, int16(0x10E1), i16)

	i32, err := c.Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(-2), i32)

	u64, err := c.Uint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0807060504030201), u64)

	f, err := c.Float32()
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), f)

	assert.Zero(t, c.Len())
}

func TestFloat32Special(t *testing.T) {
	c := New([]byte{0x00, 0x00, 0x80, 0x7F})
	f, err := c.Float32()
	require.NoError(t, err)
	assert.True(t, math.IsInf(float64(f), 1))
}

func TestString(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    string
		left    int
		wantErr error
	}{
		{name: "simple", input: []byte("hello\x00"), want: "hello"},
		{name: "empty", input: []byte("\x00"), want: ""},
		{name: "trailing data", input: []byte("map\x00rest"), want: "map", left: 4},
		{name: "invalid utf8", input: []byte{'a', 0xFF, 'b', 0x00}, want: "a�b"},
		{name: "no terminator", input: []byte("abc"), left: 3, wantErr: ErrShortBuffer},
		{name: "nothing", input: nil, wantErr: ErrShortBuffer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.input)
			got, err := c.String()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, tt.left, c.Len())
		})
	}
}

func TestSkip(t *testing.T) {
	c := New([]byte{1, 2, 3})
	require.NoError(t, c.Skip(2))
	assert.Equal(t, []byte{3}, c.Bytes())
	require.ErrorIs(t, c.Skip(2), ErrShortBuffer)
	assert.Equal(t, 1, c.Len())
}
