package parse

import (
	"encoding/binary"
	"math"

	"github.com/rotisserie/eris"
)

// cursor is a forward-only little-endian byte reader, in the spirit of
// the teacher's field-by-field decoders (xbrl, shapefile attribute
// reads): every read advances position and reports its own error rather
// than panicking on truncated input.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) remaining() int { return len(c.buf) - c.pos }

func (c *cursor) u8() (uint8, error) {
	if c.remaining() < 1 {
		return 0, eris.New("parse: unexpected end of input reading u8")
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *cursor) u32(order binary.ByteOrder) (uint32, error) {
	if c.remaining() < 4 {
		return 0, eris.New("parse: unexpected end of input reading u32")
	}
	v := order.Uint32(c.buf[c.pos : c.pos+4])
	c.pos += 4
	return v, nil
}

func (c *cursor) u32LE() (uint32, error) {
	return c.u32(binary.LittleEndian)
}

func (c *cursor) f32LE() (float32, error) {
	bits, err := c.u32(binary.LittleEndian)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func (c *cursor) take(n int) ([]byte, error) {
	if c.remaining() < n {
		return nil, eris.Errorf("parse: unexpected end of input reading %d bytes", n)
	}
	v := c.buf[c.pos : c.pos+n]
	c.pos += n
	return v, nil
}

func (c *cursor) rest() []byte {
	v := c.buf[c.pos:]
	c.pos = len(c.buf)
	return v
}
