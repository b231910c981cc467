package ainb

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"
)

var order = binary.LittleEndian

// reader is a bounds-checked cursor over a file. The first failure sticks:
// later reads return zero values and err reports the original problem.
type reader struct {
	buf []byte
	pos int
	err error
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) seek(off uint32) {
	if r.err != nil {
		return
	}
	if int(off) > len(r.buf) {
		r.err = errors.Wrapf(ErrTruncated, "seek to 0x%x beyond end 0x%x", off, len(r.buf))
		return
	}
	r.pos = int(off)
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.buf) {
		r.err = errors.Wrapf(ErrTruncated, "read of %d bytes at 0x%x", n, r.pos)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

// fits reports whether n entries of size bytes remain after the cursor.
func (r *reader) fits(n, size uint32) bool {
	if r.err != nil {
		return false
	}
	if uint64(n)*uint64(size) > uint64(len(r.buf)-r.pos) {
		r.err = errors.Wrapf(ErrTruncated, "%d entries of %d bytes at 0x%x", n, size, r.pos)
		return false
	}
	return true
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return order.Uint16(b)
}

func (r *reader) i16() int16 { return int16(r.u16()) }

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return order.Uint32(b)
}

func (r *reader) i32() int32 { return int32(r.u32()) }

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return order.Uint64(b)
}

func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

func (r *reader) guid() GUID {
	var g GUID
	copy(g[:], r.take(16))
	return g
}

// cstring reads a NUL-terminated string starting at off without moving the
// cursor.
func (r *reader) cstring(off uint32) string {
	if r.err != nil {
		return ""
	}
	if int(off) >= len(r.buf) {
		r.err = errors.Wrapf(ErrBadOffset, "string at 0x%x", off)
		return ""
	}
	end := bytes.IndexByte(r.buf[off:], 0)
	if end < 0 {
		r.err = errors.Wrapf(ErrTruncated, "unterminated string at 0x%x", off)
		return ""
	}
	b := r.buf[int(off) : int(off)+end]
	if !utf8.Valid(b) {
		r.err = errors.Wrapf(ErrUnsupported, "string at 0x%x is not valid UTF-8", off)
		return ""
	}
	return string(b)
}

// writer accumulates a little-endian image. Offsets are absolute positions in
// the output, patched with putU32At once the target is known.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) pos() uint32 { return uint32(w.buf.Len()) }

func (w *writer) u8(v uint8) { w.buf.WriteByte(v) }

func (w *writer) u16(v uint16) {
	var b [2]byte
	order.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) i16(v int16) { w.u16(uint16(v)) }

func (w *writer) u32(v uint32) {
	var b [4]byte
	order.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) i32(v int32) { w.u32(uint32(v)) }

func (w *writer) u64(v uint64) {
	var b [8]byte
	order.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *writer) guid(g GUID) { w.buf.Write(g[:]) }

func (w *writer) zeros(n int) {
	for i := 0; i < n; i++ {
		w.buf.WriteByte(0)
	}
}

func (w *writer) putU32At(off, v uint32) {
	order.PutUint32(w.buf.Bytes()[off:], v)
}

func (w *writer) putU16At(off uint32, v uint16) {
	order.PutUint16(w.buf.Bytes()[off:], v)
}

func (w *writer) bytes() []byte { return w.buf.Bytes() }
