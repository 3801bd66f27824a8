// Package varint implements HashLink's variable-length integer and
// length-prefixed blob encodings.
//
// A signed value is packed into the fewest of three widths:
//
//	1 byte:  bit7 clear                               -> value in [-64, 63]
//	2 bytes: bit7 set, bit6 clear                      -> value in [-8192, 8191]
//	4 bytes: bit7 set, bit6 set                        -> value in [-2^29, 2^29-1]
//
// Values are sign-magnitude: the sign is bit6 of the first byte in the
// 1-byte form and bit5 in the 2- and 4-byte forms, and the magnitude is
// built from the first byte's remaining low bits followed by the
// continuation byte(s). A set sign with zero magnitude stands for the most
// negative value of that width.
//
// A value read through one of the *Trace methods has its width recorded,
// so writing it back through the matching *Trace writer reproduces the
// exact same bytes even when a larger-than-necessary encoding was used
// (§4.1). Values with no recorded width (newly computed indices after a
// mutation) are written in minimal form, as are the string-pool lengths
// and bytes-pool positions, which StringPool/BytesPool never trace.
package varint

import (
	"fmt"
	"math"
)

// Reader consumes varints and length-prefixed blobs from a byte slice,
// tracking position for error reporting.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential reading starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the current byte offset, used to annotate MalformedInput
// errors with where the stream went wrong.
func (r *Reader) Pos() int { return r.pos }

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

func (r *Reader) byte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("varint: truncated input at offset %d", r.pos)
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// Bytes reads n raw bytes with no interpretation.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("varint: truncated input at offset %d (want %d bytes)", r.pos, n)
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// Byte reads a single raw byte (used for tag bytes such as the opcode and
// type-kind tags, which are not varint-encoded).
func (r *Reader) Byte() (byte, error) { return r.byte() }

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

// I32 reads a little-endian int32 (used for the raw int pool, §6.1).
func (r *Reader) I32() (int32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24), nil
}

// F64 reads a little-endian IEEE-754 double (the raw float pool, §6.1).
func (r *Reader) F64() (float64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	var bits uint64
	for i := 7; i >= 0; i-- {
		bits = bits<<8 | uint64(b[i])
	}
	return math.Float64frombits(bits), nil
}

// Index reads a varint used as a pool index. HashLink encodes pool indices
// with the same signed scheme as VarInt, and Index returns the decoded
// value as is, negative values included; it does no range checking.
func (r *Reader) Index() (int, error) {
	v, _, err := r.VarInt()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// VarInt reads a signed variable-length integer and reports how many bytes
// were consumed, so a caller performing a bit-exact round trip can remember
// the original width.
func (r *Reader) VarInt() (int32, int, error) {
	start := r.pos
	b0, err := r.byte()
	if err != nil {
		return 0, 0, err
	}

	if b0&0x80 == 0 {
		// 1 byte: bit6 is the sign, bits 0-5 the magnitude; a set sign with
		// zero magnitude stands for -64.
		v := int32(b0 & 0x3F)
		if b0&0x40 != 0 {
			if v == 0 {
				v = 0x40
			}
			v = -v
		}
		return v, r.pos - start, nil
	}

	if b0&0x40 == 0 {
		// 2 bytes: bit5 of b0 is the sign, 5 magnitude bits from b0 and 8
		// from b1; a set sign with zero magnitude stands for -8192.
		b1, err := r.byte()
		if err != nil {
			return 0, 0, err
		}
		v := int32(b0&0x1F)<<8 | int32(b1)
		if b0&0x20 != 0 {
			if v == 0 {
				v = 1 << 13
			}
			v = -v
		}
		return v, r.pos - start, nil
	}

	// 4 bytes: bit5 of b0 is the sign, 5 magnitude bits from b0 and 24 from
	// b1..b3; a set sign with zero magnitude stands for -2^29.
	rest, err := r.Bytes(3)
	if err != nil {
		return 0, 0, err
	}
	v := int32(b0&0x1F)<<24 | int32(rest[0])<<16 | int32(rest[1])<<8 | int32(rest[2])
	if b0&0x20 != 0 {
		if v == 0 {
			v = 1 << 29
		}
		v = -v
	}
	return v, r.pos - start, nil
}

// Writer produces varints and length-prefixed blobs. VarInt, Index and the
// pool writers use the minimal encoding; VarIntWidth and the *Trace methods
// emit a value at a caller-specified or recorded width, for bit-exact round
// trips.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated output.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Byte appends a single raw byte.
func (w *Writer) Byte(b byte) { w.buf = append(w.buf, b) }

// RawBytes appends raw bytes with no interpretation.
func (w *Writer) RawBytes(b []byte) { w.buf = append(w.buf, b...) }

// U16 appends a little-endian uint16.
func (w *Writer) U16(v uint16) {
	w.buf = append(w.buf, byte(v), byte(v>>8))
}

// I32 appends a little-endian int32.
func (w *Writer) I32(v int32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// F64 appends a little-endian IEEE-754 double.
func (w *Writer) F64(v float64) {
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		w.buf = append(w.buf, byte(bits))
		bits >>= 8
	}
}

// VarInt appends v using the minimal width that can represent it. This is
// used for newly-computed values (a mutated module re-emits indices
// minimally per §4.1); a bit-exact round trip instead calls
// VarIntWidth with the width recorded at parse time.
func (w *Writer) VarInt(v int32) {
	w.VarIntWidth(v, widthFor(v))
}

// widthFor returns the minimal encoded width (1, 2, or 4) for v.
func widthFor(v int32) int {
	switch {
	case v >= -64 && v <= 63:
		return 1
	case v >= -8192 && v <= 8191:
		return 2
	default:
		return 4
	}
}

// VarIntWidth appends v using exactly the given width (1, 2, or 4),
// matching the on-disk form the value was originally parsed with.
func (w *Writer) VarIntWidth(v int32, width int) {
	neg := v < 0
	mag := v
	if neg {
		mag = -v
	}

	switch width {
	case 1:
		b := byte(mag) & 0x7F
		if neg {
			b |= 0x40
		}
		w.buf = append(w.buf, b)
	case 2:
		b0 := byte(mag>>8)&0x1F | 0x80
		if neg {
			b0 |= 0x20
		}
		w.buf = append(w.buf, b0, byte(mag))
	case 4:
		b0 := byte(mag>>24)&0x1F | 0xC0
		if neg {
			b0 |= 0x20
		}
		w.buf = append(w.buf, b0, byte(mag>>16), byte(mag>>8), byte(mag))
	default:
		panic(fmt.Sprintf("varint: invalid width %d", width))
	}
}

// Index appends an unsigned pool index using the minimal varint width.
func (w *Writer) Index(i int) { w.VarInt(int32(i)) }

// WidthTrace records the on-disk width of every varint read during a parse,
// in encounter order, so a later Serialize can replay the same widths
// instead of canonicalizing everything to minimal width (§4.1). A value
// written past the end of the recorded trace — one that did not come from
// the matching parse, e.g. a field appended after a mutation — falls back
// to minimal-width encoding.
type WidthTrace struct {
	widths []int
	cursor int
}

// NewWidthTrace returns an empty trace, ready to record.
func NewWidthTrace() *WidthTrace { return &WidthTrace{} }

// Record appends a width observed while parsing. A nil receiver is a no-op,
// so call sites that only sometimes track widths don't need a guard.
func (t *WidthTrace) Record(width int) {
	if t == nil {
		return
	}
	t.widths = append(t.widths, width)
}

// Next returns the next recorded width to replay while serializing v, or
// v's minimal width if the trace is nil or has been exhausted.
func (t *WidthTrace) Next(v int32) int {
	if t == nil || t.cursor >= len(t.widths) {
		return widthFor(v)
	}
	w := t.widths[t.cursor]
	t.cursor++
	return w
}

// Reset rewinds the replay cursor to the start, so a trace recorded once
// during Parse can be replayed by Serialize.
func (t *WidthTrace) Reset() {
	if t == nil {
		return
	}
	t.cursor = 0
}

// IndexTrace reads a pool index, unchecked as with Index, and records its
// width into t.
func (r *Reader) IndexTrace(t *WidthTrace) (int, error) {
	v, n, err := r.VarInt()
	if err != nil {
		return 0, err
	}
	t.Record(n)
	return int(v), nil
}

// VarIntTrace reads a signed varint and records its width into t.
func (r *Reader) VarIntTrace(t *WidthTrace) (int32, error) {
	v, n, err := r.VarInt()
	if err != nil {
		return 0, err
	}
	t.Record(n)
	return v, nil
}

// IndexTrace appends an unsigned pool index using the next width recorded
// in t (minimal width if t is nil or exhausted).
func (w *Writer) IndexTrace(t *WidthTrace, i int) {
	v := int32(i)
	w.VarIntWidth(v, t.Next(v))
}

// VarIntTrace appends a signed varint using the next width recorded in t
// (minimal width if t is nil or exhausted).
func (w *Writer) VarIntTrace(t *WidthTrace, v int32) {
	w.VarIntWidth(v, t.Next(v))
}
