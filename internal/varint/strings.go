package varint

import (
	"fmt"
	"unicode/utf16"
)

// StringPool reads the string pool's on-disk shape: a 4-byte length-prefixed
// blob of concatenated UTF-8 bytes, followed by one varint length per
// string giving how many bytes of the blob belong to it, in order.
func (r *Reader) StringPool(count int) ([]string, error) {
	blobLen, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("varint: string pool blob length: %w", err)
	}
	blob, err := r.Bytes(int(blobLen))
	if err != nil {
		return nil, fmt.Errorf("varint: string pool blob: %w", err)
	}

	out := make([]string, count)
	off := 0
	for i := 0; i < count; i++ {
		slen, _, err := r.VarInt()
		if err != nil {
			return nil, fmt.Errorf("varint: string %d length: %w", i, err)
		}
		if slen < 0 || off+int(slen) > len(blob) {
			return nil, fmt.Errorf("varint: string %d overruns blob (off=%d len=%d blob=%d)", i, off, slen, len(blob))
		}
		out[i] = string(blob[off : off+int(slen)])
		off += int(slen)
	}
	return out, nil
}

// WriteStringPool appends the blob + per-string length encoding for strs.
func (w *Writer) WriteStringPool(strs []string) {
	var blob []byte
	for _, s := range strs {
		blob = append(blob, s...)
	}
	w.u32(uint32(len(blob)))
	w.RawBytes(blob)
	for _, s := range strs {
		w.VarInt(int32(len(s)))
	}
}

// BytesPool reads the bytes pool: a 4-byte length-prefixed blob followed by
// one varint starting position per entry (the entry's length is implicit —
// the next position, or the blob end for the last entry).
func (r *Reader) BytesPool(count int) ([][]byte, error) {
	blobLen, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("varint: bytes pool blob length: %w", err)
	}
	blob, err := r.Bytes(int(blobLen))
	if err != nil {
		return nil, fmt.Errorf("varint: bytes pool blob: %w", err)
	}

	positions := make([]int, count)
	for i := 0; i < count; i++ {
		p, _, err := r.VarInt()
		if err != nil {
			return nil, fmt.Errorf("varint: bytes pool position %d: %w", i, err)
		}
		positions[i] = int(p)
	}

	out := make([][]byte, count)
	for i := 0; i < count; i++ {
		start := positions[i]
		end := len(blob)
		if i+1 < count {
			end = positions[i+1]
		}
		if start < 0 || end < start || end > len(blob) {
			return nil, fmt.Errorf("varint: bytes pool entry %d out of range [%d,%d) of blob len %d", i, start, end, len(blob))
		}
		out[i] = blob[start:end]
	}
	return out, nil
}

// WriteBytesPool appends the blob + per-entry start-position encoding.
func (w *Writer) WriteBytesPool(entries [][]byte) {
	var blob []byte
	positions := make([]int32, len(entries))
	for i, e := range entries {
		positions[i] = int32(len(blob))
		blob = append(blob, e...)
	}
	w.u32(uint32(len(blob)))
	w.RawBytes(blob)
	for _, p := range positions {
		w.VarInt(p)
	}
}

// UTF16 decodes a little-endian UTF-16 byte sequence (used by some native
// library name encodings on Windows HashLink builds); HLBC exposes it for
// completeness even though the bytecode format itself only needs UTF-8.
func UTF16(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", fmt.Errorf("varint: odd-length UTF-16 blob (%d bytes)", len(b))
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return string(utf16.Decode(units)), nil
}

func (r *Reader) u32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (w *Writer) u32(v uint32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
