package varint

import "testing"

func TestVarIntRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value int32
		width int
	}{
		{"zero", 0, 1},
		{"small positive", 63, 1},
		{"small negative", -64, 1},
		{"medium positive", 8191, 2},
		{"medium negative", -8192, 2},
		{"large positive", 1 << 20, 4},
		{"large negative", -(1 << 20), 4},
		{"min int32-ish", -0xFFFFFF, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter()
			w.VarIntWidth(tt.value, tt.width)
			if w.Len() != tt.width {
				t.Fatalf("encoded width = %d, want %d", w.Len(), tt.width)
			}

			r := NewReader(w.Bytes())
			got, n, err := r.VarInt()
			if err != nil {
				t.Fatalf("VarInt: %v", err)
			}
			if got != tt.value {
				t.Errorf("got %d, want %d", got, tt.value)
			}
			if n != tt.width {
				t.Errorf("consumed %d bytes, want %d", n, tt.width)
			}
		})
	}
}

func TestVarIntOversizedEncodingPreserved(t *testing.T) {
	// A value that fits in 1 byte but was parsed from a 4-byte encoding
	// must round-trip back to 4 bytes verbatim (§4.1: no canonicalization
	// on a pure parse/emit round trip).
	w := NewWriter()
	w.VarIntWidth(5, 4)
	encoded := append([]byte{}, w.Bytes()...)

	r := NewReader(encoded)
	v, n, err := r.VarInt()
	if err != nil {
		t.Fatal(err)
	}
	if v != 5 || n != 4 {
		t.Fatalf("got v=%d n=%d, want v=5 n=4", v, n)
	}

	w2 := NewWriter()
	w2.VarIntWidth(v, n)
	if string(w2.Bytes()) != string(encoded) {
		t.Fatalf("round trip mismatch: got % x, want % x", w2.Bytes(), encoded)
	}
}

func TestVarIntMinimalEncodingForNewValues(t *testing.T) {
	w := NewWriter()
	w.VarInt(5)
	if w.Len() != 1 {
		t.Fatalf("newly-written small value should use 1 byte, got %d", w.Len())
	}
}

func TestStringPoolRoundTrip(t *testing.T) {
	strs := []string{"hello", "", "world", "HashLink"}

	w := NewWriter()
	w.WriteStringPool(strs)

	r := NewReader(w.Bytes())
	got, err := r.StringPool(len(strs))
	if err != nil {
		t.Fatal(err)
	}
	for i := range strs {
		if got[i] != strs[i] {
			t.Errorf("string %d: got %q, want %q", i, got[i], strs[i])
		}
	}
	if r.Len() != 0 {
		t.Errorf("%d unread bytes remain", r.Len())
	}
}

func TestBytesPoolRoundTrip(t *testing.T) {
	entries := [][]byte{{1, 2, 3}, {}, {0xFF}, {4, 5}}

	w := NewWriter()
	w.WriteBytesPool(entries)

	r := NewReader(w.Bytes())
	got, err := r.BytesPool(len(entries))
	if err != nil {
		t.Fatal(err)
	}
	for i := range entries {
		if string(got[i]) != string(entries[i]) {
			t.Errorf("entry %d: got % x, want % x", i, got[i], entries[i])
		}
	}
}

func TestI32AndF64RoundTrip(t *testing.T) {
	w := NewWriter()
	w.I32(-12345)
	w.F64(3.14159265358979)

	r := NewReader(w.Bytes())
	i, err := r.I32()
	if err != nil || i != -12345 {
		t.Fatalf("I32: got %d, err %v", i, err)
	}
	f, err := r.F64()
	if err != nil || f != 3.14159265358979 {
		t.Fatalf("F64: got %v, err %v", f, err)
	}
}
