package bytecode

import (
	"testing"

	"github.com/N3rdL0rd/crashlink/internal/varint"
)

func mkInstr(op Op, fixed ...int32) *Instr {
	return &Instr{Op: op, Fixed: fixed}
}

func TestInstrRoundTrip(t *testing.T) {
	ops := []*Instr{
		mkInstr(OMov, 1, 2),
		mkInstr(OInt, 0, 5),
		{Op: OCallN, Fixed: []int32{3, 0}, List: []int32{1, 2, 3}},
		mkInstr(OJAlways, -4),
		{Op: OSwitch, Fixed: []int32{0}, List: []int32{10, 20, 30}, Trail: []int32{40}},
		mkInstr(ORet, 0),
	}

	w := varint.NewWriter()
	for _, in := range ops {
		WriteInstr(w, in)
	}

	r := varint.NewReader(w.Bytes())
	for i, want := range ops {
		got, err := ReadInstr(r, 5)
		if err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
		if got.Op != want.Op {
			t.Fatalf("op %d: got %v want %v", i, got.Op, want.Op)
		}
		if len(got.Fixed) != len(want.Fixed) {
			t.Fatalf("op %d: fixed len mismatch", i)
		}
		for j := range want.Fixed {
			if got.Fixed[j] != want.Fixed[j] {
				t.Errorf("op %d fixed[%d]: got %d want %d", i, j, got.Fixed[j], want.Fixed[j])
			}
		}
		if len(got.List) != len(want.List) {
			t.Fatalf("op %d: list len mismatch", i)
		}
		for j := range want.List {
			if got.List[j] != want.List[j] {
				t.Errorf("op %d list[%d]: got %d want %d", i, j, got.List[j], want.List[j])
			}
		}
	}
	if r.Len() != 0 {
		t.Fatalf("%d unread bytes remain", r.Len())
	}
}

func TestInstrOversizedFieldWidthPreserved(t *testing.T) {
	// OMov's dst field fits in 1 byte but was encoded at 4 bytes in the
	// input; a round trip must reproduce that oversized encoding verbatim
	// rather than canonicalizing it down to 1 byte (§4.1).
	w := varint.NewWriter()
	w.Byte(byte(OMov))
	w.VarIntWidth(1, 4)
	w.VarIntWidth(2, 1)
	encoded := append([]byte{}, w.Bytes()...)

	r := varint.NewReader(encoded)
	in, err := ReadInstr(r, 5)
	if err != nil {
		t.Fatalf("ReadInstr: %v", err)
	}
	if in.Fixed[0] != 1 || in.Fixed[1] != 2 {
		t.Fatalf("got fixed %v, want [1 2]", in.Fixed)
	}

	w2 := varint.NewWriter()
	WriteInstr(w2, in)
	if string(w2.Bytes()) != string(encoded) {
		t.Fatalf("round trip mismatch: got % x, want % x", w2.Bytes(), encoded)
	}
}

func TestBytesOpcodeVersionGating(t *testing.T) {
	if OBytes.AvailableAt(4) {
		t.Error("OBytes should not be available at version 4")
	}
	if !OBytes.AvailableAt(5) {
		t.Error("OBytes should be available at version 5")
	}
}

func TestFunctionRoundTrip(t *testing.T) {
	f := &Function{
		FIndex:  2,
		TypeIdx: 1,
		Regs:    []int{0, 0, 1},
		Ops: []*Instr{
			mkInstr(OInt, 0, 0),
			mkInstr(OInt, 1, 1),
			mkInstr(OAdd, 2, 0, 1),
			mkInstr(ORet, 2),
		},
		HasDebug:  true,
		DebugInfo: []DebugEntry{{FileIdx: 0, Line: 10, Count: 3}, {FileIdx: 0, Line: 11, Count: 1}},
		HasAssigns: true,
		Assigns:    []Assign{{NameIdx: 5, OpIndex: 0}, {NameIdx: 6, OpIndex: 1}},
	}

	w := varint.NewWriter()
	WriteFunction(w, f, 5)

	r := varint.NewReader(w.Bytes())
	f2, err := ReadFunction(r, 5)
	if err != nil {
		t.Fatalf("ReadFunction: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("%d unread bytes remain", r.Len())
	}
	if f2.FIndex != f.FIndex || f2.TypeIdx != f.TypeIdx {
		t.Fatalf("signature mismatch: %+v", f2)
	}
	if len(f2.Ops) != len(f.Ops) {
		t.Fatalf("got %d ops, want %d", len(f2.Ops), len(f.Ops))
	}
	file, line, ok := f2.LineAt(3)
	if !ok || file != 0 || line != 11 {
		t.Errorf("LineAt(3) = (%d,%d,%v), want (0,11,true)", file, line, ok)
	}

	w2 := varint.NewWriter()
	WriteFunction(w2, f2, 5)
	if string(w2.Bytes()) != string(w.Bytes()) {
		t.Fatalf("re-serialization mismatch")
	}
}
