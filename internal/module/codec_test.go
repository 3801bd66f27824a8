package module

import (
	"testing"

	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	"github.com/N3rdL0rd/crashlink/internal/hltype"
	"github.com/N3rdL0rd/crashlink/internal/varint"
)

func sampleModule(version int) *Module {
	m := New(version)
	m.Ints = []int32{0, 1, 2}
	m.Floats = []float64{1.5, -2.25}
	m.Strings = []string{"", "main", "add", "Int"}
	if version >= 5 {
		m.Bytes = [][]byte{{}, {0xDE, 0xAD, 0xBE, 0xEF}}
	}

	m.Types.Add(hltype.Type{Kind: hltype.KVoid})
	m.Types.Add(hltype.Type{Kind: hltype.KI32})
	fnType := m.Types.Add(hltype.Type{Kind: hltype.KFun, Fun: &hltype.FunType{Args: []int{1, 1}, Ret: 1}})

	m.Globals = []int{1}
	m.Natives = []Native{{LibIdx: 0, NameIdx: 0, TypeIdx: fnType, FIndex: 0}}

	add := &bytecode.Function{
		FIndex: 1, TypeIdx: fnType,
		Regs: []int{1, 1, 1},
		Ops: []*bytecode.Instr{
			{Op: bytecode.OAdd, Fixed: []int32{2, 0, 1}},
			{Op: bytecode.ORet, Fixed: []int32{2}},
		},
	}
	m.Functions = []*bytecode.Function{add}
	m.Entrypoint = 1

	if version >= 4 {
		m.Constants = []Constant{{Global: 0, Fields: []int{0}}}
	}
	return m
}

func TestModuleRoundTripV5(t *testing.T) {
	testModuleRoundTrip(t, 5)
}

func TestModuleRoundTripV4(t *testing.T) {
	testModuleRoundTrip(t, 4)
}

func testModuleRoundTrip(t *testing.T, version int) {
	t.Helper()
	m := sampleModule(version)
	buf := Serialize(m)

	m2, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m2.Version != version {
		t.Errorf("got version %d, want %d", m2.Version, version)
	}
	if len(m2.Strings) != len(m.Strings) {
		t.Fatalf("got %d strings, want %d", len(m2.Strings), len(m.Strings))
	}
	if m2.Entrypoint != m.Entrypoint {
		t.Errorf("got entrypoint %d, want %d", m2.Entrypoint, m.Entrypoint)
	}
	if len(m2.Functions) != 1 || len(m2.Functions[0].Ops) != 2 {
		t.Fatalf("functions not preserved: %+v", m2.Functions)
	}

	buf2 := Serialize(m2)
	if string(buf2) != string(buf) {
		t.Fatalf("re-serialization mismatch for version %d", version)
	}
}

func TestModuleOversizedFieldWidthPreserved(t *testing.T) {
	// An empty, otherwise-minimal v4 module whose entrypoint field (value
	// 0) was encoded at 4 bytes in the input. Serialize must reproduce
	// that oversized encoding verbatim on an unmodified round trip (§4.1)
	// instead of canonicalizing every header varint down to 1 byte.
	w := varint.NewWriter()
	w.RawBytes(Magic[:])
	w.Byte(4) // version
	w.VarInt(0) // flags
	w.VarInt(0) // nints
	w.VarInt(0) // nfloats
	w.VarInt(0) // nstrings
	w.VarInt(0) // ntypes
	w.VarInt(0) // nglobals
	w.VarInt(0) // nnatives
	w.VarInt(0) // nfunctions
	w.VarInt(0) // nconstants (version >= 4)
	w.VarIntWidth(0, 4) // entrypoint, deliberately oversized
	w.WriteStringPool(nil) // empty string pool (blob length prefix + 0 entries)
	encoded := append([]byte{}, w.Bytes()...)

	m, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got := Serialize(m)
	if string(got) != string(encoded) {
		t.Fatalf("round trip mismatch: got % x, want % x", got, encoded)
	}
}

func TestModuleRejectsBadMagic(t *testing.T) {
	buf := []byte{'X', 'X', 'X', 5, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if _, err := Parse(buf); err == nil {
		t.Fatal("expected an error for bad magic")
	}
}

func TestModuleRejectsUnsupportedVersion(t *testing.T) {
	m := sampleModule(5)
	buf := Serialize(m)
	buf[3] = 9 // corrupt the version byte
	if _, err := Parse(buf); err == nil {
		t.Fatal("expected an error for unsupported version")
	}
}
