package hltype

import (
	"testing"

	"github.com/N3rdL0rd/crashlink/internal/varint"
)

func TestTypeTableRoundTrip(t *testing.T) {
	tb := NewTable()
	tb.Add(Type{Kind: KVoid})
	tb.Add(Type{Kind: KI32})
	tb.Add(Type{Kind: KFun, Fun: &FunType{Args: []int{0, 1}, Ret: 1}})
	tb.Add(Type{Kind: KObj, Obj: &ObjType{
		NameIdx: 0, Super: -1, GlobalValue: -1,
		Fields:   []Field{{NameIdx: 1, TypeIdx: 1}},
		Protos:   []Proto{{NameIdx: 2, FIndex: 0, PIndex: 0}},
		Bindings: nil,
	}})
	tb.Add(Type{Kind: KEnum, Enum: &EnumType{
		NameIdx: 3, GlobalValue: -1,
		Constructs: []EnumConstruct{
			{NameIdx: 4, Params: nil},
			{NameIdx: 5, Params: []int{1, 1}},
		},
	}})
	tb.Add(Type{Kind: KRef, Ref: 1})
	tb.Add(Type{Kind: KVirtual, VirtualFields: []Field{{NameIdx: 6, TypeIdx: 1}}})
	tb.Add(Type{Kind: KNull, Ref: 1})

	// Class A refers to class B and vice versa: a genuine cycle, handled
	// purely by index (§9) without any special-casing in the codec.
	aIdx := tb.Add(Type{Kind: KObj, Obj: &ObjType{NameIdx: 7, Super: -1, GlobalValue: -1}})
	bIdx := tb.Add(Type{Kind: KObj, Obj: &ObjType{NameIdx: 8, Super: -1, GlobalValue: -1}})
	tb.All()[aIdx].Obj.Fields = []Field{{NameIdx: 9, TypeIdx: bIdx}}
	tb.All()[bIdx].Obj.Fields = []Field{{NameIdx: 10, TypeIdx: aIdx}}

	w := varint.NewWriter()
	WriteTable(w, tb)

	r := varint.NewReader(w.Bytes())
	tb2, err := ReadTable(r, tb.Len())
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("%d unread bytes remain", r.Len())
	}

	if tb2.Len() != tb.Len() {
		t.Fatalf("got %d types, want %d", tb2.Len(), tb.Len())
	}

	w2 := varint.NewWriter()
	WriteTable(w2, tb2)
	if string(w2.Bytes()) != string(w.Bytes()) {
		t.Fatalf("re-serialization mismatch")
	}

	got, err := tb2.Get(aIdx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Obj.Fields[0].TypeIdx != bIdx {
		t.Errorf("cycle not preserved: A.field -> %d, want %d", got.Obj.Fields[0].TypeIdx, bIdx)
	}
}

func TestTypeOversizedFieldWidthPreserved(t *testing.T) {
	// A KRef's Ref field fits in 1 byte but was encoded at 4 bytes in the
	// input; WriteTable must reproduce that oversized encoding verbatim
	// rather than canonicalizing it down to 1 byte (§4.1).
	w := varint.NewWriter()
	w.Byte(byte(KRef))
	w.VarIntWidth(1, 4)
	encoded := append([]byte{}, w.Bytes()...)

	r := varint.NewReader(encoded)
	tb, err := ReadTable(r, 1)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}

	w2 := varint.NewWriter()
	WriteTable(w2, tb)
	if string(w2.Bytes()) != string(encoded) {
		t.Fatalf("round trip mismatch: got % x, want % x", w2.Bytes(), encoded)
	}
}

func TestTypeTableInvalidReference(t *testing.T) {
	tb := NewTable()
	tb.Add(Type{Kind: KVoid})
	if _, err := tb.Get(5); err == nil {
		t.Fatal("expected an error for out-of-range index")
	}
}
