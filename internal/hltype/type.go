// Package hltype implements the sum-typed HashLink type table (spec §3.2):
// primitive kinds with no payload, and compound kinds (Fun, Obj, Ref,
// Virtual, Abstract, Enum, Null, Packed) addressed and cross-referenced by
// integer index rather than by pointer, so that a cyclic type graph (class A
// referring to class B referring back to A) never needs special-casing —
// every reference is just an int that gets looked up at query time (§9).
package hltype

import (
	"fmt"

	hlerrors "github.com/N3rdL0rd/crashlink/internal/errors"
	"github.com/N3rdL0rd/crashlink/internal/varint"
)

// Kind tags a Type. The numeric values are this codec's on-disk tag bytes
// (spec §6.1 "Types: tag byte + payload"); they must stay stable since
// they are part of the bit-exact wire format.
type Kind uint8

const (
	KVoid Kind = iota
	KU8
	KU16
	KI32
	KI64
	KF32
	KF64
	KBool
	KBytes
	KDyn
	KArray
	KType
	KDynObj
	KFun
	KMethod
	KObj
	KStruct
	KRef
	KVirtual
	KAbstract
	KEnum
	KNull
	KPacked
)

var kindNames = [...]string{
	KVoid: "Void", KU8: "U8", KU16: "U16", KI32: "I32", KI64: "I64",
	KF32: "F32", KF64: "F64", KBool: "Bool", KBytes: "Bytes", KDyn: "Dyn",
	KArray: "Array", KType: "Type", KDynObj: "DynObj", KFun: "Fun",
	KMethod: "Method", KObj: "Obj", KStruct: "Struct", KRef: "Ref",
	KVirtual: "Virtual", KAbstract: "Abstract", KEnum: "Enum", KNull: "Null",
	KPacked: "Packed",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsPrimitive reports whether k carries no payload.
func (k Kind) IsPrimitive() bool {
	switch k {
	case KVoid, KU8, KU16, KI32, KI64, KF32, KF64, KBool, KBytes, KDyn, KArray, KType, KDynObj:
		return true
	default:
		return false
	}
}

// Field is a named, typed slot (an object field, or a virtual type's row).
type Field struct {
	NameIdx int
	TypeIdx int
}

// Proto is a virtual-method-table entry on an Obj/Struct type.
type Proto struct {
	NameIdx int
	FIndex  int
	PIndex  int // slot index in the vtable; -1 if unassigned
}

// Binding overrides an inherited field with a concrete function.
type Binding struct {
	FieldIdx int
	FIndex   int
}

// EnumConstruct is one variant of an Enum type: a name plus the type
// indices of its payload tuple (empty for a nullary constructor).
type EnumConstruct struct {
	NameIdx int
	Params  []int
}

// FunType is the payload of Fun and Method kinds.
type FunType struct {
	Args []int
	Ret  int
}

// ObjType is the payload of Obj and Struct kinds.
type ObjType struct {
	NameIdx     int
	Super       int // type index, or -1 if no superclass
	GlobalValue int // global slot, or -1 if not a static global
	HasGlobal   bool
	Fields      []Field
	Protos      []Proto
	Bindings    []Binding
}

// EnumType is the payload of the Enum kind.
type EnumType struct {
	NameIdx     int
	GlobalValue int
	Constructs  []EnumConstruct
}

// Type is one entry in the module's type table (spec §3.2). Exactly one of
// the payload fields is meaningful, selected by Kind; the rest are zero
// values. This mirrors the closed-tagged-union discipline the opcode model
// uses in internal/bytecode — one dispatch point keyed on a tag byte.
type Type struct {
	Kind Kind

	// Fun / Method
	Fun *FunType

	// Obj / Struct
	Obj *ObjType

	// Ref / Null / Packed: a single referenced type index.
	Ref int

	// Virtual: a structural row type.
	VirtualFields []Field

	// Abstract: an opaque named type.
	AbstractName int

	// Enum
	Enum *EnumType

	// Widths records the on-disk width of every varint read while decoding
	// this entry, in encounter order, so WriteTable can replay a bit-exact
	// round trip (spec §4.1) instead of canonicalizing. Nil for a type
	// built programmatically rather than parsed.
	Widths *varint.WidthTrace
}

// Table is the module's ordered, index-addressed type table. Forward and
// backward references between entries are both legal; Table never
// resolves a reference into a pointer — callers look up by index, always.
type Table struct {
	types []Type
}

// NewTable returns an empty type table.
func NewTable() *Table { return &Table{} }

// Add appends t and returns its index.
func (tb *Table) Add(t Type) int {
	tb.types = append(tb.types, t)
	return len(tb.types) - 1
}

// Len returns the number of types in the table.
func (tb *Table) Len() int { return len(tb.types) }

// All returns the underlying slice of types, in load order. Callers must
// not mutate entries through this slice without also expecting that change
// to be visible to every index that refers to it — types are not copied
// out on lookup.
func (tb *Table) All() []Type { return tb.types }

// Get resolves idx against the table, returning InvalidReference if idx is
// out of range. This is the only way the rest of the codec is allowed to
// turn an index into a usable Type, keeping the "addressed by index, not by
// pointer" invariant (§9) enforced in one place.
func (tb *Table) Get(idx int) (*Type, error) {
	if idx < 0 || idx >= len(tb.types) {
		return nil, hlerrors.New(hlerrors.InvalidReference, "type index %d out of range [0,%d)", idx, len(tb.types)).
			Wrap(fmt.Errorf("type table lookup"))
	}
	return &tb.types[idx], nil
}

// Name returns a short human-readable name for idx suitable for
// diagnostics and the pseudo-code emitter's type annotations, using str to
// resolve NameIdx fields against the module's string pool.
func (tb *Table) Name(idx int, str func(int) string) string {
	t, err := tb.Get(idx)
	if err != nil {
		return fmt.Sprintf("<invalid type %d>", idx)
	}
	switch t.Kind {
	case KObj, KStruct:
		return str(t.Obj.NameIdx)
	case KEnum:
		return str(t.Enum.NameIdx)
	case KAbstract:
		return str(t.AbstractName)
	case KRef:
		return "ref<" + tb.Name(t.Ref, str) + ">"
	case KNull:
		return "null<" + tb.Name(t.Ref, str) + ">"
	case KPacked:
		return "packed<" + tb.Name(t.Ref, str) + ">"
	case KVirtual:
		return "virtual"
	case KFun:
		return tb.funSignature("fun", t.Fun, str)
	case KMethod:
		return tb.funSignature("method", t.Fun, str)
	default:
		return t.Kind.String()
	}
}

func (tb *Table) funSignature(label string, f *FunType, str func(int) string) string {
	s := label + "("
	for i, a := range f.Args {
		if i > 0 {
			s += ", "
		}
		s += tb.Name(a, str)
	}
	return s + ") -> " + tb.Name(f.Ret, str)
}
