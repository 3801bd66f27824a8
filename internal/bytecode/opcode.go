// Package bytecode implements HashLink's opcode model (spec §3.4) and
// function-body container (spec §3.3): a closed enumeration of opcodes,
// each with a named-field schema, plus the per-function register list, op
// list, debug-info stream, and assign annotations that surround it.
//
// Adapted from the teacher's internal/bytecode package (chunk.go,
// opcodes.go): same closed-iota-enum-plus-String()-table shape, but where
// the teacher's stack machine opcodes take no operands beyond the implicit
// stack, HashLink's register machine opcodes carry named integer fields, so
// each Op here is paired with a Schema describing what those fields mean.
// A schema table keyed by Op is the single dispatch point the codec uses to
// read/write any instruction (§9): adding an opcode means adding one Op
// constant, one Schema row and one opNames entry.
package bytecode

import "fmt"

// Op is the one-byte tag identifying an instruction kind.
type Op uint8

const (
	OMov Op = iota
	OInt
	OFloat
	OBool
	OBytes
	OString
	ONull

	OAdd
	OSub
	OMul
	OSDiv
	OUDiv
	OSMod
	OUMod
	OShl
	OSShr
	OUShr
	OAnd
	OOr
	OXor
	ONeg
	ONot
	OIncr
	ODecr

	OCall0
	OCall1
	OCall2
	OCall3
	OCall4
	OCallN
	OCallMethod
	OCallThis
	OCallClosure

	OStaticClosure
	OInstanceClosure
	OVirtualClosure

	OGetGlobal
	OSetGlobal

	OGetField
	OSetField
	OGetThis
	OSetThis
	ODynGet
	ODynSet

	OGetArray
	OSetArray
	OArraySize
	OGetType
	OGetTID

	OJTrue
	OJFalse
	OJNull
	OJNotNull
	OJSLt
	OJSGte
	OJSGt
	OJSLte
	OJULt
	OJUGte
	OJNotLt
	OJNotGte
	OJEq
	OJNotEq
	OJAlways

	OToDyn
	OToSFloat
	OToUFloat
	OToInt
	OSafeCast
	OUnsafeCast
	OToVirtual

	ORef
	OUnref
	OSetref

	ONew
	OMakeEnum
	OEnumAlloc
	OEnumIndex
	OEnumField
	OSetEnumField

	OTrap
	OEndTrap
	OSwitch
	ONullCheck
	OAssert

	OThrow
	ORethrow
	ORet
	OLabel
	ONop

	// opUnknownBase is not a real opcode; Op values at or above it are
	// used only in memory to represent an opaque, version-unknown tag
	// captured verbatim for byte-exact re-emission (spec §7
	// UnsupportedOpcode "opt-in" path). The actual on-disk tag is stored
	// in Instr.RawTag, not derived from the Op value.
	opUnknownBase Op = 0xF0
	OUnknown      Op = opUnknownBase
)

var opNames = map[Op]string{
	OMov: "Mov", OInt: "Int", OFloat: "Float", OBool: "Bool", OBytes: "Bytes",
	OString: "String", ONull: "Null",
	OAdd: "Add", OSub: "Sub", OMul: "Mul", OSDiv: "SDiv", OUDiv: "UDiv",
	OSMod: "SMod", OUMod: "UMod", OShl: "Shl", OSShr: "SShr", OUShr: "UShr",
	OAnd: "And", OOr: "Or", OXor: "Xor", ONeg: "Neg", ONot: "Not",
	OIncr: "Incr", ODecr: "Decr",
	OCall0: "Call0", OCall1: "Call1", OCall2: "Call2", OCall3: "Call3", OCall4: "Call4",
	OCallN: "CallN", OCallMethod: "CallMethod", OCallThis: "CallThis", OCallClosure: "CallClosure",
	OStaticClosure: "StaticClosure", OInstanceClosure: "InstanceClosure", OVirtualClosure: "VirtualClosure",
	OGetGlobal: "GetGlobal", OSetGlobal: "SetGlobal",
	OGetField: "GetField", OSetField: "SetField", OGetThis: "GetThis", OSetThis: "SetThis",
	ODynGet: "DynGet", ODynSet: "DynSet",
	OGetArray: "GetArray", OSetArray: "SetArray", OArraySize: "ArraySize",
	OGetType: "GetType", OGetTID: "GetTID",
	OJTrue: "JTrue", OJFalse: "JFalse", OJNull: "JNull", OJNotNull: "JNotNull",
	OJSLt: "JSLt", OJSGte: "JSGte", OJSGt: "JSGt", OJSLte: "JSLte",
	OJULt: "JULt", OJUGte: "JUGte", OJNotLt: "JNotLt", OJNotGte: "JNotGte",
	OJEq: "JEq", OJNotEq: "JNotEq", OJAlways: "JAlways",
	OToDyn: "ToDyn", OToSFloat: "ToSFloat", OToUFloat: "ToUFloat", OToInt: "ToInt",
	OSafeCast: "SafeCast", OUnsafeCast: "UnsafeCast", OToVirtual: "ToVirtual",
	ORef: "Ref", OUnref: "Unref", OSetref: "Setref",
	ONew: "New", OMakeEnum: "MakeEnum", OEnumAlloc: "EnumAlloc",
	OEnumIndex: "EnumIndex", OEnumField: "EnumField", OSetEnumField: "SetEnumField",
	OTrap: "Trap", OEndTrap: "EndTrap", OSwitch: "Switch",
	ONullCheck: "NullCheck", OAssert: "Assert",
	OThrow: "Throw", ORethrow: "Rethrow", ORet: "Ret", OLabel: "Label", ONop: "Nop",
	OUnknown: "Unknown",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return fmt.Sprintf("Op(%d)", o)
}

// IsTerminator reports whether o ends a basic block (spec §3.5).
func (o Op) IsTerminator() bool {
	switch o {
	case OJTrue, OJFalse, OJNull, OJNotNull, OJSLt, OJSGte, OJSGt, OJSLte,
		OJULt, OJUGte, OJNotLt, OJNotGte, OJEq, OJNotEq, OJAlways,
		ORet, OThrow, ORethrow, OSwitch:
		return true
	default:
		return false
	}
}

// IsConditionalJump reports whether o is a two-successor branch.
func (o Op) IsConditionalJump() bool {
	switch o {
	case OJTrue, OJFalse, OJNull, OJNotNull, OJSLt, OJSGte, OJSGt, OJSLte,
		OJULt, OJUGte, OJNotLt, OJNotGte, OJEq, OJNotEq:
		return true
	default:
		return false
	}
}

// FieldKind describes what a schema field's integer value refers to —
// purely semantic metadata for the lifter, disassembler, and pretty
// printer; the wire encoding of every scalar field is the same signed
// varint (internal/varint.Reader.Index), so FieldKind never changes how a
// field is read or written, only how it is interpreted afterward.
type FieldKind uint8

const (
	FReg       FieldKind = iota // register index
	FRegList                    // variadic list of register indices
	FIntConst                   // index into the int pool
	FFloatConst                 // index into the float pool
	FStringConst                // index into the string pool
	FBytesConst                  // index into the bytes pool
	FGlobal                      // global-variable slot index
	FType                        // type-table index
	FField                       // field/construct/slot index (not pool-backed)
	FFieldList                   // variadic list of field indices
	FFunRef                      // function index or native index (callable target)
	FOffset                      // signed jump offset, relative to the next op
	FOffsetList                  // variadic list of signed jump offsets
	FLit                         // raw integer literal (flags, hashes, counts)
)

// Field names one schema slot.
type Field struct {
	Name string
	Kind FieldKind
}

// Schema fully describes one opcode's wire shape: Fixed fields come first,
// then an optional Variadic list (itself length-prefixed), then any
// Trailing fields that follow the list (only Switch uses this — its
// default-case offset comes after the per-case offset list).
type Schema struct {
	Op       Op
	Fixed    []Field
	Variadic *Field
	Trailing []Field
}

func reg(name string) Field    { return Field{name, FReg} }
func off(name string) Field    { return Field{name, FOffset} }
func lit(name string) Field    { return Field{name, FLit} }
func fld(name string) Field    { return Field{name, FField} }
func typ(name string) Field    { return Field{name, FType} }
func glob(name string) Field   { return Field{name, FGlobal} }
func fn(name string) Field     { return Field{name, FFunRef} }
func iconst(name string) Field { return Field{name, FIntConst} }
func fconst(name string) Field { return Field{name, FFloatConst} }
func sconst(name string) Field { return Field{name, FStringConst} }
func bconst(name string) Field { return Field{name, FBytesConst} }

// Schemas is the authoritative table mapping every Op to its field shape.
// This is the one place §9 says needs to change to add an opcode.
var Schemas = buildSchemas()

func buildSchemas() map[Op]Schema {
	s := map[Op]Schema{}
	add := func(op Op, fixed ...Field) { s[op] = Schema{Op: op, Fixed: fixed} }
	addVariadic := func(op Op, variadic Field, fixed ...Field) {
		v := variadic
		s[op] = Schema{Op: op, Fixed: fixed, Variadic: &v}
	}

	add(OMov, reg("dst"), reg("src"))
	add(OInt, reg("dst"), iconst("ptr"))
	add(OFloat, reg("dst"), fconst("ptr"))
	add(OBool, reg("dst"), lit("value"))
	add(OBytes, reg("dst"), bconst("ptr"))
	add(OString, reg("dst"), sconst("ptr"))
	add(ONull, reg("dst"))

	for _, op := range []Op{OAdd, OSub, OMul, OSDiv, OUDiv, OSMod, OUMod, OShl, OSShr, OUShr, OAnd, OOr, OXor} {
		add(op, reg("dst"), reg("a"), reg("b"))
	}
	add(ONeg, reg("dst"), reg("src"))
	add(ONot, reg("dst"), reg("src"))
	add(OIncr, reg("dst"))
	add(ODecr, reg("dst"))

	add(OCall0, reg("dst"), fn("fun"))
	add(OCall1, reg("dst"), fn("fun"), reg("arg0"))
	add(OCall2, reg("dst"), fn("fun"), reg("arg0"), reg("arg1"))
	add(OCall3, reg("dst"), fn("fun"), reg("arg0"), reg("arg1"), reg("arg2"))
	add(OCall4, reg("dst"), fn("fun"), reg("arg0"), reg("arg1"), reg("arg2"), reg("arg3"))
	addVariadic(OCallN, Field{"args", FRegList}, reg("dst"), fn("fun"))
	addVariadic(OCallMethod, Field{"args", FRegList}, reg("dst"), fld("field"), reg("obj"))
	addVariadic(OCallThis, Field{"args", FRegList}, reg("dst"), fld("field"))
	addVariadic(OCallClosure, Field{"args", FRegList}, reg("dst"), reg("closure"))

	add(OStaticClosure, reg("dst"), fn("fun"))
	add(OInstanceClosure, reg("dst"), fn("fun"), reg("obj"))
	add(OVirtualClosure, reg("dst"), reg("obj"), fld("field"))

	add(OGetGlobal, reg("dst"), glob("global"))
	add(OSetGlobal, glob("global"), reg("src"))

	add(OGetField, reg("dst"), reg("obj"), fld("field"))
	add(OSetField, reg("obj"), fld("field"), reg("src"))
	add(OGetThis, reg("dst"), fld("field"))
	add(OSetThis, fld("field"), reg("src"))
	add(ODynGet, reg("dst"), reg("obj"), lit("hash"))
	add(ODynSet, reg("obj"), lit("hash"), reg("src"))

	add(OGetArray, reg("dst"), reg("arr"), reg("idx"))
	add(OSetArray, reg("arr"), reg("idx"), reg("src"))
	add(OArraySize, reg("dst"), reg("arr"))
	add(OGetType, reg("dst"), reg("obj"))
	add(OGetTID, reg("dst"), reg("obj"))

	for _, op := range []Op{OJTrue, OJFalse, OJNull, OJNotNull} {
		add(op, reg("cond"), off("offset"))
	}
	for _, op := range []Op{OJSLt, OJSGte, OJSGt, OJSLte, OJULt, OJUGte, OJNotLt, OJNotGte, OJEq, OJNotEq} {
		add(op, reg("a"), reg("b"), off("offset"))
	}
	add(OJAlways, off("offset"))

	for _, op := range []Op{OToDyn, OToSFloat, OToUFloat, OToInt, OSafeCast, OUnsafeCast, OToVirtual} {
		add(op, reg("dst"), reg("src"))
	}

	add(ORef, reg("dst"), reg("src"))
	add(OUnref, reg("dst"), reg("src"))
	add(OSetref, reg("dst"), reg("value"))

	add(ONew, reg("dst"))
	addVariadic(OMakeEnum, Field{"args", FRegList}, reg("dst"), fld("construct"))
	add(OEnumAlloc, reg("dst"), fld("construct"))
	add(OEnumIndex, reg("dst"), reg("value"))
	add(OEnumField, reg("dst"), reg("value"), fld("construct"), fld("field"))
	add(OSetEnumField, reg("value"), fld("field"), reg("src"))

	add(OTrap, reg("dst"), off("offset"))
	add(OEndTrap, reg("dst"))
	s[OSwitch] = Schema{
		Op:       OSwitch,
		Fixed:    []Field{reg("reg")},
		Variadic: &Field{"offsets", FOffsetList},
		Trailing: []Field{off("end")},
	}
	add(ONullCheck, reg("reg"))
	add(OAssert)

	add(OThrow, reg("reg"))
	add(ORethrow, reg("reg"))
	add(ORet, reg("reg"))
	add(OLabel)
	add(ONop)

	return s
}

// minVersion records opcodes that only exist starting at a given module
// version (spec's versioned opcode catalog, covering the two supported
// versions 4 and 5). Every opcode not listed here is available in both.
// OBytes depends on the bytes pool, itself introduced in version 5; older
// modules represent byte-string constants as regular string constants
// instead, so OBytes simply never appears in a version-4 module.
var minVersion = map[Op]int{
	OBytes: 5,
}

// AvailableAt reports whether op is legal in a module of the given version.
func (o Op) AvailableAt(version int) bool {
	if min, ok := minVersion[o]; ok {
		return version >= min
	}
	return true
}
