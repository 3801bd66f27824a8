// Package module implements the top-level HashLink module container and
// its bit-exact binary codec (spec §3.1, §4.2, §6.1): the magic header,
// version byte, pool-size table, and the pools themselves in their fixed
// on-disk order.
//
// Adapted from the teacher's internal/buildutil.Serialize/Deserialize pair
// (magic number + version + binary.Write/Read, typed-constant tag-byte
// switch) but rebuilt on top of internal/varint's bit-packed varint scheme
// instead of fixed-width binary.Write fields, since HashLink's own format
// uses varints throughout rather than the teacher's fixed uint32 lengths.
package module

import (
	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	"github.com/N3rdL0rd/crashlink/internal/hltype"
	"github.com/N3rdL0rd/crashlink/internal/varint"
)

// Magic is the three-byte file signature, "HLB" in ASCII.
var Magic = [3]byte{'H', 'L', 'B'}

// Supported module versions (spec §3.1: versions 4 and 5).
const (
	MinVersion = 4
	MaxVersion = 5
)

// flag bits packed into the module's varint Flags field.
const (
	flagHasDebug = 1 << 0
)

// Native is an imported function binding: a (lib, name) pair resolved at
// load time against a concrete signature and, once resolved, treated like
// any other function for call sites.
type Native struct {
	LibIdx  int // string pool index
	NameIdx int // string pool index
	TypeIdx int
	FIndex  int
}

// Constant is a static field initializer run once at module load, filling
// Global's fields from the listed value indices in declaration order.
type Constant struct {
	Global int
	Fields []int
}

// Module is a complete, mutable in-memory HashLink program. Every
// cross-reference inside it (a function's TypeIdx, an Instr's pool index,
// a Native's TypeIdx) is an index into one of the slices below; Module
// never holds a pointer-based object graph, matching the type table's own
// index-addressed discipline (spec §9).
type Module struct {
	Version int

	HasDebug   bool
	DebugFiles []string // only meaningful when HasDebug

	Ints    []int32
	Floats  []float64
	Strings []string
	Bytes   [][]byte // version 5+

	Types *hltype.Table

	Globals   []int // type index per global slot
	Natives   []Native
	Functions []*bytecode.Function
	Constants []Constant // version 4+

	Entrypoint int // function index

	// Widths records the on-disk width of every header/pool-index varint
	// read by Parse, so Serialize can reproduce the exact input bytes on an
	// unmodified round trip instead of canonicalizing to minimal width
	// (spec §4.1). Nil for a module built programmatically rather than
	// parsed; Serialize falls back to minimal-width encoding in that case.
	Widths *varint.WidthTrace
}

// New returns an empty module targeting the given version.
func New(version int) *Module {
	return &Module{
		Version: version,
		Types:   hltype.NewTable(),
	}
}

// String resolves a string-pool index, returning a placeholder for an
// out-of-range index rather than panicking — diagnostics and the emitter
// call this far too often to thread errors through every call site.
func (m *Module) String(idx int) string {
	if idx < 0 || idx >= len(m.Strings) {
		return "<invalid string>"
	}
	return m.Strings[idx]
}

// Function looks up a function by its FIndex field (not its slice
// position — the two coincide for modules this package produces, but
// nothing in the format requires it).
func (m *Module) Function(findex int) *bytecode.Function {
	for _, f := range m.Functions {
		if f.FIndex == findex {
			return f
		}
	}
	return nil
}
