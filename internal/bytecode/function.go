package bytecode

import "github.com/N3rdL0rd/crashlink/internal/varint"

// DebugEntry is one run of consecutive ops sharing a source file/line, used
// to compress the optional per-op debug_info stream (spec §3.3): instead of
// one (file, line) pair per op, a function's debug info is a short list of
// (file, line, count) runs that together cover every op index in order.
type DebugEntry struct {
	FileIdx int
	Line    int
	Count   int
}

// Assign names a register at a point in the op stream: the optional
// assigns list the register-coalescing optimizer pass (spec §4.6) reads to
// group registers that came from the same source-level local, without the
// lifter needing to re-derive that grouping from scratch.
type Assign struct {
	NameIdx int
	OpIndex int
}

// Function is one entry in the module's function table (spec §3.3): a
// typed signature, a register file (one type-table index per register),
// a flat op list, and two optional side streams (debug info, assigns) that
// travel with the function but are never required to interpret it.
type Function struct {
	FIndex  int
	TypeIdx int
	Regs    []int // type table index per register
	Ops     []*Instr

	HasDebug  bool
	DebugInfo []DebugEntry

	HasAssigns bool
	Assigns    []Assign

	// Widths records the on-disk width of every header/regs/debug/assigns
	// varint ReadFunction consumed (per-instruction widths live on each
	// Instr instead), so WriteFunction can replay a bit-exact round trip
	// (spec §4.1). Nil for a function built programmatically.
	Widths *varint.WidthTrace
}

// NumOps returns the instruction count.
func (f *Function) NumOps() int { return len(f.Ops) }

// LineAt resolves the (file, line) debug pair for the op at index, walking
// the run-length DebugInfo stream. It returns ok=false if the function has
// no debug info or index is out of the covered range.
func (f *Function) LineAt(index int) (file, line int, ok bool) {
	if !f.HasDebug {
		return 0, 0, false
	}
	pos := 0
	for _, e := range f.DebugInfo {
		if index < pos+e.Count {
			return e.FileIdx, e.Line, true
		}
		pos += e.Count
	}
	return 0, 0, false
}
