package bytecode

import (
	"fmt"

	"github.com/N3rdL0rd/crashlink/internal/varint"
)

// ReadFunction decodes one Function per spec §3.3/§6.1: signature, register
// file, op list, then two presence-flagged optional side streams.
func ReadFunction(r *varint.Reader, version int) (*Function, error) {
	wt := varint.NewWidthTrace()

	typeIdx, err := r.IndexTrace(wt)
	if err != nil {
		return nil, fmt.Errorf("type_idx: %w", err)
	}
	findex, err := r.IndexTrace(wt)
	if err != nil {
		return nil, fmt.Errorf("findex: %w", err)
	}

	nregs, err := r.IndexTrace(wt)
	if err != nil {
		return nil, fmt.Errorf("nregs: %w", err)
	}
	regs := make([]int, nregs)
	for i := range regs {
		if regs[i], err = r.IndexTrace(wt); err != nil {
			return nil, fmt.Errorf("regs[%d]: %w", i, err)
		}
	}

	nops, err := r.IndexTrace(wt)
	if err != nil {
		return nil, fmt.Errorf("nops: %w", err)
	}
	ops := make([]*Instr, nops)
	for i := range ops {
		in, err := ReadInstr(r, version)
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		ops[i] = in
	}

	f := &Function{FIndex: findex, TypeIdx: typeIdx, Regs: regs, Ops: ops, Widths: wt}

	hasDebug, err := r.Byte()
	if err != nil {
		return nil, fmt.Errorf("has_debug: %w", err)
	}
	if hasDebug != 0 {
		f.HasDebug = true
		nruns, err := r.IndexTrace(wt)
		if err != nil {
			return nil, fmt.Errorf("debug nruns: %w", err)
		}
		f.DebugInfo = make([]DebugEntry, nruns)
		for i := range f.DebugInfo {
			fileIdx, err := r.IndexTrace(wt)
			if err != nil {
				return nil, fmt.Errorf("debug[%d].file: %w", i, err)
			}
			line, err := r.IndexTrace(wt)
			if err != nil {
				return nil, fmt.Errorf("debug[%d].line: %w", i, err)
			}
			count, err := r.IndexTrace(wt)
			if err != nil {
				return nil, fmt.Errorf("debug[%d].count: %w", i, err)
			}
			f.DebugInfo[i] = DebugEntry{FileIdx: fileIdx, Line: line, Count: count}
		}
	}

	hasAssigns, err := r.Byte()
	if err != nil {
		return nil, fmt.Errorf("has_assigns: %w", err)
	}
	if hasAssigns != 0 {
		f.HasAssigns = true
		n, err := r.IndexTrace(wt)
		if err != nil {
			return nil, fmt.Errorf("assigns n: %w", err)
		}
		f.Assigns = make([]Assign, n)
		for i := range f.Assigns {
			nameIdx, err := r.IndexTrace(wt)
			if err != nil {
				return nil, fmt.Errorf("assigns[%d].name: %w", i, err)
			}
			opIdx, err := r.IndexTrace(wt)
			if err != nil {
				return nil, fmt.Errorf("assigns[%d].op: %w", i, err)
			}
			f.Assigns[i] = Assign{NameIdx: nameIdx, OpIndex: opIdx}
		}
	}

	return f, nil
}

// WriteFunction is the exact inverse of ReadFunction.
func WriteFunction(w *varint.Writer, f *Function, version int) {
	wt := f.Widths
	wt.Reset()

	w.IndexTrace(wt, f.TypeIdx)
	w.IndexTrace(wt, f.FIndex)

	w.IndexTrace(wt, len(f.Regs))
	for _, reg := range f.Regs {
		w.IndexTrace(wt, reg)
	}

	w.IndexTrace(wt, len(f.Ops))
	for _, in := range f.Ops {
		WriteInstr(w, in)
	}

	if f.HasDebug {
		w.Byte(1)
		w.IndexTrace(wt, len(f.DebugInfo))
		for _, e := range f.DebugInfo {
			w.IndexTrace(wt, e.FileIdx)
			w.IndexTrace(wt, e.Line)
			w.IndexTrace(wt, e.Count)
		}
	} else {
		w.Byte(0)
	}

	if f.HasAssigns {
		w.Byte(1)
		w.IndexTrace(wt, len(f.Assigns))
		for _, a := range f.Assigns {
			w.IndexTrace(wt, a.NameIdx)
			w.IndexTrace(wt, a.OpIndex)
		}
	} else {
		w.Byte(0)
	}
}
