// Package lifter implements the two-phase CFG-to-IR lift (spec §4.5):
// Phase A translates each basic block's non-control ops into a flat list
// of IR statements; Phase B walks the CFG's dominance structure to
// recognize diamonds, back edges, Switch regions, and trap regions,
// rebuilding them as structured Conditional/Loop/Switch/Try statements.
// Anything Phase B cannot match falls back to an ir.PrimitiveJump or
// ir.UntranslatedOpcode, never silently dropped or reordered.
//
// Grounded on the teacher's multi-pass compiler pipeline shape (a
// dedicated package per pass, each taking the previous pass's output type
// and returning the next), adapted here to the narrower two-phase shape
// the spec calls for instead of the teacher's parser/typechecker/codegen
// chain.
package lifter

import (
	"fmt"

	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	"github.com/N3rdL0rd/crashlink/internal/cfg"
	hlerrors "github.com/N3rdL0rd/crashlink/internal/errors"
	"github.com/N3rdL0rd/crashlink/internal/hltype"
	"github.com/N3rdL0rd/crashlink/internal/ir"
	"github.com/N3rdL0rd/crashlink/internal/module"
)

// Context carries everything the lifter needs to resolve pool references
// into human-readable IR nodes, shared across both phases.
type Context struct {
	Module   *module.Module
	Function *bytecode.Function
	Graph    *cfg.Graph
	Dom      *cfg.Dominance

	// Failures accumulates non-fatal StructureRecoveryFailure diagnostics
	// encountered during Phase B; the lift itself always succeeds (spec
	// §7: this kind never aborts a parse/lift).
	Failures []*hlerrors.HLError
}

// Lift runs both phases for f and returns the function's structured body.
func Lift(m *module.Module, f *bytecode.Function) (*ir.Block, *Context, error) {
	g, err := cfg.Build(f)
	if err != nil {
		return nil, nil, err
	}
	ctx := &Context{Module: m, Function: f, Graph: g}
	if len(g.Blocks) == 0 {
		return &ir.Block{}, ctx, nil
	}
	ctx.Dom = cfg.Compute(g)

	flat := make(map[int][]ir.Stmt, len(g.Blocks))
	for _, b := range g.Blocks {
		flat[b.Index] = translateBlock(ctx, b)
	}

	body := recoverRegion(ctx, flat, 0, -1)
	return body, ctx, nil
}

// localName returns the stable name coalescing should later group under:
// by default each register keeps its own name, but a function with an
// Assigns list (spec §3.3) may alias several registers to the same
// source-level local, which the optimizer's coalescing pass consumes.
func localName(f *bytecode.Function, reg int) string {
	return fmt.Sprintf("r%d", reg)
}

func localExpr(f *bytecode.Function, reg int) *ir.Local {
	typeIdx := -1
	if reg >= 0 && reg < len(f.Regs) {
		typeIdx = f.Regs[reg]
	}
	return &ir.Local{Name: localName(f, reg), Reg: reg, TypeIdx: typeIdx}
}

func fieldName(m *module.Module, f *bytecode.Function, reg int, slot int) string {
	if reg < 0 || reg >= len(f.Regs) {
		return fmt.Sprintf("field%d", slot)
	}
	t, err := m.Types.Get(f.Regs[reg])
	if err != nil {
		return fmt.Sprintf("field%d", slot)
	}
	var fields []hltype.Field
	switch t.Kind {
	case hltype.KObj, hltype.KStruct:
		fields = t.Obj.Fields
	case hltype.KVirtual:
		fields = t.VirtualFields
	}
	if slot < 0 || slot >= len(fields) {
		return fmt.Sprintf("field%d", slot)
	}
	return m.String(fields[slot].NameIdx)
}

func functionRef(m *module.Module, findex int) *ir.FuncRef {
	for _, t := range m.Types.All() {
		if t.Kind != hltype.KObj && t.Kind != hltype.KStruct {
			continue
		}
		for _, p := range t.Obj.Protos {
			if p.FIndex == findex {
				return &ir.FuncRef{FIndex: findex, Name: m.String(p.NameIdx)}
			}
		}
	}
	for _, n := range m.Natives {
		if n.FIndex == findex {
			return &ir.FuncRef{FIndex: findex, Name: m.String(n.NameIdx)}
		}
	}
	return &ir.FuncRef{FIndex: findex, Name: fmt.Sprintf("fn%d", findex)}
}

func constructName(m *module.Module, typeIdx int, construct int) string {
	t, err := m.Types.Get(typeIdx)
	if err != nil || t.Kind != hltype.KEnum || construct < 0 || construct >= len(t.Enum.Constructs) {
		return fmt.Sprintf("Construct%d", construct)
	}
	return m.String(t.Enum.Constructs[construct].NameIdx)
}
