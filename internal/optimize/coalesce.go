package optimize

import (
	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	"github.com/N3rdL0rd/crashlink/internal/ir"
	"github.com/N3rdL0rd/crashlink/internal/module"
)

// coalesceNames is pass 1 (spec §4.6): rename reg_N locals to the
// source-level names recorded in the function's assigns list, so every
// later pass and the emitter see the name a Haxe programmer would have
// used, not the register index the compiler happened to pick.
func coalesceNames(m *module.Module, f *bytecode.Function, body *ir.Block) *ir.Block {
	names := registerNames(m, f)
	if len(names) == 0 {
		return body
	}
	transformAllExprs(body, func(e ir.Expr) ir.Expr {
		if l, ok := e.(*ir.Local); ok {
			if name, found := names[l.Reg]; found {
				l.Name = name
			}
		}
		return e
	})
	return body
}

// registerNames resolves f.Assigns (spec §3.3) into a reg -> source name
// map. An entry with OpIndex < 0 names argument register -OpIndex-1;
// otherwise it names the destination register of op OpIndex-1 — only
// opcodes whose schema has a "dst" field can be named this way, which
// covers every data-producing opcode the lifter translates.
func registerNames(m *module.Module, f *bytecode.Function) map[int]string {
	if !f.HasAssigns {
		return nil
	}
	names := make(map[int]string, len(f.Assigns))
	for _, a := range f.Assigns {
		name := m.String(a.NameIdx)
		if a.OpIndex < 0 {
			names[-a.OpIndex-1] = name
			continue
		}
		opIdx := a.OpIndex - 1
		if opIdx < 0 || opIdx >= len(f.Ops) {
			continue
		}
		in := f.Ops[opIdx]
		sch, ok := bytecode.Schemas[in.Op]
		if !ok {
			continue
		}
		for i, field := range sch.Fixed {
			if field.Name == "dst" {
				names[int(in.Fixed[i])] = name
				break
			}
		}
	}
	return names
}
