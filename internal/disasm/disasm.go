// Package disasm prints a function's raw op list as a linear, labeled
// listing (spec §4.1 disasm_of): one line per instruction, schema field
// names resolved to values, with jump targets marked as `L<n>:` labels
// rather than left as bare offsets.
//
// Grounded on the two-pass style of
// _examples/chriskillpack-bbcdisasm/disassemble.go: a first pass over the
// instruction stream collects every branch target into a label set, then
// a second pass streams the listing to an io.Writer, printing a label line
// whenever the cursor lands on a previously recorded target.
package disasm

import (
	"fmt"
	"io"
	"strings"

	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	"github.com/N3rdL0rd/crashlink/internal/module"
)

// Function writes op's instruction listing for f to w.
func Function(m *module.Module, f *bytecode.Function, w io.Writer) error {
	labels := branchTargets(f)

	fmt.Fprintf(w, "function f@%d (%d regs, %d ops)\n", f.FIndex, len(f.Regs), len(f.Ops))
	for i, in := range f.Ops {
		if labels[i] {
			fmt.Fprintf(w, "L%d:\n", i)
		}
		if _, err := fmt.Fprintf(w, "    %4d  %s\n", i, renderInstr(m, in)); err != nil {
			return err
		}
	}
	return nil
}

// branchTargets finds every op index any jump/trap/switch instruction in f
// can transfer control to, the same relative-offset arithmetic
// internal/cfg uses to build block boundaries (target = from + 1 + offset).
func branchTargets(f *bytecode.Function) map[int]bool {
	targets := map[int]bool{}
	for i, in := range f.Ops {
		switch in.Op {
		case bytecode.OJTrue, bytecode.OJFalse, bytecode.OJNull, bytecode.OJNotNull,
			bytecode.OJSLt, bytecode.OJSGte, bytecode.OJSGt, bytecode.OJSLte,
			bytecode.OJULt, bytecode.OJUGte, bytecode.OJNotLt, bytecode.OJNotGte,
			bytecode.OJEq, bytecode.OJNotEq, bytecode.OJAlways, bytecode.OTrap:
			targets[i+1+int(in.Field("offset"))] = true
		case bytecode.OSwitch:
			for _, off := range in.List {
				targets[i+1+int(off)] = true
			}
			targets[i+1+int(in.Field("end"))] = true
		}
	}
	return targets
}

// renderInstr formats one instruction as "OpName field=val, field=val".
func renderInstr(m *module.Module, in *bytecode.Instr) string {
	if in.Op == bytecode.OUnknown {
		return fmt.Sprintf("Unknown (raw tag %d, %d bytes)", in.RawTag, len(in.Raw))
	}
	sch, ok := bytecode.Schemas[in.Op]
	if !ok {
		return in.Op.String()
	}

	parts := make([]string, 0, len(sch.Fixed)+len(sch.Trailing)+1)
	for i, f := range sch.Fixed {
		parts = append(parts, fmt.Sprintf("%s=%s", f.Name, fieldValue(m, f.Kind, in.Fixed[i])))
	}
	if sch.Variadic != nil {
		vals := make([]string, len(in.List))
		for i, v := range in.List {
			vals[i] = fieldValue(m, sch.Variadic.Kind, v)
		}
		parts = append(parts, fmt.Sprintf("%s=[%s]", sch.Variadic.Name, strings.Join(vals, ", ")))
	}
	for i, f := range sch.Trailing {
		parts = append(parts, fmt.Sprintf("%s=%s", f.Name, fieldValue(m, f.Kind, in.Trail[i])))
	}
	return in.Op.String() + " " + strings.Join(parts, ", ")
}

// fieldValue renders one field value, resolving pool-backed fields
// (strings, ints, floats) to their literal content rather than a bare
// index; jump offsets and other fields are printed as plain integers.
func fieldValue(m *module.Module, kind bytecode.FieldKind, v int32) string {
	switch kind {
	case bytecode.FStringConst:
		if int(v) >= 0 && int(v) < len(m.Strings) {
			return fmt.Sprintf("%q", m.Strings[int(v)])
		}
		return fmt.Sprintf("str#%d", v)
	case bytecode.FIntConst:
		if int(v) >= 0 && int(v) < len(m.Ints) {
			return fmt.Sprintf("%d", m.Ints[int(v)])
		}
		return fmt.Sprintf("int#%d", v)
	case bytecode.FFloatConst:
		if int(v) >= 0 && int(v) < len(m.Floats) {
			return fmt.Sprintf("%g", m.Floats[int(v)])
		}
		return fmt.Sprintf("float#%d", v)
	case bytecode.FReg, bytecode.FRegList:
		return fmt.Sprintf("r%d", v)
	default:
		return fmt.Sprintf("%d", v)
	}
}
