// Package emit renders a function's optimized IR into indented,
// syntactically-valid pseudo-Haxe source (spec §4.7): the final stage of
// the decompiler pipeline.
//
// Grounded on the teacher's plain string-building style for generated
// output (internal/build writes bundles by direct string concatenation,
// not a template engine) plus `github.com/kr/text`'s Indent helper for
// nested-scope indentation (SPEC_FULL.md §B: an ecosystem dependency with
// no teacher analog, wired here rather than hand-rolling
// strings.Repeat(" ", depth*4) bookkeeping).
package emit

import (
	"fmt"
	"strings"

	"github.com/kr/text"

	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	"github.com/N3rdL0rd/crashlink/internal/hltype"
	"github.com/N3rdL0rd/crashlink/internal/ir"
	"github.com/N3rdL0rd/crashlink/internal/module"
)

const indentUnit = "    "

// Function renders f's signature and body as pseudo-code. body is the
// already-lifted-and-optimized IR tree (internal/lifter + internal/optimize).
func Function(m *module.Module, f *bytecode.Function, body *ir.Block) string {
	sig := signature(m, f)
	inner := Block(m, body)
	if strings.TrimSpace(inner) == "" {
		return sig + " {\n}"
	}
	return sig + " {\n" + text.Indent(inner, indentUnit) + "\n}"
}

func signature(m *module.Module, f *bytecode.Function) string {
	t, err := m.Types.Get(f.TypeIdx)
	if err != nil || t.Fun == nil {
		return fmt.Sprintf("function f@%d()", f.FIndex)
	}
	args := t.Fun.Args
	startArg := 0
	if t.Kind == hltype.KMethod && len(args) > 0 {
		startArg = 1 // implicit receiver, never listed as a parameter
	}
	params := make([]string, 0, len(args))
	for i := startArg; i < len(args); i++ {
		params = append(params, fmt.Sprintf("r%d: %s", i, m.Types.Name(args[i], m.String)))
	}
	ret := m.Types.Name(t.Fun.Ret, m.String)
	return fmt.Sprintf("function f@%d(%s): %s", f.FIndex, strings.Join(params, ", "), ret)
}

// Block renders a statement list, one statement per line (a structured
// statement like Conditional/Loop contributes multiple lines).
func Block(m *module.Module, b *ir.Block) string {
	if b == nil {
		return ""
	}
	lines := make([]string, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		lines = append(lines, stmt(m, s))
	}
	return strings.Join(lines, "\n")
}

func stmt(m *module.Module, s ir.Stmt) string {
	switch st := s.(type) {
	case *ir.Assign:
		return fmt.Sprintf("%s = %s;", expr(m, st.Dst, 0), expr(m, st.Src, 0))
	case *ir.ExprStmt:
		return expr(m, st.X, 0) + ";"
	case *ir.Return:
		if st.Value == nil {
			return "return;"
		}
		return fmt.Sprintf("return %s;", expr(m, st.Value, 0))
	case *ir.Throw:
		return fmt.Sprintf("throw %s;", expr(m, st.Value, 0))
	case *ir.Break:
		return "break;"
	case *ir.Continue:
		return "continue;"
	case *ir.Conditional:
		return conditional(m, st)
	case *ir.Loop:
		return loop(m, st)
	case *ir.Switch:
		return switchStmt(m, st)
	case *ir.Try:
		return tryStmt(m, st)
	case *ir.PrimitiveJump:
		return primitiveJump(m, st)
	case *ir.UntranslatedOpcode:
		return fmt.Sprintf("/* %s */", st.OpText)
	default:
		return fmt.Sprintf("/* unrenderable statement %T */", s)
	}
}

func conditional(m *module.Module, c *ir.Conditional) string {
	var b strings.Builder
	fmt.Fprintf(&b, "if (%s) {\n%s\n}", expr(m, c.Cond, 0), text.Indent(Block(m, c.Then), indentUnit))
	if c.Else != nil && len(c.Else.Stmts) > 0 {
		fmt.Fprintf(&b, " else {\n%s\n}", text.Indent(Block(m, c.Else), indentUnit))
	}
	return b.String()
}

func loop(m *module.Module, l *ir.Loop) string {
	body := text.Indent(Block(m, l.Body), indentUnit)
	switch l.Kind {
	case ir.PreTested:
		return fmt.Sprintf("while (%s) {\n%s\n}", expr(m, l.Cond, 0), body)
	case ir.PostTested:
		return fmt.Sprintf("do {\n%s\n} while (%s);", body, expr(m, l.Cond, 0))
	default:
		return fmt.Sprintf("while (true) {\n%s\n}", body)
	}
}

func switchStmt(m *module.Module, sw *ir.Switch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "switch (%s) {\n", expr(m, sw.Value, 0))
	for _, c := range sw.Cases {
		fmt.Fprintf(&b, "%scase %d:\n%s\n", indentUnit, c.Case, text.Indent(Block(m, c.Body), indentUnit+indentUnit))
	}
	if sw.Default != nil {
		fmt.Fprintf(&b, "%sdefault:\n%s\n", indentUnit, text.Indent(Block(m, sw.Default), indentUnit+indentUnit))
	}
	b.WriteString("}")
	return b.String()
}

func tryStmt(m *module.Module, t *ir.Try) string {
	return fmt.Sprintf("try {\n%s\n} catch (%s) {\n%s\n}",
		text.Indent(Block(m, t.Body), indentUnit), t.CatchVar, text.Indent(Block(m, t.Catch), indentUnit))
}

func primitiveJump(m *module.Module, p *ir.PrimitiveJump) string {
	if p.Cond == nil {
		return fmt.Sprintf("goto L%d;", p.TargetOp)
	}
	cond := expr(m, p.Cond, 0)
	if p.Negate {
		cond = "!(" + cond + ")"
	}
	return fmt.Sprintf("if (%s) goto L%d;", cond, p.TargetOp)
}
