package emit

import (
	"strings"
	"testing"

	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	"github.com/N3rdL0rd/crashlink/internal/hltype"
	"github.com/N3rdL0rd/crashlink/internal/ir"
	"github.com/N3rdL0rd/crashlink/internal/module"
)

func sampleModule() *module.Module {
	m := module.New(5)
	m.Types.Add(hltype.Type{Kind: hltype.KVoid}) // 0
	m.Types.Add(hltype.Type{Kind: hltype.KI32})  // 1
	m.Types.Add(hltype.Type{Kind: hltype.KFun, Fun: &hltype.FunType{Args: nil, Ret: 0}}) // 2
	return m
}

func local(name string) *ir.Local { return &ir.Local{Name: name} }

func TestEmitEmptyFunction(t *testing.T) {
	m := sampleModule()
	f := &bytecode.Function{FIndex: 0, TypeIdx: 2}
	body := &ir.Block{Stmts: []ir.Stmt{&ir.Return{}}}
	got := Function(m, f, body)
	want := "function f@0(): Void {\n    return;\n}"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestEmitArithmeticPrecedence(t *testing.T) {
	m := sampleModule()
	// (a + b) * c must keep its parens; a + b * c must not.
	mulOuter := &ir.Arithmetic{Op: ir.Mul, A: &ir.Arithmetic{Op: ir.Add, A: local("a"), B: local("b")}, B: local("c")}
	if got := expr(m, mulOuter, 0); got != "(a + b) * c" {
		t.Errorf("got %q", got)
	}
	addOuter := &ir.Arithmetic{Op: ir.Add, A: local("a"), B: &ir.Arithmetic{Op: ir.Mul, A: local("b"), B: local("c")}}
	if got := expr(m, addOuter, 0); got != "a + b * c" {
		t.Errorf("got %q", got)
	}
}

func TestEmitConditionalOmitsEmptyElse(t *testing.T) {
	m := sampleModule()
	c := &ir.Conditional{
		Cond: &ir.Comparison{Op: ir.CmpSGt, A: local("x"), B: &ir.Const{IsInt: true, Int: 0}},
		Then: &ir.Block{Stmts: []ir.Stmt{&ir.Return{Value: local("x")}}},
	}
	got := Block(m, &ir.Block{Stmts: []ir.Stmt{c}})
	if strings.Contains(got, "else") {
		t.Errorf("expected no else clause, got:\n%s", got)
	}
	if !strings.HasPrefix(got, "if (x > 0) {") {
		t.Errorf("unexpected rendering:\n%s", got)
	}
}

func TestEmitPreTestedLoop(t *testing.T) {
	m := sampleModule()
	l := &ir.Loop{
		Kind: ir.PreTested,
		Cond: &ir.Comparison{Op: ir.CmpSLt, A: local("i"), B: &ir.Const{IsInt: true, Int: 10}},
		Body: &ir.Block{Stmts: []ir.Stmt{&ir.ExprStmt{X: &ir.Call{Kind: ir.CallStatic, Callee: &ir.FuncRef{Name: "step"}}}}},
	}
	got := stmt(m, l)
	want := "while (i < 10) {\n    step();\n}"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestEmitSwitchAndTry(t *testing.T) {
	m := sampleModule()
	sw := &ir.Switch{
		Value: local("tag"),
		Cases: []ir.SwitchCase{
			{Case: 0, Body: &ir.Block{Stmts: []ir.Stmt{&ir.Return{Value: &ir.Const{IsInt: true, Int: 1}}}}},
			{Case: 1, Body: &ir.Block{Stmts: []ir.Stmt{&ir.Return{Value: &ir.Const{IsInt: true, Int: 2}}}}},
		},
	}
	got := stmt(m, sw)
	if !strings.Contains(got, "case 0:") || !strings.Contains(got, "case 1:") {
		t.Errorf("missing case labels:\n%s", got)
	}

	tr := &ir.Try{
		Body:     &ir.Block{Stmts: []ir.Stmt{&ir.ExprStmt{X: &ir.Call{Kind: ir.CallStatic, Callee: &ir.FuncRef{Name: "risky"}}}}},
		CatchVar: "e",
		Catch:    &ir.Block{Stmts: []ir.Stmt{&ir.Return{}}},
	}
	got = stmt(m, tr)
	if !strings.Contains(got, "catch (e)") {
		t.Errorf("missing catch clause:\n%s", got)
	}
}

func TestEmitUntranslatedOpcodeAsComment(t *testing.T) {
	m := sampleModule()
	u := &ir.UntranslatedOpcode{OpName: "OUnknown", OpText: "OUnknown r0"}
	got := stmt(m, u)
	if got != "/* OUnknown r0 */" {
		t.Errorf("got %q", got)
	}
}

func TestEmitCallKinds(t *testing.T) {
	m := sampleModule()
	staticCall := &ir.Call{Kind: ir.CallStatic, Callee: &ir.FuncRef{Name: "doWork"}, Args: []ir.Expr{local("x")}}
	if got := expr(m, staticCall, 0); got != "doWork(x)" {
		t.Errorf("got %q", got)
	}
	methodCall := &ir.Call{Kind: ir.CallMethod, Callee: local("obj"), Method: "run"}
	if got := expr(m, methodCall, 0); got != "obj.run()" {
		t.Errorf("got %q", got)
	}
	thisCall := &ir.Call{Kind: ir.CallThis, Method: "update"}
	if got := expr(m, thisCall, 0); got != "this.update()" {
		t.Errorf("got %q", got)
	}
}
