package optimize

import (
	"testing"

	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	"github.com/N3rdL0rd/crashlink/internal/hltype"
	"github.com/N3rdL0rd/crashlink/internal/ir"
	"github.com/N3rdL0rd/crashlink/internal/module"
)

func sampleModule() *module.Module {
	m := module.New(5)
	m.Types.Add(hltype.Type{Kind: hltype.KI32})
	return m
}

func local(name string, reg int) *ir.Local { return &ir.Local{Name: name, Reg: reg, TypeIdx: 0} }

func TestFoldConstants(t *testing.T) {
	body := &ir.Block{Stmts: []ir.Stmt{
		&ir.Assign{Dst: local("r0", 0), Src: &ir.Arithmetic{
			Op: ir.Add,
			A:  &ir.Const{IsInt: true, Int: 10},
			B:  &ir.Const{IsInt: true, Int: 5},
		}},
	}}
	foldConstants(body)
	assign := body.Stmts[0].(*ir.Assign)
	c, ok := assign.Src.(*ir.Const)
	if !ok || !c.IsInt || c.Int != 15 {
		t.Fatalf("expected folded const 15, got %+v", assign.Src)
	}
}

func TestEliminateDeadStores(t *testing.T) {
	body := &ir.Block{Stmts: []ir.Stmt{
		&ir.Assign{Dst: local("dead", 0), Src: &ir.Const{IsInt: true, Int: 1}},
		&ir.Assign{Dst: local("used", 1), Src: &ir.Const{IsInt: true, Int: 2}},
		&ir.Return{Value: local("used", 1)},
	}}
	eliminateDeadStores(body)
	if len(body.Stmts) != 2 {
		t.Fatalf("expected dead store dropped, got %+v", body.Stmts)
	}
	if _, ok := body.Stmts[0].(*ir.Assign); !ok {
		t.Fatalf("expected first surviving statement to assign 'used', got %+v", body.Stmts[0])
	}
}

func TestEliminateDeadStoreKeepsSideEffect(t *testing.T) {
	call := &ir.Call{Kind: ir.CallStatic, Callee: &ir.FuncRef{Name: "sideEffecting"}}
	body := &ir.Block{Stmts: []ir.Stmt{
		&ir.Assign{Dst: local("unused", 0), Src: call},
		&ir.Return{},
	}}
	eliminateDeadStores(body)
	stmt, ok := body.Stmts[0].(*ir.ExprStmt)
	if !ok {
		t.Fatalf("expected the call to survive as an ExprStmt, got %+v", body.Stmts[0])
	}
	if stmt.X != ir.Expr(call) {
		t.Errorf("expected the original call expression preserved")
	}
}

func TestRemoveRedundantMoves(t *testing.T) {
	body := &ir.Block{Stmts: []ir.Stmt{
		&ir.Assign{Dst: local("tmp", 0), Src: &ir.Arithmetic{Op: ir.Add, A: local("a", 1), B: local("b", 2)}},
		&ir.Assign{Dst: local("y", 3), Src: local("tmp", 0)},
		&ir.Return{Value: local("y", 3)},
	}}
	removeRedundantMoves(body)
	if len(body.Stmts) != 2 {
		t.Fatalf("expected tmp collapsed away, got %+v", body.Stmts)
	}
	assign, ok := body.Stmts[0].(*ir.Assign)
	if !ok {
		t.Fatalf("expected an Assign, got %T", body.Stmts[0])
	}
	dst, ok := assign.Dst.(*ir.Local)
	if !ok || dst.Name != "y" {
		t.Errorf("expected collapsed assign to target y, got %+v", assign.Dst)
	}
}

func TestRemoveSelfMove(t *testing.T) {
	body := &ir.Block{Stmts: []ir.Stmt{
		&ir.Assign{Dst: local("x", 0), Src: local("x", 0)},
		&ir.Return{},
	}}
	removeRedundantMoves(body)
	if len(body.Stmts) != 1 {
		t.Fatalf("expected self-move dropped, got %+v", body.Stmts)
	}
}

func TestCanonicalizeComparisons(t *testing.T) {
	body := &ir.Block{Stmts: []ir.Stmt{
		&ir.Conditional{
			Cond: &ir.Comparison{Op: ir.CmpSLt, A: &ir.Const{IsInt: true, Int: 5}, B: local("x", 0)},
			Then: &ir.Block{},
		},
	}}
	canonicalizeComparisons(body)
	cond := body.Stmts[0].(*ir.Conditional).Cond.(*ir.Comparison)
	if cond.Op != ir.CmpSGt {
		t.Errorf("expected mirrored op CmpSGt, got %v", cond.Op)
	}
	if _, ok := cond.A.(*ir.Local); !ok {
		t.Errorf("expected local on the left after canonicalization, got %+v", cond.A)
	}
	if _, ok := cond.B.(*ir.Const); !ok {
		t.Errorf("expected const on the right after canonicalization, got %+v", cond.B)
	}
}

func TestFoldConditionalsTrue(t *testing.T) {
	body := &ir.Block{Stmts: []ir.Stmt{
		&ir.Conditional{
			Cond: &ir.Const{IsBool: true, Bool: true},
			Then: &ir.Block{Stmts: []ir.Stmt{&ir.Return{Value: &ir.Const{IsInt: true, Int: 1}}}},
			Else: &ir.Block{Stmts: []ir.Stmt{&ir.Return{Value: &ir.Const{IsInt: true, Int: 2}}}},
		},
	}}
	foldConditionals(body)
	if len(body.Stmts) != 1 {
		t.Fatalf("expected the conditional replaced by its then-branch, got %+v", body.Stmts)
	}
	ret, ok := body.Stmts[0].(*ir.Return)
	if !ok || ret.Value.(*ir.Const).Int != 1 {
		t.Fatalf("expected the then-branch's return, got %+v", body.Stmts[0])
	}
}

func TestRecognizeClosures(t *testing.T) {
	this := local("this", 0)
	field := &ir.Field{Obj: this, FieldName: "inner"}
	body := &ir.Block{Stmts: []ir.Stmt{
		&ir.Assign{Dst: local("tmp", 1), Src: field},
		&ir.Assign{Dst: local("cl", 2), Src: &ir.Closure{Obj: local("tmp", 1), Method: "run"}},
		&ir.ExprStmt{X: &ir.Call{Kind: ir.CallClosure, Callee: local("cl", 2)}},
	}}
	recognizeClosures(body)
	if len(body.Stmts) != 2 {
		t.Fatalf("expected the GetThis temp inlined away, got %+v", body.Stmts)
	}
	assign, ok := body.Stmts[0].(*ir.Assign)
	if !ok {
		t.Fatalf("expected an Assign, got %T", body.Stmts[0])
	}
	closure, ok := assign.Src.(*ir.Closure)
	if !ok {
		t.Fatalf("expected a Closure, got %T", assign.Src)
	}
	if closure.Obj != ir.Expr(field) {
		t.Errorf("expected the closure's Obj to be the inlined field access, got %+v", closure.Obj)
	}
}

func TestRunPipelineCoalescesNames(t *testing.T) {
	m := sampleModule()
	f := &bytecode.Function{
		FIndex:     0,
		Regs:       []int{0, 0},
		HasAssigns: true,
		Ops: []*bytecode.Instr{
			{Op: bytecode.OInt, Fixed: []int32{0, 0}},
			{Op: bytecode.ORet, Fixed: []int32{0}},
		},
		Assigns: []bytecode.Assign{{NameIdx: 0, OpIndex: 1}},
	}
	m.Strings = []string{"count"}
	body := &ir.Block{Stmts: []ir.Stmt{
		&ir.Assign{Dst: local("r0", 0), Src: &ir.Const{IsInt: true, Int: 1}},
		&ir.Return{Value: local("r0", 0)},
	}}
	out := Run(m, f, body)
	assign := out.Stmts[0].(*ir.Assign)
	if assign.Dst.(*ir.Local).Name != "count" {
		t.Errorf("expected register 0 renamed to 'count', got %+v", assign.Dst)
	}
}
