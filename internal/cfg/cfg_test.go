package cfg

import (
	"testing"

	"github.com/N3rdL0rd/crashlink/internal/bytecode"
)

func instr(op bytecode.Op, fixed ...int32) *bytecode.Instr {
	return &bytecode.Instr{Op: op, Fixed: fixed}
}

// buildIfElse constructs: JFalse cond -> else; then-body; JAlways -> end;
// else-body; end: Ret. A textbook diamond.
func buildIfElse() *bytecode.Function {
	return &bytecode.Function{
		FIndex: 0,
		Regs:   []int{0, 0},
		Ops: []*bytecode.Instr{
			/*0*/ instr(bytecode.OJFalse, 0, 2), // -> op 3 (else)
			/*1*/ instr(bytecode.OInt, 1, 0),    // then-body
			/*2*/ instr(bytecode.OJAlways, 1),   // -> op 4 (end)
			/*3*/ instr(bytecode.OInt, 1, 1),    // else-body
			/*4*/ instr(bytecode.ORet, 1),       // end
		},
	}
}

func TestBuildIfElseDiamond(t *testing.T) {
	g, err := Build(buildIfElse())
	if err != nil {
		t.Fatal(err)
	}
	// Expect 4 blocks: [0,0] entry ending in JFalse, [1,2] then-body, [3,3]
	// else-body, [4,4] end.
	if len(g.Blocks) != 4 {
		t.Fatalf("got %d blocks, want 4: %+v", len(g.Blocks), g.Blocks)
	}
	entry := g.Blocks[0]
	if len(entry.Succs) != 2 {
		t.Fatalf("entry block should have 2 successors, got %d", len(entry.Succs))
	}
	var hasTrue, hasFalse bool
	for _, e := range entry.Succs {
		if e.Kind == True {
			hasTrue = true
		}
		if e.Kind == False {
			hasFalse = true
		}
	}
	if !hasTrue || !hasFalse {
		t.Errorf("expected True and False edges out of entry, got %+v", entry.Succs)
	}

	end := g.Blocks[len(g.Blocks)-1]
	if len(end.Preds) != 2 {
		t.Errorf("end block should have 2 preds (then and else), got %d", len(end.Preds))
	}

	dom := Compute(g)
	if !dom.Dominates(0, end.Index) {
		t.Error("entry should dominate the end block")
	}
	if dom.Dominates(1, end.Index) {
		// then-body block should NOT dominate end, since else-body also
		// reaches it without passing through then-body.
		t.Error("then-body block should not dominate the end block")
	}
}

// buildLoop constructs a pre-tested while loop:
// 0: Label
// 1: JFalse cond -> end (op 3)
// 2: JAlways -> op 0 (back edge)
// 3: Ret
func buildLoop() *bytecode.Function {
	return &bytecode.Function{
		FIndex: 0,
		Regs:   []int{0},
		Ops: []*bytecode.Instr{
			/*0*/ instr(bytecode.OLabel),
			/*1*/ instr(bytecode.OJFalse, 0, 1), // -> op 3
			/*2*/ instr(bytecode.OJAlways, -3),  // -> op 0
			/*3*/ instr(bytecode.ORet, 0),
		},
	}
}

func TestBuildLoopHasBackEdge(t *testing.T) {
	g, err := Build(buildLoop())
	if err != nil {
		t.Fatal(err)
	}
	dom := Compute(g)
	edges := dom.BackEdges()
	if len(edges) != 1 {
		t.Fatalf("expected exactly one back edge, got %d: %v", len(edges), edges)
	}
	if edges[0][1] != 0 {
		t.Errorf("back edge should target the loop header (block 0), got %v", edges[0])
	}
}

// buildZeroOffsetBranch is a conditional jump whose target is its own
// fallthrough (offset 0): straight-line code wearing a conditional-jump
// opcode, not a real branch.
func buildZeroOffsetBranch() *bytecode.Function {
	return &bytecode.Function{
		FIndex: 0,
		Regs:   []int{0},
		Ops: []*bytecode.Instr{
			/*0*/ instr(bytecode.OJFalse, 0, 0), // -> op 1, its own fallthrough
			/*1*/ instr(bytecode.ORet, 0),
		},
	}
}

func TestZeroOffsetBranchCollapsesToUnconditional(t *testing.T) {
	g, err := Build(buildZeroOffsetBranch())
	if err != nil {
		t.Fatal(err)
	}
	entry := g.Blocks[0]
	if len(entry.Succs) != 1 {
		t.Fatalf("expected 1 successor for a same-target branch, got %d: %+v", len(entry.Succs), entry.Succs)
	}
	if entry.Succs[0].Kind != Unconditional {
		t.Errorf("got edge kind %v, want Unconditional", entry.Succs[0].Kind)
	}
}

func buildTrap() *bytecode.Function {
	return &bytecode.Function{
		FIndex: 0,
		Regs:   []int{0},
		Ops: []*bytecode.Instr{
			/*0*/ instr(bytecode.OTrap, 0, 1), // handler at op 2
			/*1*/ instr(bytecode.ORet, 0),
			/*2*/ instr(bytecode.OEndTrap, 0),
			/*3*/ instr(bytecode.ORet, 0),
		},
	}
}

func TestTrapRegionAnnotation(t *testing.T) {
	g, err := Build(buildTrap())
	if err != nil {
		t.Fatal(err)
	}
	// Block 0 ends with Trap; its handler target is op 2, which must be a
	// leader (new block).
	found := false
	for _, b := range g.Blocks {
		if b.Start == 2 {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected a block starting at op 2 (trap handler): %+v", g.Blocks)
	}
}
