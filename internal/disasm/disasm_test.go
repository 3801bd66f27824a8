package disasm

import (
	"strings"
	"testing"

	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	"github.com/N3rdL0rd/crashlink/internal/module"
)

func TestFunctionLabelsBranchTarget(t *testing.T) {
	m := module.New(5)
	m.Strings = []string{"msg"}
	f := &bytecode.Function{
		FIndex: 0,
		Regs:   []int{0, 0},
		Ops: []*bytecode.Instr{
			{Op: bytecode.OJAlways, Fixed: []int32{1}}, // jumps to op 2
			{Op: bytecode.OString, Fixed: []int32{0, 0}},
			{Op: bytecode.ORet, Fixed: []int32{0}},
		},
	}
	var sb strings.Builder
	if err := Function(m, f, &sb); err != nil {
		t.Fatalf("Function: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "L2:") {
		t.Errorf("expected a label at op 2, got:\n%s", out)
	}
	if !strings.Contains(out, `ptr="msg"`) {
		t.Errorf("expected the string constant resolved, got:\n%s", out)
	}
}

func TestRenderInstrUnknownOpcode(t *testing.T) {
	m := module.New(5)
	in := &bytecode.Instr{Op: bytecode.OUnknown, RawTag: 200, Raw: []byte{1, 2, 3}}
	got := renderInstr(m, in)
	if !strings.Contains(got, "Unknown") || !strings.Contains(got, "200") {
		t.Errorf("got %q", got)
	}
}
