package api

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	"github.com/N3rdL0rd/crashlink/internal/cache"
	hlerrors "github.com/N3rdL0rd/crashlink/internal/errors"
	"github.com/N3rdL0rd/crashlink/internal/hltype"
	"github.com/N3rdL0rd/crashlink/internal/module"
)

func sampleToolkit() *Toolkit {
	m := module.New(5)
	m.Types.Add(hltype.Type{Kind: hltype.KVoid})
	m.Types.Add(hltype.Type{Kind: hltype.KFun, Fun: &hltype.FunType{Ret: 0}})
	m.Ints = []int32{7}
	m.Functions = []*bytecode.Function{{
		FIndex:  0,
		TypeIdx: 1,
		Regs:    []int{1},
		Ops: []*bytecode.Instr{
			{Op: bytecode.OInt, Fixed: []int32{0, 0}},
			{Op: bytecode.ORet, Fixed: []int32{0}},
		},
	}}
	raw := module.Serialize(m)
	return &Toolkit{Module: m, raw: raw, hash: cache.ModuleHash(raw)}
}

func TestCFGIRPseudoDisasm(t *testing.T) {
	tk := sampleToolkit()

	g, err := tk.CFG(0)
	if err != nil || len(g.Blocks) == 0 {
		t.Fatalf("CFG: err=%v blocks=%v", err, g)
	}

	body, err := tk.IR(0)
	if err != nil || len(body.Stmts) == 0 {
		t.Fatalf("IR: err=%v body=%v", err, body)
	}

	pseudo, err := tk.Pseudo(0)
	if err != nil || !strings.Contains(pseudo, "return") {
		t.Fatalf("Pseudo: err=%v out=%q", err, pseudo)
	}

	listing, err := tk.Disasm(0)
	if err != nil || !strings.Contains(listing, "Ret") {
		t.Fatalf("Disasm: err=%v out=%q", err, listing)
	}
}

func TestPseudoUsesCache(t *testing.T) {
	tk := sampleToolkit()
	c, err := cache.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open cache: %v", err)
	}
	defer c.Close()
	tk.WithCache(c)

	first, err := tk.Pseudo(0)
	if err != nil {
		t.Fatalf("Pseudo: %v", err)
	}
	if err := c.Put(tk.hash, 0, cache.KindPseudo, "cached stand-in"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	second, err := tk.Pseudo(0)
	if err != nil {
		t.Fatalf("Pseudo (cached): %v", err)
	}
	if second != "cached stand-in" {
		t.Errorf("expected cache hit to override the real lift, got %q (first was %q)", second, first)
	}
}

func TestStatsReportsCounts(t *testing.T) {
	tk := sampleToolkit()
	s := tk.Stats()
	if s.FunctionCount != 1 || s.TypeCount != 2 || s.IntCount != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if s.RawSize == "" {
		t.Error("expected a humanized raw size")
	}
	if s.DebugCoverage != "0.0%" {
		t.Errorf("expected 0%% debug coverage, got %q", s.DebugCoverage)
	}
}

func TestUnknownFunctionIndexIsInvalidReference(t *testing.T) {
	tk := sampleToolkit()
	_, err := tk.CFG(99)
	if err == nil {
		t.Fatal("expected an error for an unknown function index")
	}
	var hlErr *hlerrors.HLError
	if !stderrors.As(err, &hlErr) || hlErr.Kind != hlerrors.InvalidReference {
		t.Errorf("expected an InvalidReference error, got %v", err)
	}
}
