package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	"github.com/N3rdL0rd/crashlink/internal/hltype"
	"github.com/N3rdL0rd/crashlink/internal/module"
)

// TestMain registers hlbc as an in-process script command, per testscript's
// standard command-under-test pattern.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"hlbc": func() int { return run(os.Args) },
	}))
}

func TestHLBCScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(env *testscript.Env) error {
			return os.WriteFile(env.WorkDir+"/sample.hl", sampleFixture(), 0o644)
		},
	})
}

// sampleFixture builds a tiny, valid module: one function computing and
// returning a constant int, so the CLI's disasm/decompile/cfg/stats
// subcommands all have something real to operate on.
func sampleFixture() []byte {
	m := module.New(5)
	m.Types.Add(hltype.Type{Kind: hltype.KVoid})
	m.Types.Add(hltype.Type{Kind: hltype.KFun, Fun: &hltype.FunType{Ret: 0}})
	m.Ints = []int32{42}
	m.Functions = []*bytecode.Function{{
		FIndex:  0,
		TypeIdx: 1,
		Regs:    []int{1},
		Ops: []*bytecode.Instr{
			{Op: bytecode.OInt, Fixed: []int32{0, 0}},
			{Op: bytecode.ORet, Fixed: []int32{0}},
		},
	}}
	return module.Serialize(m)
}
