// Package api is the top-level programmatic facade (spec §6.3): parse a
// module, serialize it back, and derive a CFG/IR/pseudo-code/disasm
// listing for one function, transparently consulting an internal/cache
// when one is attached. Nothing downstream of Parse needs to know
// whether a result came from a fresh lift or a cache hit. Only Pseudo and
// Disasm consult the cache; CFG, IR and Stats always compute their result.
package api

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	"github.com/N3rdL0rd/crashlink/internal/cache"
	"github.com/N3rdL0rd/crashlink/internal/cfg"
	"github.com/N3rdL0rd/crashlink/internal/disasm"
	"github.com/N3rdL0rd/crashlink/internal/emit"
	hlerrors "github.com/N3rdL0rd/crashlink/internal/errors"
	"github.com/N3rdL0rd/crashlink/internal/ir"
	"github.com/N3rdL0rd/crashlink/internal/lifter"
	"github.com/N3rdL0rd/crashlink/internal/module"
	"github.com/N3rdL0rd/crashlink/internal/optimize"
)

// Toolkit bundles a parsed module with an optional cache; every derived
// view (CFG, IR, pseudo-code, disasm) is a method so cache lookups stay
// internal to the facade instead of leaking into every call site.
type Toolkit struct {
	Module *module.Module
	Cache  *cache.Cache // nil disables caching; every call still works

	raw  []byte // the bytes Parse was given, for ModuleHash and Stats
	hash string
}

// Parse decodes buf into a Toolkit. Equivalent to spec §6.3's parse(bytes).
func Parse(buf []byte) (*Toolkit, error) {
	m, err := module.Parse(buf)
	if err != nil {
		return nil, err
	}
	return &Toolkit{Module: m, raw: buf, hash: cache.ModuleHash(buf)}, nil
}

// Serialize re-encodes the toolkit's module. Equivalent to
// spec §6.3's serialize(Module).
func (t *Toolkit) Serialize() []byte { return module.Serialize(t.Module) }

// WithCache attaches c so pseudo-code and disasm lookups are memoized.
func (t *Toolkit) WithCache(c *cache.Cache) *Toolkit {
	t.Cache = c
	return t
}

func (t *Toolkit) function(findex int) (*bytecode.Function, error) {
	f := t.Module.Function(findex)
	if f == nil {
		return nil, hlerrors.New(hlerrors.InvalidReference, "no function with index %d", findex).
			At(hlerrors.Location{Offset: -1, FIndex: findex, OpIndex: -1})
	}
	return f, nil
}

// CFG builds the control-flow graph for function findex. Equivalent to
// spec §6.3's cfg_of(Module, findex).
func (t *Toolkit) CFG(findex int) (*cfg.Graph, error) {
	f, err := t.function(findex)
	if err != nil {
		return nil, err
	}
	return cfg.Build(f)
}

// IR lifts and optimizes function findex. Equivalent to spec §6.3's
// ir_of(Module, findex) ("runs lifter + optimizers").
func (t *Toolkit) IR(findex int) (*ir.Block, error) {
	f, err := t.function(findex)
	if err != nil {
		return nil, err
	}
	body, _, err := lifter.Lift(t.Module, f)
	if err != nil {
		return nil, err
	}
	return optimize.Run(t.Module, f, body), nil
}

// Pseudo renders function findex as pseudo-code. Equivalent to spec
// §6.3's pseudo_of(Module, findex). Consults/fills the cache when one is
// attached.
func (t *Toolkit) Pseudo(findex int) (string, error) {
	if t.Cache != nil {
		if content, found, err := t.Cache.Get(t.hash, findex, cache.KindPseudo); err == nil && found {
			return content, nil
		}
	}
	f, err := t.function(findex)
	if err != nil {
		return "", err
	}
	body, err := t.IR(findex)
	if err != nil {
		return "", err
	}
	out := emit.Function(t.Module, f, body)
	if t.Cache != nil {
		_ = t.Cache.Put(t.hash, findex, cache.KindPseudo, out)
	}
	return out, nil
}

// Disasm renders function findex's raw op listing. Equivalent to spec
// §6.3's disasm_of(Module, findex).
func (t *Toolkit) Disasm(findex int) (string, error) {
	if t.Cache != nil {
		if content, found, err := t.Cache.Get(t.hash, findex, cache.KindDisasm); err == nil && found {
			return content, nil
		}
	}
	f, err := t.function(findex)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := disasm.Function(t.Module, f, &sb); err != nil {
		return "", err
	}
	out := sb.String()
	if t.Cache != nil {
		_ = t.Cache.Put(t.hash, findex, cache.KindDisasm, out)
	}
	return out, nil
}

// Stats summarizes the module: pool sizes, function/type counts, and
// humanized byte totals, useful for inspecting an unfamiliar file before
// decompiling it.
type Stats struct {
	Version        int
	FunctionCount  int
	TypeCount      int
	GlobalCount    int
	NativeCount    int
	IntCount       int
	FloatCount     int
	StringCount    int
	RawSize        string // humanized byte size of the parsed buffer
	DebugCoverage  string // humanized fraction of functions with debug info
}

// Stats computes a read-only summary of the toolkit's module.
func (t *Toolkit) Stats() Stats {
	m := t.Module
	withDebug := 0
	for _, f := range m.Functions {
		if len(f.DebugInfo) > 0 {
			withDebug++
		}
	}
	coverage := "n/a"
	if len(m.Functions) > 0 {
		pct := 100 * float64(withDebug) / float64(len(m.Functions))
		coverage = fmt.Sprintf("%.1f%%", pct)
	}
	return Stats{
		Version:       m.Version,
		FunctionCount: len(m.Functions),
		TypeCount:     m.Types.Len(),
		GlobalCount:   len(m.Globals),
		NativeCount:   len(m.Natives),
		IntCount:      len(m.Ints),
		FloatCount:    len(m.Floats),
		StringCount:   len(m.Strings),
		RawSize:       humanize.Bytes(uint64(len(t.raw))),
		DebugCoverage: coverage,
	}
}
