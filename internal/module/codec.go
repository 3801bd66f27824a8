package module

import (
	"fmt"

	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	hlerrors "github.com/N3rdL0rd/crashlink/internal/errors"
	"github.com/N3rdL0rd/crashlink/internal/hltype"
	"github.com/N3rdL0rd/crashlink/internal/varint"
)

// Parse decodes a complete module from buf. It never mutates buf.
func Parse(buf []byte) (*Module, error) {
	r := varint.NewReader(buf)

	magic, err := r.Bytes(3)
	if err != nil {
		return nil, hlerrors.Malformed(r.Pos(), "truncated header: %v", err)
	}
	if magic[0] != Magic[0] || magic[1] != Magic[1] || magic[2] != Magic[2] {
		return nil, hlerrors.Malformed(0, "bad magic %q, want %q", magic, Magic[:])
	}

	versionByte, err := r.Byte()
	if err != nil {
		return nil, hlerrors.Malformed(r.Pos(), "truncated version byte")
	}
	version := int(versionByte)
	if version < MinVersion || version > MaxVersion {
		return nil, hlerrors.Malformed(r.Pos()-1, "unsupported module version %d", version)
	}

	wt := varint.NewWidthTrace()

	flags, err := r.IndexTrace(wt)
	if err != nil {
		return nil, hlerrors.Malformed(r.Pos(), "flags: %v", err)
	}

	m := New(version)
	m.HasDebug = flags&flagHasDebug != 0
	m.Widths = wt

	nints, err := r.IndexTrace(wt)
	if err != nil {
		return nil, hlerrors.Malformed(r.Pos(), "nints: %v", err)
	}
	nfloats, err := r.IndexTrace(wt)
	if err != nil {
		return nil, hlerrors.Malformed(r.Pos(), "nfloats: %v", err)
	}
	nstrings, err := r.IndexTrace(wt)
	if err != nil {
		return nil, hlerrors.Malformed(r.Pos(), "nstrings: %v", err)
	}
	nbytes := 0
	if version >= 5 {
		if nbytes, err = r.IndexTrace(wt); err != nil {
			return nil, hlerrors.Malformed(r.Pos(), "nbytes: %v", err)
		}
	}
	ndebugfiles := 0
	if m.HasDebug {
		if ndebugfiles, err = r.IndexTrace(wt); err != nil {
			return nil, hlerrors.Malformed(r.Pos(), "ndebugfiles: %v", err)
		}
	}
	ntypes, err := r.IndexTrace(wt)
	if err != nil {
		return nil, hlerrors.Malformed(r.Pos(), "ntypes: %v", err)
	}
	nglobals, err := r.IndexTrace(wt)
	if err != nil {
		return nil, hlerrors.Malformed(r.Pos(), "nglobals: %v", err)
	}
	nnatives, err := r.IndexTrace(wt)
	if err != nil {
		return nil, hlerrors.Malformed(r.Pos(), "nnatives: %v", err)
	}
	nfunctions, err := r.IndexTrace(wt)
	if err != nil {
		return nil, hlerrors.Malformed(r.Pos(), "nfunctions: %v", err)
	}
	nconstants := 0
	if version >= 4 {
		if nconstants, err = r.IndexTrace(wt); err != nil {
			return nil, hlerrors.Malformed(r.Pos(), "nconstants: %v", err)
		}
	}
	entrypoint, err := r.IndexTrace(wt)
	if err != nil {
		return nil, hlerrors.Malformed(r.Pos(), "entrypoint: %v", err)
	}
	m.Entrypoint = entrypoint

	m.Ints = make([]int32, nints)
	for i := range m.Ints {
		if m.Ints[i], err = r.I32(); err != nil {
			return nil, hlerrors.Malformed(r.Pos(), "ints[%d]: %v", i, err)
		}
	}

	m.Floats = make([]float64, nfloats)
	for i := range m.Floats {
		if m.Floats[i], err = r.F64(); err != nil {
			return nil, hlerrors.Malformed(r.Pos(), "floats[%d]: %v", i, err)
		}
	}

	m.Strings, err = r.StringPool(nstrings)
	if err != nil {
		return nil, hlerrors.Malformed(r.Pos(), "string pool: %v", err)
	}

	if version >= 5 {
		m.Bytes, err = r.BytesPool(nbytes)
		if err != nil {
			return nil, hlerrors.Malformed(r.Pos(), "bytes pool: %v", err)
		}
	}

	if m.HasDebug {
		m.DebugFiles, err = r.StringPool(ndebugfiles)
		if err != nil {
			return nil, hlerrors.Malformed(r.Pos(), "debug files: %v", err)
		}
	}

	m.Types, err = hltype.ReadTable(r, ntypes)
	if err != nil {
		return nil, fmt.Errorf("types: %w", err)
	}

	m.Globals = make([]int, nglobals)
	for i := range m.Globals {
		if m.Globals[i], err = r.IndexTrace(wt); err != nil {
			return nil, hlerrors.Malformed(r.Pos(), "globals[%d]: %v", i, err)
		}
	}

	m.Natives = make([]Native, nnatives)
	for i := range m.Natives {
		lib, err := r.IndexTrace(wt)
		if err != nil {
			return nil, hlerrors.Malformed(r.Pos(), "natives[%d].lib: %v", i, err)
		}
		name, err := r.IndexTrace(wt)
		if err != nil {
			return nil, hlerrors.Malformed(r.Pos(), "natives[%d].name: %v", i, err)
		}
		typeIdx, err := r.IndexTrace(wt)
		if err != nil {
			return nil, hlerrors.Malformed(r.Pos(), "natives[%d].type: %v", i, err)
		}
		findex, err := r.IndexTrace(wt)
		if err != nil {
			return nil, hlerrors.Malformed(r.Pos(), "natives[%d].findex: %v", i, err)
		}
		m.Natives[i] = Native{LibIdx: lib, NameIdx: name, TypeIdx: typeIdx, FIndex: findex}
	}

	m.Functions = make([]*bytecode.Function, nfunctions)
	for i := range m.Functions {
		f, err := bytecode.ReadFunction(r, version)
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", i, err)
		}
		m.Functions[i] = f
	}

	if version >= 4 {
		m.Constants = make([]Constant, nconstants)
		for i := range m.Constants {
			global, err := r.IndexTrace(wt)
			if err != nil {
				return nil, hlerrors.Malformed(r.Pos(), "constants[%d].global: %v", i, err)
			}
			nfields, err := r.IndexTrace(wt)
			if err != nil {
				return nil, hlerrors.Malformed(r.Pos(), "constants[%d].nfields: %v", i, err)
			}
			fields := make([]int, nfields)
			for j := range fields {
				if fields[j], err = r.IndexTrace(wt); err != nil {
					return nil, hlerrors.Malformed(r.Pos(), "constants[%d].fields[%d]: %v", i, j, err)
				}
			}
			m.Constants[i] = Constant{Global: global, Fields: fields}
		}
	}

	return m, nil
}

// Serialize re-encodes m. Reserializing a module returned by Parse without
// modification produces byte-identical output to the original input: m.Widths
// carries the on-disk width of every header/pool-index varint Parse
// consumed, and every write below replays that same width instead of
// canonicalizing to minimal form (spec §4.1). A field with no recorded
// width — anything appended or changed after Parse — is written minimally.
func Serialize(m *Module) []byte {
	wt := m.Widths
	wt.Reset()

	w := varint.NewWriter()
	w.RawBytes(Magic[:])
	w.Byte(byte(m.Version))

	flags := 0
	if m.HasDebug {
		flags |= flagHasDebug
	}
	w.IndexTrace(wt, flags)

	w.IndexTrace(wt, len(m.Ints))
	w.IndexTrace(wt, len(m.Floats))
	w.IndexTrace(wt, len(m.Strings))
	if m.Version >= 5 {
		w.IndexTrace(wt, len(m.Bytes))
	}
	if m.HasDebug {
		w.IndexTrace(wt, len(m.DebugFiles))
	}
	w.IndexTrace(wt, m.Types.Len())
	w.IndexTrace(wt, len(m.Globals))
	w.IndexTrace(wt, len(m.Natives))
	w.IndexTrace(wt, len(m.Functions))
	if m.Version >= 4 {
		w.IndexTrace(wt, len(m.Constants))
	}
	w.IndexTrace(wt, m.Entrypoint)

	for _, v := range m.Ints {
		w.I32(v)
	}
	for _, v := range m.Floats {
		w.F64(v)
	}
	w.WriteStringPool(m.Strings)
	if m.Version >= 5 {
		w.WriteBytesPool(m.Bytes)
	}
	if m.HasDebug {
		w.WriteStringPool(m.DebugFiles)
	}

	hltype.WriteTable(w, m.Types)

	for _, g := range m.Globals {
		w.IndexTrace(wt, g)
	}
	for _, n := range m.Natives {
		w.IndexTrace(wt, n.LibIdx)
		w.IndexTrace(wt, n.NameIdx)
		w.IndexTrace(wt, n.TypeIdx)
		w.IndexTrace(wt, n.FIndex)
	}
	for _, f := range m.Functions {
		bytecode.WriteFunction(w, f, m.Version)
	}
	if m.Version >= 4 {
		for _, c := range m.Constants {
			w.IndexTrace(wt, c.Global)
			w.IndexTrace(wt, len(c.Fields))
			for _, fld := range c.Fields {
				w.IndexTrace(wt, fld)
			}
		}
	}

	return w.Bytes()
}
