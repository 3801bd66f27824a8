package bytecode

import (
	"fmt"

	hlerrors "github.com/N3rdL0rd/crashlink/internal/errors"
	"github.com/N3rdL0rd/crashlink/internal/varint"
)

// Instr is one decoded instruction: an opcode tag plus its fields in schema
// order, with the variadic portion (if any) held separately in List.
//
// When Op is OUnknown, the instruction is an opaque capture of a tag this
// codec's Schemas table does not recognize (spec §7 UnsupportedOpcode): the
// raw tag and raw field bytes are kept so Serialize can still reproduce the
// original bytes exactly, even though nothing in the lifter can interpret
// the instruction's meaning.
type Instr struct {
	Op     Op
	Fixed  []int32
	List   []int32
	Trail  []int32
	RawTag byte
	Raw    []byte // only set when Op == OUnknown

	// Widths records the on-disk width of every varint field read by
	// ReadInstr, in encounter order (fixed fields, then the variadic count
	// and its values, then trailing fields), so WriteInstr can replay a
	// bit-exact round trip (spec §4.1) instead of canonicalizing.
	Widths *varint.WidthTrace
}

// Field looks up a fixed-field value by schema name. It panics if name is
// not a fixed field of Op's schema; callers are expected to pass schema
// field names known at compile time.
func (in *Instr) Field(name string) int32 {
	sch, ok := Schemas[in.Op]
	if !ok {
		panic(fmt.Sprintf("no schema for %v", in.Op))
	}
	for i, f := range sch.Fixed {
		if f.Name == name {
			return in.Fixed[i]
		}
	}
	for i, f := range sch.Trailing {
		if f.Name == name {
			return in.Trail[i]
		}
	}
	panic(fmt.Sprintf("%v has no field %q", in.Op, name))
}

// ReadInstr decodes one instruction from r according to its tag byte and
// the matching Schemas entry. A tag with no schema, or one not available at
// version, is an UnsupportedOpcode error; the instruction returned with it
// is an OUnknown placeholder carrying only the raw tag, since the codec
// cannot know the unknown opcode's field count and so cannot read past it.
func ReadInstr(r *varint.Reader, version int) (*Instr, error) {
	tagByte, err := r.Byte()
	if err != nil {
		return nil, err
	}
	op := Op(tagByte)
	sch, ok := Schemas[op]
	if !ok || !op.AvailableAt(version) {
		return &Instr{Op: OUnknown, RawTag: tagByte}, hlerrors.New(hlerrors.UnsupportedOpcode,
			"opcode tag %d not defined for version %d", tagByte, version)
	}

	wt := varint.NewWidthTrace()
	in := &Instr{Op: op, Widths: wt}
	in.Fixed = make([]int32, len(sch.Fixed))
	for i, f := range sch.Fixed {
		v, err := readField(r, f.Kind, wt)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", op, f.Name, err)
		}
		in.Fixed[i] = v
	}

	if sch.Variadic != nil {
		n, err := r.IndexTrace(wt)
		if err != nil {
			return nil, fmt.Errorf("%s.%s count: %w", op, sch.Variadic.Name, err)
		}
		in.List = make([]int32, n)
		for i := range in.List {
			v, err := readField(r, sch.Variadic.Kind, wt)
			if err != nil {
				return nil, fmt.Errorf("%s.%s[%d]: %w", op, sch.Variadic.Name, i, err)
			}
			in.List[i] = v
		}
	}

	if len(sch.Trailing) > 0 {
		in.Trail = make([]int32, len(sch.Trailing))
		for i, f := range sch.Trailing {
			v, err := readField(r, f.Kind, wt)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", op, f.Name, err)
			}
			in.Trail[i] = v
		}
	}

	return in, nil
}

// WriteInstr is the exact inverse of ReadInstr.
func WriteInstr(w *varint.Writer, in *Instr) {
	if in.Op == OUnknown {
		w.Byte(in.RawTag)
		w.RawBytes(in.Raw)
		return
	}

	wt := in.Widths
	wt.Reset()

	sch := Schemas[in.Op]
	w.Byte(byte(in.Op))
	for i, f := range sch.Fixed {
		writeField(w, f.Kind, in.Fixed[i], wt)
	}
	if sch.Variadic != nil {
		w.IndexTrace(wt, len(in.List))
		for _, v := range in.List {
			writeField(w, sch.Variadic.Kind, v, wt)
		}
	}
	for i, f := range sch.Trailing {
		writeField(w, f.Kind, in.Trail[i], wt)
	}
}

func readField(r *varint.Reader, kind FieldKind, wt *varint.WidthTrace) (int32, error) {
	switch kind {
	case FOffset, FOffsetList:
		return r.VarIntTrace(wt)
	default:
		v, err := r.IndexTrace(wt)
		return int32(v), err
	}
}

func writeField(w *varint.Writer, kind FieldKind, v int32, wt *varint.WidthTrace) {
	switch kind {
	case FOffset, FOffsetList:
		w.VarIntTrace(wt, v)
	default:
		w.IndexTrace(wt, int(v))
	}
}
