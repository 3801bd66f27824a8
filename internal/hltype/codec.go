package hltype

import (
	"fmt"

	hlerrors "github.com/N3rdL0rd/crashlink/internal/errors"
	"github.com/N3rdL0rd/crashlink/internal/varint"
)

// ReadTable parses count Type entries in the on-disk form described by
// spec §3.2/§6.1: one tag byte followed by a kind-specific payload of
// varint-encoded fields.
func ReadTable(r *varint.Reader, count int) (*Table, error) {
	tb := NewTable()
	for i := 0; i < count; i++ {
		t, err := readOne(r)
		if err != nil {
			return nil, fmt.Errorf("type %d: %w", i, err)
		}
		tb.Add(*t)
	}
	return tb, nil
}

func readOne(r *varint.Reader) (*Type, error) {
	tag, err := r.Byte()
	if err != nil {
		return nil, err
	}
	kind := Kind(tag)

	if kind.IsPrimitive() {
		return &Type{Kind: kind}, nil
	}

	wt := varint.NewWidthTrace()

	switch kind {
	case KFun, KMethod:
		nargs, err := r.IndexTrace(wt)
		if err != nil {
			return nil, err
		}
		args := make([]int, nargs)
		for i := range args {
			if args[i], err = r.IndexTrace(wt); err != nil {
				return nil, err
			}
		}
		ret, err := r.IndexTrace(wt)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: kind, Fun: &FunType{Args: args, Ret: ret}, Widths: wt}, nil

	case KObj, KStruct:
		obj, err := readObj(r, wt)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: kind, Obj: obj, Widths: wt}, nil

	case KRef, KNull, KPacked:
		ref, err := r.IndexTrace(wt)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: kind, Ref: ref, Widths: wt}, nil

	case KVirtual:
		nfields, err := r.IndexTrace(wt)
		if err != nil {
			return nil, err
		}
		fields := make([]Field, nfields)
		for i := range fields {
			if fields[i], err = readField(r, wt); err != nil {
				return nil, err
			}
		}
		return &Type{Kind: kind, VirtualFields: fields, Widths: wt}, nil

	case KAbstract:
		name, err := r.IndexTrace(wt)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: kind, AbstractName: name, Widths: wt}, nil

	case KEnum:
		en, err := readEnum(r, wt)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: kind, Enum: en, Widths: wt}, nil

	default:
		return nil, hlerrors.New(hlerrors.UnsupportedOpcode, "unknown type tag %d", tag)
	}
}

func readField(r *varint.Reader, wt *varint.WidthTrace) (Field, error) {
	name, err := r.IndexTrace(wt)
	if err != nil {
		return Field{}, err
	}
	ty, err := r.IndexTrace(wt)
	if err != nil {
		return Field{}, err
	}
	return Field{NameIdx: name, TypeIdx: ty}, nil
}

func readObj(r *varint.Reader, wt *varint.WidthTrace) (*ObjType, error) {
	name, err := r.IndexTrace(wt)
	if err != nil {
		return nil, err
	}
	hasSuper, err := r.Byte()
	if err != nil {
		return nil, err
	}
	super := -1
	if hasSuper != 0 {
		if super, err = r.IndexTrace(wt); err != nil {
			return nil, err
		}
	}
	hasGlobal, err := r.Byte()
	if err != nil {
		return nil, err
	}
	global := -1
	if hasGlobal != 0 {
		if global, err = r.IndexTrace(wt); err != nil {
			return nil, err
		}
	}

	nfields, err := r.IndexTrace(wt)
	if err != nil {
		return nil, err
	}
	fields := make([]Field, nfields)
	for i := range fields {
		if fields[i], err = readField(r, wt); err != nil {
			return nil, err
		}
	}

	nprotos, err := r.IndexTrace(wt)
	if err != nil {
		return nil, err
	}
	protos := make([]Proto, nprotos)
	for i := range protos {
		pname, err := r.IndexTrace(wt)
		if err != nil {
			return nil, err
		}
		pfindex, err := r.IndexTrace(wt)
		if err != nil {
			return nil, err
		}
		ppindex, err := r.IndexTrace(wt)
		if err != nil {
			return nil, err
		}
		protos[i] = Proto{NameIdx: pname, FIndex: pfindex, PIndex: ppindex}
	}

	nbindings, err := r.IndexTrace(wt)
	if err != nil {
		return nil, err
	}
	bindings := make([]Binding, nbindings)
	for i := range bindings {
		field, err := r.IndexTrace(wt)
		if err != nil {
			return nil, err
		}
		findex, err := r.IndexTrace(wt)
		if err != nil {
			return nil, err
		}
		bindings[i] = Binding{FieldIdx: field, FIndex: findex}
	}

	return &ObjType{
		NameIdx: name, Super: super, GlobalValue: global, HasGlobal: hasGlobal != 0,
		Fields: fields, Protos: protos, Bindings: bindings,
	}, nil
}

func readEnum(r *varint.Reader, wt *varint.WidthTrace) (*EnumType, error) {
	name, err := r.IndexTrace(wt)
	if err != nil {
		return nil, err
	}
	global, err := r.IndexTrace(wt)
	if err != nil {
		return nil, err
	}
	nconstructs, err := r.IndexTrace(wt)
	if err != nil {
		return nil, err
	}
	constructs := make([]EnumConstruct, nconstructs)
	for i := range constructs {
		cname, err := r.IndexTrace(wt)
		if err != nil {
			return nil, err
		}
		nparams, err := r.IndexTrace(wt)
		if err != nil {
			return nil, err
		}
		params := make([]int, nparams)
		for j := range params {
			if params[j], err = r.IndexTrace(wt); err != nil {
				return nil, err
			}
		}
		constructs[i] = EnumConstruct{NameIdx: cname, Params: params}
	}
	return &EnumType{NameIdx: name, GlobalValue: global, Constructs: constructs}, nil
}

// WriteTable serializes every entry of tb in order, the exact inverse of
// ReadTable.
func WriteTable(w *varint.Writer, tb *Table) {
	for _, t := range tb.All() {
		writeOne(w, &t)
	}
}

func writeOne(w *varint.Writer, t *Type) {
	w.Byte(byte(t.Kind))

	if t.Kind.IsPrimitive() {
		return
	}

	wt := t.Widths
	wt.Reset()

	switch t.Kind {
	case KFun, KMethod:
		w.IndexTrace(wt, len(t.Fun.Args))
		for _, a := range t.Fun.Args {
			w.IndexTrace(wt, a)
		}
		w.IndexTrace(wt, t.Fun.Ret)

	case KObj, KStruct:
		writeObj(w, t.Obj, wt)

	case KRef, KNull, KPacked:
		w.IndexTrace(wt, t.Ref)

	case KVirtual:
		w.IndexTrace(wt, len(t.VirtualFields))
		for _, f := range t.VirtualFields {
			writeField(w, f, wt)
		}

	case KAbstract:
		w.IndexTrace(wt, t.AbstractName)

	case KEnum:
		writeEnum(w, t.Enum, wt)
	}
}

func writeField(w *varint.Writer, f Field, wt *varint.WidthTrace) {
	w.IndexTrace(wt, f.NameIdx)
	w.IndexTrace(wt, f.TypeIdx)
}

func writeObj(w *varint.Writer, o *ObjType, wt *varint.WidthTrace) {
	w.IndexTrace(wt, o.NameIdx)
	if o.Super >= 0 {
		w.Byte(1)
		w.IndexTrace(wt, o.Super)
	} else {
		w.Byte(0)
	}
	if o.HasGlobal {
		w.Byte(1)
		w.IndexTrace(wt, o.GlobalValue)
	} else {
		w.Byte(0)
	}

	w.IndexTrace(wt, len(o.Fields))
	for _, f := range o.Fields {
		writeField(w, f, wt)
	}

	w.IndexTrace(wt, len(o.Protos))
	for _, p := range o.Protos {
		w.IndexTrace(wt, p.NameIdx)
		w.IndexTrace(wt, p.FIndex)
		w.IndexTrace(wt, p.PIndex)
	}

	w.IndexTrace(wt, len(o.Bindings))
	for _, b := range o.Bindings {
		w.IndexTrace(wt, b.FieldIdx)
		w.IndexTrace(wt, b.FIndex)
	}
}

func writeEnum(w *varint.Writer, e *EnumType, wt *varint.WidthTrace) {
	w.IndexTrace(wt, e.NameIdx)
	w.IndexTrace(wt, e.GlobalValue)
	w.IndexTrace(wt, len(e.Constructs))
	for _, c := range e.Constructs {
		w.IndexTrace(wt, c.NameIdx)
		w.IndexTrace(wt, len(c.Params))
		for _, p := range c.Params {
			w.IndexTrace(wt, p)
		}
	}
}
