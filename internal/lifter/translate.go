package lifter

import (
	"fmt"

	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	"github.com/N3rdL0rd/crashlink/internal/cfg"
	"github.com/N3rdL0rd/crashlink/internal/hltype"
	"github.com/N3rdL0rd/crashlink/internal/ir"
	"github.com/N3rdL0rd/crashlink/internal/module"
)

var arithOps = map[bytecode.Op]ir.ArithOp{
	bytecode.OAdd: ir.Add, bytecode.OSub: ir.Sub, bytecode.OMul: ir.Mul,
	bytecode.OSDiv: ir.SDiv, bytecode.OUDiv: ir.UDiv, bytecode.OSMod: ir.SMod,
	bytecode.OUMod: ir.UMod, bytecode.OShl: ir.Shl, bytecode.OSShr: ir.SShr,
	bytecode.OUShr: ir.UShr, bytecode.OAnd: ir.BitAnd, bytecode.OOr: ir.BitOr,
	bytecode.OXor: ir.BitXor,
}

var compareOps = map[bytecode.Op]ir.CompareOp{
	bytecode.OJEq: ir.CmpEq, bytecode.OJNotEq: ir.CmpNotEq,
	bytecode.OJSLt: ir.CmpSLt, bytecode.OJSGte: ir.CmpSGte,
	bytecode.OJSGt: ir.CmpSGt, bytecode.OJSLte: ir.CmpSLte,
	bytecode.OJULt: ir.CmpULt, bytecode.OJUGte: ir.CmpUGte,
}

// controlOnly reports whether op carries no data-producing effect of its
// own and is handled entirely by Phase B via the CFG edge structure.
func controlOnly(op bytecode.Op) bool {
	switch op {
	case bytecode.OJTrue, bytecode.OJFalse, bytecode.OJNull, bytecode.OJNotNull,
		bytecode.OJSLt, bytecode.OJSGte, bytecode.OJSGt, bytecode.OJSLte,
		bytecode.OJULt, bytecode.OJUGte, bytecode.OJNotLt, bytecode.OJNotGte,
		bytecode.OJEq, bytecode.OJNotEq, bytecode.OJAlways,
		bytecode.OSwitch, bytecode.OTrap, bytecode.OEndTrap,
		bytecode.OLabel, bytecode.ONop:
		return true
	default:
		return false
	}
}

// translateBlock runs Phase A over one block, producing a flat statement
// list. The block's final op is only included if it is itself
// data-producing (Ret/Throw/Rethrow); pure control ops are consumed by
// Phase B via the CFG edges instead.
func translateBlock(ctx *Context, b *cfg.Block) []ir.Stmt {
	f := ctx.Function
	m := ctx.Module
	var stmts []ir.Stmt

	for i, in := range b.Ops {
		opIndex := b.Start + i
		if controlOnly(in.Op) && in.Op != bytecode.ORet && in.Op != bytecode.OThrow && in.Op != bytecode.ORethrow {
			continue
		}
		stmt, ok := translateOp(m, f, in)
		if ok {
			stmts = append(stmts, stmt)
			continue
		}
		stmts = append(stmts, &ir.UntranslatedOpcode{
			OpName: in.Op.String(),
			OpText: fmt.Sprintf("%s op at index %d", in.Op, opIndex),
		})
	}
	return stmts
}

func translateOp(m *module.Module, f *bytecode.Function, in *bytecode.Instr) (ir.Stmt, bool) {
	reg := func(name string) *ir.Local { return localExpr(f, int(in.Field(name))) }

	switch in.Op {
	case bytecode.OMov:
		return &ir.Assign{Dst: reg("dst"), Src: reg("src")}, true

	case bytecode.OInt:
		idx := int(in.Field("ptr"))
		var v int32
		if idx >= 0 && idx < len(m.Ints) {
			v = m.Ints[idx]
		}
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Const{IsInt: true, Int: v}}, true

	case bytecode.OFloat:
		idx := int(in.Field("ptr"))
		var v float64
		if idx >= 0 && idx < len(m.Floats) {
			v = m.Floats[idx]
		}
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Const{IsFloat: true, Float: v}}, true

	case bytecode.OBool:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Const{IsBool: true, Bool: in.Field("value") != 0}}, true

	case bytecode.OString:
		idx := int(in.Field("ptr"))
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Const{IsString: true, Str: m.String(idx)}}, true

	case bytecode.OBytes:
		idx := int(in.Field("ptr"))
		var b []byte
		if idx >= 0 && idx < len(m.Bytes) {
			b = m.Bytes[idx]
		}
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Const{IsBytes: true, Bytes: b}}, true

	case bytecode.ONull:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Const{IsNull: true}}, true

	case bytecode.OAdd, bytecode.OSub, bytecode.OMul, bytecode.OSDiv, bytecode.OUDiv,
		bytecode.OSMod, bytecode.OUMod, bytecode.OShl, bytecode.OSShr, bytecode.OUShr,
		bytecode.OAnd, bytecode.OOr, bytecode.OXor:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Arithmetic{Op: arithOps[in.Op], A: reg("a"), B: reg("b")}}, true

	case bytecode.ONeg:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Unary{Op: ir.UnaryNeg, X: reg("src")}}, true
	case bytecode.ONot:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Unary{Op: ir.UnaryNot, X: reg("src")}}, true

	case bytecode.OIncr:
		d := reg("dst")
		return &ir.Assign{Dst: d, Src: &ir.Arithmetic{Op: ir.Add, A: d, B: &ir.Const{IsInt: true, Int: 1}}}, true
	case bytecode.ODecr:
		d := reg("dst")
		return &ir.Assign{Dst: d, Src: &ir.Arithmetic{Op: ir.Sub, A: d, B: &ir.Const{IsInt: true, Int: 1}}}, true

	case bytecode.OCall0, bytecode.OCall1, bytecode.OCall2, bytecode.OCall3, bytecode.OCall4:
		args := make([]ir.Expr, 0, 4)
		for _, name := range []string{"arg0", "arg1", "arg2", "arg3"} {
			if hasField(in, name) {
				args = append(args, localExpr(f, int(in.Field(name))))
			}
		}
		call := &ir.Call{Kind: ir.CallStatic, Callee: functionRef(m, int(in.Field("fun"))), Args: args}
		return &ir.Assign{Dst: reg("dst"), Src: call}, true

	case bytecode.OCallN:
		args := regList(f, in.List)
		call := &ir.Call{Kind: ir.CallStatic, Callee: functionRef(m, int(in.Field("fun"))), Args: args}
		return &ir.Assign{Dst: reg("dst"), Src: call}, true

	case bytecode.OCallMethod:
		args := regList(f, in.List)
		objReg := int(in.Field("obj"))
		call := &ir.Call{
			Kind:   ir.CallMethod,
			Callee: localExpr(f, objReg),
			Method: fieldName(m, f, objReg, int(in.Field("field"))),
			Args:   args,
		}
		return &ir.Assign{Dst: reg("dst"), Src: call}, true

	case bytecode.OCallThis:
		args := regList(f, in.List)
		call := &ir.Call{Kind: ir.CallThis, Method: fieldName(m, f, 0, int(in.Field("field"))), Args: args}
		return &ir.Assign{Dst: reg("dst"), Src: call}, true

	case bytecode.OCallClosure:
		args := regList(f, in.List)
		call := &ir.Call{Kind: ir.CallClosure, Callee: reg("closure"), Args: args}
		return &ir.Assign{Dst: reg("dst"), Src: call}, true

	case bytecode.OStaticClosure:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Closure{Method: functionRef(m, int(in.Field("fun"))).Name}}, true
	case bytecode.OInstanceClosure:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Closure{Obj: reg("obj"), Method: functionRef(m, int(in.Field("fun"))).Name}}, true
	case bytecode.OVirtualClosure:
		objReg := int(in.Field("obj"))
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Closure{Obj: reg("obj"), Method: fieldName(m, f, objReg, int(in.Field("field")))}}, true

	case bytecode.OGetGlobal:
		idx := int(in.Field("global"))
		return &ir.Assign{Dst: reg("dst"), Src: &ir.GlobalRef{Index: idx}}, true
	case bytecode.OSetGlobal:
		idx := int(in.Field("global"))
		return &ir.Assign{Dst: &ir.GlobalRef{Index: idx}, Src: reg("src")}, true

	case bytecode.OGetField:
		objReg := int(in.Field("obj"))
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Field{Obj: reg("obj"), FieldName: fieldName(m, f, objReg, int(in.Field("field")))}}, true
	case bytecode.OSetField:
		objReg := int(in.Field("obj"))
		return &ir.Assign{Dst: &ir.Field{Obj: reg("obj"), FieldName: fieldName(m, f, objReg, int(in.Field("field")))}, Src: reg("src")}, true
	case bytecode.OGetThis:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Field{Obj: localExpr(f, 0), FieldName: fieldName(m, f, 0, int(in.Field("field")))}}, true
	case bytecode.OSetThis:
		return &ir.Assign{Dst: &ir.Field{Obj: localExpr(f, 0), FieldName: fieldName(m, f, 0, int(in.Field("field")))}, Src: reg("src")}, true

	case bytecode.ODynGet:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.DynField{Obj: reg("obj"), Hash: in.Field("hash")}}, true
	case bytecode.ODynSet:
		return &ir.Assign{Dst: &ir.DynField{Obj: reg("obj"), Hash: in.Field("hash")}, Src: reg("src")}, true

	case bytecode.OGetArray:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.ArrayAccess{Arr: reg("arr"), Idx: reg("idx")}}, true
	case bytecode.OSetArray:
		return &ir.Assign{Dst: &ir.ArrayAccess{Arr: reg("arr"), Idx: reg("idx")}, Src: reg("src")}, true
	case bytecode.OArraySize:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Call{Kind: ir.CallMethod, Callee: reg("arr"), Method: "length"}}, true

	case bytecode.OGetType, bytecode.OGetTID:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.TypeOf{X: reg("obj")}}, true

	case bytecode.OToDyn:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Cast{Kind: ir.CastDyn, Src: reg("src")}}, true
	case bytecode.OToSFloat, bytecode.OToUFloat, bytecode.OToInt:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Cast{Kind: ir.CastNum, Src: reg("src"), TypeIdx: reg("dst").TypeIdx}}, true
	case bytecode.OSafeCast:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Cast{Kind: ir.CastSafe, Src: reg("src"), TypeIdx: reg("dst").TypeIdx}}, true
	case bytecode.OUnsafeCast, bytecode.OToVirtual:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Cast{Kind: ir.CastUnsafe, Src: reg("src"), TypeIdx: reg("dst").TypeIdx}}, true

	case bytecode.ORef:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.RefOf{X: reg("src")}}, true
	case bytecode.OUnref:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.Deref{X: reg("src")}}, true
	case bytecode.OSetref:
		return &ir.Assign{Dst: &ir.Deref{X: reg("dst")}, Src: reg("value")}, true

	case bytecode.ONew:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.New{TypeIdx: reg("dst").TypeIdx}}, true

	case bytecode.OMakeEnum:
		args := regList(f, in.List)
		typeIdx := reg("dst").TypeIdx
		return &ir.Assign{Dst: reg("dst"), Src: &ir.EnumConstruct{
			TypeIdx: typeIdx, Construct: constructName(m, typeIdx, int(in.Field("construct"))), Args: args,
		}}, true
	case bytecode.OEnumAlloc:
		typeIdx := reg("dst").TypeIdx
		return &ir.Assign{Dst: reg("dst"), Src: &ir.EnumConstruct{
			TypeIdx: typeIdx, Construct: constructName(m, typeIdx, int(in.Field("construct"))),
		}}, true
	case bytecode.OEnumIndex:
		return &ir.Assign{Dst: reg("dst"), Src: &ir.EnumTag{X: reg("value")}}, true
	case bytecode.OEnumField:
		valueReg := int(in.Field("value"))
		typeIdx := -1
		if valueReg >= 0 && valueReg < len(f.Regs) {
			typeIdx = f.Regs[valueReg]
		}
		return &ir.Assign{Dst: reg("dst"), Src: &ir.EnumField{
			Value: reg("value"), Construct: constructName(m, typeIdx, int(in.Field("construct"))), FieldIdx: int(in.Field("field")),
		}}, true
	case bytecode.OSetEnumField:
		valueReg := int(in.Field("value"))
		typeIdx := -1
		if valueReg >= 0 && valueReg < len(f.Regs) {
			typeIdx = f.Regs[valueReg]
		}
		return &ir.Assign{Dst: &ir.EnumField{
			Value: reg("value"), Construct: constructName(m, typeIdx, -1), FieldIdx: int(in.Field("field")),
		}, Src: reg("src")}, true

	case bytecode.ORet:
		val := reg("reg")
		if val.TypeIdx >= 0 {
			if t, err := m.Types.Get(val.TypeIdx); err == nil && t.Kind == hltype.KVoid {
				return &ir.Return{}, true
			}
		}
		return &ir.Return{Value: val}, true
	case bytecode.OThrow, bytecode.ORethrow:
		return &ir.Throw{Value: reg("reg")}, true

	case bytecode.ONullCheck:
		return &ir.ExprStmt{X: &ir.Call{
			Kind:   ir.CallStatic,
			Callee: &ir.FuncRef{Name: in.Op.String()},
			Args:   []ir.Expr{reg("reg")},
		}}, true
	case bytecode.OAssert:
		return &ir.ExprStmt{X: &ir.Call{Kind: ir.CallStatic, Callee: &ir.FuncRef{Name: in.Op.String()}}}, true

	default:
		return nil, false
	}
}

func hasField(in *bytecode.Instr, name string) bool {
	sch := bytecode.Schemas[in.Op]
	for _, f := range sch.Fixed {
		if f.Name == name {
			return true
		}
	}
	return false
}

func regList(f *bytecode.Function, regs []int32) []ir.Expr {
	out := make([]ir.Expr, len(regs))
	for i, r := range regs {
		out[i] = localExpr(f, int(r))
	}
	return out
}
