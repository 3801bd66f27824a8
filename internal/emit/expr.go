package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/N3rdL0rd/crashlink/internal/ir"
	"github.com/N3rdL0rd/crashlink/internal/module"
)

// Precedence levels, loosely C-like, high binds tighter. Used only to
// decide whether a child expression needs parens around it; the emitter
// is not trying to reproduce Haxe's exact grammar, only to stay
// unambiguous and readable.
const (
	precLowest = iota
	precOr
	precAnd
	precCompare
	precAdd
	precMulShift
	precUnary
	precPrimary
)

func arithPrec(op ir.ArithOp) int {
	switch op {
	case ir.Add, ir.Sub:
		return precAdd
	case ir.Mul, ir.SDiv, ir.UDiv, ir.SMod, ir.UMod:
		return precMulShift
	case ir.Shl, ir.SShr, ir.UShr, ir.BitAnd, ir.BitOr, ir.BitXor:
		return precMulShift
	default:
		return precAdd
	}
}

// expr renders e, wrapping it in parens if its own precedence is lower
// than parentPrec (i.e. it would otherwise bind looser than its context
// requires).
func expr(m *module.Module, e ir.Expr, parentPrec int) string {
	s, p := renderExpr(m, e)
	if p < parentPrec {
		return "(" + s + ")"
	}
	return s
}

func renderExpr(m *module.Module, e ir.Expr) (string, int) {
	switch x := e.(type) {
	case nil:
		return "null", precPrimary
	case *ir.Const:
		return renderConst(x), precPrimary
	case *ir.Local:
		return x.Name, precPrimary
	case *ir.Arg:
		return fmt.Sprintf("arg%d", x.Index), precPrimary
	case *ir.Field:
		return expr(m, x.Obj, precPrimary) + "." + x.FieldName, precPrimary
	case *ir.Arithmetic:
		p := arithPrec(x.Op)
		return expr(m, x.A, p) + " " + x.Op.String() + " " + expr(m, x.B, p+1), p
	case *ir.Comparison:
		return expr(m, x.A, precCompare+1) + " " + x.Op.String() + " " + expr(m, x.B, precCompare+1), precCompare
	case *ir.Call:
		return renderCall(m, x), precPrimary
	case *ir.New:
		return "new " + m.Types.Name(x.TypeIdx, m.String) + "()", precPrimary
	case *ir.Cast:
		return renderCast(m, x), precUnary
	case *ir.Closure:
		if x.Obj == nil {
			return x.Method, precPrimary
		}
		return expr(m, x.Obj, precPrimary) + "." + x.Method, precPrimary
	case *ir.EnumConstruct:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = expr(m, a, precLowest)
		}
		return x.Construct + "(" + strings.Join(args, ", ") + ")", precPrimary
	case *ir.EnumField:
		return expr(m, x.Value, precPrimary) + "." + x.Construct + "#" + strconv.Itoa(x.FieldIdx), precPrimary
	case *ir.Raw:
		return x.Text, precPrimary
	case *ir.Unary:
		return x.Op.String() + expr(m, x.X, precUnary), precUnary
	case *ir.FuncRef:
		if x.Name != "" {
			return x.Name, precPrimary
		}
		return fmt.Sprintf("f@%d", x.FIndex), precPrimary
	case *ir.GlobalRef:
		if x.Name != "" {
			return x.Name, precPrimary
		}
		return fmt.Sprintf("global@%d", x.Index), precPrimary
	case *ir.ArrayAccess:
		return expr(m, x.Arr, precPrimary) + "[" + expr(m, x.Idx, precLowest) + "]", precPrimary
	case *ir.DynField:
		return fmt.Sprintf("%s.?%d", expr(m, x.Obj, precPrimary), x.Hash), precPrimary
	case *ir.RefOf:
		return "&" + expr(m, x.X, precUnary), precUnary
	case *ir.Deref:
		return "*" + expr(m, x.X, precUnary), precUnary
	case *ir.TypeOf:
		return "typeof(" + expr(m, x.X, precLowest) + ")", precPrimary
	case *ir.EnumTag:
		return expr(m, x.X, precPrimary) + ".tag", precPrimary
	default:
		return fmt.Sprintf("/* unrenderable expr %T */", e), precPrimary
	}
}

func renderConst(c *ir.Const) string {
	switch {
	case c.IsInt:
		return strconv.FormatInt(int64(c.Int), 10)
	case c.IsFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case c.IsString:
		return strconv.Quote(c.Str)
	case c.IsBool:
		return strconv.FormatBool(c.Bool)
	case c.IsBytes:
		return fmt.Sprintf("bytes(%d)", len(c.Bytes))
	case c.IsNull:
		return "null"
	default:
		return "null"
	}
}

func renderCall(m *module.Module, c *ir.Call) string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = expr(m, a, precLowest)
	}
	argList := strings.Join(args, ", ")
	switch c.Kind {
	case ir.CallThis:
		return "this." + c.Method + "(" + argList + ")"
	case ir.CallMethod:
		return expr(m, c.Callee, precPrimary) + "." + c.Method + "(" + argList + ")"
	case ir.CallClosure:
		return expr(m, c.Callee, precPrimary) + "(" + argList + ")"
	default: // CallStatic
		return expr(m, c.Callee, precPrimary) + "(" + argList + ")"
	}
}

func renderCast(m *module.Module, c *ir.Cast) string {
	switch c.Kind {
	case ir.CastDyn:
		return "(dyn)" + expr(m, c.Src, precUnary)
	case ir.CastSafe:
		return "(" + m.Types.Name(c.TypeIdx, m.String) + ")" + expr(m, c.Src, precUnary)
	case ir.CastUnsafe:
		return "(" + m.Types.Name(c.TypeIdx, m.String) + " as unsafe)" + expr(m, c.Src, precUnary)
	default: // CastNum
		return "(" + m.Types.Name(c.TypeIdx, m.String) + ")" + expr(m, c.Src, precUnary)
	}
}
