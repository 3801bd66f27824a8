package optimize

import "github.com/N3rdL0rd/crashlink/internal/ir"

// foldConstants is pass 2 (spec §4.6): evaluate Arithmetic/Comparison
// expressions whose operands are both Const, for ints, floats, and bools
// only — every other operand shape is left untouched.
func foldConstants(body *ir.Block) *ir.Block {
	transformAllExprs(body, func(e ir.Expr) ir.Expr {
		switch x := e.(type) {
		case *ir.Arithmetic:
			if folded, ok := foldArithmetic(x); ok {
				return folded
			}
		case *ir.Comparison:
			if folded, ok := foldComparison(x); ok {
				return folded
			}
		}
		return e
	})
	return body
}

func foldArithmetic(x *ir.Arithmetic) (*ir.Const, bool) {
	a, aok := x.A.(*ir.Const)
	b, bok := x.B.(*ir.Const)
	if !aok || !bok {
		return nil, false
	}
	if a.IsInt && b.IsInt {
		if v, ok := foldIntArith(x.Op, a.Int, b.Int); ok {
			return &ir.Const{IsInt: true, Int: v}, true
		}
		return nil, false
	}
	if a.IsFloat && b.IsFloat {
		if v, ok := foldFloatArith(x.Op, a.Float, b.Float); ok {
			return &ir.Const{IsFloat: true, Float: v}, true
		}
	}
	return nil, false
}

func foldIntArith(op ir.ArithOp, a, b int32) (int32, bool) {
	switch op {
	case ir.Add:
		return a + b, true
	case ir.Sub:
		return a - b, true
	case ir.Mul:
		return a * b, true
	case ir.SDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case ir.UDiv:
		if b == 0 {
			return 0, false
		}
		return int32(uint32(a) / uint32(b)), true
	case ir.SMod:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case ir.UMod:
		if b == 0 {
			return 0, false
		}
		return int32(uint32(a) % uint32(b)), true
	case ir.Shl:
		return a << uint32(b), true
	case ir.SShr:
		return a >> uint32(b), true
	case ir.UShr:
		return int32(uint32(a) >> uint32(b)), true
	case ir.BitAnd:
		return a & b, true
	case ir.BitOr:
		return a | b, true
	case ir.BitXor:
		return a ^ b, true
	default:
		return 0, false
	}
}

func foldFloatArith(op ir.ArithOp, a, b float64) (float64, bool) {
	switch op {
	case ir.Add:
		return a + b, true
	case ir.Sub:
		return a - b, true
	case ir.Mul:
		return a * b, true
	case ir.SDiv, ir.UDiv:
		return a / b, true
	default:
		return 0, false
	}
}

func foldComparison(x *ir.Comparison) (*ir.Const, bool) {
	a, aok := x.A.(*ir.Const)
	b, bok := x.B.(*ir.Const)
	if !aok || !bok {
		return nil, false
	}
	if a.IsInt && b.IsInt {
		return &ir.Const{IsBool: true, Bool: compareInts(x.Op, a.Int, b.Int)}, true
	}
	if a.IsFloat && b.IsFloat {
		return &ir.Const{IsBool: true, Bool: compareFloats(x.Op, a.Float, b.Float)}, true
	}
	if a.IsBool && b.IsBool && (x.Op == ir.CmpEq || x.Op == ir.CmpNotEq) {
		eq := a.Bool == b.Bool
		if x.Op == ir.CmpEq {
			return &ir.Const{IsBool: true, Bool: eq}, true
		}
		return &ir.Const{IsBool: true, Bool: !eq}, true
	}
	return nil, false
}

func compareInts(op ir.CompareOp, a, b int32) bool {
	switch op {
	case ir.CmpEq:
		return a == b
	case ir.CmpNotEq:
		return a != b
	case ir.CmpSLt:
		return a < b
	case ir.CmpSGte:
		return a >= b
	case ir.CmpSGt:
		return a > b
	case ir.CmpSLte:
		return a <= b
	case ir.CmpULt:
		return uint32(a) < uint32(b)
	case ir.CmpUGte:
		return uint32(a) >= uint32(b)
	default:
		return false
	}
}

func compareFloats(op ir.CompareOp, a, b float64) bool {
	switch op {
	case ir.CmpEq:
		return a == b
	case ir.CmpNotEq:
		return a != b
	case ir.CmpSLt, ir.CmpULt:
		return a < b
	case ir.CmpSGte, ir.CmpUGte:
		return a >= b
	case ir.CmpSGt:
		return a > b
	case ir.CmpSLte:
		return a <= b
	default:
		return false
	}
}
