package optimize

import "github.com/N3rdL0rd/crashlink/internal/ir"

// canonicalizeComparisons is pass 5 (spec §4.6): when a Comparison has a
// constant on the left and a non-constant on the right, swap the operands
// and flip the operator to its mirror so constants consistently read on
// the right (`x < 5` instead of `5 > x`).
func canonicalizeComparisons(body *ir.Block) *ir.Block {
	transformAllExprs(body, func(e ir.Expr) ir.Expr {
		cmp, ok := e.(*ir.Comparison)
		if !ok {
			return e
		}
		_, aConst := cmp.A.(*ir.Const)
		_, bConst := cmp.B.(*ir.Const)
		if aConst && !bConst {
			if m, ok := mirror(cmp.Op); ok {
				cmp.A, cmp.B = cmp.B, cmp.A
				cmp.Op = m
			}
		}
		return cmp
	})
	return body
}

// mirror returns the comparison operator with its operand order reversed
// (a op b  ==  b mirror(op) a), when that operator is representable.
// CmpULt/CmpUGte have no representable mirror (the opcode catalog has no
// unsigned > or <= jump), so those are left uncanonicalized rather than
// mapped to a nonexistent operator.
func mirror(op ir.CompareOp) (ir.CompareOp, bool) {
	switch op {
	case ir.CmpEq, ir.CmpNotEq:
		return op, true
	case ir.CmpSLt:
		return ir.CmpSGt, true
	case ir.CmpSGt:
		return ir.CmpSLt, true
	case ir.CmpSLte:
		return ir.CmpSGte, true
	case ir.CmpSGte:
		return ir.CmpSLte, true
	default:
		return op, false
	}
}
