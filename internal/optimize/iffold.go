package optimize

import "github.com/N3rdL0rd/crashlink/internal/ir"

// foldConditionals is pass 6 (spec §4.6): a Conditional whose Cond has
// folded down to a Const bool replaces itself with just the taken branch.
func foldConditionals(body *ir.Block) *ir.Block {
	return foldConditionalsIn(body)
}

func foldConditionalsIn(b *ir.Block) *ir.Block {
	if b == nil {
		return nil
	}
	walkNestedBlocks(b, func(nb *ir.Block) *ir.Block { return foldConditionalsIn(nb) })

	out := make([]ir.Stmt, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		cond, ok := s.(*ir.Conditional)
		if !ok {
			out = append(out, s)
			continue
		}
		c, isConst := cond.Cond.(*ir.Const)
		if !isConst || !c.IsBool {
			out = append(out, cond)
			continue
		}
		taken := cond.Then
		if !c.Bool {
			taken = cond.Else
		}
		if taken != nil {
			out = append(out, taken.Stmts...)
		}
	}
	b.Stmts = out
	return b
}
