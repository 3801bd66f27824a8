package optimize

import "github.com/N3rdL0rd/crashlink/internal/ir"

// eliminateDeadStores is pass 3 (spec §4.6): a single-pass dead-store
// elimination using a whole-function use count. An Assign to a bare Local
// that is never read anywhere is dropped if its Src is pure, or demoted to
// a standalone ExprStmt if Src has a side effect (a call) that must still
// run.
func eliminateDeadStores(body *ir.Block) *ir.Block {
	uses := map[string]int{}
	countReadsInBlock(body, uses)
	return pruneDeadStores(body, uses)
}

func pruneDeadStores(b *ir.Block, uses map[string]int) *ir.Block {
	if b == nil {
		return nil
	}
	walkNestedBlocks(b, func(nb *ir.Block) *ir.Block { return pruneDeadStores(nb, uses) })

	kept := make([]ir.Stmt, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		assign, ok := s.(*ir.Assign)
		if !ok {
			kept = append(kept, s)
			continue
		}
		local, isLocal := assign.Dst.(*ir.Local)
		if !isLocal || uses[local.Name] > 0 {
			kept = append(kept, s)
			continue
		}
		if hasSideEffect(assign.Src) {
			kept = append(kept, &ir.ExprStmt{X: assign.Src})
			continue
		}
		// pure dead store: drop entirely
	}
	b.Stmts = kept
	return b
}
