package optimize

import "github.com/N3rdL0rd/crashlink/internal/ir"

// removeRedundantMoves is pass 4 (spec §4.6): drop `x = x` assignments,
// and collapse `tmp = e; y = tmp` into `y = e` when tmp is read exactly
// once in the whole function (so folding its definition into the use site
// changes nothing observable).
func removeRedundantMoves(body *ir.Block) *ir.Block {
	uses := map[string]int{}
	countReadsInBlock(body, uses)
	return pruneRedundantMoves(body, uses)
}

func pruneRedundantMoves(b *ir.Block, uses map[string]int) *ir.Block {
	if b == nil {
		return nil
	}
	walkNestedBlocks(b, func(nb *ir.Block) *ir.Block { return pruneRedundantMoves(nb, uses) })

	kept := make([]ir.Stmt, 0, len(b.Stmts))
	for i := 0; i < len(b.Stmts); i++ {
		assign, ok := b.Stmts[i].(*ir.Assign)
		if !ok {
			kept = append(kept, b.Stmts[i])
			continue
		}
		if isSelfMove(assign) {
			continue
		}
		if tmp, isLocal := assign.Dst.(*ir.Local); isLocal && uses[tmp.Name] == 1 && i+1 < len(b.Stmts) {
			if next, ok := b.Stmts[i+1].(*ir.Assign); ok {
				if readsOnly(next.Src, tmp.Name) {
					next.Src = substituteLocal(next.Src, tmp.Name, assign.Src)
					kept = append(kept, next)
					i++
					continue
				}
			}
		}
		kept = append(kept, b.Stmts[i])
	}
	b.Stmts = kept
	return b
}

func isSelfMove(a *ir.Assign) bool {
	dst, ok := a.Dst.(*ir.Local)
	if !ok {
		return false
	}
	src, ok := a.Src.(*ir.Local)
	if !ok {
		return false
	}
	return dst.Name == src.Name
}

// readsOnly reports whether e's only Local reference is name (so
// substituting name's definition in is safe without duplicating any
// other read).
func readsOnly(e ir.Expr, name string) bool {
	if l, ok := e.(*ir.Local); ok {
		return l.Name == name
	}
	counts := map[string]int{}
	countLocalReads(e, counts)
	if counts[name] != 1 {
		return false
	}
	for n, c := range counts {
		if n != name && c > 0 {
			return false
		}
	}
	return true
}

func substituteLocal(e ir.Expr, name string, with ir.Expr) ir.Expr {
	return transformExpr(e, func(x ir.Expr) ir.Expr {
		if l, ok := x.(*ir.Local); ok && l.Name == name {
			return with
		}
		return x
	})
}
