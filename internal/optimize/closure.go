package optimize

import "github.com/N3rdL0rd/crashlink/internal/ir"

// recognizeClosures is pass 7 (spec §4.6): the narrow (GetThis; VirtualClosure)
// pattern the lifter sees as two independent assigns — `tmp = this.field`
// immediately followed by `dst = Closure{Obj: tmp, Method: m}` — is
// rewritten into `dst = Closure{Obj: this.field, Method: m}`, inlining the
// field access directly into the closure's object and dropping the
// now-unused intermediate assign.
func recognizeClosures(body *ir.Block) *ir.Block {
	return recognizeClosuresIn(body)
}

func recognizeClosuresIn(b *ir.Block) *ir.Block {
	if b == nil {
		return nil
	}
	walkNestedBlocks(b, func(nb *ir.Block) *ir.Block { return recognizeClosuresIn(nb) })

	uses := map[string]int{}
	countReadsInBlock(b, uses)

	out := make([]ir.Stmt, 0, len(b.Stmts))
	for i := 0; i < len(b.Stmts); i++ {
		cur, ok := b.Stmts[i].(*ir.Assign)
		if !ok {
			out = append(out, b.Stmts[i])
			continue
		}
		tmp, isLocal := cur.Dst.(*ir.Local)
		field, isField := cur.Src.(*ir.Field)
		if isLocal && isField && i+1 < len(b.Stmts) {
			if next, ok := b.Stmts[i+1].(*ir.Assign); ok {
				if closure, ok := next.Src.(*ir.Closure); ok {
					if obj, ok := closure.Obj.(*ir.Local); ok && obj.Name == tmp.Name && uses[tmp.Name] == 1 {
						closure.Obj = field
						out = append(out, next)
						i++
						continue
					}
				}
			}
		}
		out = append(out, b.Stmts[i])
	}
	b.Stmts = out
	return b
}
