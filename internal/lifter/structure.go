package lifter

import (
	"fmt"

	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	"github.com/N3rdL0rd/crashlink/internal/cfg"
	hlerrors "github.com/N3rdL0rd/crashlink/internal/errors"
	"github.com/N3rdL0rd/crashlink/internal/ir"
)

// recoverRegion is Phase B's main loop: it walks the CFG starting at
// start, stopping as soon as it reaches stop (or runs out of successors),
// recognizing loop, try, switch, and conditional shapes along the way and
// falling back to a flat PrimitiveJump for anything else.
func recoverRegion(ctx *Context, flat map[int][]ir.Stmt, start, stop int) *ir.Block {
	out := &ir.Block{}
	cur := start
	visited := map[int]bool{}

	for cur != -1 && cur != stop {
		if visited[cur] {
			// A cycle reached through plain traversal without having been
			// recognized as a loop header means structure recovery could
			// not make sense of this shape; stop rather than spin.
			ctx.Failures = append(ctx.Failures, hlerrors.New(hlerrors.StructureRecoveryFailure,
				"region traversal revisited block %d without loop recognition", cur).
				At(hlerrors.Location{FIndex: ctx.Function.FIndex, OpIndex: -1, Offset: -1}))
			break
		}
		visited[cur] = true
		b := ctx.Graph.Block(cur)
		if b == nil {
			break
		}

		if latch, ok := findLatch(ctx.Dom, cur); ok {
			loopStmt, after := recoverLoop(ctx, flat, cur, latch)
			out.Stmts = append(out.Stmts, loopStmt)
			cur = after
			continue
		}

		if endsWithTrap(ctx.Function, b) {
			tryStmt, after := recoverTry(ctx, flat, b)
			out.Stmts = append(out.Stmts, flat[cur]...)
			out.Stmts = append(out.Stmts, tryStmt)
			cur = after
			continue
		}

		if endsWithSwitch(ctx.Function, b) {
			swStmt, after := recoverSwitch(ctx, flat, b)
			out.Stmts = append(out.Stmts, flat[cur]...)
			out.Stmts = append(out.Stmts, swStmt)
			cur = after
			continue
		}

		if cond, thenTo, elseTo, ok := conditionOf(ctx.Function, b); ok {
			join := ctx.Dom.PostIDom(cur)
			thenBlock := recoverRegion(ctx, flat, thenTo, join)
			var elseBlock *ir.Block
			if elseTo != join {
				elseBlock = recoverRegion(ctx, flat, elseTo, join)
			}
			out.Stmts = append(out.Stmts, flat[cur]...)
			out.Stmts = append(out.Stmts, &ir.Conditional{Cond: cond, Then: thenBlock, Else: elseBlock})
			if join == -1 {
				return out
			}
			cur = join
			continue
		}

		out.Stmts = append(out.Stmts, flat[cur]...)
		cur = soleSuccessor(b)
	}

	return out
}

// soleSuccessor returns b's single non-trap successor block, or -1 if b
// has zero or more than one (the latter only reachable via the flat
// fallback path, which renders an explicit PrimitiveJump instead of
// relying on this).
func soleSuccessor(b *cfg.Block) int {
	var plain []cfg.Edge
	for _, e := range b.Succs {
		if e.Kind == cfg.Unconditional {
			plain = append(plain, e)
		}
	}
	if len(plain) == 1 {
		return plain[0].To
	}
	return -1
}

func findLatch(dom *cfg.Dominance, header int) (int, bool) {
	for _, e := range dom.BackEdges() {
		if e[1] == header {
			return e[0], true
		}
	}
	return -1, false
}

func endsWithTrap(f *bytecode.Function, b *cfg.Block) bool {
	if len(b.Ops) == 0 {
		return false
	}
	return b.Ops[len(b.Ops)-1].Op == bytecode.OTrap
}

func endsWithSwitch(f *bytecode.Function, b *cfg.Block) bool {
	if len(b.Ops) == 0 {
		return false
	}
	return b.Ops[len(b.Ops)-1].Op == bytecode.OSwitch
}

// conditionOf returns the natural-polarity condition expression for a
// block ending in a conditional jump, along with the block index control
// reaches when the condition is true and when it is false. ok is false if
// b's terminator is not a conditional jump.
func conditionOf(f *bytecode.Function, b *cfg.Block) (cond ir.Expr, thenTo, elseTo int, ok bool) {
	if len(b.Ops) == 0 {
		return nil, 0, 0, false
	}
	in := b.Ops[len(b.Ops)-1]
	if !in.Op.IsConditionalJump() {
		return nil, 0, 0, false
	}

	var branchTo, fallTo int = -1, -1
	for _, e := range b.Succs {
		switch e.Kind {
		case cfg.True:
			branchTo = e.To
		case cfg.False:
			fallTo = e.To
		}
	}
	if branchTo == -1 || fallTo == -1 {
		return nil, 0, 0, false
	}

	switch in.Op {
	case bytecode.OJTrue:
		return localExpr(f, int(in.Field("cond"))), branchTo, fallTo, true
	case bytecode.OJFalse:
		return localExpr(f, int(in.Field("cond"))), fallTo, branchTo, true
	case bytecode.OJNull:
		return &ir.Comparison{Op: ir.CmpEq, A: localExpr(f, int(in.Field("cond"))), B: &ir.Const{IsNull: true}}, branchTo, fallTo, true
	case bytecode.OJNotNull:
		return &ir.Comparison{Op: ir.CmpNotEq, A: localExpr(f, int(in.Field("cond"))), B: &ir.Const{IsNull: true}}, branchTo, fallTo, true
	default:
		if op, known := compareOps[in.Op]; known {
			a := localExpr(f, int(in.Field("a")))
			bb := localExpr(f, int(in.Field("b")))
			return &ir.Comparison{Op: op, A: a, B: bb}, branchTo, fallTo, true
		}
	}
	return nil, 0, 0, false
}

// recoverSwitch rebuilds a Switch opcode's block into a structured
// ir.Switch, returning the join block control reaches afterward.
func recoverSwitch(ctx *Context, flat map[int][]ir.Stmt, b *cfg.Block) (*ir.Switch, int) {
	in := b.Ops[len(b.Ops)-1]
	selector := localExpr(ctx.Function, int(in.Field("reg")))
	join := ctx.Dom.PostIDom(b.Index)

	var cases []ir.SwitchCase
	var defaultTo = -1
	for _, e := range b.Succs {
		switch e.Kind {
		case cfg.SwitchCase:
			cases = append(cases, ir.SwitchCase{Case: e.Case, Body: recoverRegion(ctx, flat, e.To, join)})
		case cfg.SwitchDefault:
			defaultTo = e.To
		}
	}

	var def *ir.Block
	if defaultTo != -1 && defaultTo != join {
		def = recoverRegion(ctx, flat, defaultTo, join)
	}

	return &ir.Switch{Value: selector, Cases: cases, Default: def}, join
}

// recoverTry rebuilds a Trap/EndTrap region into a structured ir.Try.
func recoverTry(ctx *Context, flat map[int][]ir.Stmt, b *cfg.Block) (*ir.Try, int) {
	in := b.Ops[len(b.Ops)-1]
	var bodyStart, handler int = -1, -1
	for _, e := range b.Succs {
		switch e.Kind {
		case cfg.Unconditional:
			bodyStart = e.To
		case cfg.TrapCatch:
			handler = e.To
		}
	}
	join := ctx.Dom.PostIDom(b.Index)

	var body *ir.Block
	if bodyStart != -1 {
		body = recoverRegion(ctx, flat, bodyStart, join)
	} else {
		body = &ir.Block{}
	}
	var catch *ir.Block
	if handler != -1 {
		catch = recoverRegion(ctx, flat, handler, join)
	} else {
		catch = &ir.Block{}
	}

	catchVar := localExpr(ctx.Function, int(in.Field("dst"))).Name
	return &ir.Try{Body: body, CatchVar: catchVar, Catch: catch}, join
}

// naturalLoop computes the set of blocks that make up the natural loop for
// a back edge (latch -> header): header plus every block that can reach
// latch by walking predecessors without passing back through header.
func naturalLoop(g *cfg.Graph, header, latch int) map[int]bool {
	set := map[int]bool{header: true}
	if latch == header {
		return set
	}
	var stack []int
	if !set[latch] {
		set[latch] = true
		stack = append(stack, latch)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range g.Block(n).Preds {
			if !set[p] {
				set[p] = true
				stack = append(stack, p)
			}
		}
	}
	return set
}

// recoverLoop rebuilds a back edge into a structured ir.Loop, returning the
// block index control reaches after the loop exits. When the loop's shape
// does not match a recognized pre-tested/post-tested pattern (multiple
// exits, no exit at all reachable from header or latch, irreducible
// entries), it degrades to a flat PrimitiveJump rendering of every block in
// the loop and records a StructureRecoveryFailure — the spec's required
// non-fatal fallback (§4.5, §7), not an error condition.
func recoverLoop(ctx *Context, flat map[int][]ir.Stmt, header, latch int) (ir.Stmt, int) {
	g := ctx.Graph
	loopSet := naturalLoop(g, header, latch)

	headerBlock := g.Block(header)
	if cond, thenTo, elseTo, ok := conditionOf(ctx.Function, headerBlock); ok {
		var bodyEntry, exit int = -1, -1
		if loopSet[thenTo] && !loopSet[elseTo] {
			bodyEntry, exit = thenTo, elseTo
		} else if loopSet[elseTo] && !loopSet[thenTo] {
			bodyEntry, exit = elseTo, thenTo
			cond = &ir.Unary{Op: ir.UnaryNot, X: cond}
		}
		if bodyEntry != -1 {
			body := recoverRegion(ctx, flat, bodyEntry, header)
			return &ir.Loop{Kind: ir.PreTested, Cond: cond, Body: body}, exit
		}
	}

	latchBlock := g.Block(latch)
	if cond, thenTo, elseTo, ok := conditionOf(ctx.Function, latchBlock); ok {
		var exit int = -1
		continueToHeader := false
		if thenTo == header && !loopSet[elseTo] {
			exit = elseTo
			continueToHeader = true
		} else if elseTo == header && !loopSet[thenTo] {
			exit = thenTo
			continueToHeader = true
			cond = &ir.Unary{Op: ir.UnaryNot, X: cond}
		}
		if continueToHeader {
			body := recoverRegion(ctx, flat, header, latch)
			body.Stmts = append(body.Stmts, flat[latch]...)
			return &ir.Loop{Kind: ir.PostTested, Cond: cond, Body: body}, exit
		}
	}

	ctx.Failures = append(ctx.Failures, hlerrors.New(hlerrors.StructureRecoveryFailure,
		"loop header %d (latch %d) did not match a recognized pre/post-tested shape", header, latch).
		At(hlerrors.Location{FIndex: ctx.Function.FIndex, OpIndex: -1, Offset: -1}))
	return flatLoopFallback(ctx, flat, loopSet, header), exitOutsideSet(g, loopSet)
}

// flatLoopFallback renders every block of an unrecognized loop as an
// Infinite ir.Loop whose body is the blocks in index order, each
// terminator preserved as an explicit ir.PrimitiveJump rather than
// restructured — guaranteeing the fallback never reorders or drops a
// control transfer even though it cannot express it as structured sugar.
func flatLoopFallback(ctx *Context, flat map[int][]ir.Stmt, loopSet map[int]bool, header int) *ir.Loop {
	indices := make([]int, 0, len(loopSet))
	for b := range loopSet {
		indices = append(indices, b)
	}
	// stable order: by block Start offset
	for i := 1; i < len(indices); i++ {
		for j := i; j > 0 && ctx.Graph.Block(indices[j-1]).Start > ctx.Graph.Block(indices[j]).Start; j-- {
			indices[j-1], indices[j] = indices[j], indices[j-1]
		}
	}

	body := &ir.Block{}
	for _, idx := range indices {
		b := ctx.Graph.Block(idx)
		body.Stmts = append(body.Stmts, flat[idx]...)
		body.Stmts = append(body.Stmts, primitiveJumpFor(ctx.Function, b))
	}
	return &ir.Loop{Kind: ir.Infinite, Body: body}
}

// primitiveJumpFor renders b's terminator (if it is a jump) as a flat
// PrimitiveJump statement describing exactly the transfer the bytecode
// performs, with no attempt at sugar.
func primitiveJumpFor(f *bytecode.Function, b *cfg.Block) ir.Stmt {
	if len(b.Ops) == 0 {
		return &ir.UntranslatedOpcode{OpName: "empty-block", OpText: fmt.Sprintf("block %d has no ops", b.Index)}
	}
	last := b.Ops[len(b.Ops)-1]
	if cond, thenTo, _, ok := conditionOf(f, b); ok {
		return &ir.PrimitiveJump{Cond: cond, TargetOp: thenTo}
	}
	if last.Op == bytecode.OJAlways {
		return &ir.PrimitiveJump{TargetOp: b.End + 1 + int(last.Field("offset"))}
	}
	return &ir.UntranslatedOpcode{OpName: last.Op.String(), OpText: fmt.Sprintf("%s at end of block %d", last.Op, b.Index)}
}

func exitOutsideSet(g *cfg.Graph, loopSet map[int]bool) int {
	for b := range loopSet {
		for _, e := range g.Block(b).Succs {
			if e.Kind == cfg.TrapCatch {
				continue
			}
			if !loopSet[e.To] {
				return e.To
			}
		}
	}
	return -1
}
