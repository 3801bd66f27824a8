// Package optimize implements the fixed seven-pass IR-to-IR rewrite
// pipeline (spec §4.6): each pass takes a structured IR block and returns
// one with identical externally-observable semantics, in the declared
// order (coalesce, fold, dead-store, redundant-move, comparison
// canonicalization, if-folding, closure recognition).
//
// The teacher carries no IR-optimizer-pipeline analog of its own (its
// "optimizeBundle" in internal/build/builder.go is a documented no-op
// stage list); this package follows the teacher's general closed-sum-type
// dispatch discipline (the same type-switch-over-a-small-interface shape
// internal/ir.Expr/Stmt already uses) applied to tree rewriting instead of
// tree construction, and keeps each pass its own file the way the
// teacher's internal/build keeps each build stage its own method.
package optimize

import (
	"github.com/N3rdL0rd/crashlink/internal/bytecode"
	"github.com/N3rdL0rd/crashlink/internal/ir"
	"github.com/N3rdL0rd/crashlink/internal/module"
)

// Run executes the full pipeline over body in the order spec §4.6
// prescribes, returning the rewritten block. f and m supply the register
// names (via f.Assigns) and string pool the coalescing pass needs.
func Run(m *module.Module, f *bytecode.Function, body *ir.Block) *ir.Block {
	body = coalesceNames(m, f, body)
	body = foldConstants(body)
	body = eliminateDeadStores(body)
	body = removeRedundantMoves(body)
	body = canonicalizeComparisons(body)
	body = foldConditionals(body)
	body = recognizeClosures(body)
	return body
}

// walkNestedBlocks visits every *ir.Block directly nested under a
// statement of b (Then/Else, loop Body, switch Cases/Default, try
// Body/Catch) and applies rewrite to each recursively, replacing it
// in place. Leaf statements (Assign, Return, ...) are left untouched by
// this helper; callers still need to process b.Stmts itself.
func walkNestedBlocks(b *ir.Block, rewrite func(*ir.Block) *ir.Block) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		switch st := s.(type) {
		case *ir.Conditional:
			if st.Then != nil {
				st.Then = rewrite(st.Then)
			}
			if st.Else != nil {
				st.Else = rewrite(st.Else)
			}
		case *ir.Loop:
			if st.Body != nil {
				st.Body = rewrite(st.Body)
			}
		case *ir.Switch:
			for i := range st.Cases {
				if st.Cases[i].Body != nil {
					st.Cases[i].Body = rewrite(st.Cases[i].Body)
				}
			}
			if st.Default != nil {
				st.Default = rewrite(st.Default)
			}
		case *ir.Try:
			if st.Body != nil {
				st.Body = rewrite(st.Body)
			}
			if st.Catch != nil {
				st.Catch = rewrite(st.Catch)
			}
		}
	}
}

// stmtExprFields returns every direct expression child of a statement along
// with a setter to rewrite it, so passes that transform expressions don't
// need one case per statement kind times one per field.
func stmtExprFields(s ir.Stmt) (get []func() ir.Expr, set []func(ir.Expr)) {
	switch st := s.(type) {
	case *ir.Assign:
		return []func() ir.Expr{func() ir.Expr { return st.Dst }, func() ir.Expr { return st.Src }},
			[]func(ir.Expr){func(e ir.Expr) { st.Dst = e }, func(e ir.Expr) { st.Src = e }}
	case *ir.ExprStmt:
		return []func() ir.Expr{func() ir.Expr { return st.X }}, []func(ir.Expr){func(e ir.Expr) { st.X = e }}
	case *ir.Return:
		if st.Value == nil {
			return nil, nil
		}
		return []func() ir.Expr{func() ir.Expr { return st.Value }}, []func(ir.Expr){func(e ir.Expr) { st.Value = e }}
	case *ir.Throw:
		return []func() ir.Expr{func() ir.Expr { return st.Value }}, []func(ir.Expr){func(e ir.Expr) { st.Value = e }}
	case *ir.Conditional:
		return []func() ir.Expr{func() ir.Expr { return st.Cond }}, []func(ir.Expr){func(e ir.Expr) { st.Cond = e }}
	case *ir.Loop:
		if st.Cond == nil {
			return nil, nil
		}
		return []func() ir.Expr{func() ir.Expr { return st.Cond }}, []func(ir.Expr){func(e ir.Expr) { st.Cond = e }}
	case *ir.Switch:
		return []func() ir.Expr{func() ir.Expr { return st.Value }}, []func(ir.Expr){func(e ir.Expr) { st.Value = e }}
	case *ir.PrimitiveJump:
		if st.Cond == nil {
			return nil, nil
		}
		return []func() ir.Expr{func() ir.Expr { return st.Cond }}, []func(ir.Expr){func(e ir.Expr) { st.Cond = e }}
	default:
		return nil, nil
	}
}

// transformExpr rewrites e bottom-up: every child expression is
// transformed first, then fn is applied to the (possibly rebuilt) node
// itself. fn may return its argument unchanged.
func transformExpr(e ir.Expr, fn func(ir.Expr) ir.Expr) ir.Expr {
	if e == nil {
		return nil
	}
	switch x := e.(type) {
	case *ir.Arithmetic:
		x.A = transformExpr(x.A, fn)
		x.B = transformExpr(x.B, fn)
	case *ir.Comparison:
		x.A = transformExpr(x.A, fn)
		x.B = transformExpr(x.B, fn)
	case *ir.Unary:
		x.X = transformExpr(x.X, fn)
	case *ir.Field:
		x.Obj = transformExpr(x.Obj, fn)
	case *ir.Call:
		x.Callee = transformExpr(x.Callee, fn)
		for i := range x.Args {
			x.Args[i] = transformExpr(x.Args[i], fn)
		}
	case *ir.Cast:
		x.Src = transformExpr(x.Src, fn)
	case *ir.Closure:
		x.Obj = transformExpr(x.Obj, fn)
	case *ir.EnumConstruct:
		for i := range x.Args {
			x.Args[i] = transformExpr(x.Args[i], fn)
		}
	case *ir.EnumField:
		x.Value = transformExpr(x.Value, fn)
	case *ir.ArrayAccess:
		x.Arr = transformExpr(x.Arr, fn)
		x.Idx = transformExpr(x.Idx, fn)
	case *ir.DynField:
		x.Obj = transformExpr(x.Obj, fn)
	case *ir.RefOf:
		x.X = transformExpr(x.X, fn)
	case *ir.Deref:
		x.X = transformExpr(x.X, fn)
	case *ir.TypeOf:
		x.X = transformExpr(x.X, fn)
	case *ir.EnumTag:
		x.X = transformExpr(x.X, fn)
	}
	return fn(e)
}

// transformAllExprs applies fn (via transformExpr) to every expression
// field of every statement in the tree rooted at b, recursing into nested
// blocks first.
func transformAllExprs(b *ir.Block, fn func(ir.Expr) ir.Expr) {
	if b == nil {
		return
	}
	walkNestedBlocks(b, func(nb *ir.Block) *ir.Block {
		transformAllExprs(nb, fn)
		return nb
	})
	for _, s := range b.Stmts {
		getters, setters := stmtExprFields(s)
		for i := range getters {
			setters[i](transformExpr(getters[i](), fn))
		}
	}
}

// countLocalReads walks e and increments counts for every *ir.Local name
// it reads (anywhere an expression value is consumed, never a bare
// assignment target).
func countLocalReads(e ir.Expr, counts map[string]int) {
	if e == nil {
		return
	}
	if l, ok := e.(*ir.Local); ok {
		counts[l.Name]++
	}
	switch x := e.(type) {
	case *ir.Arithmetic:
		countLocalReads(x.A, counts)
		countLocalReads(x.B, counts)
	case *ir.Comparison:
		countLocalReads(x.A, counts)
		countLocalReads(x.B, counts)
	case *ir.Unary:
		countLocalReads(x.X, counts)
	case *ir.Field:
		countLocalReads(x.Obj, counts)
	case *ir.Call:
		countLocalReads(x.Callee, counts)
		for _, a := range x.Args {
			countLocalReads(a, counts)
		}
	case *ir.Cast:
		countLocalReads(x.Src, counts)
	case *ir.Closure:
		countLocalReads(x.Obj, counts)
	case *ir.EnumConstruct:
		for _, a := range x.Args {
			countLocalReads(a, counts)
		}
	case *ir.EnumField:
		countLocalReads(x.Value, counts)
	case *ir.ArrayAccess:
		countLocalReads(x.Arr, counts)
		countLocalReads(x.Idx, counts)
	case *ir.DynField:
		countLocalReads(x.Obj, counts)
	case *ir.RefOf:
		countLocalReads(x.X, counts)
	case *ir.Deref:
		countLocalReads(x.X, counts)
	case *ir.TypeOf:
		countLocalReads(x.X, counts)
	case *ir.EnumTag:
		countLocalReads(x.X, counts)
	}
}

// countReadsInBlock tallies every Local read in the tree rooted at b,
// treating an Assign's Dst as a write (not a read) only when Dst is
// itself a bare *ir.Local; any other Dst shape (Field, ArrayAccess, ...)
// reads its own sub-expressions normally.
func countReadsInBlock(b *ir.Block, counts map[string]int) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		switch st := s.(type) {
		case *ir.Assign:
			if _, isLocal := st.Dst.(*ir.Local); !isLocal {
				countLocalReads(st.Dst, counts)
			}
			countLocalReads(st.Src, counts)
		default:
			getters, _ := stmtExprFields(s)
			for _, g := range getters {
				countLocalReads(g(), counts)
			}
		}
	}
	walkNestedBlocks(b, func(nb *ir.Block) *ir.Block {
		countReadsInBlock(nb, counts)
		return nb
	})
}

// hasSideEffect reports whether evaluating e can have an observable
// effect beyond producing a value (a call), so a pass must never drop it
// purely because its result is unused.
func hasSideEffect(e ir.Expr) bool {
	found := false
	transformExpr(e, func(x ir.Expr) ir.Expr {
		if _, ok := x.(*ir.Call); ok {
			found = true
		}
		return x
	})
	return found
}
