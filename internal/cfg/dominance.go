package cfg

// Dominance computes dominator and post-dominator sets for a Graph using
// the classic iterative data-flow algorithm (Cooper, Harvey & Kennedy):
// simple to verify by hand and fast enough for function-sized graphs,
// which is all the lifter's structure-recovery pass (spec §4.5) ever needs
// it for.
type Dominance struct {
	g        *Graph
	idom     []int // immediate dominator per block, -1 for the entry
	postIdom []int // immediate post-dominator per block, -1 for a block with no successors reachable to exit
	order    []int // reverse postorder, entry first
}

// Compute builds both the dominator and post-dominator trees for g.
func Compute(g *Graph) *Dominance {
	d := &Dominance{g: g}
	if len(g.Blocks) == 0 {
		return d
	}
	d.order = reversePostorder(g)
	d.idom = computeIdom(g, d.order, func(b *Block) []int { return b.Preds }, 0)

	revOrder, exitPreds := reverseGraph(g)
	d.postIdom = computeIdom(g, revOrder, exitPreds, -1)
	return d
}

// Dominates reports whether a dominates b (every path from entry to b
// passes through a), inclusive of a == b.
func (d *Dominance) Dominates(a, b int) bool {
	if a == b {
		return true
	}
	for cur := d.idom[b]; cur != -1; cur = d.idom[cur] {
		if cur == a {
			return true
		}
	}
	return false
}

// PostDominates reports whether a post-dominates b (every path from b to
// exit passes through a), inclusive of a == b.
func (d *Dominance) PostDominates(a, b int) bool {
	if a == b {
		return true
	}
	if d.postIdom == nil {
		return false
	}
	for cur := d.postIdom[b]; cur != -1; cur = d.postIdom[cur] {
		if cur == a {
			return true
		}
	}
	return false
}

// IDom returns b's immediate dominator, or -1 for the entry block.
func (d *Dominance) IDom(b int) int { return d.idom[b] }

// PostIDom returns b's immediate post-dominator, or -1 if none was found
// (b cannot reach any exit, b is itself an exit block, or b's paths end at
// different exit blocks with no real block common to all of them).
func (d *Dominance) PostIDom(b int) int {
	if d.postIdom == nil {
		return -1
	}
	return d.postIdom[b]
}

// BackEdges returns every edge (from, to) in g where to dominates from —
// the signature of a loop (spec §4.5: "back-edges become loops").
func (d *Dominance) BackEdges() [][2]int {
	var edges [][2]int
	for _, b := range d.g.Blocks {
		for _, e := range b.Succs {
			if e.Kind == TrapCatch {
				continue
			}
			if d.Dominates(e.To, b.Index) {
				edges = append(edges, [2]int{b.Index, e.To})
			}
		}
	}
	return edges
}

func reversePostorder(g *Graph) []int {
	visited := make([]bool, len(g.Blocks))
	var post []int
	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		for _, e := range g.Blocks[i].Succs {
			visit(e.To)
		}
		post = append(post, i)
	}
	visit(0)
	// reverse in place
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// reverseGraph returns a reverse-postorder-from-exit traversal order and a
// predecessor function over the reversed edges (i.e. successors in the
// original graph), treating every block with no successors as converging
// on a single virtual exit.
func reverseGraph(g *Graph) ([]int, func(*Block) []int) {
	exitPreds := func(b *Block) []int {
		var succs []int
		for _, e := range b.Succs {
			succs = append(succs, e.To)
		}
		return succs
	}

	visited := make([]bool, len(g.Blocks))
	var post []int
	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		for _, p := range g.Blocks[i].Preds {
			visit(p)
		}
		post = append(post, i)
	}
	// seed from every exit block (no successors), walking predecessors
	// (i.e. moving "backward" through the original graph).
	for _, b := range g.Blocks {
		if len(b.Succs) == 0 {
			visit(b.Index)
		}
	}
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post, exitPreds
}

// computeIdom runs the Cooper/Harvey/Kennedy fixed-point iteration. preds
// gives each block's predecessor set in the direction being dominated
// (actual predecessors for forward dominance, successors for
// post-dominance); entry is the single starting block for forward
// dominance (0), or -1 for post-dominance, where every no-successor block
// hangs off one virtual exit (index n) so that paths ending at different
// exits still meet. A block whose only common post-dominator is that
// virtual exit gets -1.
func computeIdom(g *Graph, order []int, preds func(*Block) []int, entry int) []int {
	n := len(g.Blocks)
	virtualExit := n
	idom := make([]int, n+1)
	for i := range idom {
		idom[i] = -1
	}

	indexInOrder := make([]int, n+1)
	for i, b := range order {
		indexInOrder[b] = i
	}
	// The virtual exit precedes every real block in the order.
	indexInOrder[virtualExit] = -1
	idom[virtualExit] = virtualExit

	isRoot := func(b int) bool {
		if entry >= 0 {
			return b == entry
		}
		return len(g.Blocks[b].Succs) == 0
	}

	for _, b := range order {
		if isRoot(b) {
			idom[b] = b
			if entry < 0 {
				idom[b] = virtualExit
			}
		}
	}

	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if isRoot(b) {
				continue
			}
			var newIdom = -1
			for _, p := range preds(g.Blocks[b]) {
				if idom[p] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = p
					continue
				}
				newIdom = intersect(idom, indexInOrder, newIdom, p)
			}
			if newIdom != -1 && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	for _, b := range order {
		if isRoot(b) || idom[b] == virtualExit {
			idom[b] = -1
		}
	}
	return idom[:n]
}

func intersect(idom []int, indexInOrder []int, a, b int) int {
	for a != b {
		for indexInOrder[a] > indexInOrder[b] {
			a = idom[a]
		}
		for indexInOrder[b] > indexInOrder[a] {
			b = idom[b]
		}
	}
	return a
}
