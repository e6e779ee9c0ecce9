package cbs

// node is a constraint-tree node: an accumulated constraint set, the paths
// it implies, the conflicts those paths contain, and a cached priority.
// Nodes are mutated only before being pushed onto the open queue, never
// after (§3 lifecycle).
type node struct {
	id          int
	constraints []Constraint
	paths       map[string]Path
	conflicts   []Conflict
	cost        int
	index       int // heap.Interface bookkeeping
}

// priorityLess implements the lexicographic (cost, |conflicts|) ordering
// of §4.4, with node id as a final deterministic tiebreaker.
func priorityLess(a, b *node) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	if len(a.conflicts) != len(b.conflicts) {
		return len(a.conflicts) < len(b.conflicts)
	}
	return a.id < b.id
}

type openHeap []*node

func (h openHeap) Len() int            { return len(h) }
func (h openHeap) Less(i, j int) bool  { return priorityLess(h[i], h[j]) }
func (h openHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *openHeap) Push(x any) {
	n := x.(*node)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// clonePaths deep-copies a paths map so a child node never aliases its
// parent's (§5 resource ownership).
func clonePaths(paths map[string]Path) map[string]Path {
	out := make(map[string]Path, len(paths))
	for name, p := range paths {
		cp := make(Path, len(p))
		copy(cp, p)
		out[name] = cp
	}
	return out
}

func totalCost(paths map[string]Path) int {
	total := 0
	for _, p := range paths {
		total += p.Cost()
	}
	return total
}
