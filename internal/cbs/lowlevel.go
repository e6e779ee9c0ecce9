package cbs

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/elektrokombinacija/mapf-cbs/internal/grid"
)

// ErrNoPath indicates a single-agent plan is infeasible under its
// constraint set. Recovered locally by the high-level search (§4.4), which
// discards the branch; never surfaced past Solve for a non-root agent.
var ErrNoPath = errors.New("cbs: no path satisfies constraints")

// defaultSafetyMargin bounds the low-level horizon beyond the last
// constrained time plus the heuristic distance, so the search terminates
// even when no solution exists (§4.2).
const defaultSafetyMargin = 16

// state is a single space-time vertex (position, time) in the low-level
// search space.
type state struct {
	pos  Position
	time int
}

// lowLevelNode is an entry in the time-expanded A* frontier. Nodes form a
// DAG via parent pointers (the "arena" of design note §9): reconstruction
// walks parent links back to the start instead of indexing a separate
// came-from map, which is equivalent but avoids a second lookup structure.
type lowLevelNode struct {
	state  state
	g      int
	f      int
	parent *lowLevelNode
	index  int // heap.Interface bookkeeping
}

type lowLevelHeap []*lowLevelNode

func (h lowLevelHeap) Len() int { return len(h) }

// Less orders by f; ties go to the smaller time, then to the smaller
// Position (X, then Y). This is the planner's deterministic tie-break.
func (h lowLevelHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.state.time != b.state.time {
		return a.state.time < b.state.time
	}
	if a.state.pos.X != b.state.pos.X {
		return a.state.pos.X < b.state.pos.X
	}
	return a.state.pos.Y < b.state.pos.Y
}
func (h lowLevelHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *lowLevelHeap) Push(x any) {
	n := x.(*lowLevelNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *lowLevelHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// constraintTables partitions the constraints applicable to a single agent
// into the four tables of §4.2, keyed by time.
type constraintTables struct {
	negVertex map[int]map[Position]struct{}
	negEdge   map[int]map[[2]Position]struct{}
	posVertex map[int]map[Position]struct{}
	posEdge   map[int]map[[2]Position]struct{}
	maxTime   int // T*
}

func buildConstraintTables(agent string, constraints []Constraint) constraintTables {
	t := constraintTables{
		negVertex: make(map[int]map[Position]struct{}),
		negEdge:   make(map[int]map[[2]Position]struct{}),
		posVertex: make(map[int]map[Position]struct{}),
		posEdge:   make(map[int]map[[2]Position]struct{}),
	}
	for _, c := range constraints {
		if c.Agent != agent {
			continue
		}
		if c.Time > t.maxTime {
			t.maxTime = c.Time
		}
		switch {
		case c.IsPositive && !c.HasNext:
			addVertex(t.posVertex, c.Time, c.Position)
		case c.IsPositive && c.HasNext:
			addEdge(t.posEdge, c.Time, c.Position, c.NextPosition)
		case !c.IsPositive && !c.HasNext:
			addVertex(t.negVertex, c.Time, c.Position)
		default:
			addEdge(t.negEdge, c.Time, c.Position, c.NextPosition)
		}
	}
	return t
}

func addVertex(m map[int]map[Position]struct{}, time int, p Position) {
	if m[time] == nil {
		m[time] = make(map[Position]struct{})
	}
	m[time][p] = struct{}{}
}

func addEdge(m map[int]map[[2]Position]struct{}, time int, from, to Position) {
	if m[time] == nil {
		m[time] = make(map[[2]Position]struct{})
	}
	m[time][[2]Position{from, to}] = struct{}{}
}

// satisfiesPositive reports whether arriving at position (via the given
// edge, if any) at time satisfies every positive constraint at that time.
// When hasEdge is false (the goal-acceptance check, which has no incoming
// transition to compare) any positive edge constraint at time is simply
// not checked, matching satisfies_positive_constraints(..., next_position=None)
// in the source implementation: goal acceptance only ever consults
// vertex_required.
func (t constraintTables) satisfiesPositive(time int, position Position, hasEdge bool, from Position) bool {
	if required, ok := t.posVertex[time]; ok {
		if _, ok := required[position]; !ok {
			return false
		}
	}
	if !hasEdge {
		return true
	}
	if required, ok := t.posEdge[time]; ok {
		if _, ok := required[[2]Position{from, position}]; !ok {
			return false
		}
	}
	return true
}

func (t constraintTables) blocked(from, to Position, time int) bool {
	if blockers, ok := t.negVertex[time]; ok {
		if _, ok := blockers[to]; ok {
			return true
		}
	}
	if blockers, ok := t.negEdge[time]; ok {
		if _, ok := blockers[[2]Position{from, to}]; ok {
			return true
		}
	}
	return false
}

// plan runs the constrained time-expanded A* of §4.2 for a single agent,
// returning its minimum-length path or ErrNoPath.
func plan(gr *grid.Grid, agent Agent, constraints []Constraint) (Path, error) {
	tables := buildConstraintTables(agent.Name, constraints)

	start := state{pos: agent.Start, time: 0}
	upperBound := tables.maxTime + gr.Heuristic(agent.Start, agent.Goal) + defaultSafetyMargin

	open := &lowLevelHeap{}
	heap.Init(open)
	heap.Push(open, &lowLevelNode{state: start, g: 0, f: gr.Heuristic(agent.Start, agent.Goal)})

	best := make(map[state]int, 64)
	best[start] = 0

	for open.Len() > 0 {
		current := heap.Pop(open).(*lowLevelNode)

		if bestG, ok := best[current.state]; ok && bestG < current.g {
			continue // stale frontier entry superseded by a cheaper one
		}

		if current.state.pos == agent.Goal && current.state.time >= tables.maxTime {
			if tables.satisfiesPositive(current.state.time, current.state.pos, false, Position{}) {
				return reconstruct(current), nil
			}
		}

		if current.state.time > upperBound {
			continue
		}

		nextTime := current.state.time + 1
		candidates := make([]Position, 0, 5)
		candidates = append(candidates, gr.Neighbors(current.state.pos)...)
		candidates = append(candidates, current.state.pos) // wait

		for _, next := range candidates {
			if !tables.satisfiesPositive(nextTime, next, true, current.state.pos) {
				continue
			}
			if tables.blocked(current.state.pos, next, nextTime) {
				continue
			}

			nextState := state{pos: next, time: nextTime}
			newG := current.g + 1
			if existing, ok := best[nextState]; ok && existing <= newG {
				continue
			}
			best[nextState] = newG
			heap.Push(open, &lowLevelNode{
				state:  nextState,
				g:      newG,
				f:      newG + gr.Heuristic(next, agent.Goal),
				parent: current,
			})
		}
	}

	return nil, fmt.Errorf("%w: agent %q", ErrNoPath, agent.Name)
}

func reconstruct(n *lowLevelNode) Path {
	var path Path
	for cur := n; cur != nil; cur = cur.parent {
		path = append(Path{cur.state.pos}, path...)
	}
	return path
}
