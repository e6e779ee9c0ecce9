package cbs

// ConflictKind distinguishes vertex collisions from edge (swap) collisions.
type ConflictKind int

const (
	// VertexConflict is two agents occupying the same cell at the same time.
	VertexConflict ConflictKind = iota
	// EdgeConflict is two agents swapping cells across one time step.
	EdgeConflict
)

// Conflict describes a collision between two agents. Agent1 < Agent2
// lexicographically.
type Conflict struct {
	Agent1, Agent2 string
	Time           int
	Position       Position
	NextPosition   Position
	Kind           ConflictKind
}

// findConflicts enumerates every vertex and edge conflict implied by paths,
// scanning time steps t in ascending order: the vertex conflicts at t come
// first, then the edge conflicts of the t -> t+1 transition (recorded with
// Time t+1, so they precede any vertex conflict that shares that Time).
// Within each kind agents are scanned in the fixed sorted order produced by
// sortedAgentNames (§4.3). When several agents occupy one cell at the same
// time, each agent after the first is paired with the cell's first
// occupant; other pairs on that cell are not emitted.
func findConflicts(paths map[string]Path) []Conflict {
	if len(paths) == 0 {
		return nil
	}

	horizon := 0
	for _, p := range paths {
		if len(p) > horizon {
			horizon = len(p)
		}
	}

	names := sortedAgentNames(paths)
	var conflicts []Conflict

	for t := 0; t < horizon; t++ {
		occupied := make(map[Position]string, len(names))
		for _, name := range names {
			pos := paths[name].At(t)
			if holder, ok := occupied[pos]; ok {
				conflicts = append(conflicts, Conflict{
					Agent1: holder, Agent2: name,
					Time: t, Position: pos,
					Kind: VertexConflict,
				})
				continue
			}
			occupied[pos] = name
		}

		if t+1 >= horizon {
			continue
		}
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				a, b := names[i], names[j]
				aCur, aNext := paths[a].At(t), paths[a].At(t+1)
				bCur, bNext := paths[b].At(t), paths[b].At(t+1)
				if aCur == bNext && bCur == aNext && aCur != aNext {
					conflicts = append(conflicts, Conflict{
						Agent1: a, Agent2: b,
						Time: t + 1, Position: aCur, NextPosition: aNext,
						Kind: EdgeConflict,
					})
				}
			}
		}
	}

	return conflicts
}

// firstConflict returns the default conflict choice: smallest time, ties
// broken by preferring vertex over edge, further ties by emission order
// (§4.5's default select_conflict).
func firstConflict(conflicts []Conflict) (Conflict, bool) {
	if len(conflicts) == 0 {
		return Conflict{}, false
	}
	best := 0
	for i := 1; i < len(conflicts); i++ {
		if less(conflicts[i], conflicts[best]) {
			best = i
		}
	}
	return conflicts[best], true
}

func less(a, b Conflict) bool {
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	return a.Kind == VertexConflict && b.Kind == EdgeConflict
}

// deriveConstraint builds the negative constraint agent must obey to avoid
// repeating this conflict.
//
// For an edge conflict, this derives the edge from the constrained agent's
// own path at the conflict time rather than reusing conflict's recorded
// (Position, NextPosition) verbatim: the conflict is recorded from one
// agent's traversal direction, and the other agent traverses the reversed
// edge. Deriving from each agent's own path preserves semantic correctness
// (spec §9's flagged correction).
func deriveConstraint(c Conflict, agent string, paths map[string]Path) Constraint {
	if c.Kind == VertexConflict {
		return vertexConstraint(agent, c.Time, c.Position)
	}
	path := paths[agent]
	from, to := path.At(c.Time-1), path.At(c.Time)
	return edgeConstraint(agent, c.Time, from, to)
}
