package cbs

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/elektrokombinacija/mapf-cbs/internal/grid"
)

// ErrUnsolvable indicates the open queue emptied, or max_iterations was
// reached, without finding a conflict-free node.
var ErrUnsolvable = errors.New("cbs: exhausted search without a conflict-free node")

// ErrInfeasibleRoot indicates root construction failed because some
// agent has no unconstrained path. Solve returns it wrapped together with
// ErrUnsolvable, so callers that only check errors.Is(err, ErrUnsolvable)
// still match (§7).
var ErrInfeasibleRoot = errors.New("cbs: root planning failed for at least one agent")

// DefaultMaxIterations is used by Solve when the caller passes 0.
const DefaultMaxIterations = 10000

// CBS is a Conflict-Based Search solver over a fixed Grid. The zero value
// is ready to use once Grid is set; Policy defaults to NoopPolicy.
type CBS struct {
	Grid   *grid.Grid
	Policy PolicyHook

	nextID int // per-solve node id counter (§9: encapsulated, not static)
}

// New constructs a CBS solver for g with the default no-op policy hook.
func New(g *grid.Grid) *CBS {
	return &CBS{Grid: g, Policy: NoopPolicy{}}
}

// Solve runs the main CBS loop of §4.4 and returns a sum-of-costs-minimal,
// conflict-free Solution, or an error wrapping ErrUnsolvable /
// ErrInfeasibleRoot.
//
// maxIterations <= 0 uses DefaultMaxIterations.
func (c *CBS) Solve(problem ProblemInstance, maxIterations int) (Solution, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if c.Policy == nil {
		c.Policy = NoopPolicy{}
	}
	c.nextID = 0

	root, err := c.buildRoot(problem)
	if err != nil {
		return Solution{}, err
	}

	open := &openHeap{}
	heap.Init(open)
	heap.Push(open, root)

	for iterations := 0; ; iterations++ {
		if open.Len() == 0 || iterations >= maxIterations {
			return Solution{}, ErrUnsolvable
		}

		n := c.popNode(open)

		if len(n.conflicts) == 0 {
			return Solution{Paths: n.paths, Cost: n.cost}, nil
		}

		conflict := c.chooseConflict(n.conflicts)

		for _, agentName := range []string{conflict.Agent1, conflict.Agent2} {
			agent, err := problem.AgentByName(agentName)
			if err != nil {
				return Solution{}, err // programmer error, not recoverable
			}
			child, ok := c.buildChild(n, conflict, agent)
			if !ok {
				continue
			}
			heap.Push(open, child)
		}
	}
}

func (c *CBS) nextNodeID() int {
	c.nextID++
	return c.nextID
}

func (c *CBS) buildRoot(problem ProblemInstance) (*node, error) {
	paths := make(map[string]Path, len(problem.Agents))
	for _, agent := range problem.Agents {
		p, err := plan(c.Grid, agent, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w: %s", ErrUnsolvable, ErrInfeasibleRoot, err)
		}
		paths[agent.Name] = p
	}

	root := &node{
		id:        c.nextNodeID(),
		paths:     paths,
		conflicts: findConflicts(paths),
		cost:      totalCost(paths),
	}
	return root, nil
}

func (c *CBS) buildChild(parent *node, conflict Conflict, agent Agent) (*node, bool) {
	constraint := deriveConstraint(conflict, agent.Name, parent.paths)

	constraints := make([]Constraint, len(parent.constraints), len(parent.constraints)+1)
	copy(constraints, parent.constraints)
	constraints = append(constraints, constraint)

	paths := clonePaths(parent.paths)

	p, err := plan(c.Grid, agent, constraints)
	if err != nil {
		return nil, false
	}
	paths[agent.Name] = p

	child := &node{
		id:          c.nextNodeID(),
		constraints: constraints,
		paths:       paths,
		conflicts:   findConflicts(paths),
		cost:        totalCost(paths),
	}
	return child, true
}

// popNode removes and returns the next node to expand, consulting the
// policy hook first (§4.5).
func (c *CBS) popNode(open *openHeap) *node {
	views := make([]Node, len(*open))
	byID := make(map[int]*node, len(*open))
	for i, n := range *open {
		views[i] = nodeView(n)
		byID[n.id] = n
	}

	chosen, ok := c.Policy.SelectNode(views)
	if !ok {
		return heap.Pop(open).(*node)
	}

	target, ok := byID[chosen.ID]
	if !ok {
		return heap.Pop(open).(*node) // programmer error in the hook: fall back
	}
	heap.Remove(open, target.index)
	return target
}

// chooseConflict picks the conflict to branch on, consulting the policy
// hook first (§4.5).
func (c *CBS) chooseConflict(conflicts []Conflict) Conflict {
	if chosen, ok := c.Policy.SelectConflict(conflicts); ok {
		return chosen
	}
	chosen, _ := firstConflict(conflicts)
	return chosen
}
