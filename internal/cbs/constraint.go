package cbs

// Constraint prohibits (or, if positive, requires) an agent from occupying
// a position, or traversing an edge, at a specific time.
//
// A vertex constraint has NextPosition unset (HasNext == false); an edge
// constraint has it set. When IsPositive is false (the only kind this
// package's search ever generates), the agent must not occupy Position at
// Time (vertex) or must not traverse Position -> NextPosition arriving at
// Time (edge). When IsPositive is true, the agent must satisfy the
// constraint at that time; positive constraints are honored if supplied
// externally but are never produced by Solve.
type Constraint struct {
	Agent        string
	Time         int
	Position     Position
	NextPosition Position
	HasNext      bool
	IsPositive   bool
}

// vertexConstraint builds a negative vertex constraint.
func vertexConstraint(agent string, time int, pos Position) Constraint {
	return Constraint{Agent: agent, Time: time, Position: pos}
}

// edgeConstraint builds a negative edge constraint for the traversal
// from -> to arriving at time.
func edgeConstraint(agent string, time int, from, to Position) Constraint {
	return Constraint{Agent: agent, Time: time, Position: from, NextPosition: to, HasNext: true}
}
