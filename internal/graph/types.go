package graph

import "github.com/joshharrison/critpath/internal/task"

// ProjectGraph is the dependency graph of a single project's tasks.
// Edges point from predecessor to successor (finish-to-start).
type ProjectGraph struct {
	ProjectID string
	Tasks     map[string]*task.Task
	Order     []string            // task ids in input order
	Adj       map[string][]string // task -> successors, in input order
	RevAdj    map[string][]string // task -> predecessors present in the project
	Roots     []string            // tasks with no predecessor in the project
	Leaves    []string            // tasks with no successor in the project
}
