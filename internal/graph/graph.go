package graph

import (
	"github.com/joshharrison/critpath/internal/task"
)

// Build constructs the dependency graph for one project's tasks. The tasks
// are copied; the caller's slice is never touched.
//
// Predecessor ids that do not name a task in the set are ignored, so a task
// whose predecessors all live elsewhere becomes a root. If an id appears
// twice the first occurrence wins.
func Build(projectID string, tasks []task.Task) *ProjectGraph {
	g := &ProjectGraph{
		ProjectID: projectID,
		Tasks:     make(map[string]*task.Task, len(tasks)),
		Adj:       make(map[string][]string),
		RevAdj:    make(map[string][]string),
	}

	for i := range tasks {
		if _, dup := g.Tasks[tasks[i].ID]; dup {
			continue
		}
		t := tasks[i].Clone()
		g.Tasks[t.ID] = &t
		g.Order = append(g.Order, t.ID)
	}

	edgeSet := make(map[[2]string]bool)
	addEdge := func(from, to string) {
		key := [2]string{from, to}
		if edgeSet[key] {
			return
		}
		edgeSet[key] = true
		g.Adj[from] = append(g.Adj[from], to)
		g.RevAdj[to] = append(g.RevAdj[to], from)
	}

	for _, id := range g.Order {
		for _, pred := range g.Tasks[id].PredecessorIDs {
			if _, ok := g.Tasks[pred]; ok {
				addEdge(pred, id)
			}
		}
	}

	for _, id := range g.Order {
		if len(g.RevAdj[id]) == 0 {
			g.Roots = append(g.Roots, id)
		}
		if len(g.Adj[id]) == 0 {
			g.Leaves = append(g.Leaves, id)
		}
	}

	return g
}

type visitState uint8

const (
	unvisited visitState = iota
	onStack
	finished
)

// DetectCycle returns the first cycle found as a path that starts and ends
// on the same task, or nil if the graph is acyclic. Tasks are explored in
// input order so the reported cycle is stable.
func (g *ProjectGraph) DetectCycle() []string {
	state := make(map[string]visitState, len(g.Order))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		state[id] = onStack
		stack = append(stack, id)

		for _, succ := range g.Adj[id] {
			switch state[succ] {
			case onStack:
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == succ {
						return append(append([]string(nil), stack[i:]...), succ)
					}
				}
			case unvisited:
				if cycle := visit(succ); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = finished
		return nil
	}

	for _, id := range g.Order {
		if state[id] != unvisited {
			continue
		}
		if cycle := visit(id); cycle != nil {
			return cycle
		}
	}
	return nil
}

// TaskCount returns the number of tasks in the graph.
func (g *ProjectGraph) TaskCount() int {
	return len(g.Tasks)
}

// IsRoot reports whether id has no predecessor inside the project.
func (g *ProjectGraph) IsRoot(id string) bool {
	return len(g.RevAdj[id]) == 0
}
