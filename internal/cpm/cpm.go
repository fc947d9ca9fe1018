package cpm

import (
	"fmt"
	"sort"

	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/task"
)

// Calculator runs critical path analysis for one project at a time. It
// holds no state between calls and is safe for concurrent use.
type Calculator struct {
	cfg Config
}

// New creates a Calculator, filling in defaults for unset config fields.
func New(cfg Config) *Calculator {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	return &Calculator{cfg: cfg}
}

// Config returns the effective configuration.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Analyze runs the calculator with the default configuration.
func Analyze(projectID string, tasks []task.Task) *CPMResult {
	return New(Config{}).Analyze(projectID, tasks)
}

// Analyze performs critical path method analysis on one project's tasks.
//
// The forward and backward passes are fixed-point relaxations over the
// tasks in input order, so predecessor lists may reference tasks in any
// order. Each pass loop stops after a pass that changes nothing, or after
// MaxIterations passes.
func (c *Calculator) Analyze(projectID string, tasks []task.Task) *CPMResult {
	g := graph.Build(projectID, tasks)

	result := &CPMResult{
		ProjectID: projectID,
		Tasks:     make(map[string]*TaskSchedule, g.TaskCount()),
		Status:    StatusConverged,
	}
	if g.TaskCount() == 0 {
		result.Converged = true
		return result
	}

	if cycle := g.DetectCycle(); cycle != nil {
		result.Status = StatusCyclic
		result.Cycle = cycle
		if !c.cfg.AllowCycles {
			return result
		}
	} else {
		order, err := topoSort(g)
		if err == nil {
			result.TopoOrder = order
		}
	}

	anchor := earliestStart(g)
	startOf := func(t *task.Task) task.Date {
		if t.StartDate.IsZero() {
			return anchor
		}
		return t.StartDate
	}

	// Forward pass: seed roots, then relax ES = max(pred.EF + lag)
	es := make(map[string]task.Date, g.TaskCount())
	ef := make(map[string]task.Date, g.TaskCount())
	for _, id := range g.Roots {
		t := g.Tasks[id]
		es[id] = startOf(t)
		ef[id] = es[id].AddDays(t.Duration())
	}

	forwardDone := false
	for pass := 1; pass <= c.cfg.MaxIterations; pass++ {
		result.ForwardPasses = pass
		changed := false
		for _, id := range g.Order {
			if g.IsRoot(id) {
				continue
			}
			t := g.Tasks[id]
			var cand task.Date
			found := false
			for _, pred := range g.RevAdj[id] {
				predEF, ok := ef[pred]
				if !ok {
					continue
				}
				if next := predEF.AddDays(t.LagDays); !found || next.After(cand) {
					cand = next
					found = true
				}
			}
			if !found {
				continue
			}
			if cur, ok := es[id]; !ok || cand.After(cur) {
				es[id] = cand
				ef[id] = cand.AddDays(t.Duration())
				changed = true
			}
		}
		if !changed {
			forwardDone = true
			break
		}
	}

	// Tasks only reachable through a cycle never get a predecessor finish
	for _, id := range g.Order {
		if _, ok := es[id]; !ok {
			t := g.Tasks[id]
			es[id] = startOf(t)
			ef[id] = es[id].AddDays(t.Duration())
		}
	}

	finish := ef[g.Order[0]]
	for _, id := range g.Order {
		finish = task.MaxDate(finish, ef[id])
	}
	result.ProjectFinish = finish
	result.ProjectStart = projectStart(g, es)
	result.LongestPathDays = result.ProjectStart.DaysUntil(finish)

	// Backward pass: every task may finish as late as the project does,
	// then relax LF = min(succ.LS - succ.lag)
	lf := make(map[string]task.Date, g.TaskCount())
	ls := make(map[string]task.Date, g.TaskCount())
	for _, id := range g.Order {
		lf[id] = finish
		ls[id] = finish.AddDays(-g.Tasks[id].Duration())
	}

	backwardDone := false
	for pass := 1; pass <= c.cfg.MaxIterations; pass++ {
		result.BackwardPasses = pass
		changed := false
		for _, id := range g.Order {
			var cand task.Date
			found := false
			for _, succ := range g.Adj[id] {
				if next := ls[succ].AddDays(-g.Tasks[succ].LagDays); !found || next.Before(cand) {
					cand = next
					found = true
				}
			}
			if found && cand.Before(lf[id]) {
				lf[id] = cand
				ls[id] = cand.AddDays(-g.Tasks[id].Duration())
				changed = true
			}
		}
		if !changed {
			backwardDone = true
			break
		}
	}

	result.Converged = forwardDone && backwardDone
	if !result.Converged && result.Status != StatusCyclic {
		result.Status = StatusIterationCap
	}

	for _, id := range g.Order {
		raw := es[id].DaysUntil(ls[id])
		float := raw
		if float < 0 {
			float = 0
			result.Infeasible = true
			result.InfeasibleTaskIDs = append(result.InfeasibleTaskIDs, id)
		}
		result.Tasks[id] = &TaskSchedule{
			TaskID:      id,
			EarlyStart:  es[id],
			EarlyFinish: ef[id],
			LateStart:   ls[id],
			LateFinish:  lf[id],
			TotalFloat:  float,
			RawFloat:    raw,
			IsCritical:  float == 0,
		}
	}
	result.Order = append([]string(nil), g.Order...)

	result.CriticalPath = criticalPath(result, g)
	result.Waves = computeWaves(result)

	return result
}

// earliestStart returns the earliest supplied start date in the project,
// used for tasks whose own start is missing.
func earliestStart(g *graph.ProjectGraph) task.Date {
	var anchor task.Date
	for _, id := range g.Order {
		d := g.Tasks[id].StartDate
		if d.IsZero() {
			continue
		}
		if anchor.IsZero() || d.Before(anchor) {
			anchor = d
		}
	}
	return anchor
}

// projectStart is the earliest root start, or the earliest early start when
// every task sits behind a cycle.
func projectStart(g *graph.ProjectGraph, es map[string]task.Date) task.Date {
	ids := g.Roots
	if len(ids) == 0 {
		ids = g.Order
	}
	start := es[ids[0]]
	for _, id := range ids[1:] {
		start = task.MinDate(start, es[id])
	}
	return start
}

// criticalPath lists critical tasks in topological order, falling back to
// early start then input order when the graph is cyclic.
func criticalPath(result *CPMResult, g *graph.ProjectGraph) []string {
	order := result.TopoOrder
	if len(order) == 0 {
		order = append([]string(nil), g.Order...)
		sort.SliceStable(order, func(a, b int) bool {
			return result.Tasks[order[a]].EarlyStart.Before(result.Tasks[order[b]].EarlyStart)
		})
	}

	var path []string
	for _, id := range order {
		if result.Tasks[id].IsCritical {
			path = append(path, id)
		}
	}
	return path
}

// topoSort performs Kahn's algorithm, breaking ties by input order.
func topoSort(g *graph.ProjectGraph) ([]string, error) {
	index := make(map[string]int, len(g.Order))
	inDegree := make(map[string]int, len(g.Order))
	for i, id := range g.Order {
		index[id] = i
		inDegree[id] = len(g.RevAdj[id])
	}

	var queue []string
	for _, id := range g.Order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var order []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var newReady []string
		for _, succ := range g.Adj[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				newReady = append(newReady, succ)
			}
		}
		sort.Slice(newReady, func(a, b int) bool { return index[newReady[a]] < index[newReady[b]] })
		queue = append(queue, newReady...)
	}

	if len(order) != len(g.Order) {
		return nil, fmt.Errorf("topological sort failed: graph has a cycle (%d of %d tasks sorted)", len(order), len(g.Order))
	}

	return order, nil
}

// computeWaves groups tasks by their early start date.
func computeWaves(result *CPMResult) []Wave {
	groups := make(map[string][]string)
	var starts []task.Date
	for _, id := range result.Order {
		es := result.Tasks[id].EarlyStart
		key := es.String()
		if _, ok := groups[key]; !ok {
			starts = append(starts, es)
		}
		groups[key] = append(groups[key], id)
	}
	sort.Slice(starts, func(a, b int) bool { return starts[a].Before(starts[b]) })

	waves := make([]Wave, len(starts))
	for i, start := range starts {
		taskIDs := groups[start.String()]

		hasCritical := false
		for _, id := range taskIDs {
			result.Tasks[id].Wave = i
			if result.Tasks[id].IsCritical {
				hasCritical = true
			}
		}

		// Critical tasks first within a wave
		sort.SliceStable(taskIDs, func(a, b int) bool {
			return result.Tasks[taskIDs[a]].IsCritical && !result.Tasks[taskIDs[b]].IsCritical
		})

		waves[i] = Wave{
			Index:      i,
			Start:      start,
			TaskIDs:    taskIDs,
			IsCritical: hasCritical,
		}
	}

	return waves
}
