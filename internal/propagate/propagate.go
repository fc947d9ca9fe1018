// Package propagate computes the date shifts a change to one task pushes
// onto the tasks that depend on it.
package propagate

import "github.com/joshharrison/critpath/internal/task"

// Propagate walks every task transitively depending on changed, depth
// first in input order, and returns the suggested finish-to-start updates.
// Nothing is applied.
//
// changed carries the task's new dates and replaces any task with the same
// id in all. Each task is visited at most once, so on a cyclic graph the
// walk stops at the first revisit instead of looping.
func Propagate(changed task.Task, all []task.Task) []task.Update {
	successors := make(map[string][]task.Task)
	seenIDs := make(map[string]bool, len(all))
	for _, t := range all {
		if t.ID == changed.ID || seenIDs[t.ID] {
			continue
		}
		seenIDs[t.ID] = true
		for _, pred := range uniq(t.PredecessorIDs) {
			successors[pred] = append(successors[pred], t)
		}
	}

	p := &propagator{
		successors: successors,
		visited:    map[string]bool{changed.ID: true},
	}
	p.walk(changed.ID, finishOf(changed))
	return p.updates
}

type propagator struct {
	successors map[string][]task.Task
	visited    map[string]bool
	updates    []task.Update
}

func (p *propagator) walk(id string, end task.Date) {
	if end.IsZero() {
		return
	}
	for _, succ := range p.successors[id] {
		if p.visited[succ.ID] {
			continue
		}
		p.visited[succ.ID] = true

		start := end.AddDays(succ.LagDays)
		finish := start.AddDays(succ.Duration())
		p.updates = append(p.updates, task.Update{ID: succ.ID, StartDate: start, EndDate: finish})
		p.walk(succ.ID, finish)
	}
}

// finishOf is the task's end date, or start plus duration when no end is set.
func finishOf(t task.Task) task.Date {
	if !t.EndDate.IsZero() {
		return t.EndDate
	}
	if t.StartDate.IsZero() {
		return task.Date{}
	}
	return t.StartDate.AddDays(t.Duration())
}

func uniq(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Apply returns a copy of tasks with updates written onto matching ids.
// The changed task itself is usually part of the what-if and should be
// passed through as an update too.
func Apply(tasks []task.Task, updates []task.Update) []task.Task {
	byID := make(map[string]task.Update, len(updates))
	for _, u := range updates {
		byID[u.ID] = u
	}
	out := task.CloneAll(tasks)
	for i := range out {
		u, ok := byID[out[i].ID]
		if !ok {
			continue
		}
		out[i].StartDate = u.StartDate
		out[i].EndDate = u.EndDate
		if !u.StartDate.IsZero() && !u.EndDate.IsZero() {
			out[i].DurationDays = u.StartDate.DaysUntil(u.EndDate)
		}
	}
	return out
}
