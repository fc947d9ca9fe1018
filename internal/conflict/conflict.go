// Package conflict finds resources booked on overlapping days.
package conflict

import "github.com/joshharrison/critpath/internal/task"

// Detect reports every pair of active tasks that share a resource and whose
// [StartDate, EndDate] intervals overlap. Both ends are inclusive, so a task
// ending the day another starts still conflicts with it.
//
// Resources are visited in first-appearance order and pairs in input order,
// giving one record per resource per pair. Tasks missing either date are
// skipped. Tasks from different projects are compared with each other.
func Detect(tasks []task.Task) []task.Conflict {
	var resources []string
	byResource := make(map[string][]task.Task)

	for _, t := range tasks {
		if !t.Active() || t.StartDate.IsZero() || t.EndDate.IsZero() {
			continue
		}
		seen := make(map[string]bool, len(t.AssignedResources))
		for _, r := range t.AssignedResources {
			if r == "" || seen[r] {
				continue
			}
			seen[r] = true
			if _, ok := byResource[r]; !ok {
				resources = append(resources, r)
			}
			byResource[r] = append(byResource[r], t)
		}
	}

	var conflicts []task.Conflict
	for _, r := range resources {
		booked := byResource[r]
		for i := 0; i < len(booked); i++ {
			for j := i + 1; j < len(booked); j++ {
				a, b := booked[i], booked[j]
				if !Overlaps(a, b) {
					continue
				}
				conflicts = append(conflicts, task.Conflict{
					ResourceID:   r,
					Task1:        a.ID,
					Task2:        b.ID,
					OverlapStart: task.MaxDate(a.StartDate, b.StartDate),
					OverlapEnd:   task.MinDate(a.EndDate, b.EndDate),
				})
			}
		}
	}
	return conflicts
}

// Overlaps reports whether two tasks' date ranges share at least one day.
func Overlaps(a, b task.Task) bool {
	return !a.StartDate.After(b.EndDate) && !b.StartDate.After(a.EndDate)
}

// ByResource groups conflicts by resource id, keeping their order.
func ByResource(conflicts []task.Conflict) map[string][]task.Conflict {
	out := make(map[string][]task.Conflict)
	for _, c := range conflicts {
		out[c.ResourceID] = append(out[c.ResourceID], c)
	}
	return out
}
