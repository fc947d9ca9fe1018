package graph

import "github.com/joshharrison/critpath/internal/task"

// Partitions is an immutable grouping of tasks by owning project.
type Partitions struct {
	projects []string
	groups   map[string][]task.Task
}

// Partition groups a flat task list by project, preserving input order
// within each group. Tasks without a project land in task.UnassignedProject.
func Partition(tasks []task.Task) Partitions {
	p := Partitions{groups: make(map[string][]task.Task)}
	for i := range tasks {
		key := tasks[i].ProjectKey()
		if _, seen := p.groups[key]; !seen {
			p.projects = append(p.projects, key)
		}
		p.groups[key] = append(p.groups[key], tasks[i].Clone())
	}
	return p
}

// Projects returns project ids in order of first appearance.
func (p Partitions) Projects() []string {
	return append([]string(nil), p.projects...)
}

// Tasks returns a copy of the given project's tasks.
func (p Partitions) Tasks(projectID string) []task.Task {
	return task.CloneAll(p.groups[projectID])
}

// Len returns the number of projects.
func (p Partitions) Len() int {
	return len(p.projects)
}

// Only returns the partitions restricted to the listed projects. Unknown
// ids are ignored; order follows the original partition.
func (p Partitions) Only(projectIDs ...string) Partitions {
	want := make(map[string]bool, len(projectIDs))
	for _, id := range projectIDs {
		want[id] = true
	}
	out := Partitions{groups: make(map[string][]task.Task)}
	for _, id := range p.projects {
		if want[id] {
			out.projects = append(out.projects, id)
			out.groups[id] = p.groups[id]
		}
	}
	return out
}
