package task

import "strings"

// UnassignedProject is the partition key for tasks without a project.
const UnassignedProject = "unassigned"

// Status is a task's lifecycle status. Only cancellation is meaningful to
// the scheduler; every other value counts as active.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusOnHold     Status = "on_hold"
	StatusCancelled  Status = "cancelled"
)

// Cancelled reports whether the status is cancelled (either spelling).
func (s Status) Cancelled() bool {
	v := strings.ToLower(strings.TrimSpace(string(s)))
	return v == string(StatusCancelled) || v == "canceled"
}

// Task is a read-only snapshot of a scheduled task supplied by the caller.
type Task struct {
	ID                string   `json:"id" yaml:"id"`
	Name              string   `json:"name,omitempty" yaml:"name,omitempty"`
	ProjectID         string   `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	StartDate         Date     `json:"start_date" yaml:"start_date"`
	EndDate           Date     `json:"end_date" yaml:"end_date"`
	DurationDays      int      `json:"duration_days" yaml:"duration_days"`
	PredecessorIDs    []string `json:"predecessor_ids,omitempty" yaml:"predecessor_ids,omitempty"`
	LagDays           int      `json:"lag_days,omitempty" yaml:"lag_days,omitempty"`
	AssignedResources []string `json:"assigned_resources,omitempty" yaml:"assigned_resources,omitempty"`
	Status            Status   `json:"status,omitempty" yaml:"status,omitempty"`
	BaselineStart     *Date    `json:"baseline_start,omitempty" yaml:"baseline_start,omitempty"`
	BaselineEnd       *Date    `json:"baseline_end,omitempty" yaml:"baseline_end,omitempty"`
}

// Duration returns DurationDays floored at zero.
func (t Task) Duration() int {
	if t.DurationDays < 0 {
		return 0
	}
	return t.DurationDays
}

// ProjectKey returns the partition key for the task.
func (t Task) ProjectKey() string {
	if t.ProjectID == "" {
		return UnassignedProject
	}
	return t.ProjectID
}

// Active reports whether the task takes part in resource conflict checks.
func (t Task) Active() bool {
	return !t.Status.Cancelled()
}

// Clone returns a deep copy so callers' slices are never shared.
func (t Task) Clone() Task {
	c := t
	c.PredecessorIDs = append([]string(nil), t.PredecessorIDs...)
	c.AssignedResources = append([]string(nil), t.AssignedResources...)
	if t.BaselineStart != nil {
		d := *t.BaselineStart
		c.BaselineStart = &d
	}
	if t.BaselineEnd != nil {
		d := *t.BaselineEnd
		c.BaselineEnd = &d
	}
	return c
}

// CloneAll deep-copies a task slice.
func CloneAll(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}

// Conflict records two active tasks booked on the same resource over
// overlapping days.
type Conflict struct {
	ResourceID   string `json:"resource_id"`
	Task1        string `json:"task1"`
	Task2        string `json:"task2"`
	OverlapStart Date   `json:"overlap_start"`
	OverlapEnd   Date   `json:"overlap_end"`
}

// Update is a suggested date change for one task. It is never applied by
// the engine itself.
type Update struct {
	ID        string `json:"id"`
	StartDate Date   `json:"start_date"`
	EndDate   Date   `json:"end_date"`
}
