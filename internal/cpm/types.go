package cpm

import "github.com/joshharrison/critpath/internal/task"

// DefaultMaxIterations bounds each relaxation pass loop when Config leaves
// MaxIterations unset.
const DefaultMaxIterations = 100

// Status describes how an analysis ended.
type Status string

const (
	// StatusConverged means both passes reached a fixed point.
	StatusConverged Status = "converged"
	// StatusIterationCap means a pass was still changing dates when the
	// iteration bound was hit. Dates are the best values reached.
	StatusIterationCap Status = "iteration_cap"
	// StatusCyclic means the dependency graph contains a cycle.
	StatusCyclic Status = "cyclic"
)

// Config tunes the calculator.
type Config struct {
	// MaxIterations caps the forward and backward pass loops separately.
	// Zero or negative means DefaultMaxIterations.
	MaxIterations int
	// AllowCycles runs the bounded relaxation on cyclic graphs instead of
	// returning a cyclic result with no dates.
	AllowCycles bool
}

// CPMResult holds the complete critical path analysis of one project.
type CPMResult struct {
	ProjectID       string                   `json:"project_id"`
	Tasks           map[string]*TaskSchedule `json:"tasks"`
	Order           []string                 `json:"order"`         // scheduled task ids, input order
	CriticalPath    []string                 `json:"critical_path"` // ordered task IDs on critical path
	ProjectStart    task.Date                `json:"project_start"`
	ProjectFinish   task.Date                `json:"project_finish"`
	LongestPathDays int                      `json:"longest_path_days"`
	Waves           []Wave                   `json:"waves"` // tasks that can start on the same day
	TopoOrder       []string                 `json:"topo_order,omitempty"`

	Status         Status   `json:"status"`
	Converged      bool     `json:"converged"`
	ForwardPasses  int      `json:"forward_passes"`
	BackwardPasses int      `json:"backward_passes"`
	Cycle          []string `json:"cycle,omitempty"`

	// Infeasible is set when any task's late start fell before its early
	// start. TotalFloat is still clamped to zero for those tasks.
	Infeasible        bool     `json:"infeasible"`
	InfeasibleTaskIDs []string `json:"infeasible_task_ids,omitempty"`
}

// TaskSchedule holds the scheduling info for a single task.
type TaskSchedule struct {
	TaskID      string    `json:"task_id"`
	EarlyStart  task.Date `json:"early_start"`
	EarlyFinish task.Date `json:"early_finish"`
	LateStart   task.Date `json:"late_start"`
	LateFinish  task.Date `json:"late_finish"`
	TotalFloat  int       `json:"total_float"`
	RawFloat    int       `json:"raw_float"`
	IsCritical  bool      `json:"is_critical"`
	Wave        int       `json:"wave"` // which start-date wave this belongs to
}

// Wave groups tasks whose early start falls on the same day.
type Wave struct {
	Index      int       `json:"index"`
	Start      task.Date `json:"start"`
	TaskIDs    []string  `json:"task_ids"`
	IsCritical bool      `json:"is_critical"` // true if wave contains critical path tasks
}
