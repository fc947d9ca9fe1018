// Package variance compares computed early dates with a task's frozen
// baseline.
package variance

import (
	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/task"
)

// Variance is the slip of one task against its baseline. Positive values
// mean the schedule is running late.
type Variance struct {
	TaskID             string    `json:"task_id"`
	TaskName           string    `json:"task_name"`
	BaselineStart      task.Date `json:"baseline_start"`
	BaselineEnd        task.Date `json:"baseline_end"`
	EarlyStart         task.Date `json:"early_start"`
	EarlyFinish        task.Date `json:"early_finish"`
	StartVarianceDays  int       `json:"start_variance_days"`
	FinishVarianceDays int       `json:"finish_variance_days"`
	IsCritical         bool      `json:"is_critical"`
}

// Slipping reports whether either end of the task moved later.
func (v Variance) Slipping() bool {
	return v.StartVarianceDays > 0 || v.FinishVarianceDays > 0
}

// Analyze returns one entry per task carrying a baseline, in input order.
// A missing baseline end is derived from the baseline start and duration.
func Analyze(tasks []task.Task, result *cpm.CPMResult) []Variance {
	if result == nil {
		return nil
	}
	var out []Variance
	for _, t := range tasks {
		ts, ok := result.Tasks[t.ID]
		if !ok || t.BaselineStart == nil || t.BaselineStart.IsZero() {
			continue
		}
		start := *t.BaselineStart
		end := start.AddDays(t.Duration())
		if t.BaselineEnd != nil && !t.BaselineEnd.IsZero() {
			end = *t.BaselineEnd
		}
		out = append(out, Variance{
			TaskID:             t.ID,
			TaskName:           t.Name,
			BaselineStart:      start,
			BaselineEnd:        end,
			EarlyStart:         ts.EarlyStart,
			EarlyFinish:        ts.EarlyFinish,
			StartVarianceDays:  start.DaysUntil(ts.EarlyStart),
			FinishVarianceDays: end.DaysUntil(ts.EarlyFinish),
			IsCritical:         ts.IsCritical,
		})
	}
	return out
}
