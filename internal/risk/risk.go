// Package risk flags critical tasks that leave no room for slippage.
package risk

import (
	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/task"
)

// CompressionRisk is the description attached to every flagged task.
const CompressionRisk = "Critical task with less than 2 days duration: any upstream slip delays the project"

// MinSafeDuration is the shortest critical task duration not flagged.
const MinSafeDuration = 2

// Risk is a single compression risk.
type Risk struct {
	TaskID   string `json:"task_id"`
	TaskName string `json:"task_name"`
	Duration int    `json:"duration"`
	Risk     string `json:"risk"`
}

// Analyze returns the critical tasks shorter than MinSafeDuration, in input
// order. Tasks missing from the result are ignored.
func Analyze(tasks []task.Task, result *cpm.CPMResult) []Risk {
	if result == nil {
		return nil
	}
	var risks []Risk
	for _, t := range tasks {
		ts, ok := result.Tasks[t.ID]
		if !ok || !ts.IsCritical || t.DurationDays >= MinSafeDuration {
			continue
		}
		risks = append(risks, Risk{
			TaskID:   t.ID,
			TaskName: t.Name,
			Duration: t.DurationDays,
			Risk:     CompressionRisk,
		})
	}
	return risks
}
