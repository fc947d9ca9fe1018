package engine

import (
	"time"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/risk"
	"github.com/joshharrison/critpath/internal/task"
	"github.com/joshharrison/critpath/internal/variance"
)

// Report is the result of one portfolio analysis.
type Report struct {
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Projects    []ProjectReport `json:"projects"`
	Conflicts   []task.Conflict `json:"conflicts"`
}

// ProjectReport holds everything computed for one project.
type ProjectReport struct {
	ProjectID string              `json:"project_id"`
	Tasks     []task.Task         `json:"-"`
	Schedule  *cpm.CPMResult      `json:"schedule"`
	Risks     []risk.Risk         `json:"risks"`
	Variance  []variance.Variance `json:"variance"`
}

// WhatIf is the outcome of applying one task change and re-analyzing.
type WhatIf struct {
	Changed string        `json:"changed"`
	Updates []task.Update `json:"updates"`
	Report  *Report       `json:"report"`
}

// Project returns the report for projectID, or nil.
func (r *Report) Project(projectID string) *ProjectReport {
	for i := range r.Projects {
		if r.Projects[i].ProjectID == projectID {
			return &r.Projects[i]
		}
	}
	return nil
}

// Risks returns all compression risks across projects.
func (r *Report) Risks() []risk.Risk {
	var out []risk.Risk
	for _, p := range r.Projects {
		out = append(out, p.Risks...)
	}
	return out
}

// Variance returns all baseline variances across projects.
func (r *Report) Variance() []variance.Variance {
	var out []variance.Variance
	for _, p := range r.Projects {
		out = append(out, p.Variance...)
	}
	return out
}

// Degraded lists the projects whose schedule did not converge cleanly or
// was flagged infeasible.
func (r *Report) Degraded() []string {
	var ids []string
	for _, p := range r.Projects {
		if p.Schedule.Status != cpm.StatusConverged || p.Schedule.Infeasible {
			ids = append(ids, p.ProjectID)
		}
	}
	return ids
}
