// Package engine schedules a whole portfolio: it partitions tasks by
// project, runs the critical path calculator for each project on a worker
// pool, and gathers conflicts, compression risks and baseline variance.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/joshharrison/critpath/internal/conflict"
	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/logging"
	"github.com/joshharrison/critpath/internal/metrics"
	"github.com/joshharrison/critpath/internal/propagate"
	"github.com/joshharrison/critpath/internal/risk"
	"github.com/joshharrison/critpath/internal/task"
	"github.com/joshharrison/critpath/internal/variance"
)

// Options configures an Engine.
type Options struct {
	CPM cpm.Config
	// Workers bounds concurrent project analyses. Zero means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Engine runs analyses. It keeps no state between calls and is safe for
// concurrent use.
type Engine struct {
	calc    *cpm.Calculator
	workers int
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates an Engine, filling in defaults for unset options.
func New(opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Engine{
		calc:    cpm.New(opts.CPM),
		workers: opts.Workers,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Workers returns the effective worker count.
func (e *Engine) Workers() int { return e.workers }

// Analyze schedules every project in tasks and returns the combined report.
// Projects appear in first-appearance order regardless of which worker
// finished first. The only error is ctx being cancelled.
func (e *Engine) Analyze(ctx context.Context, tasks []task.Task) (*Report, error) {
	parts := graph.Partition(tasks)
	projects := parts.Projects()
	reports := make([]ProjectReport, len(projects))

	p := pool.New().WithContext(ctx).WithMaxGoroutines(e.workers)
	for i, id := range projects {
		i, id := i, id
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = e.analyzeProject(id, parts.Tasks(id))
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("analyze portfolio: %w", err)
	}

	report := &Report{
		RunID:       ulid.Make().String(),
		GeneratedAt: time.Now().UTC(),
		Projects:    reports,
		Conflicts:   e.Conflicts(tasks),
	}
	e.logger.Info("portfolio analyzed",
		"run_id", report.RunID,
		"projects", len(reports),
		"tasks", len(tasks),
		"conflicts", len(report.Conflicts),
	)
	return report, nil
}

// Schedule runs the calculator for a single project's tasks.
func (e *Engine) Schedule(projectID string, tasks []task.Task) *cpm.CPMResult {
	return e.analyzeProject(projectID, tasks).Schedule
}

func (e *Engine) analyzeProject(projectID string, tasks []task.Task) ProjectReport {
	started := time.Now()
	result := e.calc.Analyze(projectID, tasks)
	elapsed := time.Since(started)

	log := e.logger.With("project", projectID)
	switch result.Status {
	case cpm.StatusCyclic:
		log.Warn("dependency cycle detected", "cycle", result.Cycle, "scheduled", len(result.Tasks) > 0)
	case cpm.StatusIterationCap:
		log.Warn("relaxation hit iteration cap",
			"max_iterations", e.calc.Config().MaxIterations,
			"forward_passes", result.ForwardPasses,
			"backward_passes", result.BackwardPasses,
		)
	}
	if result.Infeasible {
		log.Warn("schedule infeasible, float clamped", "tasks", result.InfeasibleTaskIDs)
	}
	log.Debug("project scheduled",
		"tasks", len(tasks),
		"status", result.Status,
		"longest_path_days", result.LongestPathDays,
		"critical", len(result.CriticalPath),
		"elapsed", elapsed,
	)

	risks := risk.Analyze(tasks, result)
	e.metrics.ObserveProject(string(result.Status), len(result.Tasks), result.ForwardPasses, result.BackwardPasses, result.Infeasible, elapsed)
	e.metrics.AddRisks(len(risks))

	return ProjectReport{
		ProjectID: projectID,
		Tasks:     tasks,
		Schedule:  result,
		Risks:     risks,
		Variance:  variance.Analyze(tasks, result),
	}
}

// Conflicts runs resource conflict detection across all projects.
func (e *Engine) Conflicts(tasks []task.Task) []task.Conflict {
	conflicts := conflict.Detect(tasks)
	e.metrics.AddConflicts(len(conflicts))
	for _, c := range conflicts {
		e.logger.Debug("resource conflict",
			"resource", c.ResourceID,
			"task1", c.Task1,
			"task2", c.Task2,
			"overlap_start", c.OverlapStart.String(),
			"overlap_end", c.OverlapEnd.String(),
		)
	}
	return conflicts
}

// Propagate suggests date updates for every task depending on changed.
func (e *Engine) Propagate(changed task.Task, tasks []task.Task) []task.Update {
	updates := propagate.Propagate(changed, tasks)
	e.metrics.AddUpdates(len(updates))
	e.logger.Debug("propagated change", "task", changed.ID, "updates", len(updates))
	return updates
}

// WhatIf propagates changed through tasks, applies the change and the
// resulting updates to a copy of tasks, and re-analyzes that copy.
func (e *Engine) WhatIf(ctx context.Context, changed task.Task, tasks []task.Task) (*WhatIf, error) {
	updates := e.Propagate(changed, tasks)

	own := task.Update{ID: changed.ID, StartDate: changed.StartDate, EndDate: changed.EndDate}
	if own.EndDate.IsZero() && !own.StartDate.IsZero() {
		own.EndDate = own.StartDate.AddDays(changed.Duration())
	}
	applied := propagate.Apply(tasks, append([]task.Update{own}, updates...))

	report, err := e.Analyze(ctx, applied)
	if err != nil {
		return nil, err
	}
	return &WhatIf{Changed: changed.ID, Updates: updates, Report: report}, nil
}
