package engine

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/logging"
	"github.com/joshharrison/critpath/internal/metrics"
	"github.com/joshharrison/critpath/internal/task"
)

func d(s string) task.Date { return task.MustParseDate(s) }

func portfolio() []task.Task {
	return []task.Task{
		{ID: "a", ProjectID: "alpha", StartDate: d("2026-03-01"), EndDate: d("2026-03-05"), DurationDays: 4, AssignedResources: []string{"Crane-1"}},
		{ID: "b", ProjectID: "alpha", PredecessorIDs: []string{"a"}, DurationDays: 1},
		{ID: "x", ProjectID: "beta", StartDate: d("2026-03-03"), EndDate: d("2026-03-08"), DurationDays: 5, AssignedResources: []string{"Crane-1"}},
		{ID: "u", StartDate: d("2026-04-01"), DurationDays: 3},
	}
}

func TestAnalyze_Portfolio(t *testing.T) {
	var logs bytes.Buffer
	e := New(Options{Logger: logging.New(&logs, "debug", "text"), Metrics: metrics.New()})

	report, err := e.Analyze(context.Background(), portfolio())
	require.NoError(t, err)

	require.Len(t, report.Projects, 3)
	assert.Equal(t, "alpha", report.Projects[0].ProjectID)
	assert.Equal(t, "beta", report.Projects[1].ProjectID)
	assert.Equal(t, task.UnassignedProject, report.Projects[2].ProjectID)
	assert.Len(t, report.RunID, 26)

	alpha := report.Project("alpha")
	require.NotNil(t, alpha)
	assert.Equal(t, 5, alpha.Schedule.LongestPathDays)
	assert.Equal(t, []string{"a", "b"}, alpha.Schedule.CriticalPath)

	// b is critical and one day long
	require.Len(t, report.Risks(), 1)
	assert.Equal(t, "b", report.Risks()[0].TaskID)

	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, "Crane-1", report.Conflicts[0].ResourceID)
	assert.Equal(t, "2026-03-03", report.Conflicts[0].OverlapStart.String())
	assert.Equal(t, "2026-03-05", report.Conflicts[0].OverlapEnd.String())

	assert.Empty(t, report.Degraded())
	assert.Nil(t, report.Project("missing"))
	assert.Contains(t, logs.String(), "portfolio analyzed")
}

func TestAnalyze_OrderIsStableAcrossWorkerCounts(t *testing.T) {
	var tasks []task.Task
	for p := 0; p < 20; p++ {
		for i := 0; i < 5; i++ {
			tk := task.Task{
				ID:           fmt.Sprintf("p%d-t%d", p, i),
				ProjectID:    fmt.Sprintf("p%d", p),
				StartDate:    d("2026-01-01"),
				DurationDays: i + 1,
			}
			if i > 0 {
				tk.PredecessorIDs = []string{fmt.Sprintf("p%d-t%d", p, i-1)}
			}
			tasks = append(tasks, tk)
		}
	}

	serial, err := New(Options{Workers: 1}).Analyze(context.Background(), tasks)
	require.NoError(t, err)
	parallel, err := New(Options{Workers: 8}).Analyze(context.Background(), tasks)
	require.NoError(t, err)

	require.Len(t, parallel.Projects, 20)
	for i := range serial.Projects {
		assert.Equal(t, serial.Projects[i].ProjectID, parallel.Projects[i].ProjectID)
		assert.Equal(t, serial.Projects[i].Schedule.Tasks, parallel.Projects[i].Schedule.Tasks)
		assert.Equal(t, 15, parallel.Projects[i].Schedule.LongestPathDays)
	}
}

func TestAnalyze_CyclicProjectIsDegraded(t *testing.T) {
	var logs bytes.Buffer
	e := New(Options{Logger: logging.New(&logs, "warn", "text")})

	report, err := e.Analyze(context.Background(), []task.Task{
		{ID: "a", ProjectID: "loop", PredecessorIDs: []string{"b"}, DurationDays: 1},
		{ID: "b", ProjectID: "loop", PredecessorIDs: []string{"a"}, DurationDays: 1},
		{ID: "c", ProjectID: "fine", StartDate: d("2026-01-01"), DurationDays: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"loop"}, report.Degraded())
	assert.Equal(t, cpm.StatusCyclic, report.Project("loop").Schedule.Status)
	assert.Contains(t, logs.String(), "dependency cycle detected")
}

func TestAnalyze_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Analyze(ctx, portfolio())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_Empty(t *testing.T) {
	report, err := New(Options{}).Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Projects)
	assert.Empty(t, report.Conflicts)
	assert.Empty(t, report.Risks())
}

func TestNew_Defaults(t *testing.T) {
	e := New(Options{})
	assert.Positive(t, e.Workers())
	assert.Equal(t, cpm.DefaultMaxIterations, e.calc.Config().MaxIterations)
}

func TestWhatIf(t *testing.T) {
	tasks := []task.Task{
		{ID: "a", StartDate: d("2026-03-01"), DurationDays: 10},
		{ID: "b", PredecessorIDs: []string{"a"}, DurationDays: 10},
		{ID: "c", PredecessorIDs: []string{"b"}, DurationDays: 10},
	}
	changed := tasks[0]
	changed.DurationDays = 15

	out, err := New(Options{}).WhatIf(context.Background(), changed, tasks)
	require.NoError(t, err)

	require.Len(t, out.Updates, 2)
	assert.Equal(t, "2026-03-16", out.Updates[0].StartDate.String())
	assert.Equal(t, "2026-04-05", out.Updates[1].EndDate.String())

	sched := out.Report.Projects[0].Schedule
	assert.Equal(t, 35, sched.LongestPathDays)
	assert.Equal(t, "2026-04-05", sched.ProjectFinish.String())
	// input snapshot is unchanged
	assert.Equal(t, 10, tasks[0].DurationDays)
}
