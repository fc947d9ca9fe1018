package reporter

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/joshharrison/critpath/internal/engine"
	"github.com/joshharrison/critpath/internal/task"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func d(s string) task.Date { return task.MustParseDate(s) }

func makeReport(t *testing.T) *engine.Report {
	t.Helper()
	base := d("2026-03-01")
	tasks := []task.Task{
		{ID: "a", Name: "Task A", ProjectID: "alpha", StartDate: base, EndDate: d("2026-03-05"), DurationDays: 4,
			AssignedResources: []string{"Crane-1"}, BaselineStart: &base},
		{ID: "b", Name: "Task B", ProjectID: "alpha", PredecessorIDs: []string{"a"}, DurationDays: 1},
		{ID: "c", Name: "Task C", ProjectID: "alpha", PredecessorIDs: []string{"a"}, DurationDays: 0},
		{ID: "x", Name: "Task X", ProjectID: "beta", StartDate: d("2026-03-03"), EndDate: d("2026-03-08"), DurationDays: 5,
			AssignedResources: []string{"Crane-1"}},
		{ID: "l1", ProjectID: "loop", PredecessorIDs: []string{"l2"}, DurationDays: 1},
		{ID: "l2", ProjectID: "loop", PredecessorIDs: []string{"l1"}, DurationDays: 1},
	}
	report, err := engine.New(engine.Options{}).Analyze(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return report
}

func TestPrintSchedule(t *testing.T) {
	rpt := New(makeReport(t))

	var buf bytes.Buffer
	rpt.PrintSchedule(&buf)
	output := buf.String()

	for _, want := range []string{"[alpha]", "[beta]", "WAVE 1", "WAVE 2", "Task A", "makespan 5 days", "⚡", "a → b", "cycle:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q\n%s", want, output)
		}
	}
}

func TestPrintConflicts(t *testing.T) {
	report := makeReport(t)
	rpt := New(report)

	var buf bytes.Buffer
	rpt.PrintConflicts(&buf, report.Conflicts)
	if !strings.Contains(buf.String(), "Crane-1") || !strings.Contains(buf.String(), "2026-03-03..2026-03-05") {
		t.Errorf("unexpected conflict output:\n%s", buf.String())
	}

	buf.Reset()
	rpt.PrintConflicts(&buf, nil)
	if !strings.Contains(buf.String(), "no resource conflicts") {
		t.Errorf("expected empty message, got %q", buf.String())
	}
}

func TestPrintUpdates(t *testing.T) {
	rpt := New(makeReport(t))

	var buf bytes.Buffer
	rpt.PrintUpdates(&buf, "a", []task.Update{{ID: "b", StartDate: d("2026-03-10"), EndDate: d("2026-03-11")}})
	if !strings.Contains(buf.String(), "Task B") || !strings.Contains(buf.String(), "2026-03-10 → 2026-03-11") {
		t.Errorf("unexpected update output:\n%s", buf.String())
	}
}

func TestPrintRisksAndVariance(t *testing.T) {
	report := makeReport(t)
	rpt := New(report)

	var buf bytes.Buffer
	rpt.PrintRisks(&buf, report.Risks())
	if !strings.Contains(buf.String(), "Task B") {
		t.Errorf("expected b to be a compression risk:\n%s", buf.String())
	}

	buf.Reset()
	rpt.PrintVariance(&buf, report.Variance())
	if !strings.Contains(buf.String(), "0 of 1 baselined") {
		t.Errorf("unexpected variance output:\n%s", buf.String())
	}
}

func TestPrintSummaryReport(t *testing.T) {
	report := makeReport(t)
	rpt := New(report)

	var buf bytes.Buffer
	summary := rpt.PrintSummaryReport(&buf)
	if summary != buf.String() {
		t.Error("returned summary should match written output")
	}
	if !strings.Contains(summary, "Critical Path Summary") {
		t.Error("summary should contain header")
	}
	if !strings.Contains(summary, report.RunID) {
		t.Error("summary should contain run ID")
	}
	if !strings.Contains(summary, "degraded: loop") {
		t.Error("summary should list degraded projects")
	}
}

func TestJSON(t *testing.T) {
	data, err := JSON(makeReport(t))
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	output := string(data)
	if !strings.Contains(output, `"project_id": "alpha"`) {
		t.Error("JSON should contain project IDs")
	}
	if !strings.Contains(output, `"early_start": "2026-03-01"`) {
		t.Error("JSON should contain dates as YYYY-MM-DD")
	}
	if !strings.Contains(output, `"status": "cyclic"`) {
		t.Error("JSON should contain cyclic status")
	}
}
