// Package reporter renders engine output for terminals and as JSON.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/engine"
	"github.com/joshharrison/critpath/internal/risk"
	"github.com/joshharrison/critpath/internal/task"
	"github.com/joshharrison/critpath/internal/ui"
	"github.com/joshharrison/critpath/internal/variance"
)

// Reporter provides terminal display for one engine report.
type Reporter struct {
	Report *engine.Report
	names  map[string]string
}

// New creates a new Reporter.
func New(report *engine.Report) *Reporter {
	names := make(map[string]string)
	for _, p := range report.Projects {
		for _, t := range p.Tasks {
			if _, ok := names[t.ID]; !ok {
				names[t.ID] = t.Name
			}
		}
	}
	return &Reporter{Report: report, names: names}
}

func (r *Reporter) title(id string, width int) string {
	title := r.names[id]
	if title == "" {
		title = id
	}
	if len(title) > width {
		title = title[:width-3] + "..."
	}
	return title
}

// PrintSchedule writes every project's waves with early/late dates, float
// and the critical path.
func (r *Reporter) PrintSchedule(w io.Writer) {
	for _, p := range r.Report.Projects {
		r.printProject(w, p)
	}
}

func (r *Reporter) printProject(w io.Writer, p engine.ProjectReport) {
	s := p.Schedule

	fmt.Fprintf(w, "%s %s %s — %s",
		ui.StatusIcon(string(s.Status)),
		ui.BoldCyan("📅 Project"),
		ui.ProjectPrefix(p.ProjectID),
		ui.ScheduleStatus(string(s.Status)))
	if len(s.Tasks) > 0 {
		fmt.Fprintf(w, " — %s %d days %s",
			ui.Bold("makespan"), s.LongestPathDays,
			ui.Dim(fmt.Sprintf("[%s → %s]", s.ProjectStart, s.ProjectFinish)))
	}
	fmt.Fprintf(w, " %s\n", ui.Dim(fmt.Sprintf("(passes %d/%d)", s.ForwardPasses, s.BackwardPasses)))

	if len(s.Cycle) > 0 {
		fmt.Fprintf(w, "  %s %s\n", ui.BoldRed("cycle:"), ui.Red(strings.Join(s.Cycle, " → ")))
	}
	if s.Infeasible {
		fmt.Fprintf(w, "  %s %s\n", ui.BoldYellow("infeasible:"),
			ui.Yellow("late start before early start for "+strings.Join(s.InfeasibleTaskIDs, ", ")))
	}
	if len(s.Tasks) == 0 {
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintln(w)

	for _, wave := range s.Waves {
		marker := ui.Dim("·")
		if wave.IsCritical {
			marker = ui.BoldYellow("⚡")
		}
		fmt.Fprintf(w, "  🌊 %s %d %s %s\n", ui.BoldWhite("WAVE"), wave.Index+1, ui.Dim(wave.Start.String()), marker)
		for _, id := range wave.TaskIDs {
			r.printTask(w, s.Tasks[id])
		}
	}

	if len(s.CriticalPath) > 0 {
		fmt.Fprintf(w, "  Critical:  %s\n", ui.BoldYellow("⚡ "+strings.Join(s.CriticalPath, " → ")))
	}
	fmt.Fprintln(w)
}

func (r *Reporter) printTask(w io.Writer, ts *cpm.TaskSchedule) {
	float := ui.Dim(fmt.Sprintf("float %d", ts.TotalFloat))
	if ts.IsCritical {
		float = ui.BoldYellow("critical")
	}
	fmt.Fprintf(w, "    %s %-10s %-36s %s → %s  %s  %s\n",
		ui.CriticalMark(ts.IsCritical),
		ui.BoldMagenta(ts.TaskID),
		r.title(ts.TaskID, 36),
		ts.EarlyStart, ts.EarlyFinish,
		ui.Dim(fmt.Sprintf("late %s → %s", ts.LateStart, ts.LateFinish)),
		float)
}

// PrintConflicts writes resource conflicts grouped in report order.
func (r *Reporter) PrintConflicts(w io.Writer, conflicts []task.Conflict) {
	if len(conflicts) == 0 {
		fmt.Fprintf(w, "%s no resource conflicts\n", ui.Green("✓"))
		return
	}
	fmt.Fprintf(w, "%s %s\n", ui.BoldRed("⚠"), ui.BoldRed(fmt.Sprintf("%d resource conflict(s)", len(conflicts))))
	for _, c := range conflicts {
		fmt.Fprintf(w, "  %-12s %s ↔ %s  %s\n",
			ui.BoldCyan(c.ResourceID),
			ui.BoldMagenta(c.Task1), ui.BoldMagenta(c.Task2),
			ui.Red(fmt.Sprintf("%s..%s", c.OverlapStart, c.OverlapEnd)))
	}
}

// PrintUpdates writes the suggested updates from a propagation.
func (r *Reporter) PrintUpdates(w io.Writer, changed string, updates []task.Update) {
	if len(updates) == 0 {
		fmt.Fprintf(w, "%s no dependents of %s need to move\n", ui.Green("✓"), ui.BoldMagenta(changed))
		return
	}
	fmt.Fprintf(w, "%s %d update(s) after changing %s\n", ui.BoldCyan("↪"), len(updates), ui.BoldMagenta(changed))
	for _, u := range updates {
		fmt.Fprintf(w, "    %-10s %-36s %s → %s\n", ui.BoldMagenta(u.ID), r.title(u.ID, 36), u.StartDate, u.EndDate)
	}
}

// PrintRisks writes compression risks.
func (r *Reporter) PrintRisks(w io.Writer, risks []risk.Risk) {
	if len(risks) == 0 {
		fmt.Fprintf(w, "%s no compression risks\n", ui.Green("✓"))
		return
	}
	fmt.Fprintf(w, "%s %s\n", ui.BoldYellow("⚡"), ui.BoldYellow(fmt.Sprintf("%d compression risk(s)", len(risks))))
	for _, rk := range risks {
		name := rk.TaskName
		if name == "" {
			name = rk.TaskID
		}
		fmt.Fprintf(w, "    %-10s %-36s %s  %s\n", ui.BoldMagenta(rk.TaskID), name,
			ui.Yellow(fmt.Sprintf("%dd", rk.Duration)), ui.Dim(rk.Risk))
	}
}

// PrintVariance writes baseline variance per task.
func (r *Reporter) PrintVariance(w io.Writer, vs []variance.Variance) {
	if len(vs) == 0 {
		fmt.Fprintf(w, "%s no tasks carry a baseline\n", ui.Dim("◌"))
		return
	}
	slipping := 0
	for _, v := range vs {
		if v.Slipping() {
			slipping++
		}
	}
	fmt.Fprintf(w, "%s %d of %d baselined task(s) slipping\n", ui.BoldCyan("📐"), slipping, len(vs))
	for _, v := range vs {
		fmt.Fprintf(w, "    %s %-10s %-36s start %s  finish %s\n",
			ui.CriticalMark(v.IsCritical),
			ui.BoldMagenta(v.TaskID), r.title(v.TaskID, 36),
			ui.Days(v.StartVarianceDays), ui.Days(v.FinishVarianceDays))
	}
}

// PrintSummaryReport writes a one-screen portfolio summary to w. The output
// is also returned as a string.
func (r *Reporter) PrintSummaryReport(w io.Writer) string {
	var b strings.Builder
	mw := io.MultiWriter(w, &b)

	rep := r.Report
	totalTasks := 0
	critical := 0
	for _, p := range rep.Projects {
		totalTasks += len(p.Schedule.Tasks)
		critical += len(p.Schedule.CriticalPath)
	}

	statusEmoji := "✅"
	statusText := ui.BoldGreen("all projects converged")
	if degraded := rep.Degraded(); len(degraded) > 0 {
		statusEmoji = "⚠️"
		statusText = ui.BoldYellow("degraded: " + strings.Join(degraded, ", "))
	}

	fmt.Fprintf(mw, "\n%s %s\n", statusEmoji, ui.BoldCyan("Critical Path Summary"))
	fmt.Fprintf(mw, "%s\n", ui.Cyan("══════════════════════════"))
	fmt.Fprintf(mw, "Run:        %s\n", ui.Dim(rep.RunID))
	fmt.Fprintf(mw, "Status:     %s\n", statusText)
	fmt.Fprintf(mw, "Projects:   %d\n", len(rep.Projects))
	fmt.Fprintf(mw, "Tasks:      %d scheduled, %d critical\n", totalTasks, critical)
	fmt.Fprintf(mw, "Conflicts:  %d\n", len(rep.Conflicts))
	fmt.Fprintf(mw, "Risks:      %d\n", len(rep.Risks()))

	fmt.Fprintf(mw, "%s\n", ui.Cyan("──────────────────────────"))
	for _, p := range rep.Projects {
		s := p.Schedule
		fmt.Fprintf(mw, "  %s %s  %s\n",
			ui.StatusIcon(string(s.Status)), ui.ProjectPrefix(p.ProjectID),
			ui.Dim(fmt.Sprintf("%d days, finish %s", s.LongestPathDays, s.ProjectFinish)))
	}

	return b.String()
}

// JSON marshals any engine output for machine consumption.
func JSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
