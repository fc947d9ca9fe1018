// Package viz renders dependency graphs as ASCII waves or Graphviz DOT.
package viz

import (
	"fmt"
	"io"
	"strings"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/engine"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/ui"
)

// Format names an output format.
type Format string

const (
	FormatASCII Format = "ascii"
	FormatDOT   Format = "dot"
)

// Render writes projects in the requested format.
func Render(w io.Writer, format Format, projects []engine.ProjectReport) error {
	switch format {
	case FormatASCII, "":
		ASCII(w, projects)
		return nil
	case FormatDOT:
		DOT(w, projects)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want ascii or dot)", format)
	}
}

// ASCII prints each project's tasks wave by wave with their outgoing edges.
func ASCII(w io.Writer, projects []engine.ProjectReport) {
	fmt.Fprintf(w, "🔗 %s\n", ui.BoldCyan("Task Dependency Graph"))
	fmt.Fprintln(w, ui.Cyan("═══════════════════════"))
	fmt.Fprintln(w)

	for _, p := range projects {
		g := graph.Build(p.ProjectID, p.Tasks)
		s := p.Schedule
		fmt.Fprintf(w, "%s %s\n", ui.ProjectPrefix(p.ProjectID), ui.ScheduleStatus(string(s.Status)))

		if len(s.Waves) == 0 {
			// Cyclic projects without dates: list tasks in input order
			for _, id := range g.Order {
				printNode(w, g, id, false)
			}
			fmt.Fprintln(w)
			continue
		}

		for _, wave := range s.Waves {
			fmt.Fprintf(w, "%s 🌊 Wave %d %s %s\n", ui.Cyan("──"), wave.Index+1,
				ui.Dim(wave.Start.String()), ui.Cyan("──────────────────────────────"))
			for _, id := range wave.TaskIDs {
				printNode(w, g, id, s.Tasks[id].IsCritical)
			}
		}
		fmt.Fprintln(w)
	}
}

func printNode(w io.Writer, g *graph.ProjectGraph, id string, critical bool) {
	fmt.Fprintf(w, "  %s [%s] %s\n", ui.CriticalMark(critical), ui.BoldMagenta(id), g.Tasks[id].Name)
	for _, succ := range g.Adj[id] {
		fmt.Fprintf(w, "      %s %s\n", ui.Dim("└──→"), succ)
	}
}

// DOT prints a Graphviz digraph with one cluster per project. Critical
// nodes and edges between critical tasks are drawn in red.
func DOT(w io.Writer, projects []engine.ProjectReport) {
	fmt.Fprintln(w, "digraph critpath {")
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box, style=rounded];")

	for i, p := range projects {
		g := graph.Build(p.ProjectID, p.Tasks)
		s := p.Schedule

		fmt.Fprintln(w)
		fmt.Fprintf(w, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(w, "    label=%q;\n", p.ProjectID)

		for _, id := range g.Order {
			fmt.Fprintf(w, "    %q [%s];\n", id, nodeAttrs(g, s, id))
		}
		for _, from := range g.Order {
			for _, to := range g.Adj[from] {
				style := ""
				if critical(s, from) && critical(s, to) {
					style = " [color=red, penwidth=2]"
				}
				fmt.Fprintf(w, "    %q -> %q%s;\n", from, to, style)
			}
		}
		fmt.Fprintln(w, "  }")
	}

	fmt.Fprintln(w, "}")
}

func nodeAttrs(g *graph.ProjectGraph, s *cpm.CPMResult, id string) string {
	lines := []string{id}
	if name := g.Tasks[id].Name; name != "" {
		lines = append(lines, name)
	}
	if ts, ok := s.Tasks[id]; ok {
		lines = append(lines, fmt.Sprintf("%s → %s (float %d)", ts.EarlyStart, ts.EarlyFinish, ts.TotalFloat))
	}
	label := strings.ReplaceAll(strings.Join(lines, "\n"), `"`, `'`)

	attrs := fmt.Sprintf("label=%q", label)
	if critical(s, id) {
		attrs += `, style="rounded,bold", color=red`
	}
	return attrs
}

func critical(s *cpm.CPMResult, id string) bool {
	ts, ok := s.Tasks[id]
	return ok && ts.IsCritical
}
