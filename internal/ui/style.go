package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// PrintBanner renders the critpath banner to w.
func PrintBanner(w io.Writer, tagline string) {
	frame := color.New(color.FgCyan)
	path := color.New(color.Bold, color.FgYellow)
	brand := color.New(color.Bold, color.FgMagenta)

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +--------------------------+")
	path.Fprintln(w, "   |  o──o──o──o──o──o──o──o  |")
	brand.Fprintln(w, "   |  C R I T P A T H         |")
	frame.Fprintln(w, "   +--------------------------+")
	if tagline != "" {
		fmt.Fprintf(w, "   %s\n", Dim(tagline))
	}
	fmt.Fprintln(w)
}

// projectColors is a palette of distinct bold colors for differentiating
// projects.
var projectColors = []func(a ...interface{}) string{
	BoldMagenta,
	BoldCyan,
	BoldYellow,
	BoldGreen,
	color.New(color.Bold, color.FgHiBlue).SprintFunc(),
	color.New(color.Bold, color.FgHiRed).SprintFunc(),
}

// colorIndex hashes an id to a palette index.
func colorIndex(id string) int {
	var h uint32
	for _, c := range id {
		h = h*31 + uint32(c)
	}
	return int(h % uint32(len(projectColors)))
}

// ProjectPrefix returns a colored [project-id] prefix string.
// Each project ID gets a distinct color from the palette.
func ProjectPrefix(projectID string) string {
	c := projectColors[colorIndex(projectID)]
	return Dim("[") + c(projectID) + Dim("]")
}

// StatusIcon returns a colored icon for a schedule result status.
func StatusIcon(status string) string {
	switch status {
	case "converged":
		return Green("✓")
	case "iteration_cap":
		return Yellow("⊘")
	case "cyclic":
		return Red("✗")
	default:
		return Dim("◌")
	}
}

// ScheduleStatus returns a colored schedule status string.
func ScheduleStatus(status string) string {
	switch status {
	case "converged":
		return Green(status)
	case "iteration_cap":
		return BoldYellow("iteration cap")
	case "cyclic":
		return BoldRed(status)
	default:
		return Dim(status)
	}
}

// CriticalMark returns the critical path marker, or a blank of the same
// width.
func CriticalMark(critical bool) string {
	if critical {
		return BoldYellow("⚡")
	}
	return " "
}

// Days formats a signed day count, coloring slips red and gains green.
func Days(n int) string {
	switch {
	case n > 0:
		return Red(fmt.Sprintf("+%dd", n))
	case n < 0:
		return Green(fmt.Sprintf("%dd", n))
	default:
		return Dim("0d")
	}
}
