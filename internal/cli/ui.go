package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/tconf/pkg/pipeline"
	"github.com/matzehuels/tconf/pkg/topology"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)

	styleTableHeader = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	styleTableCell   = lipgloss.NewStyle().Foreground(colorWhite).Padding(0, 1)
	styleTableBorder = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

// printError prints an error message.
func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

// printWarning prints a warning message.
func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printInfo prints an info/status message.
func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints a detail line (indented).
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(w io.Writer, key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(w, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(w io.Writer, description, cmd string) {
	fmt.Fprintln(w, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// =============================================================================
// Model Summary
// =============================================================================

// printStats prints model statistics on a single line.
func printStats(w io.Writer, stats pipeline.Stats, structured int, cached bool) {
	parts := []string{fmt.Sprintf("%d surfaces", stats.Surfaces)}
	if stats.Volumes > 0 {
		parts = append(parts, fmt.Sprintf("%d volumes", stats.Volumes))
	}
	parts = append(parts, fmt.Sprintf("%d structured patches", structured))

	status := iconFresh
	statusStyle := styleComputed
	if cached {
		status = iconCached
		statusStyle = styleCached
	}

	rendered := make([]string, len(parts))
	for i, part := range parts {
		rendered[i] = StyleDim.Render(part)
	}
	rendered = append(rendered, statusStyle.Render(status))
	fmt.Fprintln(w, "  "+strings.Join(rendered, StyleDim.Render(" · ")))
}

// printSummary prints the outcome of a model run.
func printSummary(w io.Writer, result *pipeline.Result, outs []string) {
	s := result.Summary
	printSuccess(w, "Built %s %s", s.Geometry, StyleDim.Render(s.ModelID))
	printStats(w, result.Stats, s.Structured(), result.CacheInfo.ModelHit && result.CacheInfo.RenderHit)

	fmt.Fprintln(w)
	printKeyValue(w, "band", fmt.Sprintf("r=%g a=%g R=%g", s.Band.RInner, s.Band.A, s.Band.ROuter))
	printKeyValue(w, "divisions", fmt.Sprintf("%d radial × %d angular (bump %g)", s.Divisions.Radial, s.Divisions.Angular, s.Divisions.Bump))
	fmt.Fprintln(w, regionTable(s.Regions, s.Groups))

	for _, out := range outs {
		printFile(w, out)
	}
}

// regionTable renders the physical groups of a model.
func regionTable(r topology.Regions, groups []pipeline.GroupSummary) string {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{g.Name, strconv.Itoa(g.Dim), strconv.Itoa(g.Tag), strconv.Itoa(len(g.Members))})
	}
	if len(rows) == 0 {
		// Groups are only absent when the builder skipped them.
		rows = append(rows, []string{"(none)", strconv.Itoa(int(r.Dim)), "-", "0"})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleTableBorder).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleTableHeader
			}
			return styleTableCell
		}).
		Headers("group", "dim", "tag", "entities").
		Rows(rows...).
		String()
}
