package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/joescharf/pulse/internal/health"
)

// UI writes prefixed, colored CLI messages. Verbose and dry-run lines are
// suppressed unless the matching flag is set.
type UI struct {
	Verbose bool
	DryRun  bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("\u2713")
	warningPrefix = color.New(color.FgHiYellow).Sprint("\u26a0")
	errorPrefix   = color.New(color.FgHiRed).Sprint("\u2717")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  \u2192")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
	dim           = color.New(color.Faint).SprintFunc()
)

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// Green returns a green-colored string.
func Green(s string) string { return green(s) }

// Yellow returns a yellow-colored string.
func Yellow(s string) string { return yellow(s) }

// Red returns a red-colored string.
func Red(s string) string { return red(s) }

// StatusColor colors a project lifecycle status.
func StatusColor(status string) string {
	switch strings.ToLower(status) {
	case "active":
		return green(status)
	case "brainstorming", "planning":
		return cyan(status)
	case "on hold":
		return yellow(status)
	case "completed", "archived":
		return dim(status)
	default:
		return status
	}
}

// HealthStatusColor colors a health status name.
func HealthStatusColor(status string) string {
	switch health.Status(strings.ToLower(status)) {
	case health.StatusExcellent, health.StatusHealthy:
		return green(status)
	case health.StatusNormal:
		return cyan(status)
	case health.StatusWarning:
		return yellow(status)
	case health.StatusCritical, health.StatusStalemate:
		return red(status)
	default:
		return status
	}
}

// HealthColor colors a score by the status band it falls in.
func HealthColor(score int) string {
	return colorByStatus(health.ClassifyScore(score), strconv.Itoa(score))
}

func colorByStatus(st health.Status, s string) string {
	switch st {
	case health.StatusExcellent, health.StatusHealthy:
		return green(s)
	case health.StatusNormal:
		return cyan(s)
	case health.StatusWarning:
		return yellow(s)
	default:
		return red(s)
	}
}

// Impact renders a signed factor impact, green when positive.
func Impact(n int) string {
	switch {
	case n > 0:
		return green(fmt.Sprintf("+%d", n))
	case n < 0:
		return red(strconv.Itoa(n))
	default:
		return "0"
	}
}

// TrendArrow renders a trend as an arrow.
func TrendArrow(trend string) string {
	switch health.Trend(trend) {
	case health.TrendImproving:
		return green("\u2191")
	case health.TrendDeclining:
		return red("\u2193")
	default:
		return "\u2192"
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

func (u *UI) DryRunMsg(format string, a ...any) {
	if u.DryRun {
		u.Warning("[DRY-RUN] "+format, a...)
	}
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}
