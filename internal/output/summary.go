package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mj1618/screen-macro/internal/orchestrator"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

func resultStyle(result string) lipgloss.Style {
	switch result {
	case orchestrator.ResultDone:
		return doneStyle
	case orchestrator.ResultFailed:
		return failedStyle
	default:
		return stoppedStyle
	}
}

// RenderSummary formats a run summary as a bordered box for a terminal.
func RenderSummary(sum orchestrator.Summary, width int) string {
	lines := []string{
		titleStyle.Render("run " + shortID(sum.RunID)),
		"",
	}
	if len(sum.Accounts) == 0 {
		lines = append(lines, mutedStyle.Render("no accounts processed"))
	}
	for _, a := range sum.Accounts {
		detail := fmt.Sprintf("restarts %d", a.Restarts)
		if len(a.Skipped) > 0 {
			detail += fmt.Sprintf(", skipped %s", joinInts(a.Skipped))
		}
		lines = append(lines, fmt.Sprintf("%-12s %s  %s  %s",
			a.Account,
			resultStyle(a.Result).Render(fmt.Sprintf("%-7s", a.Result)),
			mutedStyle.Render(detail),
			mutedStyle.Render(a.Elapsed.Round(time.Second).String())))
	}
	lines = append(lines, "", fmt.Sprintf("%s done, %s failed, %s stopped in %s",
		doneStyle.Render(fmt.Sprint(sum.Count(orchestrator.ResultDone))),
		failedStyle.Render(fmt.Sprint(sum.Count(orchestrator.ResultFailed))),
		stoppedStyle.Render(fmt.Sprint(sum.Count(orchestrator.ResultStopped))),
		sum.Elapsed.Round(time.Second)))
	if sum.Exhausted {
		lines = append(lines, mutedStyle.Render("no eligible accounts remain"))
	}

	box := boxStyle
	if width > 4 {
		box = box.MaxWidth(width)
	}
	return box.Render(strings.Join(lines, "\n"))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ",")
}
