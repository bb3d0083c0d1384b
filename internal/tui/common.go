package tui

import (
	"fmt"
	"time"

	"github.com/sadopc/screenly/internal/agg"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewReports
	viewActivity
	viewSettings
)

var viewNames = []string{"Dashboard", "Reports", "Activity", "Settings"}

// --- Messages ---

type summaryMsg struct {
	summary agg.Summary
	err     error
}

type reportsDataMsg struct {
	rangeName string
	summary   agg.Summary
	err       error
}

type activityDataMsg struct {
	events []agg.Event
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

type goalNotifiedMsg struct{}

// --- Helpers ---

func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	h := minutes / 60
	m := minutes % 60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// formatChange renders a period-over-period delta with its direction arrow.
func formatChange(current, previous int) string {
	change := agg.PercentChange(float64(current), float64(previous))
	arrow := "→"
	if change > 0 {
		arrow = "↑"
	} else if change < 0 {
		arrow = "↓"
	}
	return fmt.Sprintf("%s %+.1f%%", arrow, change)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
