package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/screenly/internal/agg"
	"github.com/sadopc/screenly/internal/store"
)

const activityLimit = 20

// activityModel shows the raw event log, newest first. Useful for checking
// what the tracker actually recorded before it gets rolled up.
type activityModel struct {
	store  *store.Store
	width  int
	height int

	events []agg.Event
}

func newActivityModel(s *store.Store) activityModel {
	return activityModel{store: s}
}

func (a *activityModel) setSize(w, h int) {
	a.width = w
	a.height = h
}

func (a activityModel) refresh() tea.Cmd {
	return func() tea.Msg {
		events, _ := a.store.RecentEvents(activityLimit)
		return activityDataMsg{events: events}
	}
}

func (a activityModel) update(msg tea.Msg) (activityModel, tea.Cmd) {
	switch msg := msg.(type) {
	case activityDataMsg:
		a.events = msg.events
		return a, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Refresh) {
			return a, a.refresh()
		}
	}
	return a, nil
}

func (a activityModel) view() string {
	w := a.width - 4

	title := titleStyle.Render("Recent Activity")
	if len(a.events) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, mutedStyle.Render("No events recorded yet")))
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, mutedStyle.Render(
		fmt.Sprintf("  %-10s %-5s %-30s %-14s %8s", "Day", "Start", "Subject", "Category", "Minutes")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 72))))

	for _, e := range a.events {
		dot := categoryStyle(e.Category).Render("●")
		minutes := formatMinutes(e.Minutes)
		if e.Running() {
			minutes = successStyle.Render("running")
		}
		rows = append(rows, fmt.Sprintf("  %-10s %-5s %-30s %s %-12s %8s",
			e.Day,
			e.Start.UTC().Format("15:04"),
			truncate(e.Subject, 30),
			dot, e.Category,
			minutes,
		))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return s[:n-1] + "…"
}
