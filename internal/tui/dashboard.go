package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gen2brain/beeep"

	"github.com/sadopc/screenly/internal/agg"
	"github.com/sadopc/screenly/internal/category"
	"github.com/sadopc/screenly/internal/store"
)

type dashboardModel struct {
	store  *store.Store
	engine *agg.Engine
	width  int
	height int

	summary agg.Summary
	loaded  bool
	loadErr error

	goalMinutes  int
	goalNotified bool
}

func newDashboardModel(s *store.Store, e *agg.Engine) dashboardModel {
	return dashboardModel{store: s, engine: e}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		// "today" is always recomputed live, so running sessions show up.
		s, err := d.engine.Summary("today", true)
		return summaryMsg{summary: s, err: err}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case summaryMsg:
		d.summary = msg.summary
		d.loadErr = msg.err
		d.loaded = msg.err == nil
		d.goalMinutes = d.store.GetIntSetting("daily_goal_minutes", 240)
		if cmd := d.maybeNotifyGoal(); cmd != nil {
			return d, cmd
		}
		return d, nil

	case goalNotifiedMsg:
		d.goalNotified = true
		return d, nil

	case tickMsg:
		// Keep today's live aggregate fresh.
		return d, d.loadData()

	case tea.KeyMsg:
		if key.Matches(msg, keys.Refresh) {
			return d, d.loadData()
		}
	}
	return d, nil
}

// maybeNotifyGoal fires a desktop notification the first time today's total
// crosses the configured goal.
func (d dashboardModel) maybeNotifyGoal() tea.Cmd {
	if d.goalNotified || !d.loaded || d.goalMinutes <= 0 {
		return nil
	}
	if d.summary.Totals.Minutes < d.goalMinutes {
		return nil
	}
	if v, err := d.store.GetSetting("notify_goal"); err == nil && v != "on" {
		return nil
	}
	total := d.summary.Totals.Minutes
	goal := d.goalMinutes
	return func() tea.Msg {
		beeep.AppName = "screenly"
		// Best effort; a headless session without a notifier is fine.
		_ = beeep.Notify("Daily goal reached",
			fmt.Sprintf("Tracked %s today (goal %s)", formatMinutes(total), formatMinutes(goal)), "")
		return goalNotifiedMsg{}
	}
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}
	contentWidth := d.width - 4

	if d.loadErr != nil {
		return panelStyle.Width(contentWidth).Render(
			errorStyle.Render(fmt.Sprintf("Error: %v", d.loadErr)))
	}

	totalPanel := d.renderTotalPanel(contentWidth)
	categoryPanel := d.renderCategoryPanel(contentWidth)
	topPanel := d.renderTopPanel(contentWidth)

	return lipgloss.JoinVertical(lipgloss.Left, totalPanel, categoryPanel, topPanel)
}

func (d dashboardModel) renderTotalPanel(w int) string {
	total := d.summary.Totals.Minutes
	display := totalStyle.Width(w - 6).Render(formatMinutes(total))

	metrics := fmt.Sprintf("focus %.2f%%   streak %d day(s)",
		d.summary.FocusRatio, d.summary.StreakDays)
	metricLine := mutedStyle.Render(metrics)

	goalLine := d.renderGoalBar(w - 6)

	comparison := ""
	if prev := d.summary.PreviousPeriod; prev != nil {
		comparison = mutedStyle.Render(
			fmt.Sprintf("yesterday %s  %s",
				formatMinutes(prev.Totals.Minutes),
				formatChange(total, prev.Totals.Minutes)))
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("Today"),
		display,
		metricLine,
		goalLine,
		comparison,
	)
	return activePanelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderGoalBar(w int) string {
	if d.goalMinutes <= 0 {
		return ""
	}
	barWidth := min(w, 40)
	progress := float64(d.summary.Totals.Minutes) / float64(d.goalMinutes)
	filled := int(progress * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}

	style := successStyle
	if progress < 1 {
		style = highlightStyle
	}
	bar := style.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("%s %s/%s", bar,
		formatMinutes(d.summary.Totals.Minutes), formatMinutes(d.goalMinutes))
}

func (d dashboardModel) renderCategoryPanel(w int) string {
	title := titleStyle.Render("By Category")

	var rows []string
	rows = append(rows, title)
	total := d.summary.Totals.Minutes
	for _, c := range category.All() {
		minutes := d.summary.Totals.ByCategory[c]
		if minutes == 0 {
			continue
		}
		pct := 0.0
		if total > 0 {
			pct = float64(minutes) / float64(total) * 100
		}
		dot := categoryStyle(c).Render("●")
		rows = append(rows, fmt.Sprintf("  %s %-14s %8s  %5.1f%%", dot, c, formatMinutes(minutes), pct))
	}
	if len(rows) == 1 {
		rows = append(rows, mutedStyle.Render("Nothing tracked yet today"))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderTopPanel(w int) string {
	title := titleStyle.Render("Top Sites")
	if !d.loaded || len(d.summary.Days) == 0 || len(d.summary.Days[len(d.summary.Days)-1].TopEntities) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, mutedStyle.Render("No activity yet")))
	}

	today := d.summary.Days[len(d.summary.Days)-1]
	var rows []string
	rows = append(rows, title)
	for i, e := range today.TopEntities {
		if i >= 5 {
			break
		}
		rows = append(rows, fmt.Sprintf("  %d. %-28s %s", i+1, e.Subject, formatMinutes(e.Minutes)))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
