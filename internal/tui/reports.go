package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/screenly/internal/agg"
	"github.com/sadopc/screenly/internal/category"
)

var reportRanges = []string{"7d", "30d"}

type reportsModel struct {
	engine *agg.Engine
	width  int
	height int

	rangeIdx int
	compare  bool
	summary  agg.Summary
	loaded   bool
	loadErr  error

	chart barchart.Model
}

func newReportsModel(e *agg.Engine) reportsModel {
	return reportsModel{
		engine:  e,
		compare: true,
		chart:   barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

func (r reportsModel) rangeName() string {
	return reportRanges[r.rangeIdx]
}

func (r reportsModel) refresh() tea.Cmd {
	name := r.rangeName()
	compare := r.compare
	engine := r.engine
	return func() tea.Msg {
		s, err := engine.Summary(name, compare)
		return reportsDataMsg{rangeName: name, summary: s, err: err}
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		if msg.rangeName != r.rangeName() {
			// Stale response from a range we already navigated away from.
			return r, nil
		}
		r.summary = msg.summary
		r.loadErr = msg.err
		r.loaded = msg.err == nil
		if r.loaded {
			r.buildChart()
		}
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			if r.rangeIdx > 0 {
				r.rangeIdx--
				return r, r.refresh()
			}
		case key.Matches(msg, keys.Right):
			if r.rangeIdx < len(reportRanges)-1 {
				r.rangeIdx++
				return r, r.refresh()
			}
		case key.Matches(msg, keys.Tab):
			r.rangeIdx = (r.rangeIdx + 1) % len(reportRanges)
			return r, r.refresh()
		case key.Matches(msg, keys.Compare):
			r.compare = !r.compare
			return r, r.refresh()
		case key.Matches(msg, keys.Refresh):
			return r, r.refresh()
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	// One stacked bar per day, one segment per category.
	var bars []barchart.BarData
	for _, day := range r.summary.Days {
		label := day.Day.Time().Format("02")
		if r.rangeName() == "7d" {
			label = day.Day.Time().Format("Mon")
		}

		var values []barchart.BarValue
		for _, c := range category.All() {
			minutes := day.ByCategory[c]
			if minutes == 0 {
				continue
			}
			values = append(values, barchart.BarValue{
				Name:  string(c),
				Value: float64(minutes) / 60.0,
				Style: categoryStyle(c),
			})
		}
		if len(values) == 0 {
			values = []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		}

		bars = append(bars, barchart.BarData{Label: label, Values: values})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	if r.loadErr != nil {
		return panelStyle.Width(w).Render(errorStyle.Render(fmt.Sprintf("Error: %v", r.loadErr)))
	}

	// Range tabs
	var tabs []string
	for i, name := range reportRanges {
		if i == r.rangeIdx {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	rangeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	dateLabel := ""
	if r.loaded {
		dateLabel = mutedStyle.Render(fmt.Sprintf("%s — %s",
			r.summary.Range.Start.Format("Jan 02"),
			r.summary.Range.End.Format("Jan 02, 2006")))
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", rangeTabs, "  ", dateLabel,
	)

	chartView := r.chart.View()
	statsView := r.renderStats()
	legend := r.renderLegend()
	nav := mutedStyle.Render("  ←/→: range  c: compare  r: refresh")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", chartView, "", legend, "", statsView, "", nav,
		),
	)
}

func (r reportsModel) renderStats() string {
	if !r.loaded {
		return mutedStyle.Render("  Loading…")
	}
	s := r.summary

	var rows []string
	totalLine := fmt.Sprintf("  Total %s   focus %.2f%%   streak %d day(s)",
		formatMinutes(s.Totals.Minutes), s.FocusRatio, s.StreakDays)
	if s.TopEntity != nil {
		totalLine += fmt.Sprintf("   top %s (%s)", s.TopEntity.Subject, formatMinutes(s.TopEntity.Minutes))
	}
	rows = append(rows, titleStyle.Render(totalLine))

	prev := s.PreviousPeriod
	for _, c := range category.All() {
		minutes := s.Totals.ByCategory[c]
		if minutes == 0 && (prev == nil || prev.Totals.ByCategory[c] == 0) {
			continue
		}
		dot := categoryStyle(c).Render("●")
		row := fmt.Sprintf("  %s %-14s %8s", dot, c, formatMinutes(minutes))
		if prev != nil {
			row += "   " + mutedStyle.Render(formatChange(minutes, prev.Totals.ByCategory[c]))
		}
		rows = append(rows, row)
	}

	if prev != nil {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf(
			"  previous period: %s  (%s)",
			formatMinutes(prev.Totals.Minutes),
			formatChange(s.Totals.Minutes, prev.Totals.Minutes))))
	}
	return strings.Join(rows, "\n")
}

func (r reportsModel) renderLegend() string {
	var items []string
	for _, c := range category.All() {
		dot := categoryStyle(c).Render("●")
		items = append(items, fmt.Sprintf("%s %s", dot, c))
	}
	return "  " + strings.Join(items, "  ")
}
