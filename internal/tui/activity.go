package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/aetherplan/internal/store"
	"github.com/sadopc/aetherplan/internal/study"
	"github.com/sadopc/aetherplan/internal/tracker"
)

type activityMode int

const (
	activityDaily activityMode = iota
	activitySubjects
)

type activityModel struct {
	tracker *tracker.Tracker
	store   *store.Store
	now     func() time.Time
	width   int
	height  int

	mode     activityMode
	offset   int // 7-day blocks back from today (0 = current)
	days     []study.DayCount
	sessions []store.FocusSession

	chart barchart.Model
}

func newActivityModel(tr *tracker.Tracker, s *store.Store, now func() time.Time) activityModel {
	return activityModel{
		tracker: tr,
		store:   s,
		now:     now,
		chart:   barchart.New(60, 12),
	}
}

func (r *activityModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type activityDataMsg struct {
	sessions []store.FocusSession
}

func (r activityModel) refresh() tea.Cmd {
	return func() tea.Msg {
		from, to := r.dateRange()
		sessions, _ := r.store.ListFocusSessions(from, to)
		return activityDataMsg{sessions: sessions}
	}
}

// dateRange is the 7-day window ending today, shifted back by offset weeks.
func (r activityModel) dateRange() (time.Time, time.Time) {
	now := r.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := today.AddDate(0, 0, 1-7*r.offset)
	return end.AddDate(0, 0, -7), end
}

func (r activityModel) update(msg tea.Msg) (activityModel, tea.Cmd) {
	switch msg := msg.(type) {
	case activityDataMsg:
		r.sessions = msg.sessions
		r.buildChart()
		return r, nil

	case stateChangedMsg:
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			return r, r.refresh()
		case key.Matches(msg, keys.Enter):
			if r.mode == activityDaily {
				r.mode = activitySubjects
			} else {
				r.mode = activityDaily
			}
			r.buildChart()
			return r, nil
		}
	}
	return r, nil
}

func (r *activityModel) buildChart() {
	chartWidth := max(r.width-8, 20)
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}
	r.chart = barchart.New(chartWidth, chartHeight)

	subjects := r.tracker.State().Subjects
	from, _ := r.dateRange()
	r.days = study.CompletionsByDay(subjects, from, 7, r.now().Location())

	var bars []barchart.BarData
	switch r.mode {
	case activitySubjects:
		for _, s := range subjects {
			bars = append(bars, barchart.BarData{
				Label: truncate(s.Name, 10),
				Values: []barchart.BarValue{{
					Name:  s.Name,
					Value: float64(s.Progress),
					Style: lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)),
				}},
			})
		}
	default:
		for _, d := range r.days {
			bars = append(bars, barchart.BarData{
				Label: d.Date.Format("Mon 02"),
				Values: []barchart.BarValue{{
					Name:  "Completed",
					Value: float64(d.Count),
					Style: lipgloss.NewStyle().Foreground(colorPrimary),
				}},
			})
		}
	}
	if len(bars) == 0 {
		bars = []barchart.BarData{{Values: []barchart.BarValue{{Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}}}
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r activityModel) view() string {
	w := r.width - 4

	dailyTab := inactiveTabStyle.Render("Completions")
	subjectsTab := inactiveTabStyle.Render("Subjects")
	if r.mode == activityDaily {
		dailyTab = activeTabStyle.Render("Completions")
	} else {
		subjectsTab = activeTabStyle.Render("Subjects")
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, dailyTab, subjectsTab)

	from, to := r.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s", from.Format("Jan 02"), to.AddDate(0, 0, -1).Format("Jan 02, 2006")))
	if r.mode == activitySubjects {
		dateLabel = mutedStyle.Render("progress by subject")
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Activity"), "  ", modeTabs, "  ", dateLabel,
	)

	nav := mutedStyle.Render("  ←/→: navigate weeks  enter: switch chart")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", r.renderSummary(w), "", nav,
		),
	)
}

func (r activityModel) renderSummary(w int) string {
	if r.mode == activitySubjects {
		var rows []string
		for _, s := range r.tracker.State().Subjects {
			rows = append(rows, fmt.Sprintf("  %s %-24s %3d%%  %d/%d", colorDot(s.Color), truncate(s.Name, 24), s.Progress, s.CompletedTasks, s.TotalTasks))
		}
		if len(rows) == 0 {
			return mutedStyle.Render("  No subjects")
		}
		return strings.Join(rows, "\n")
	}

	total := 0
	for _, d := range r.days {
		total += d.Count
	}
	var focusSecs int64
	for _, s := range r.sessions {
		focusSecs += s.Duration
	}

	rows := []string{
		fmt.Sprintf("  %s subtasks completed   %s focus sessions (%s)",
			highlightStyle.Render(fmt.Sprint(total)),
			highlightStyle.Render(fmt.Sprint(len(r.sessions))),
			formatMinutes(focusSecs)),
	}
	if len(r.sessions) > 0 {
		rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 40))))
		for i, s := range r.sessions {
			if i == 5 {
				rows = append(rows, mutedStyle.Render(fmt.Sprintf("  … %d more", len(r.sessions)-5)))
				break
			}
			rows = append(rows, fmt.Sprintf("  %s  %s  %s",
				s.CompletedAt.Local().Format("Mon 02 15:04"),
				formatMinutes(s.Duration),
				xpStyle.Render(fmt.Sprintf("+%d XP", s.XPAwarded))))
		}
	}
	return strings.Join(rows, "\n")
}
