package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/aetherplan/internal/store"
	"github.com/sadopc/aetherplan/internal/study"
	"github.com/sadopc/aetherplan/internal/tracker"
)

const (
	dashboardRecent    = 5
	dashboardDeadlines = 5
)

type dashboardModel struct {
	tracker *tracker.Tracker
	now     func() time.Time
	width   int
	height  int

	focusToday store.FocusStats

	overall progress.Model
	level   progress.Model
}

func newDashboardModel(tr *tracker.Tracker, now func() time.Time) dashboardModel {
	return dashboardModel{
		tracker: tr,
		now:     now,
		overall: progress.New(progress.WithGradient(string(colorPrimary), string(colorSecondary))),
		level:   progress.New(progress.WithSolidFill(string(colorAccent)), progress.WithoutPercentage()),
	}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
	d.overall.Width = max(10, w-12)
	d.level.Width = max(10, min(w-40, 40))
}

type dashboardDataMsg struct {
	focusToday store.FocusStats
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		stats, _ := d.tracker.TodayFocusStats()
		return dashboardDataMsg{focusToday: stats}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.focusToday = msg.focusToday
		return d, nil
	case stateChangedMsg:
		return d, d.loadData()
	}
	return d, nil
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4
	v := d.tracker.View()

	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderProgressPanel(contentWidth, v),
		d.renderRecentPanel(contentWidth, v.Subjects),
		d.renderDeadlinePanel(contentWidth, v.Subjects),
	)
}

func (d dashboardModel) renderProgressPanel(w int, v tracker.Snapshot) string {
	title := titleStyle.Render("Overall Progress")
	overall := d.overall.ViewAs(float64(v.TotalProgress) / 100)

	into, span := study.LevelProgress(v.TotalXP)
	badge := levelBadgeStyle.Render(fmt.Sprintf("LVL %d", v.Level))
	xp := xpStyle.Render(fmt.Sprintf("%d XP", v.TotalXP))
	next := mutedStyle.Render(fmt.Sprintf("%d/%d to level %d", into, span, v.Level+1))
	levelLine := lipgloss.JoinHorizontal(lipgloss.Center,
		badge, "  ", xp, "  ", d.level.ViewAs(float64(into)/float64(span)), "  ", next,
	)

	focus := mutedStyle.Render(fmt.Sprintf("Focus today: %d sessions, %s", d.focusToday.Sessions, formatMinutes(d.focusToday.TotalSeconds)))

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		overall,
		"",
		levelLine,
		focus,
	)
	return activePanelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderRecentPanel(w int, subjects []study.Subject) string {
	title := titleStyle.Render("Recent Subjects")
	if len(subjects) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No subjects yet. Press 2 to add one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	recent := study.RecentSubjects(subjects)
	if len(recent) > dashboardRecent {
		recent = recent[:dashboardRecent]
	}

	var rows []string
	rows = append(rows, title)
	for _, s := range recent {
		last := "no activity"
		if s.LastActivity != nil {
			last = s.LastActivity.Local().Format("Jan 02 15:04")
		}
		row := fmt.Sprintf("  %s %-24s %s %3d%%  %s",
			colorDot(s.Color),
			truncate(s.Name, 24),
			bar(s.Progress, 12),
			s.Progress,
			mutedStyle.Render(last),
		)
		rows = append(rows, row)
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderDeadlinePanel(w int, subjects []study.Subject) string {
	title := titleStyle.Render("Upcoming Deadlines")
	due := study.UpcomingDeadlines(subjects, d.now(), dashboardDeadlines)
	if len(due) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("Nothing due"),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	for _, t := range due {
		when := deadlineStyle(t.Status).Render(fmt.Sprintf("%s %-8s", *t.Task.Deadline, deadlineLabel(t.Status)))
		rows = append(rows, fmt.Sprintf("  %s  %-28s %s",
			when,
			truncate(t.Task.Title, 28),
			mutedStyle.Render(t.SubjectName+" / "+t.UnitName),
		))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
