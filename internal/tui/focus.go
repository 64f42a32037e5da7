package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/aetherplan/internal/store"
	"github.com/sadopc/aetherplan/internal/study"
	"github.com/sadopc/aetherplan/internal/tracker"
)

type focusPhase int

const (
	focusIdle focusPhase = iota
	focusWork
	focusShortBreak
	focusLongBreak
	focusCompleted
)

var phaseNames = map[focusPhase]string{
	focusIdle:       "IDLE",
	focusWork:       "FOCUS",
	focusShortBreak: "SHORT BREAK",
	focusLongBreak:  "LONG BREAK",
	focusCompleted:  "COMPLETED",
}

type focusModel struct {
	tracker *tracker.Tracker
	store   *store.Store
	width   int
	height  int

	phase          focusPhase
	completedCount int
	targetCount    int

	clock       countdown
	workStarted time.Time

	// Durations from settings
	workDuration      time.Duration
	breakDuration     time.Duration
	longBreakDuration time.Duration

	ring progress.Model
}

func newFocusModel(tr *tracker.Tracker, s *store.Store, now func() time.Time) focusModel {
	m := focusModel{
		tracker:     tr,
		store:       s,
		phase:       focusIdle,
		targetCount: 4,
		clock:       newCountdown(now),
		ring:        progress.New(progress.WithSolidFill(string(colorPrimary)), progress.WithoutPercentage()),
	}
	m.loadSettings()
	return m
}

func (f *focusModel) loadSettings() {
	f.workDuration = f.store.SettingDuration(store.SettingFocusWork, 25*time.Minute)
	f.breakDuration = f.store.SettingDuration(store.SettingFocusBreak, 5*time.Minute)
	f.longBreakDuration = f.store.SettingDuration(store.SettingFocusLongBreak, 15*time.Minute)
	if n := f.store.SettingInt(store.SettingFocusCount, 4); n > 0 {
		f.targetCount = n
	}
}

func (f *focusModel) setSize(w, h int) {
	f.width = w
	f.height = h
	f.ring.Width = max(10, min(w-16, 60))
}

func (f focusModel) active() bool {
	return f.phase == focusWork || f.phase == focusShortBreak || f.phase == focusLongBreak
}

func (f focusModel) update(msg tea.Msg) (focusModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if f.active() && f.clock.done() {
			return f.advancePhase()
		}
		return f, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Start):
			if f.phase == focusIdle || f.phase == focusCompleted {
				return f.startSession()
			}
		case key.Matches(msg, keys.Stop):
			if f.phase != focusIdle {
				return f.cancelSession()
			}
		case key.Matches(msg, keys.Pause):
			if f.active() {
				f.clock.toggle()
			}
		case key.Matches(msg, keys.Skip):
			if f.phase == focusShortBreak || f.phase == focusLongBreak {
				return f.startWorkPhase()
			}
		}
	}
	return f, nil
}

func (f focusModel) startSession() (focusModel, tea.Cmd) {
	f.completedCount = 0
	f.loadSettings()
	return f.startWorkPhase()
}

func (f focusModel) startWorkPhase() (focusModel, tea.Cmd) {
	f.phase = focusWork
	f.clock.start(f.workDuration)
	f.workStarted = f.clock.startTime
	return f, nil
}

func (f focusModel) advancePhase() (focusModel, tea.Cmd) {
	switch f.phase {
	case focusWork:
		f.completedCount++
		before := f.tracker.View().Level
		err := f.tracker.CompleteFocusSession(f.workStarted, f.workDuration)
		after := f.tracker.View().Level

		var cmds []tea.Cmd
		if err != nil {
			cmds = append(cmds, func() tea.Msg { return errStatus("Record focus session", err) })
		} else {
			cmds = append(cmds, func() tea.Msg { return xpStatus(study.FocusSessionXP, before, after) })
		}
		cmds = append(cmds, func() tea.Msg { return stateChangedMsg{} })

		if f.completedCount >= f.targetCount {
			f.phase = focusCompleted
			f.clock.stop()
			return f, tea.Batch(cmds...)
		}

		// Every targetCount-th session earns a long break
		if f.completedCount%f.targetCount == 0 {
			f.phase = focusLongBreak
			f.clock.start(f.longBreakDuration)
		} else {
			f.phase = focusShortBreak
			f.clock.start(f.breakDuration)
		}
		return f, tea.Batch(cmds...)

	case focusShortBreak, focusLongBreak:
		return f.startWorkPhase()
	}
	return f, nil
}

func (f focusModel) cancelSession() (focusModel, tea.Cmd) {
	f.phase = focusIdle
	f.clock.stop()
	return f, func() tea.Msg {
		return statusMsg{text: "Focus session cancelled"}
	}
}

func (f focusModel) view() string {
	w := f.width - 4

	title := titleStyle.Render("Focus")

	var timeDisplay, phaseLabel, indicator string
	style := timerStyle
	switch f.phase {
	case focusIdle:
		timeDisplay = timerStyle.Width(w - 6).Render(formatClock(f.workDuration))
		phaseLabel = mutedStyle.Render("Ready to focus")
		indicator = mutedStyle.Render(fmt.Sprintf("Press s to begin. Each session earns %d XP.", study.FocusSessionXP))
	case focusCompleted:
		timeDisplay = successStyle.Bold(true).Width(w - 6).Align(lipgloss.Center).Render("Done!")
		phaseLabel = successStyle.Bold(true).Render("SESSION COMPLETE")
		indicator = f.renderProgress()
	default:
		switch f.phase {
		case focusShortBreak:
			style = successStyle.Bold(true).Align(lipgloss.Center)
		case focusLongBreak:
			style = highlightStyle.Bold(true).Align(lipgloss.Center)
		}
		timeDisplay = style.Width(w - 6).Render(formatClock(f.clock.remaining()))
		label := phaseNames[f.phase]
		if f.clock.paused() {
			label += "  (paused)"
		}
		phaseLabel = style.Render(label)
		indicator = lipgloss.JoinVertical(lipgloss.Center,
			f.ring.ViewAs(f.clock.fraction()),
			"",
			f.renderProgress(),
		)
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		title,
		"",
		timeDisplay,
		phaseLabel,
		"",
		indicator,
	)

	var controls string
	switch f.phase {
	case focusIdle, focusCompleted:
		controls = mutedStyle.Render("s: start")
	case focusWork:
		controls = mutedStyle.Render("space: pause/resume  x: cancel")
	case focusShortBreak, focusLongBreak:
		controls = mutedStyle.Render("b: skip break  space: pause/resume  x: cancel")
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center, content, "", controls),
	)
}

func (f focusModel) renderProgress() string {
	var parts []string
	for i := 0; i < f.targetCount; i++ {
		if i < f.completedCount {
			parts = append(parts, successStyle.Render("●"))
		} else if i == f.completedCount && f.phase == focusWork {
			parts = append(parts, accentStyle.Render("◐"))
		} else {
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	counter := mutedStyle.Render(fmt.Sprintf("  %d/%d", f.completedCount, f.targetCount))
	return strings.Join(parts, " ") + counter
}
