package tui

import (
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/aetherplan/internal/export"
	"github.com/sadopc/aetherplan/internal/store"
	"github.com/sadopc/aetherplan/internal/tracker"
)

var exportFormats = []string{"JSON backup", "CSV progress report"}

// App is the root Bubble Tea model.
type App struct {
	tracker   *tracker.Tracker
	store     *store.Store
	exportDir string
	now       func() time.Time
	width     int
	height    int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard dashboardModel
	subjects  subjectsModel
	activity  activityModel
	focus     focusModel
	settings  settingsModel

	help     help.Model
	status   string
	statusOK bool
}

func NewApp(tr *tracker.Tracker, s *store.Store, exportDir string) App {
	h := help.New()
	h.ShowAll = false
	now := time.Now

	return App{
		tracker:    tr,
		store:      s,
		exportDir:  exportDir,
		now:        now,
		activeView: viewDashboard,
		dashboard:  newDashboardModel(tr, now),
		subjects:   newSubjectsModel(tr, now),
		activity:   newActivityModel(tr, s, now),
		focus:      newFocusModel(tr, s, now),
		settings:   newSettingsModel(tr, s, exportDir, now),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.Init(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.subjects.setSize(a.width, contentHeight)
		a.activity.setSize(a.width, contentHeight)
		a.focus.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewDashboard
			return a, a.dashboard.loadData()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewSubjects
			return a, nil
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewActivity
			return a, a.activity.refresh()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewFocus
			return a, nil
		case key.Matches(msg, keys.Tab5):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case tickMsg:
		cmds = append(cmds, tickCmd())
		// The focus countdown runs whichever view is showing.
		var cmd tea.Cmd
		a.focus, cmd = a.focus.update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case statusMsg:
		a.status = msg.text
		a.statusOK = !msg.isError
		return a, nil

	case stateChangedMsg:
		var c1, c2 tea.Cmd
		a.dashboard, c1 = a.dashboard.update(msg)
		a.activity, c2 = a.activity.update(msg)
		return a, tea.Batch(c1, c2)

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusOK = true
		return a, nil

	case importDoneMsg:
		a.status = "Imported " + msg.path
		a.statusOK = true
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewSubjects:
		a.subjects, cmd = a.subjects.update(msg)
	case viewActivity:
		a.activity, cmd = a.activity.update(msg)
	case viewFocus:
		a.focus, cmd = a.focus.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewSubjects:
		return a.subjects.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.loadData()
	case viewActivity:
		return a.activity.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewSubjects:
		content = a.subjects.view()
	case viewActivity:
		content = a.activity.view()
	case viewFocus:
		content = a.focus.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(a.height-headerHeight-footerHeight, 1)

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("aetherplan")
	badge := levelBadgeStyle.Render(levelText(a.tracker.View().Level))
	gap := max(a.width-lipgloss.Width(title)-lipgloss.Width(badge)-lipgloss.Width(tabRow)-6, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, " ", badge, spacer, tabRow),
	)
}

func levelText(level int) string {
	return "LVL " + strconv.Itoa(level)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if !a.statusOK {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Focus countdown indicator in footer
	timerInfo := ""
	if a.focus.active() {
		remaining := formatClock(a.focus.clock.remaining())
		timerInfo = successStyle.Render(" ● " + remaining)
		if a.focus.clock.paused() {
			timerInfo = warningStyle.Render(" ⏸ " + remaining)
		}
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, mutedStyle.Render("to "+a.exportDir))
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor, style := cursorStyle(i == a.exportCursor)
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// doExport captures the state now and writes the file in a Cmd.
func (a App) doExport(format int) tea.Cmd {
	today := a.now()
	if format == 0 {
		snap, err := a.tracker.Export()
		if err != nil {
			return func() tea.Msg { return errStatus("Export error", err) }
		}
		path := filepath.Join(a.exportDir, export.BackupFilename(today))
		return func() tea.Msg {
			if err := export.WriteFile(path, snap); err != nil {
				return errStatus("JSON error", err)
			}
			return exportDoneMsg{path: path}
		}
	}

	subjects := a.tracker.State().Subjects
	path := filepath.Join(a.exportDir, export.CSVFilename(today))
	return func() tea.Msg {
		if err := export.ToCSV(subjects, path); err != nil {
			return errStatus("CSV error", err)
		}
		return exportDoneMsg{path: path}
	}
}
