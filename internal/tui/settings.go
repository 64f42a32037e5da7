package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/aetherplan/internal/export"
	"github.com/sadopc/aetherplan/internal/store"
	"github.com/sadopc/aetherplan/internal/tracker"
)

var settingLabels = map[string]string{
	store.SettingFocusWork:      "Focus length",
	store.SettingFocusBreak:     "Short break",
	store.SettingFocusLongBreak: "Long break",
	store.SettingFocusCount:     "Sessions per cycle",
}

type settingsModel struct {
	tracker   *tracker.Tracker
	store     *store.Store
	exportDir string
	now       func() time.Time
	width     int
	height    int

	settings   []store.Setting
	formActive bool
	form       *huh.Form
	formType   string // "durations", "import", "reset"

	// Form values as pointers (survive value copies)
	focusWork      *string
	focusBreak     *string
	focusLongBreak *string
	focusCount     *string
	importPath     *string
	confirmReset   *bool
}

func newSettingsModel(tr *tracker.Tracker, s *store.Store, exportDir string, now func() time.Time) settingsModel {
	fw, fb, flb, fc, ip := "", "", "", "", ""
	confirm := false
	return settingsModel{
		tracker:        tr,
		store:          s,
		exportDir:      exportDir,
		now:            now,
		focusWork:      &fw,
		focusBreak:     &fb,
		focusLongBreak: &flb,
		focusCount:     &fc,
		importPath:     &ip,
		confirmReset:   &confirm,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, _ := s.store.GetAllSettings()
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter):
			return s.showDurationsForm()
		case key.Matches(msg, keys.Import):
			return s.showImportForm()
		case key.Matches(msg, keys.Reset):
			return s.showResetForm()
		}
	}
	return s, nil
}

func positiveInt(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return errors.New("enter a whole number above 0")
	}
	return nil
}

func (s settingsModel) showDurationsForm() (settingsModel, tea.Cmd) {
	*s.focusWork = secsToMin(s.getVal(store.SettingFocusWork, "1500"))
	*s.focusBreak = secsToMin(s.getVal(store.SettingFocusBreak, "300"))
	*s.focusLongBreak = secsToMin(s.getVal(store.SettingFocusLongBreak, "900"))
	*s.focusCount = s.getVal(store.SettingFocusCount, "4")
	s.formType = "durations"

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Focus length (min)").Value(s.focusWork).Validate(positiveInt),
			huh.NewInput().Title("Short break (min)").Value(s.focusBreak).Validate(positiveInt),
			huh.NewInput().Title("Long break (min)").Value(s.focusLongBreak).Validate(positiveInt),
			huh.NewInput().Title("Sessions before long break").Value(s.focusCount).Validate(positiveInt),
		).Title("Focus"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) showImportForm() (settingsModel, tea.Cmd) {
	*s.importPath = filepath.Join(s.exportDir, export.BackupFilename(s.now()))
	s.formType = "import"

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backup file").
				Description("Subjects and XP in the file replace the current data.").
				Value(s.importPath).
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return errors.New("required")
					}
					return nil
				}),
		),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) showResetForm() (settingsModel, tea.Cmd) {
	*s.confirmReset = false
	s.formType = "reset"

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Reset all data?").
				Description("Subjects return to the starter set, XP goes to 0 and the focus log is cleared.").
				Affirmative("Reset").
				Negative("Cancel").
				Value(s.confirmReset),
		),
	)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		return s, s.submitForm()
	}

	return s, cmd
}

func (s settingsModel) submitForm() tea.Cmd {
	switch s.formType {
	case "durations":
		if err := s.saveSettings(); err != nil {
			return func() tea.Msg { return errStatus("Save settings", err) }
		}
		return tea.Batch(s.refresh(), func() tea.Msg { return statusMsg{text: "Settings saved"} })

	case "import":
		// Runs here rather than in a Cmd so the tracker is only touched
		// from the update loop.
		path := strings.TrimSpace(*s.importPath)
		if err := s.tracker.ImportFile(path); err != nil {
			return func() tea.Msg { return errStatus("Import failed", err) }
		}
		return tea.Batch(
			func() tea.Msg { return stateChangedMsg{} },
			func() tea.Msg { return importDoneMsg{path: path} },
		)

	case "reset":
		if !*s.confirmReset {
			return nil
		}
		if err := s.tracker.Reset(); err != nil {
			return func() tea.Msg { return errStatus("Reset", err) }
		}
		return tea.Batch(
			func() tea.Msg { return stateChangedMsg{} },
			func() tea.Msg { return statusMsg{text: "All data reset"} },
		)
	}
	return nil
}

func (s settingsModel) saveSettings() error {
	values := []struct{ key, value string }{
		{store.SettingFocusWork, minToSecs(*s.focusWork)},
		{store.SettingFocusBreak, minToSecs(*s.focusBreak)},
		{store.SettingFocusLongBreak, minToSecs(*s.focusLongBreak)},
		{store.SettingFocusCount, strings.TrimSpace(*s.focusCount)},
	}
	for _, v := range values {
		if err := s.store.SetSetting(v.key, v.value); err != nil {
			return err
		}
	}
	return nil
}

func (s settingsModel) getVal(k, fallback string) string {
	v, err := s.store.GetSetting(k)
	if err != nil {
		return fallback
	}
	return v
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	title := titleStyle.Render("Settings")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for _, setting := range s.settings {
		name := settingLabels[setting.Key]
		if name == "" {
			name = setting.Key
		}
		label := lipgloss.NewStyle().Width(24).Render(name)
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	rows = append(rows, "")
	rows = append(rows, fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(24).Render("Backups folder"), highlightStyle.Render(s.exportDir)))
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("enter: edit focus settings  e: export  i: import backup  R: reset all data"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatSettingValue(k, v string) string {
	switch k {
	case store.SettingFocusWork, store.SettingFocusBreak, store.SettingFocusLongBreak:
		if secs, err := strconv.Atoi(v); err == nil {
			return fmt.Sprintf("%d min", secs/60)
		}
	case store.SettingFocusCount:
		return v + " sessions"
	}
	return v
}

func secsToMin(s string) string {
	if secs, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(secs / 60)
	}
	return s
}

func minToSecs(s string) string {
	if mins, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return strconv.Itoa(mins * 60)
	}
	return s
}
