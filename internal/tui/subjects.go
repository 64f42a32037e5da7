package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/aetherplan/internal/study"
	"github.com/sadopc/aetherplan/internal/tracker"
)

// subjectsLevel is the depth of the drill-down.
type subjectsLevel int

const (
	levelSubjects subjectsLevel = iota
	levelUnits
	levelSubtasks
)

type subjectsModel struct {
	tracker *tracker.Tracker
	now     func() time.Time
	width   int
	height  int

	level       subjectsLevel
	cursor      int
	unitCursor  int
	taskCursor  int
	subjectID   string
	unitID      string
	formActive  bool
	form        *huh.Form
	formType    string // "subject", "unit", "subtask", "deadline", "notes", "delete_subject"
	editingTask string

	// Form field pointers (survive value copies)
	formName    *string
	formColor   *string
	formNotes   *string
	formConfirm *bool
}

func newSubjectsModel(tr *tracker.Tracker, now func() time.Time) subjectsModel {
	name, color, notes, confirm := "", study.Palette[0], "", false
	return subjectsModel{
		tracker:     tr,
		now:         now,
		formName:    &name,
		formColor:   &color,
		formNotes:   &notes,
		formConfirm: &confirm,
	}
}

func (p *subjectsModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

// Current selections, resolved against the live state. A selection whose
// target was deleted resolves to not found.

func (p subjectsModel) subjects() []study.Subject {
	return p.tracker.State().Subjects
}

func (p subjectsModel) currentSubject() (study.Subject, bool) {
	return p.tracker.State().Subject(p.subjectID)
}

func (p subjectsModel) currentUnit() (study.Unit, bool) {
	return p.tracker.State().Unit(p.subjectID, p.unitID)
}

// clamp keeps cursors inside their lists after a delete and pops levels
// whose parent no longer exists.
func (p *subjectsModel) clamp() {
	if p.level >= levelUnits {
		if _, ok := p.currentSubject(); !ok {
			p.level = levelSubjects
		}
	}
	if p.level == levelSubtasks {
		if _, ok := p.currentUnit(); !ok {
			p.level = levelUnits
		}
	}
	p.cursor = clampIndex(p.cursor, len(p.subjects()))
	if s, ok := p.currentSubject(); ok {
		p.unitCursor = clampIndex(p.unitCursor, len(s.Units))
	}
	if u, ok := p.currentUnit(); ok {
		p.taskCursor = clampIndex(p.taskCursor, len(u.Subtasks))
	}
}

func clampIndex(i, n int) int {
	if i >= n {
		i = n - 1
	}
	return max(i, 0)
}

func (p subjectsModel) update(msg tea.Msg) (subjectsModel, tea.Cmd) {
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch p.level {
		case levelUnits:
			return p.updateUnitList(msg)
		case levelSubtasks:
			return p.updateSubtaskList(msg)
		default:
			return p.updateSubjectList(msg)
		}
	}
	return p, nil
}

func (p subjectsModel) updateSubjectList(msg tea.KeyMsg) (subjectsModel, tea.Cmd) {
	subjects := p.subjects()
	switch {
	case key.Matches(msg, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, keys.Down):
		if p.cursor < len(subjects)-1 {
			p.cursor++
		}
	case key.Matches(msg, keys.Enter):
		if len(subjects) > 0 {
			p.subjectID = subjects[p.cursor].ID
			p.level = levelUnits
			p.unitCursor = 0
		}
	case key.Matches(msg, keys.New):
		return p.showSubjectForm()
	case key.Matches(msg, keys.Delete):
		if len(subjects) > 0 {
			return p.showDeleteSubjectForm(subjects[p.cursor])
		}
	}
	return p, nil
}

func (p subjectsModel) updateUnitList(msg tea.KeyMsg) (subjectsModel, tea.Cmd) {
	sub, ok := p.currentSubject()
	if !ok {
		p.level = levelSubjects
		return p, nil
	}
	switch {
	case key.Matches(msg, keys.Back):
		p.level = levelSubjects
	case key.Matches(msg, keys.Up):
		if p.unitCursor > 0 {
			p.unitCursor--
		}
	case key.Matches(msg, keys.Down):
		if p.unitCursor < len(sub.Units)-1 {
			p.unitCursor++
		}
	case key.Matches(msg, keys.Enter):
		if len(sub.Units) > 0 {
			p.unitID = sub.Units[p.unitCursor].ID
			p.level = levelSubtasks
			p.taskCursor = 0
		}
	case key.Matches(msg, keys.New):
		return p.showInputForm("unit", "Unit Name", "")
	case key.Matches(msg, keys.Delete):
		if len(sub.Units) > 0 {
			p.tracker.DeleteUnit(sub.ID, sub.Units[p.unitCursor].ID)
			p.clamp()
			return p, changed()
		}
	case key.Matches(msg, keys.Notes):
		if len(sub.Units) > 0 {
			p.unitID = sub.Units[p.unitCursor].ID
			return p.showNotesForm(sub.Units[p.unitCursor])
		}
	}
	return p, nil
}

func (p subjectsModel) updateSubtaskList(msg tea.KeyMsg) (subjectsModel, tea.Cmd) {
	unit, ok := p.currentUnit()
	if !ok {
		p.clamp()
		return p, nil
	}
	switch {
	case key.Matches(msg, keys.Back):
		p.level = levelUnits
	case key.Matches(msg, keys.Up):
		if p.taskCursor > 0 {
			p.taskCursor--
		}
	case key.Matches(msg, keys.Down):
		if p.taskCursor < len(unit.Subtasks)-1 {
			p.taskCursor++
		}
	case key.Matches(msg, keys.Toggle):
		if len(unit.Subtasks) > 0 {
			return p.toggle(unit.Subtasks[p.taskCursor].ID)
		}
	case key.Matches(msg, keys.New):
		return p.showInputForm("subtask", "Subtask", "")
	case key.Matches(msg, keys.Delete):
		if len(unit.Subtasks) > 0 {
			p.tracker.DeleteSubtask(p.subjectID, p.unitID, unit.Subtasks[p.taskCursor].ID)
			p.clamp()
			return p, changed()
		}
	case key.Matches(msg, keys.Deadline):
		if len(unit.Subtasks) > 0 {
			t := unit.Subtasks[p.taskCursor]
			p.editingTask = t.ID
			current := ""
			if t.Deadline != nil {
				current = *t.Deadline
			}
			return p.showInputForm("deadline", "Deadline (YYYY-MM-DD, empty clears)", current)
		}
	case key.Matches(msg, keys.Notes):
		return p.showNotesForm(unit)
	}
	return p, nil
}

func (p subjectsModel) toggle(subtaskID string) (subjectsModel, tea.Cmd) {
	before := p.tracker.View().Level
	res := p.tracker.ToggleSubtask(p.subjectID, p.unitID, subtaskID)
	if !res.Found {
		return p, nil
	}
	if res.XPAwarded > 0 {
		after := p.tracker.View().Level
		return p, tea.Batch(changed(), func() tea.Msg { return xpStatus(res.XPAwarded, before, after) })
	}
	return p, changed()
}

func changed() tea.Cmd {
	return func() tea.Msg { return stateChangedMsg{} }
}

// ============================================================
// Forms
// ============================================================

func notBlank(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func validDeadline(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(study.DeadlineLayout, s); err != nil {
		return errors.New("use YYYY-MM-DD")
	}
	return nil
}

func (p subjectsModel) showSubjectForm() (subjectsModel, tea.Cmd) {
	*p.formName = ""
	*p.formColor = study.Palette[len(p.subjects())%len(study.Palette)]
	p.formType = "subject"

	colorOptions := make([]huh.Option[string], len(study.Palette))
	for i, c := range study.Palette {
		colorOptions[i] = huh.NewOption(fmt.Sprintf("%s %s", colorDot(c), c), c)
	}

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Subject Name").Value(p.formName).Validate(notBlank),
			huh.NewSelect[string]().Title("Color").Options(colorOptions...).Value(p.formColor),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p subjectsModel) showInputForm(formType, title, value string) (subjectsModel, tea.Cmd) {
	*p.formName = value
	p.formType = formType

	input := huh.NewInput().Title(title).Value(p.formName)
	if formType == "deadline" {
		input = input.Placeholder(p.now().Format(study.DeadlineLayout)).Validate(validDeadline)
	} else {
		input = input.Validate(notBlank)
	}

	p.form = huh.NewForm(huh.NewGroup(input)).WithShowHelp(true).WithShowErrors(true)
	p.formActive = true
	return p, p.form.Init()
}

func (p subjectsModel) showNotesForm(u study.Unit) (subjectsModel, tea.Cmd) {
	*p.formNotes = u.Notes
	p.formType = "notes"

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().Title("Notes: " + u.Name).Lines(8).Value(p.formNotes),
		),
	).WithShowHelp(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p subjectsModel) showDeleteSubjectForm(s study.Subject) (subjectsModel, tea.Cmd) {
	*p.formConfirm = false
	p.formType = "delete_subject"
	p.subjectID = s.ID

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", s.Name)).
				Description(fmt.Sprintf("%d units and %d subtasks will be removed.", len(s.Units), s.TotalTasks)).
				Affirmative("Delete").
				Negative("Keep").
				Value(p.formConfirm),
		),
	)

	p.formActive = true
	return p, p.form.Init()
}

func (p subjectsModel) updateForm(msg tea.Msg) (subjectsModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State == huh.StateCompleted {
		p.formActive = false
		return p.submitForm()
	}
	return p, cmd
}

func (p subjectsModel) submitForm() (subjectsModel, tea.Cmd) {
	var err error
	switch p.formType {
	case "subject":
		err = p.tracker.AddSubject(*p.formName, *p.formColor)
		if err == nil {
			p.cursor = len(p.subjects()) - 1
		}
	case "unit":
		err = p.tracker.AddUnit(p.subjectID, *p.formName)
		if err == nil {
			if s, ok := p.currentSubject(); ok {
				p.unitCursor = len(s.Units) - 1
			}
		}
	case "subtask":
		err = p.tracker.AddSubtask(p.subjectID, p.unitID, *p.formName)
		if err == nil {
			if u, ok := p.currentUnit(); ok {
				p.taskCursor = len(u.Subtasks) - 1
			}
		}
	case "deadline":
		err = p.tracker.UpdateSubtaskDeadline(p.subjectID, p.unitID, p.editingTask, *p.formName)
	case "notes":
		p.tracker.UpdateUnitNotes(p.subjectID, p.unitID, *p.formNotes)
	case "delete_subject":
		if *p.formConfirm {
			p.tracker.DeleteSubject(p.subjectID)
			p.level = levelSubjects
		}
	}
	p.clamp()
	if err != nil {
		return p, func() tea.Msg { return errStatus("Error", err) }
	}
	return p, changed()
}

// ============================================================
// Rendering
// ============================================================

func (p subjectsModel) view() string {
	w := p.width - 4
	if p.formActive && p.form != nil {
		titles := map[string]string{
			"subject":        "New Subject",
			"unit":           "New Unit",
			"subtask":        "New Subtask",
			"deadline":       "Set Deadline",
			"notes":          "Unit Notes",
			"delete_subject": "Delete Subject",
		}
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(titles[p.formType]), "", p.form.View())
		return panelStyle.Width(w).Render(content)
	}

	switch p.level {
	case levelUnits:
		if s, ok := p.currentSubject(); ok {
			return p.renderUnitList(w, s)
		}
	case levelSubtasks:
		if s, ok := p.currentSubject(); ok {
			if u, ok := p.currentUnit(); ok {
				return p.renderSubtaskList(w, s, u)
			}
		}
	}
	return p.renderSubjectList(w)
}

func cursorStyle(selected bool) (string, lipgloss.Style) {
	if selected {
		return "> ", selectedItemStyle
	}
	return "  ", normalItemStyle
}

func (p subjectsModel) renderSubjectList(w int) string {
	title := titleStyle.Render("Subjects")
	subjects := p.subjects()

	if len(subjects) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No subjects yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-3s %-28s %-22s %s", "", "Name", "Progress", "Tasks")))

	barWidth := 14
	for i, s := range subjects {
		cursor, style := cursorStyle(i == p.cursor)
		row := fmt.Sprintf("%s%s %-28s %s %4d%%  %d/%d",
			cursor, colorDot(s.Color), truncate(s.Name, 28),
			bar(s.Progress, barWidth), s.Progress, s.CompletedTasks, s.TotalTasks)
		rows = append(rows, style.Render(row))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  d: delete  enter: units"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (p subjectsModel) renderUnitList(w int, s study.Subject) string {
	title := titleStyle.Render(fmt.Sprintf("%s %s", colorDot(s.Color), s.Name))
	summary := mutedStyle.Render(fmt.Sprintf("%d%% complete  %d/%d subtasks", s.Progress, s.CompletedTasks, s.TotalTasks))

	var rows []string
	rows = append(rows, title, summary, "")

	if len(s.Units) == 0 {
		rows = append(rows, mutedStyle.Render("No units. Press n to add one."))
	}
	for i, u := range s.Units {
		cursor, style := cursorStyle(i == p.unitCursor)
		check := " "
		if u.Completed {
			check = "✓"
		}
		notes := ""
		if strings.TrimSpace(u.Notes) != "" {
			notes = mutedStyle.Render(" ✎")
		}
		row := fmt.Sprintf("%s[%s] %-28s %s %4d%%", cursor, check, truncate(u.Name, 28), bar(u.Progress, 10), u.Progress)
		rows = append(rows, style.Render(row)+notes)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new unit  d: delete  o: notes  enter: subtasks  esc: back"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (p subjectsModel) renderSubtaskList(w int, s study.Subject, u study.Unit) string {
	title := titleStyle.Render(fmt.Sprintf("%s %s / %s", colorDot(s.Color), s.Name, u.Name))
	summary := mutedStyle.Render(fmt.Sprintf("%d%% complete", u.Progress))

	var rows []string
	rows = append(rows, title, summary, "")

	if len(u.Subtasks) == 0 {
		rows = append(rows, mutedStyle.Render("No subtasks. Press n to add one."))
	}
	today := p.now()
	for i, t := range u.Subtasks {
		cursor, style := cursorStyle(i == p.taskCursor)
		check := "[ ]"
		if t.Completed {
			check = "[x]"
			if i != p.taskCursor {
				style = doneItemStyle
			}
		}
		row := style.Render(fmt.Sprintf("%s%s %s", cursor, check, t.Title))
		if t.Deadline != nil {
			st := study.DeadlineStatus(t, today)
			label := *t.Deadline
			if l := deadlineLabel(st); st == study.DeadlineOverdue || st == study.DeadlineToday {
				label += " " + l
			}
			row += "  " + deadlineStyle(st).Render("⏰ "+label)
		}
		rows = append(rows, row)
	}

	if strings.TrimSpace(u.Notes) != "" {
		rows = append(rows, "", mutedStyle.Render("Notes"))
		for _, line := range strings.Split(u.Notes, "\n") {
			rows = append(rows, "  "+line)
		}
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  space: done (+%d XP)  n: new  d: delete  t: deadline  o: notes  esc: back", study.SubtaskXP)))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
