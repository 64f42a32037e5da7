package study

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeadlineLayout is the calendar-date format used for subtask deadlines.
const DeadlineLayout = "2006-01-02"

var (
	ErrBlankName       = errors.New("name is required")
	ErrBlankTitle      = errors.New("title is required")
	ErrInvalidDeadline = errors.New("invalid deadline")
)

// Palette holds the subject colors offered by the UI. The first entry is
// used when a subject is added without a color.
var Palette = []string{"#38BDF8", "#F472B6", "#A78BFA", "#34D399", "#FBBF24", "#F87171", "#6C63FF", "#2EC4B6"}

// Engine applies the mutation protocol. Every method takes a State value
// and returns a new one; the input is never modified. Operations that
// address a missing subject, unit or subtask return the input unchanged.
type Engine struct {
	now   func() time.Time
	newID func() string
}

type Option func(*Engine)

// WithClock overrides the time source used for activity and completion
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDs overrides the identifier generator.
func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) stamp() *time.Time {
	t := e.now().UTC().Round(0)
	return &t
}

// Toggle describes the outcome of ToggleSubtask.
type Toggle struct {
	Found     bool
	Completed bool
	XPAwarded int
}

// AddSubject appends a new empty subject.
func (e *Engine) AddSubject(st State, name, color string) (State, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return st, ErrBlankName
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = Palette[0]
	}
	sub := Subject{
		ID:           e.newID(),
		Name:         name,
		Color:        color,
		Units:        []Unit{},
		LastActivity: e.stamp(),
	}
	subjects := make([]Subject, len(st.Subjects), len(st.Subjects)+1)
	copy(subjects, st.Subjects)
	st.Subjects = append(subjects, sub)
	return st, nil
}

// DeleteSubject removes a subject with all its units and subtasks.
func (e *Engine) DeleteSubject(st State, subjectID string) State {
	i := st.subjectIndex(subjectID)
	if i < 0 {
		return st
	}
	subjects := make([]Subject, 0, len(st.Subjects)-1)
	subjects = append(subjects, st.Subjects[:i]...)
	st.Subjects = append(subjects, st.Subjects[i+1:]...)
	return st
}

// AddUnit appends an empty unit to a subject.
func (e *Engine) AddUnit(st State, subjectID, name string) (State, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return st, ErrBlankName
	}
	i := st.subjectIndex(subjectID)
	if i < 0 {
		return st, nil
	}
	sub := st.Subjects[i]
	units := make([]Unit, len(sub.Units), len(sub.Units)+1)
	copy(units, sub.Units)
	sub.Units = append(units, Unit{
		ID:       e.newID(),
		Name:     name,
		Subtasks: []Subtask{},
	})
	return e.commit(st, i, sub, true), nil
}

// DeleteUnit removes a unit and its subtasks from a subject.
func (e *Engine) DeleteUnit(st State, subjectID, unitID string) State {
	i := st.subjectIndex(subjectID)
	if i < 0 {
		return st
	}
	sub := st.Subjects[i]
	j := sub.unitIndex(unitID)
	if j < 0 {
		return st
	}
	units := make([]Unit, 0, len(sub.Units)-1)
	units = append(units, sub.Units[:j]...)
	sub.Units = append(units, sub.Units[j+1:]...)
	return e.commit(st, i, sub, true)
}

// AddSubtask appends an open subtask to a unit.
func (e *Engine) AddSubtask(st State, subjectID, unitID, title string) (State, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return st, ErrBlankTitle
	}
	return e.editUnit(st, subjectID, unitID, true, func(u Unit) (Unit, bool) {
		tasks := make([]Subtask, len(u.Subtasks), len(u.Subtasks)+1)
		copy(tasks, u.Subtasks)
		u.Subtasks = append(tasks, Subtask{ID: e.newID(), Title: title})
		return u, true
	}), nil
}

// ToggleSubtask flips a subtask's completion. Completing an open subtask
// stamps CompletedAt and awards SubtaskXP; reopening clears CompletedAt
// and keeps the XP. Toggling is not structural, so LastActivity is left
// alone.
func (e *Engine) ToggleSubtask(st State, subjectID, unitID, subtaskID string) (State, Toggle) {
	var res Toggle
	next := e.editSubtask(st, subjectID, unitID, subtaskID, func(t Subtask) Subtask {
		res.Found = true
		if t.Completed {
			t.Completed = false
			t.CompletedAt = nil
			return t
		}
		t.Completed = true
		t.CompletedAt = e.stamp()
		res.Completed = true
		return t
	}, true)
	if !res.Found {
		return st, res
	}
	if res.Completed {
		next.TotalXP, _ = AwardXP(next.TotalXP, SubtaskXP)
		res.XPAwarded = SubtaskXP
	}
	return next, res
}

// DeleteSubtask removes a subtask. XP earned for it is kept.
func (e *Engine) DeleteSubtask(st State, subjectID, unitID, subtaskID string) State {
	return e.editUnit(st, subjectID, unitID, true, func(u Unit) (Unit, bool) {
		k := u.subtaskIndex(subtaskID)
		if k < 0 {
			return u, false
		}
		tasks := make([]Subtask, 0, len(u.Subtasks)-1)
		tasks = append(tasks, u.Subtasks[:k]...)
		u.Subtasks = append(tasks, u.Subtasks[k+1:]...)
		return u, true
	})
}

// UpdateSubtaskDeadline sets or, with an empty date, clears a deadline.
// It is cosmetic: no rollup and no activity stamp.
func (e *Engine) UpdateSubtaskDeadline(st State, subjectID, unitID, subtaskID, date string) (State, error) {
	date = strings.TrimSpace(date)
	var deadline *string
	if date != "" {
		if _, err := time.Parse(DeadlineLayout, date); err != nil {
			return st, fmt.Errorf("%w: %q", ErrInvalidDeadline, date)
		}
		deadline = &date
	}
	return e.editSubtask(st, subjectID, unitID, subtaskID, func(t Subtask) Subtask {
		t.Deadline = deadline
		return t
	}, false), nil
}

// UpdateUnitNotes replaces a unit's free-text notes. Cosmetic.
func (e *Engine) UpdateUnitNotes(st State, subjectID, unitID, content string) State {
	i := st.subjectIndex(subjectID)
	if i < 0 {
		return st
	}
	sub := st.Subjects[i]
	j := sub.unitIndex(unitID)
	if j < 0 {
		return st
	}
	units := make([]Unit, len(sub.Units))
	copy(units, sub.Units)
	units[j].Notes = content
	sub.Units = units
	return replaceSubject(st, i, sub)
}

// AwardXP adds amount to the state's total XP.
func (e *Engine) AwardXP(st State, amount int) (State, error) {
	total, err := AwardXP(st.TotalXP, amount)
	if err != nil {
		return st, err
	}
	st.TotalXP = total
	return st, nil
}

// ResetAll returns the seed dataset with zero XP. Callers confirm with the
// user before invoking it.
func (e *Engine) ResetAll() State {
	return State{Subjects: SeedSubjects()}
}

// editUnit applies fn to one unit. fn reports whether it changed anything;
// when it did, the subject is re-aggregated and, for structural edits,
// its LastActivity is stamped.
func (e *Engine) editUnit(st State, subjectID, unitID string, structural bool, fn func(Unit) (Unit, bool)) State {
	i := st.subjectIndex(subjectID)
	if i < 0 {
		return st
	}
	sub := st.Subjects[i]
	j := sub.unitIndex(unitID)
	if j < 0 {
		return st
	}
	u, changed := fn(sub.Units[j])
	if !changed {
		return st
	}
	units := make([]Unit, len(sub.Units))
	copy(units, sub.Units)
	units[j] = u
	sub.Units = units
	return e.commit(st, i, sub, structural)
}

// editSubtask applies fn to one subtask. recompute selects whether the
// change affects the rollups.
func (e *Engine) editSubtask(st State, subjectID, unitID, subtaskID string, fn func(Subtask) Subtask, recompute bool) State {
	i := st.subjectIndex(subjectID)
	if i < 0 {
		return st
	}
	sub := st.Subjects[i]
	j := sub.unitIndex(unitID)
	if j < 0 {
		return st
	}
	u := sub.Units[j]
	k := u.subtaskIndex(subtaskID)
	if k < 0 {
		return st
	}
	tasks := make([]Subtask, len(u.Subtasks))
	copy(tasks, u.Subtasks)
	tasks[k] = fn(tasks[k])
	u.Subtasks = tasks

	units := make([]Unit, len(sub.Units))
	copy(units, sub.Units)
	units[j] = u
	sub.Units = units
	if !recompute {
		return replaceSubject(st, i, sub)
	}
	return e.commit(st, i, sub, false)
}

// commit re-aggregates sub, optionally stamps activity, and stores it at
// index i of a copied subjects slice. It is the only place mutations
// recompute derived fields.
func (e *Engine) commit(st State, i int, sub Subject, structural bool) State {
	sub = RecomputeSubject(sub)
	if structural {
		sub.LastActivity = e.stamp()
	}
	return replaceSubject(st, i, sub)
}

func replaceSubject(st State, i int, sub Subject) State {
	subjects := make([]Subject, len(st.Subjects))
	copy(subjects, st.Subjects)
	subjects[i] = sub
	st.Subjects = subjects
	return st
}
