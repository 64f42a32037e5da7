// Package tracker owns the live study state. It applies mutations through
// the study engine and writes every change through to the store.
package tracker

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sadopc/aetherplan/internal/export"
	"github.com/sadopc/aetherplan/internal/store"
	"github.com/sadopc/aetherplan/internal/study"
)

// Snapshot is the read model handed to views.
type Snapshot struct {
	Subjects      []study.Subject
	TotalXP       int
	Level         int
	TotalProgress int
}

type Tracker struct {
	store  *store.Store
	engine *study.Engine
	now    func() time.Time
	state  study.State
}

type Option func(*Tracker)

func WithEngine(e *study.Engine) Option {
	return func(t *Tracker) { t.engine = e }
}

// WithClock sets the time source for focus-session records.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// Open loads the persisted state. A missing or unreadable subjects record
// falls back to the seed data, and a missing or unreadable XP record to
// zero. Neither is fatal.
func Open(s *store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store: s,
		now:   time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	if t.engine == nil {
		t.engine = study.NewEngine()
	}
	t.state = t.load()
	return t
}

func (t *Tracker) load() study.State {
	st := study.State{Subjects: study.SeedSubjects()}

	raw, ok, err := t.store.Get(KeySubjects)
	switch {
	case err != nil:
		log.Printf("tracker: load subjects: %v", err)
	case ok:
		subjects, err := decodeSubjects(raw)
		if err != nil {
			log.Printf("tracker: %v, using seed data", err)
			break
		}
		st.Subjects = subjects
	}

	raw, ok, err = t.store.Get(KeyXP)
	switch {
	case err != nil:
		log.Printf("tracker: load xp: %v", err)
	case ok:
		xp, err := decodeXP(raw)
		if err != nil {
			log.Printf("tracker: %v, starting at 0", err)
			break
		}
		st.TotalXP = xp
	}
	return st
}

// State returns the current state value. Callers must treat it as
// read-only.
func (t *Tracker) State() study.State {
	return t.state
}

func (t *Tracker) View() Snapshot {
	return Snapshot{
		Subjects:      t.state.Subjects,
		TotalXP:       t.state.TotalXP,
		Level:         t.state.Level(),
		TotalProgress: t.state.TotalProgress(),
	}
}

// apply swaps in next and persists whichever records changed. Write
// failures are logged; the in-memory state is kept.
func (t *Tracker) apply(next study.State) {
	prev := t.state
	t.state = next
	if !sameSubjects(prev.Subjects, next.Subjects) {
		t.saveSubjects()
	}
	if prev.TotalXP != next.TotalXP {
		t.saveXP()
	}
}

func (t *Tracker) saveSubjects() {
	raw, err := encodeSubjects(t.state.Subjects)
	if err != nil {
		log.Printf("tracker: %v", err)
		return
	}
	if err := t.store.Put(KeySubjects, raw); err != nil {
		log.Printf("tracker: save subjects: %v", err)
	}
}

func (t *Tracker) saveXP() {
	if err := t.store.Put(KeyXP, encodeXP(t.state.TotalXP)); err != nil {
		log.Printf("tracker: save xp: %v", err)
	}
}

// ============================================================
// Commands
// ============================================================

func (t *Tracker) AddSubject(name, color string) error {
	next, err := t.engine.AddSubject(t.state, name, color)
	if err != nil {
		return err
	}
	t.apply(next)
	return nil
}

func (t *Tracker) DeleteSubject(subjectID string) {
	t.apply(t.engine.DeleteSubject(t.state, subjectID))
}

func (t *Tracker) AddUnit(subjectID, name string) error {
	next, err := t.engine.AddUnit(t.state, subjectID, name)
	if err != nil {
		return err
	}
	t.apply(next)
	return nil
}

func (t *Tracker) DeleteUnit(subjectID, unitID string) {
	t.apply(t.engine.DeleteUnit(t.state, subjectID, unitID))
}

func (t *Tracker) AddSubtask(subjectID, unitID, title string) error {
	next, err := t.engine.AddSubtask(t.state, subjectID, unitID, title)
	if err != nil {
		return err
	}
	t.apply(next)
	return nil
}

func (t *Tracker) ToggleSubtask(subjectID, unitID, subtaskID string) study.Toggle {
	next, res := t.engine.ToggleSubtask(t.state, subjectID, unitID, subtaskID)
	t.apply(next)
	return res
}

func (t *Tracker) DeleteSubtask(subjectID, unitID, subtaskID string) {
	t.apply(t.engine.DeleteSubtask(t.state, subjectID, unitID, subtaskID))
}

func (t *Tracker) UpdateSubtaskDeadline(subjectID, unitID, subtaskID, date string) error {
	next, err := t.engine.UpdateSubtaskDeadline(t.state, subjectID, unitID, subtaskID, date)
	if err != nil {
		return err
	}
	t.apply(next)
	return nil
}

func (t *Tracker) UpdateUnitNotes(subjectID, unitID, content string) {
	t.apply(t.engine.UpdateUnitNotes(t.state, subjectID, unitID, content))
}

func (t *Tracker) AwardXP(amount int) error {
	next, err := t.engine.AwardXP(t.state, amount)
	if err != nil {
		return err
	}
	t.apply(next)
	return nil
}

// CompleteFocusSession awards FocusSessionXP and logs the session. The XP
// stays awarded even if the session log cannot be written.
func (t *Tracker) CompleteFocusSession(startedAt time.Time, d time.Duration) error {
	if err := t.AwardXP(study.FocusSessionXP); err != nil {
		return err
	}
	if _, err := t.store.RecordFocusSession(startedAt, startedAt.Add(d), study.FocusSessionXP); err != nil {
		return err
	}
	return nil
}

// FocusStats summarises focus sessions completed in [from, to).
func (t *Tracker) FocusStats(from, to time.Time) (store.FocusStats, error) {
	return t.store.GetFocusStats(from, to)
}

// TodayFocusStats summarises today's focus sessions in local time.
func (t *Tracker) TodayFocusStats() (store.FocusStats, error) {
	now := t.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return t.store.GetFocusStats(start, start.AddDate(0, 0, 1))
}

// Reset restores the seed data with zero XP and clears the store. The
// caller is responsible for confirming with the user.
func (t *Tracker) Reset() error {
	t.state = t.engine.ResetAll()
	if err := t.store.Clear(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// ============================================================
// Export / import
// ============================================================

// Export serializes the current records.
func (t *Tracker) Export() (export.Snapshot, error) {
	subjects, err := encodeSubjects(t.state.Subjects)
	if err != nil {
		return export.Snapshot{}, err
	}
	xp := encodeXP(t.state.TotalXP)
	return export.Snapshot{
		Subjects: &subjects,
		XP:       &xp,
		Version:  export.FormatVersion,
	}, nil
}

// Import replaces state from a snapshot. An absent record leaves that part
// of the state unchanged; a present one must parse or nothing is applied.
// Imported subjects are re-aggregated.
func (t *Tracker) Import(snap export.Snapshot) error {
	if snap.Subjects == nil && snap.XP == nil {
		return export.ErrEmptySnapshot
	}
	next := t.state
	if snap.Subjects != nil {
		subjects, err := decodeSubjects(*snap.Subjects)
		if err != nil {
			return fmt.Errorf("%w: %v", export.ErrInvalidFormat, err)
		}
		for i := range subjects {
			subjects[i] = study.RecomputeSubject(subjects[i])
		}
		next.Subjects = subjects
	}
	if snap.XP != nil {
		xp, err := decodeXP(*snap.XP)
		if err != nil {
			return fmt.Errorf("%w: %v", export.ErrInvalidFormat, err)
		}
		next.TotalXP = xp
	}

	t.state = next
	var errs []error
	if snap.Subjects != nil {
		raw, _ := encodeSubjects(next.Subjects)
		if err := t.store.Put(KeySubjects, raw); err != nil {
			errs = append(errs, err)
		}
	}
	if snap.XP != nil {
		if err := t.store.Put(KeyXP, encodeXP(next.TotalXP)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Printf("tracker: import write-through: %v", err)
	}
	return nil
}

// ExportFile writes the current records to path.
func (t *Tracker) ExportFile(path string) error {
	snap, err := t.Export()
	if err != nil {
		return err
	}
	return export.WriteFile(path, snap)
}

// ImportFile reads a backup from path and imports it.
func (t *Tracker) ImportFile(path string) error {
	snap, err := export.ReadFile(path)
	if err != nil {
		return err
	}
	return t.Import(snap)
}
