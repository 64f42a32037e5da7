package study

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

var testNow = time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)

// newTestEngine returns an engine with a fixed clock and sequential ids.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	n := 0
	return NewEngine(
		WithClock(func() time.Time { return testNow }),
		WithIDs(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
}

func task(id string, done bool) Subtask {
	t := Subtask{ID: id, Title: "task " + id, Completed: done}
	if done {
		at := testNow.Add(-time.Hour)
		t.CompletedAt = &at
	}
	return t
}

// oneUnitState has subject "s" with unit "u" holding three subtasks, two
// of them completed.
func oneUnitState() State {
	sub := RecomputeSubject(Subject{
		ID:    "s",
		Name:  "Go",
		Color: "#000",
		Units: []Unit{{
			ID:       "u",
			Name:     "Basics",
			Subtasks: []Subtask{task("a", true), task("b", true), task("c", false)},
		}},
	})
	return State{Subjects: []Subject{sub}}
}

// ============================================================
// Aggregation
// ============================================================

func TestRecomputeUnit(t *testing.T) {
	tests := []struct {
		name          string
		tasks         []Subtask
		wantProgress  int
		wantCompleted bool
	}{
		{"empty", nil, 0, false},
		{"none done", []Subtask{task("a", false), task("b", false)}, 0, false},
		{"one of three", []Subtask{task("a", true), task("b", false), task("c", false)}, 33, false},
		{"two of three", []Subtask{task("a", true), task("b", true), task("c", false)}, 67, false},
		{"half", []Subtask{task("a", true), task("b", false)}, 50, false},
		{"all done", []Subtask{task("a", true), task("b", true)}, 100, true},
	}

	for _, tt := range tests {
		u := RecomputeUnit(Unit{ID: "u", Subtasks: tt.tasks})
		if u.Progress != tt.wantProgress {
			t.Errorf("%s: progress = %d, want %d", tt.name, u.Progress, tt.wantProgress)
		}
		if u.Completed != tt.wantCompleted {
			t.Errorf("%s: completed = %v, want %v", tt.name, u.Completed, tt.wantCompleted)
		}
	}
}

func TestRecomputeUnitRoundsUpToComplete(t *testing.T) {
	tasks := make([]Subtask, 201)
	for i := range tasks {
		tasks[i] = task(fmt.Sprint(i), i > 0)
	}
	u := RecomputeUnit(Unit{Subtasks: tasks})
	// 200/201 rounds to 100.
	if u.Progress != 100 {
		t.Fatalf("progress = %d, want 100", u.Progress)
	}
	if !u.Completed {
		t.Fatal("progress 100 with tasks should mark the unit completed")
	}
}

func TestRecomputeSubjectSums(t *testing.T) {
	s := RecomputeSubject(Subject{
		ID: "s",
		Units: []Unit{
			{ID: "u1", Subtasks: []Subtask{task("a", true), task("b", false)}},
			{ID: "u2", Subtasks: []Subtask{task("c", true), task("d", true), task("e", false)}},
			{ID: "u3"},
		},
	})
	if s.TotalTasks != 5 || s.CompletedTasks != 3 {
		t.Fatalf("totals = %d/%d, want 3/5", s.CompletedTasks, s.TotalTasks)
	}
	if s.Progress != 60 {
		t.Fatalf("progress = %d, want 60", s.Progress)
	}
	if s.Units[0].Progress != 50 || s.Units[1].Progress != 67 || s.Units[2].Progress != 0 {
		t.Fatalf("unit progress not recomputed: %d %d %d", s.Units[0].Progress, s.Units[1].Progress, s.Units[2].Progress)
	}
	if s.Units[2].Completed {
		t.Fatal("empty unit must not be completed")
	}
}

func TestRecomputeSubjectFixesStaleFields(t *testing.T) {
	stale := Subject{
		ID:             "s",
		Progress:       99,
		TotalTasks:     42,
		CompletedTasks: 41,
		Units: []Unit{
			{ID: "u", Progress: 100, Completed: true, Subtasks: []Subtask{task("a", false)}},
		},
	}
	s := RecomputeSubject(stale)
	if s.Progress != 0 || s.TotalTasks != 1 || s.CompletedTasks != 0 {
		t.Fatalf("stale totals survived: %+v", s)
	}
	if s.Units[0].Completed || s.Units[0].Progress != 0 {
		t.Fatalf("stale unit survived: %+v", s.Units[0])
	}
	if stale.Units[0].Progress != 100 {
		t.Fatal("input subject was modified")
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	for _, s := range SeedSubjects() {
		once := RecomputeSubject(s)
		twice := RecomputeSubject(once)
		a, _ := json.Marshal(once)
		b, _ := json.Marshal(twice)
		if string(a) != string(b) {
			t.Fatalf("recompute not idempotent:\n%s\n%s", a, b)
		}
	}
}

func TestTotalProgress(t *testing.T) {
	if got := TotalProgress(nil); got != 0 {
		t.Fatalf("empty = %d, want 0", got)
	}
	subjects := []Subject{
		{TotalTasks: 3, CompletedTasks: 1},
		{TotalTasks: 1, CompletedTasks: 1},
		{},
	}
	if got := TotalProgress(subjects); got != 50 {
		t.Fatalf("total = %d, want 50", got)
	}
	st := State{Subjects: subjects}
	if st.TotalProgress() != 50 {
		t.Fatal("State.TotalProgress should match TotalProgress")
	}
}

// ============================================================
// XP and levels
// ============================================================

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{899, 3},
		{900, 4},
		{10000, 11},
		{-5, 1},
	}
	for _, tt := range tests {
		if got := LevelForXP(tt.xp); got != tt.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestXPForLevelMatchesLevelCurve(t *testing.T) {
	for level := 1; level <= 50; level++ {
		start := XPForLevel(level)
		if got := LevelForXP(start); got != level {
			t.Fatalf("LevelForXP(XPForLevel(%d)) = %d", level, got)
		}
		if level > 1 && LevelForXP(start-1) != level-1 {
			t.Fatalf("XP %d should still be level %d", start-1, level-1)
		}
	}
}

func TestLevelProgress(t *testing.T) {
	into, span := LevelProgress(250)
	if into != 150 || span != 300 {
		t.Fatalf("LevelProgress(250) = %d/%d, want 150/300", into, span)
	}
	into, span = LevelProgress(0)
	if into != 0 || span != 100 {
		t.Fatalf("LevelProgress(0) = %d/%d, want 0/100", into, span)
	}
}

func TestAwardXP(t *testing.T) {
	total, err := AwardXP(100, 500)
	if err != nil || total != 600 {
		t.Fatalf("AwardXP = %d, %v", total, err)
	}
	for _, bad := range []int{0, -1} {
		total, err = AwardXP(100, bad)
		if !errors.Is(err, ErrInvalidXP) {
			t.Fatalf("AwardXP(%d) err = %v, want ErrInvalidXP", bad, err)
		}
		if total != 100 {
			t.Fatalf("total changed on rejected award: %d", total)
		}
	}
}

func TestEngineAwardXP(t *testing.T) {
	e := newTestEngine(t)
	st, err := e.AwardXP(State{TotalXP: 50}, FocusSessionXP)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalXP != 1050 {
		t.Fatalf("TotalXP = %d, want 1050", st.TotalXP)
	}
	if st.Level() != 4 {
		t.Fatalf("Level = %d, want 4", st.Level())
	}
}

// ============================================================
// Mutations
// ============================================================

func TestAddSubject(t *testing.T) {
	e := newTestEngine(t)
	st, err := e.AddSubject(State{}, "  Rust  ", "#FF0000")
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Subjects) != 1 {
		t.Fatalf("expected 1 subject, got %d", len(st.Subjects))
	}
	s := st.Subjects[0]
	if s.ID != "id-1" || s.Name != "Rust" || s.Color != "#FF0000" {
		t.Fatalf("unexpected subject: %+v", s)
	}
	if s.Units == nil || len(s.Units) != 0 {
		t.Fatal("new subject should have an empty unit list")
	}
	if s.LastActivity == nil || !s.LastActivity.Equal(testNow) {
		t.Fatalf("LastActivity = %v, want %v", s.LastActivity, testNow)
	}
	if st.TotalXP != 0 {
		t.Fatal("adding a subject must not award XP")
	}
}

func TestAddSubjectDefaultColor(t *testing.T) {
	e := newTestEngine(t)
	st, _ := e.AddSubject(State{}, "Rust", "")
	if st.Subjects[0].Color != Palette[0] {
		t.Fatalf("color = %q, want %q", st.Subjects[0].Color, Palette[0])
	}
}

func TestAddRejectsBlankInput(t *testing.T) {
	e := newTestEngine(t)
	st := oneUnitState()

	if got, err := e.AddSubject(st, "   ", "#fff"); !errors.Is(err, ErrBlankName) || !reflect.DeepEqual(got, st) {
		t.Fatalf("AddSubject blank: err=%v changed=%v", err, !reflect.DeepEqual(got, st))
	}
	if got, err := e.AddUnit(st, "s", ""); !errors.Is(err, ErrBlankName) || !reflect.DeepEqual(got, st) {
		t.Fatalf("AddUnit blank: err=%v", err)
	}
	if got, err := e.AddSubtask(st, "s", "u", "\t"); !errors.Is(err, ErrBlankTitle) || !reflect.DeepEqual(got, st) {
		t.Fatalf("AddSubtask blank: err=%v", err)
	}
}

func TestAddSubjectDoesNotAliasInput(t *testing.T) {
	e := newTestEngine(t)
	base := State{Subjects: make([]Subject, 1, 4)}
	base.Subjects[0] = Subject{ID: "x"}

	a, _ := e.AddSubject(base, "A", "")
	b, _ := e.AddSubject(base, "B", "")
	if a.Subjects[1].Name != "A" || b.Subjects[1].Name != "B" {
		t.Fatal("appends on a shared backing array clobbered each other")
	}
	if len(base.Subjects) != 1 {
		t.Fatal("input state changed")
	}
}

func TestDeleteSubjectCascades(t *testing.T) {
	e := newTestEngine(t)
	st := State{Subjects: SeedSubjects(), TotalXP: 700}
	next := e.DeleteSubject(st, "s1")
	if len(next.Subjects) != 1 || next.Subjects[0].ID != "s2" {
		t.Fatalf("unexpected subjects after delete: %+v", next.Subjects)
	}
	if _, ok := next.Unit("s1", "u1"); ok {
		t.Fatal("units of deleted subject still reachable")
	}
	if next.TotalXP != 700 {
		t.Fatal("deleting a subject must not change XP")
	}
	if len(st.Subjects) != 2 {
		t.Fatal("input state changed")
	}
}

func TestAddUnit(t *testing.T) {
	e := newTestEngine(t)
	st := oneUnitState()
	next, err := e.AddUnit(st, "s", "Advanced")
	if err != nil {
		t.Fatal(err)
	}
	s := next.Subjects[0]
	if len(s.Units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(s.Units))
	}
	u := s.Units[1]
	if u.Name != "Advanced" || u.Progress != 0 || u.Completed || len(u.Subtasks) != 0 {
		t.Fatalf("unexpected unit: %+v", u)
	}
	if s.TotalTasks != 3 || s.CompletedTasks != 2 || s.Progress != 67 {
		t.Fatalf("subject aggregates wrong: %d/%d %d%%", s.CompletedTasks, s.TotalTasks, s.Progress)
	}
	if s.LastActivity == nil || !s.LastActivity.Equal(testNow) {
		t.Fatal("AddUnit should stamp LastActivity")
	}
	if len(st.Subjects[0].Units) != 1 {
		t.Fatal("input state changed")
	}
}

func TestDeleteUnitKeepsOtherUnits(t *testing.T) {
	e := newTestEngine(t)
	st := State{Subjects: SeedSubjects()}
	before := st.Subjects[0]
	if before.TotalTasks != 5 || before.CompletedTasks != 2 {
		t.Fatalf("seed totals = %d/%d", before.CompletedTasks, before.TotalTasks)
	}

	next := e.DeleteUnit(st, "s1", "u1")
	s := next.Subjects[0]
	if len(s.Units) != 1 || s.Units[0].ID != "u2" {
		t.Fatalf("unexpected units: %+v", s.Units)
	}
	if s.TotalTasks != 2 || s.CompletedTasks != 0 || s.Progress != 0 {
		t.Fatalf("aggregates = %d/%d %d%%, want 0/2 0%%", s.CompletedTasks, s.TotalTasks, s.Progress)
	}
	if !reflect.DeepEqual(s.Units[0], before.Units[1]) {
		t.Fatal("the remaining unit's figures changed")
	}
	if s.LastActivity == nil {
		t.Fatal("DeleteUnit should stamp LastActivity")
	}
	if !reflect.DeepEqual(next.Subjects[1], st.Subjects[1]) {
		t.Fatal("other subject changed")
	}
}

func TestAddSubtask(t *testing.T) {
	e := newTestEngine(t)
	st := oneUnitState()
	next, err := e.AddSubtask(st, "s", "u", " Closures ")
	if err != nil {
		t.Fatal(err)
	}
	u := next.Subjects[0].Units[0]
	if len(u.Subtasks) != 4 {
		t.Fatalf("expected 4 subtasks, got %d", len(u.Subtasks))
	}
	added := u.Subtasks[3]
	if added.Title != "Closures" || added.Completed || added.CompletedAt != nil || added.ID == "" {
		t.Fatalf("unexpected subtask: %+v", added)
	}
	if u.Progress != 50 {
		t.Fatalf("unit progress = %d, want 50", u.Progress)
	}
	if next.Subjects[0].TotalTasks != 4 || next.Subjects[0].Progress != 50 {
		t.Fatal("subject aggregates not recomputed")
	}
	if next.Subjects[0].LastActivity == nil {
		t.Fatal("AddSubtask should stamp LastActivity")
	}
	if len(st.Subjects[0].Units[0].Subtasks) != 3 {
		t.Fatal("input state changed")
	}
}

func TestToggleCompletesUnit(t *testing.T) {
	e := newTestEngine(t)
	st := oneUnitState()
	st.TotalXP = 120

	u := st.Subjects[0].Units[0]
	if u.Progress != 67 || u.Completed {
		t.Fatalf("precondition: progress=%d completed=%v", u.Progress, u.Completed)
	}

	next, res := e.ToggleSubtask(st, "s", "u", "c")
	if !res.Found || !res.Completed || res.XPAwarded != SubtaskXP {
		t.Fatalf("unexpected toggle result: %+v", res)
	}
	u = next.Subjects[0].Units[0]
	if u.Progress != 100 || !u.Completed {
		t.Fatalf("progress=%d completed=%v, want 100 true", u.Progress, u.Completed)
	}
	if next.TotalXP != 620 {
		t.Fatalf("TotalXP = %d, want 620", next.TotalXP)
	}
	if next.Subjects[0].Progress != 100 {
		t.Fatalf("subject progress = %d, want 100", next.Subjects[0].Progress)
	}
	c := u.Subtasks[2]
	if c.CompletedAt == nil || !c.CompletedAt.Equal(testNow) {
		t.Fatalf("CompletedAt = %v, want %v", c.CompletedAt, testNow)
	}
	if next.Subjects[0].LastActivity != nil {
		t.Fatal("toggling must not stamp LastActivity")
	}
}

func TestToggleReopenKeepsXP(t *testing.T) {
	e := newTestEngine(t)
	st := oneUnitState()
	st.TotalXP = 1000

	next, res := e.ToggleSubtask(st, "s", "u", "a")
	if !res.Found || res.Completed || res.XPAwarded != 0 {
		t.Fatalf("unexpected toggle result: %+v", res)
	}
	a := next.Subjects[0].Units[0].Subtasks[0]
	if a.Completed || a.CompletedAt != nil {
		t.Fatalf("reopened subtask still completed: %+v", a)
	}
	if next.TotalXP != 1000 {
		t.Fatalf("XP changed on reopen: %d", next.TotalXP)
	}
	if next.Subjects[0].CompletedTasks != 1 || next.Subjects[0].Units[0].Progress != 33 {
		t.Fatal("aggregates not recomputed after reopen")
	}
}

func TestToggleNeverDecreasesXP(t *testing.T) {
	e := newTestEngine(t)
	st := oneUnitState()
	prev := st.TotalXP
	ids := []string{"a", "c", "c", "b", "a", "c", "missing", "b"}
	for i := 0; i < 20; i++ {
		st, _ = e.ToggleSubtask(st, "s", "u", ids[i%len(ids)])
		if st.TotalXP < prev {
			t.Fatalf("XP decreased from %d to %d", prev, st.TotalXP)
		}
		prev = st.TotalXP
	}
}

func TestCompletedAtInvariant(t *testing.T) {
	e := newTestEngine(t)
	st := State{Subjects: SeedSubjects()}
	for _, id := range []string{"t1", "t3", "t3", "t4", "t2"} {
		st, _ = e.ToggleSubtask(st, "s1", "u1", id)
		st, _ = e.ToggleSubtask(st, "s1", "u2", id)
	}
	for _, s := range st.Subjects {
		for _, u := range s.Units {
			for _, tk := range u.Subtasks {
				if tk.Completed != (tk.CompletedAt != nil) {
					t.Fatalf("subtask %s: completed=%v completedAt=%v", tk.ID, tk.Completed, tk.CompletedAt)
				}
			}
		}
	}
}

func TestMissingTargetsAreNoOps(t *testing.T) {
	e := newTestEngine(t)
	st := oneUnitState()
	st.TotalXP = 300

	check := func(name string, got State) {
		t.Helper()
		if !reflect.DeepEqual(got, st) {
			t.Fatalf("%s changed state", name)
		}
	}

	got, res := e.ToggleSubtask(st, "s", "u", "nope")
	check("ToggleSubtask", got)
	if res.Found {
		t.Fatal("missing subtask reported as found")
	}
	got, _ = e.ToggleSubtask(st, "nope", "u", "a")
	check("ToggleSubtask subject", got)
	check("DeleteSubject", e.DeleteSubject(st, "nope"))
	check("DeleteUnit", e.DeleteUnit(st, "s", "nope"))
	check("DeleteSubtask", e.DeleteSubtask(st, "s", "u", "nope"))
	check("UpdateUnitNotes", e.UpdateUnitNotes(st, "s", "nope", "x"))

	got, err := e.AddUnit(st, "nope", "Unit")
	check("AddUnit", got)
	if err != nil {
		t.Fatalf("AddUnit on missing subject should not error: %v", err)
	}
	got, err = e.AddSubtask(st, "s", "nope", "Task")
	check("AddSubtask", got)
	if err != nil {
		t.Fatal(err)
	}
	got, err = e.UpdateSubtaskDeadline(st, "s", "u", "nope", "2026-01-01")
	check("UpdateSubtaskDeadline", got)
	if err != nil {
		t.Fatal(err)
	}
}

func TestDeleteSubtaskKeepsXP(t *testing.T) {
	e := newTestEngine(t)
	st := oneUnitState()
	st.TotalXP = 1000

	next := e.DeleteSubtask(st, "s", "u", "a")
	u := next.Subjects[0].Units[0]
	if len(u.Subtasks) != 2 {
		t.Fatalf("expected 2 subtasks, got %d", len(u.Subtasks))
	}
	if u.Progress != 50 || next.Subjects[0].CompletedTasks != 1 || next.Subjects[0].TotalTasks != 2 {
		t.Fatal("aggregates not recomputed after delete")
	}
	if next.TotalXP != 1000 {
		t.Fatal("deleting a completed subtask must not revoke XP")
	}
	if next.Subjects[0].LastActivity == nil {
		t.Fatal("DeleteSubtask should stamp LastActivity")
	}
}

func TestDeleteLastSubtaskUncompletesUnit(t *testing.T) {
	e := newTestEngine(t)
	st := State{Subjects: []Subject{RecomputeSubject(Subject{
		ID:    "s",
		Units: []Unit{{ID: "u", Subtasks: []Subtask{task("a", true)}}},
	})}}
	if !st.Subjects[0].Units[0].Completed {
		t.Fatal("precondition: unit should be completed")
	}
	next := e.DeleteSubtask(st, "s", "u", "a")
	u := next.Subjects[0].Units[0]
	if u.Completed || u.Progress != 0 {
		t.Fatalf("empty unit should not be completed: %+v", u)
	}
}

func TestUpdateSubtaskDeadline(t *testing.T) {
	e := newTestEngine(t)
	st := oneUnitState()

	next, err := e.UpdateSubtaskDeadline(st, "s", "u", "c", "2026-04-01")
	if err != nil {
		t.Fatal(err)
	}
	c := next.Subjects[0].Units[0].Subtasks[2]
	if c.Deadline == nil || *c.Deadline != "2026-04-01" {
		t.Fatalf("deadline = %v", c.Deadline)
	}
	if next.Subjects[0].LastActivity != nil {
		t.Fatal("deadline edits must not stamp LastActivity")
	}
	if st.Subjects[0].Units[0].Subtasks[2].Deadline != nil {
		t.Fatal("input state changed")
	}

	cleared, err := e.UpdateSubtaskDeadline(next, "s", "u", "c", "")
	if err != nil {
		t.Fatal(err)
	}
	if cleared.Subjects[0].Units[0].Subtasks[2].Deadline != nil {
		t.Fatal("empty date should clear the deadline")
	}

	_, err = e.UpdateSubtaskDeadline(st, "s", "u", "c", "next tuesday")
	if !errors.Is(err, ErrInvalidDeadline) {
		t.Fatalf("err = %v, want ErrInvalidDeadline", err)
	}
}

func TestUpdateUnitNotes(t *testing.T) {
	e := newTestEngine(t)
	st := oneUnitState()
	next := e.UpdateUnitNotes(st, "s", "u", "# Goroutines\nread the memory model")
	u := next.Subjects[0].Units[0]
	if u.Notes != "# Goroutines\nread the memory model" {
		t.Fatalf("notes = %q", u.Notes)
	}
	if next.Subjects[0].LastActivity != nil {
		t.Fatal("notes edits must not stamp LastActivity")
	}
	if st.Subjects[0].Units[0].Notes != "" {
		t.Fatal("input state changed")
	}
}

func TestResetAll(t *testing.T) {
	e := newTestEngine(t)
	st := e.ResetAll()
	if st.TotalXP != 0 {
		t.Fatalf("TotalXP = %d, want 0", st.TotalXP)
	}
	if !reflect.DeepEqual(st.Subjects, SeedSubjects()) {
		t.Fatal("ResetAll should restore the seed dataset")
	}
}

// ============================================================
// Seed
// ============================================================

func TestSeedSubjectsConsistent(t *testing.T) {
	seed := SeedSubjects()
	if len(seed) != 2 {
		t.Fatalf("expected 2 seed subjects, got %d", len(seed))
	}
	for _, s := range seed {
		if !reflect.DeepEqual(s, RecomputeSubject(s)) {
			t.Fatalf("seed subject %s has stale derived fields", s.ID)
		}
	}
	if seed[0].Progress != 40 || seed[0].Units[0].Progress != 67 {
		t.Fatalf("seed progress = %d/%d", seed[0].Progress, seed[0].Units[0].Progress)
	}

	// Each call must hand out independent data.
	seed[0].Units[0].Subtasks[0].Title = "changed"
	if SeedSubjects()[0].Units[0].Subtasks[0].Title == "changed" {
		t.Fatal("SeedSubjects shares memory between calls")
	}
}

// ============================================================
// Lookups
// ============================================================

func TestStateLookups(t *testing.T) {
	st := State{Subjects: SeedSubjects()}
	if s, ok := st.Subject("s2"); !ok || s.Name != "Data Structures & Algo" {
		t.Fatalf("Subject(s2) = %+v, %v", s, ok)
	}
	if _, ok := st.Subject("zz"); ok {
		t.Fatal("missing subject found")
	}
	if u, ok := st.Unit("s1", "u2"); !ok || u.Name != "Data Structures" {
		t.Fatalf("Unit(s1,u2) = %+v, %v", u, ok)
	}
	if _, ok := st.Unit("s2", "u1"); ok {
		t.Fatal("unit found under the wrong subject")
	}
}
