package study

import "time"

// Subtask is the leaf unit of work. CompletedAt is set exactly when
// Completed is true.
type Subtask struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	Deadline    *string    `json:"deadline,omitempty"` // YYYY-MM-DD
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Unit groups subtasks. Progress and Completed are derived.
type Unit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subtasks  []Subtask `json:"subtasks"`
	Completed bool      `json:"completed"`
	Progress  int       `json:"progress"`
	Notes     string    `json:"notes,omitempty"`
}

// Subject is a learning track. Progress, TotalTasks and CompletedTasks are
// derived from the owned units.
type Subject struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Color          string     `json:"color"`
	Units          []Unit     `json:"units"`
	Progress       int        `json:"progress"`
	TotalTasks     int        `json:"totalTasks"`
	CompletedTasks int        `json:"completedTasks"`
	LastActivity   *time.Time `json:"lastActivity,omitempty"`
}

// State is the whole tracked collection plus accumulated XP.
type State struct {
	Subjects []Subject
	TotalXP  int
}

// TotalProgress is the completion percentage across every subject.
func (s State) TotalProgress() int {
	return TotalProgress(s.Subjects)
}

// Level is derived from TotalXP on every read.
func (s State) Level() int {
	return LevelForXP(s.TotalXP)
}

// Subject returns the subject with the given id.
func (s State) Subject(id string) (Subject, bool) {
	i := s.subjectIndex(id)
	if i < 0 {
		return Subject{}, false
	}
	return s.Subjects[i], true
}

// Unit returns the unit addressed by subjectID/unitID.
func (s State) Unit(subjectID, unitID string) (Unit, bool) {
	sub, ok := s.Subject(subjectID)
	if !ok {
		return Unit{}, false
	}
	i := sub.unitIndex(unitID)
	if i < 0 {
		return Unit{}, false
	}
	return sub.Units[i], true
}

func (s State) subjectIndex(id string) int {
	for i := range s.Subjects {
		if s.Subjects[i].ID == id {
			return i
		}
	}
	return -1
}

func (s Subject) unitIndex(id string) int {
	for i := range s.Units {
		if s.Units[i].ID == id {
			return i
		}
	}
	return -1
}

func (u Unit) subtaskIndex(id string) int {
	for i := range u.Subtasks {
		if u.Subtasks[i].ID == id {
			return i
		}
	}
	return -1
}

// CompletedCount is the number of completed subtasks in the unit.
func (u Unit) CompletedCount() int {
	n := 0
	for _, t := range u.Subtasks {
		if t.Completed {
			n++
		}
	}
	return n
}
