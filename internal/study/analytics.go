package study

import (
	"sort"
	"time"
)

// DayCount is the number of subtasks completed on one calendar day.
type DayCount struct {
	Date  time.Time // midnight in the requested location
	Count int
}

// CompletionsByDay counts completed subtasks per day for days consecutive
// days starting at from, in loc. Reopened subtasks are not counted.
func CompletionsByDay(subjects []Subject, from time.Time, days int, loc *time.Location) []DayCount {
	if days <= 0 {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}
	from = from.In(loc)
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)

	out := make([]DayCount, days)
	index := make(map[string]int, days)
	for i := range out {
		d := start.AddDate(0, 0, i)
		out[i].Date = d
		index[d.Format(DeadlineLayout)] = i
	}

	for _, s := range subjects {
		for _, u := range s.Units {
			for _, t := range u.Subtasks {
				if !t.Completed || t.CompletedAt == nil {
					continue
				}
				if i, ok := index[t.CompletedAt.In(loc).Format(DeadlineLayout)]; ok {
					out[i].Count++
				}
			}
		}
	}
	return out
}

// RecentSubjects orders subjects by LastActivity, newest first. Subjects
// that never saw activity sort last, keeping their relative order.
func RecentSubjects(subjects []Subject) []Subject {
	out := make([]Subject, len(subjects))
	copy(out, subjects)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastActivity, out[j].LastActivity
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
	return out
}

type DeadlineState int

const (
	DeadlineNone DeadlineState = iota
	DeadlineUpcoming
	DeadlineToday
	DeadlineOverdue
)

// DeadlineStatus classifies a subtask's deadline relative to today.
// Completed subtasks are never overdue or due.
func DeadlineStatus(t Subtask, today time.Time) DeadlineState {
	if t.Deadline == nil || t.Completed {
		return DeadlineNone
	}
	due, err := time.ParseInLocation(DeadlineLayout, *t.Deadline, today.Location())
	if err != nil {
		return DeadlineNone
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	switch {
	case due.Equal(day):
		return DeadlineToday
	case due.Before(day):
		return DeadlineOverdue
	default:
		return DeadlineUpcoming
	}
}

// DueTask is an open subtask with a deadline, located in the tree.
type DueTask struct {
	SubjectID   string
	SubjectName string
	UnitID      string
	UnitName    string
	Task        Subtask
	Status      DeadlineState
}

// UpcomingDeadlines lists open subtasks that have a deadline, earliest
// first. A non-positive limit returns all of them.
func UpcomingDeadlines(subjects []Subject, today time.Time, limit int) []DueTask {
	var out []DueTask
	for _, s := range subjects {
		for _, u := range s.Units {
			for _, t := range u.Subtasks {
				status := DeadlineStatus(t, today)
				if status == DeadlineNone {
					continue
				}
				out = append(out, DueTask{
					SubjectID:   s.ID,
					SubjectName: s.Name,
					UnitID:      u.ID,
					UnitName:    u.Name,
					Task:        t,
					Status:      status,
				})
			}
		}
	}
	// YYYY-MM-DD sorts lexically.
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].Task.Deadline < *out[j].Task.Deadline
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
