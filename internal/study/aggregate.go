package study

import "math"

// percent returns round(100*done/total), or 0 when total is 0.
func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(done) * 100 / float64(total)))
}

// RecomputeUnit derives Progress and Completed from the unit's subtasks.
// A unit without subtasks is never completed.
func RecomputeUnit(u Unit) Unit {
	total := len(u.Subtasks)
	u.Progress = percent(u.CompletedCount(), total)
	u.Completed = u.Progress == 100 && total > 0
	return u
}

// RecomputeSubject recomputes every owned unit, then the subject totals.
// The returned subject owns a fresh Units slice; the input is untouched.
func RecomputeSubject(s Subject) Subject {
	total, done := 0, 0
	if s.Units != nil {
		units := make([]Unit, len(s.Units))
		for i, u := range s.Units {
			units[i] = RecomputeUnit(u)
			total += len(u.Subtasks)
			done += units[i].CompletedCount()
		}
		s.Units = units
	}
	s.TotalTasks = total
	s.CompletedTasks = done
	s.Progress = percent(done, total)
	return s
}

// TotalProgress rolls completion up across subjects from their stored
// task counters.
func TotalProgress(subjects []Subject) int {
	total, done := 0, 0
	for _, s := range subjects {
		total += s.TotalTasks
		done += s.CompletedTasks
	}
	return percent(done, total)
}
