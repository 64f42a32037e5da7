package study

import "time"

// seedCompletedAt stamps the subtasks that start out completed.
var seedCompletedAt = time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

// SeedSubjects returns a fresh copy of the example dataset used on first
// start, after a failed load, and by ResetAll.
func SeedSubjects() []Subject {
	seed := []Subject{
		{
			ID:    "s1",
			Name:  "Python Mastery",
			Color: "#38BDF8",
			Units: []Unit{
				{
					ID:   "u1",
					Name: "Basics & Syntax",
					Subtasks: []Subtask{
						{ID: "t1", Title: "Variables & Data Types", Completed: true},
						{ID: "t2", Title: "Control Flow (if/else)", Completed: true},
						{ID: "t3", Title: "Loops (for/while)"},
					},
				},
				{
					ID:   "u2",
					Name: "Data Structures",
					Subtasks: []Subtask{
						{ID: "t4", Title: "Lists & Tuples"},
						{ID: "t5", Title: "Dictionaries"},
					},
				},
			},
		},
		{
			ID:    "s2",
			Name:  "Data Structures & Algo",
			Color: "#F472B6",
			Units: []Unit{
				{
					ID:   "u3",
					Name: "Sorting Algorithms",
					Subtasks: []Subtask{
						{ID: "t6", Title: "Bubble Sort"},
						{ID: "t7", Title: "Merge Sort"},
					},
				},
			},
		},
	}
	for i := range seed {
		for j := range seed[i].Units {
			for k := range seed[i].Units[j].Subtasks {
				if t := &seed[i].Units[j].Subtasks[k]; t.Completed {
					at := seedCompletedAt
					t.CompletedAt = &at
				}
			}
		}
		seed[i] = RecomputeSubject(seed[i])
	}
	return seed
}
