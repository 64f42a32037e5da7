package store

import "time"

type FocusSession struct {
	ID          int64
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    int64 // seconds
	XPAwarded   int
}

type Setting struct {
	Key   string
	Value string
}

// FocusStats aggregates completed focus sessions over a period.
type FocusStats struct {
	Sessions     int
	TotalSeconds int64
	TotalXP      int
}
