package store

import (
	"fmt"
	"time"
)

// RecordFocusSession logs a finished focus session.
func (s *Store) RecordFocusSession(startedAt, completedAt time.Time, xp int) (*FocusSession, error) {
	duration := int64(completedAt.Sub(startedAt).Seconds())
	if duration < 0 {
		duration = 0
	}
	res, err := s.db.Exec(
		`INSERT INTO focus_sessions (started_at, completed_at, duration, xp_awarded) VALUES (?, ?, ?, ?)`,
		startedAt.UTC().Format(time.RFC3339), completedAt.UTC().Format(time.RFC3339), duration, xp,
	)
	if err != nil {
		return nil, fmt.Errorf("record focus session: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetFocusSession(id)
}

func (s *Store) GetFocusSession(id int64) (*FocusSession, error) {
	f := &FocusSession{}
	var startedAt, completedAt string
	err := s.db.QueryRow(
		`SELECT id, started_at, completed_at, duration, xp_awarded FROM focus_sessions WHERE id = ?`, id,
	).Scan(&f.ID, &startedAt, &completedAt, &f.Duration, &f.XPAwarded)
	if err != nil {
		return nil, fmt.Errorf("get focus session %d: %w", id, err)
	}
	f.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	f.CompletedAt, _ = time.Parse(time.RFC3339, completedAt)
	return f, nil
}

// ListFocusSessions returns sessions completed in [from, to), newest first.
func (s *Store) ListFocusSessions(from, to time.Time) ([]FocusSession, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, completed_at, duration, xp_awarded
		 FROM focus_sessions
		 WHERE completed_at >= ? AND completed_at < ?
		 ORDER BY completed_at DESC, id DESC`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("list focus sessions: %w", err)
	}
	defer rows.Close()

	var sessions []FocusSession
	for rows.Next() {
		var f FocusSession
		var startedAt, completedAt string
		if err := rows.Scan(&f.ID, &startedAt, &completedAt, &f.Duration, &f.XPAwarded); err != nil {
			return nil, err
		}
		f.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		f.CompletedAt, _ = time.Parse(time.RFC3339, completedAt)
		sessions = append(sessions, f)
	}
	return sessions, rows.Err()
}

func (s *Store) GetFocusStats(from, to time.Time) (FocusStats, error) {
	var st FocusStats
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(duration), 0), COALESCE(SUM(xp_awarded), 0)
		FROM focus_sessions
		WHERE completed_at >= ? AND completed_at < ?`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	).Scan(&st.Sessions, &st.TotalSeconds, &st.TotalXP)
	if err != nil {
		return FocusStats{}, fmt.Errorf("focus stats: %w", err)
	}
	return st, nil
}
