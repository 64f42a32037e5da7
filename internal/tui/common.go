package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/aetherplan/internal/study"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewSubjects
	viewActivity
	viewFocus
	viewSettings
)

var viewNames = []string{"Dashboard", "Subjects", "Activity", "Focus", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

type importDoneMsg struct {
	path string
}

// stateChangedMsg tells views that read store-side data to reload.
type stateChangedMsg struct{}

// --- Helpers ---

func errStatus(prefix string, err error) statusMsg {
	return statusMsg{text: fmt.Sprintf("%s: %v", prefix, err), isError: true}
}

// xpStatus describes an XP award, noting a level change.
func xpStatus(amount, levelBefore, levelAfter int) statusMsg {
	if levelAfter > levelBefore {
		return statusMsg{text: fmt.Sprintf("+%d XP  Level up! Now level %d \a", amount, levelAfter)}
	}
	return statusMsg{text: fmt.Sprintf("+%d XP", amount)}
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	// Round up so a fresh 25:00 countdown does not show 24:59.
	d = (d + time.Second - 1).Truncate(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}

func formatMinutes(secs int64) string {
	if secs < 3600 {
		return fmt.Sprintf("%dm", secs/60)
	}
	return fmt.Sprintf("%dh %02dm", secs/3600, (secs%3600)/60)
}

// bar renders a fixed-width text progress bar for pct in [0,100].
func bar(pct, width int) string {
	if width < 1 {
		return ""
	}
	pct = max(0, min(pct, 100))
	filled := pct * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func deadlineLabel(s study.DeadlineState) string {
	switch s {
	case study.DeadlineOverdue:
		return "overdue"
	case study.DeadlineToday:
		return "today"
	case study.DeadlineUpcoming:
		return "upcoming"
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
