package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/aetherplan/internal/study"
)

// ToCSV writes a flat progress report with one row per subtask.
func ToCSV(subjects []study.Subject, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"Subject", "Unit", "Subtask", "Completed", "Completed At", "Deadline", "Unit Progress", "Subject Progress"}); err != nil {
		return err
	}

	for _, s := range subjects {
		for _, u := range s.Units {
			for _, t := range u.Subtasks {
				completedAt := ""
				if t.CompletedAt != nil {
					completedAt = t.CompletedAt.Local().Format(time.RFC3339)
				}
				deadline := ""
				if t.Deadline != nil {
					deadline = *t.Deadline
				}
				row := []string{
					s.Name,
					u.Name,
					t.Title,
					strconv.FormatBool(t.Completed),
					completedAt,
					deadline,
					formatPercent(u.Progress),
					formatPercent(s.Progress),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
	}

	w.Flush()
	return w.Error()
}

// CSVFilename returns the report file name for t.
func CSVFilename(t time.Time) string {
	return fmt.Sprintf("aetherplan-progress-%s.csv", t.Format("2006-01-02"))
}

func formatPercent(p int) string {
	return fmt.Sprintf("%d%%", p)
}
