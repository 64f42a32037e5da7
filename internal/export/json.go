package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// FormatVersion tags snapshots written by this package.
const FormatVersion = "0.3.0"

var (
	ErrInvalidFormat = errors.New("invalid backup format")
	ErrEmptySnapshot = errors.New("backup contains no subjects or xp")
)

// Snapshot is the portable backup document. Subjects and XP carry the raw
// persisted records verbatim; a nil field means the key was absent.
type Snapshot struct {
	Subjects *string `json:"subjects"`
	XP       *string `json:"xp"`
	Version  string  `json:"version"`
}

// BackupFilename returns the conventional file name for a backup taken at t.
func BackupFilename(t time.Time) string {
	return fmt.Sprintf("aetherplan-backup-%s.json", t.Format("2006-01-02"))
}

// Encode writes snap as indented JSON.
func Encode(w io.Writer, snap Snapshot) error {
	if snap.Version == "" {
		snap.Version = FormatVersion
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

func WriteFile(path string, snap Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	if err := Encode(f, snap); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

// Decode parses a backup document. Empty-string records are treated as
// absent. A document with neither subjects nor xp is rejected.
func Decode(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if snap.Subjects != nil && *snap.Subjects == "" {
		snap.Subjects = nil
	}
	if snap.XP != nil && *snap.XP == "" {
		snap.XP = nil
	}
	if snap.Subjects == nil && snap.XP == nil {
		return Snapshot{}, ErrEmptySnapshot
	}
	return snap, nil
}

func ReadFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
