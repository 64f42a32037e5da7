package tracker

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sadopc/aetherplan/internal/study"
)

// Store keys for the two persisted records.
const (
	KeySubjects = "study-subjects"
	KeyXP       = "study-xp"
)

func encodeSubjects(subjects []study.Subject) (string, error) {
	if subjects == nil {
		subjects = []study.Subject{}
	}
	data, err := json.Marshal(subjects)
	if err != nil {
		return "", fmt.Errorf("encode subjects: %w", err)
	}
	return string(data), nil
}

// decodeSubjects parses the subjects record. Derived fields are taken as
// stored.
func decodeSubjects(raw string) ([]study.Subject, error) {
	var subjects []study.Subject
	if err := json.Unmarshal([]byte(raw), &subjects); err != nil {
		return nil, fmt.Errorf("decode subjects: %w", err)
	}
	if subjects == nil {
		subjects = []study.Subject{}
	}
	return subjects, nil
}

func encodeXP(xp int) string {
	return strconv.Itoa(xp)
}

func decodeXP(raw string) (int, error) {
	xp, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("decode xp: %w", err)
	}
	if xp < 0 {
		return 0, fmt.Errorf("decode xp: negative value %d", xp)
	}
	return xp, nil
}

// sameSubjects reports whether a and b are the same slice. The engine
// returns its input slice untouched on a no-op and a fresh copy otherwise.
func sameSubjects(a, b []study.Subject) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}
