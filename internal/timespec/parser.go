// Package timespec turns --since values into instants and stream ids.
package timespec

import (
	"fmt"
	"time"
)

// All is the spec that selects every stream entry.
const All = "all"

// Parse reads a time specification relative to now.
// Supports two formats:
//   - Go duration format: "1h", "30m", "1h30m" (that long before now)
//   - RFC3339 timestamps: "2025-10-29T13:00:00Z"
func Parse(spec string, now time.Time) (time.Time, error) {
	if spec == "" {
		return time.Time{}, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t, nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("negative duration %s", spec)
		}
		return now.Add(-d), nil
	}

	return time.Time{}, fmt.Errorf("invalid time specification: %s (use duration like '1h30m' or RFC3339 like '2025-10-29T13:00:00Z')", spec)
}

// StreamID converts a --since value into the id to read a stream after.
// An empty spec follows only new entries ("$") and "all" reads from the start.
func StreamID(spec string, now time.Time) (string, error) {
	switch spec {
	case "":
		return "$", nil
	case All:
		return "0-0", nil
	}
	t, err := Parse(spec, now)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-0", t.UnixMilli()), nil
}
