package timeparser

import (
	"fmt"
	"time"
)

// ParseTelemetryTimestamp attempts to parse a device timestamp with the
// ISO-8601 variants seen in the field (with/without fractional seconds,
// with/without zone offset).
func ParseTelemetryTimestamp(dateStr string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,      // 2025-12-29T10:30:00.123Z
		time.RFC3339,          // 2025-12-29T10:30:00Z
		"2006-01-02T15:04:05", // no zone, treated as UTC
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", dateStr, lastErr)
}
