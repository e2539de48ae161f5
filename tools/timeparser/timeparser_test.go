package timeparser_test

import (
	"testing"
	"time"

	"github.com/septivank/lte-signal-map/tools/timeparser"
)

func TestParseTelemetryTimestamp_RFC3339(t *testing.T) {
	got, err := timeparser.ParseTelemetryTimestamp("2025-12-29T10:30:00Z")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := time.Date(2025, 12, 29, 10, 30, 0, 0, time.UTC)
	if !got.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestParseTelemetryTimestamp_FractionalSeconds(t *testing.T) {
	got, err := timeparser.ParseTelemetryTimestamp("2025-12-29T10:30:00.250Z")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := time.Date(2025, 12, 29, 10, 30, 0, 250000000, time.UTC)
	if !got.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestParseTelemetryTimestamp_Offset(t *testing.T) {
	got, err := timeparser.ParseTelemetryTimestamp("2025-12-29T10:30:00+02:00")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := time.Date(2025, 12, 29, 8, 30, 0, 0, time.UTC)
	if !got.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestParseTelemetryTimestamp_NoZone(t *testing.T) {
	got, err := timeparser.ParseTelemetryTimestamp("2025-12-29T10:30:00")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := time.Date(2025, 12, 29, 10, 30, 0, 0, time.UTC)
	if !got.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestParseTelemetryTimestamp_Invalid(t *testing.T) {
	_, err := timeparser.ParseTelemetryTimestamp("29/12/2025 10:30:00")
	if err == nil {
		t.Error("Expected error for non ISO-8601 timestamp")
	}
}
