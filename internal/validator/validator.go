package validator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/septivank/lte-signal-map/tools/timeparser"
)

// ValidationError describes a telemetry payload that failed schema
// validation, naming the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// GPSLocation is a device-reported position.
type GPSLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TelemetryReading is a validated telemetry sample. Immutable once built.
type TelemetryReading struct {
	DeviceName        string
	MacAddr           string
	GPSLocation       GPSLocation
	LTESignalStrength float64
	// Timestamp is nil when the reading carried no timestamp field.
	Timestamp *time.Time
	// RawTimestamp preserves the original string for the raw payload record.
	RawTimestamp string
}

// rawReading uses pointer fields so missing and mistyped required fields
// can be told apart from zero values.
type rawReading struct {
	Timestamp         *string `json:"timestamp"`
	DeviceName        *string `json:"device_name"`
	GPSLocation       *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"gps_location"`
	MacAddr           *string  `json:"mac_addr"`
	LTESignalStrength *float64 `json:"lte_signal_strength"`
}

// Validator validates inbound telemetry payloads
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateReading parses and validates a telemetry payload. It returns a
// *ValidationError when the payload does not match the schema.
func (v *Validator) ValidateReading(body []byte) (*TelemetryReading, error) {
	var raw rawReading
	if err := json.Unmarshal(body, &raw); err != nil {
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok && typeErr.Field != "" {
			return nil, &ValidationError{Field: typeErr.Field, Reason: "wrong type, expected " + typeErr.Type.String()}
		}
		return nil, &ValidationError{Field: "body", Reason: "malformed JSON: " + err.Error()}
	}

	if raw.DeviceName == nil || *raw.DeviceName == "" {
		return nil, &ValidationError{Field: "device_name", Reason: "required non-empty string"}
	}
	if raw.MacAddr == nil || *raw.MacAddr == "" {
		return nil, &ValidationError{Field: "mac_addr", Reason: "required non-empty string"}
	}
	if raw.GPSLocation == nil {
		return nil, &ValidationError{Field: "gps_location", Reason: "required object"}
	}
	if raw.GPSLocation.Latitude == nil {
		return nil, &ValidationError{Field: "gps_location.latitude", Reason: "required number"}
	}
	if raw.GPSLocation.Longitude == nil {
		return nil, &ValidationError{Field: "gps_location.longitude", Reason: "required number"}
	}
	if raw.LTESignalStrength == nil {
		return nil, &ValidationError{Field: "lte_signal_strength", Reason: "required number"}
	}

	reading := &TelemetryReading{
		DeviceName: *raw.DeviceName,
		MacAddr:    *raw.MacAddr,
		GPSLocation: GPSLocation{
			Latitude:  *raw.GPSLocation.Latitude,
			Longitude: *raw.GPSLocation.Longitude,
		},
		LTESignalStrength: *raw.LTESignalStrength,
	}

	if raw.Timestamp != nil {
		ts, err := timeparser.ParseTelemetryTimestamp(*raw.Timestamp)
		if err != nil {
			return nil, &ValidationError{Field: "timestamp", Reason: "not a valid ISO-8601 date-time"}
		}
		reading.Timestamp = &ts
		reading.RawTimestamp = *raw.Timestamp
	}

	return reading, nil
}
