package db

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GPSCoordinates is a device position as reported, latitude-first
type GPSCoordinates struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// GeoPoint is a GeoJSON Point. Coordinates are longitude-first, which is
// what the 2dsphere index requires.
type GeoPoint struct {
	Type        string     `bson:"type" json:"type"`
	Coordinates [2]float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point from a latitude/longitude pair
func NewGeoPoint(lat, lon float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: [2]float64{lon, lat}}
}

// ReadingPayload is the validated telemetry reading as stored inside a raw
// message document.
type ReadingPayload struct {
	Timestamp         string         `bson:"timestamp,omitempty" json:"timestamp,omitempty"`
	DeviceName        string         `bson:"device_name" json:"device_name"`
	GPSLocation       GPSCoordinates `bson:"gps_location" json:"gps_location"`
	MacAddr           string         `bson:"mac_addr" json:"mac_addr"`
	LTESignalStrength float64        `bson:"lte_signal_strength" json:"lte_signal_strength"`
}

// RawMessage is an append-only record of one ingested reading
type RawMessage struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Payload          ReadingPayload     `bson:"payload" json:"payload"`
	Topic            *string            `bson:"topic,omitempty" json:"topic,omitempty"`
	MessageTimestamp *time.Time         `bson:"message_timestamp,omitempty" json:"message_timestamp,omitempty"`
	ReceivedAt       time.Time          `bson:"received_at" json:"received_at"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
}

// DeviceDetail is the current-state document for one device identity.
// Exactly one document exists per (mac_addr, device_name) pair, enforced
// by a unique compound index plus upsert-by-filter.
type DeviceDetail struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DeviceName           string             `bson:"device_name" json:"device_name"`
	MacAddr              string             `bson:"mac_addr" json:"mac_addr"`
	GPSLocation          GPSCoordinates     `bson:"gps_location" json:"gps_location"`
	Location             *GeoPoint          `bson:"location,omitempty" json:"location,omitempty"`
	LTESignalStrength    float64            `bson:"lte_signal_strength" json:"lte_signal_strength"`
	LastMessageTimestamp *time.Time         `bson:"last_message_timestamp" json:"last_message_timestamp"`
	LastSeen             time.Time          `bson:"last_seen" json:"last_seen"`
	City                 *string            `bson:"city" json:"city"`
	State                *string            `bson:"state" json:"state"`
	Country              *string            `bson:"country" json:"country"`
	DisplayName          *string            `bson:"display_name" json:"display_name"`
	DistanceFromCityKM   *float64           `bson:"distance_from_city_km" json:"distance_from_city_km"`
	CreatedAt            time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at" json:"updated_at"`
}
