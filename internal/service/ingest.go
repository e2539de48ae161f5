package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/septivank/lte-signal-map/internal/db"
	"github.com/septivank/lte-signal-map/internal/geo"
	"github.com/septivank/lte-signal-map/internal/geocode"
	"github.com/septivank/lte-signal-map/internal/repository"
	"github.com/septivank/lte-signal-map/internal/validator"
	"go.uber.org/zap"
)

// Store is the persistence surface the pipeline writes to
type Store interface {
	AppendRaw(ctx context.Context, msg *db.RawMessage) error
	UpsertDeviceState(ctx context.Context, macAddr, deviceName string, fields repository.DeviceStateFields) error
}

// PlaceResolver reverse geocodes coordinates, nil meaning unresolved
type PlaceResolver interface {
	Resolve(ctx context.Context, lat, lon float64) *geocode.Place
}

// CityCenterResolver forward geocodes a place, nil meaning unresolved
type CityCenterResolver interface {
	Resolve(ctx context.Context, city, state, country string) *geocode.CityCenter
}

// IngestService runs the ingestion pipeline: enrich the reading with place
// names and city-center distance, append the raw record, upsert the
// device's current state. Both transports funnel into it.
type IngestService struct {
	store     Store
	validator *validator.Validator
	places    PlaceResolver
	centers   CityCenterResolver
	logger    *zap.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(
	store Store,
	v *validator.Validator,
	places PlaceResolver,
	centers CityCenterResolver,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		store:     store,
		validator: v,
		places:    places,
		centers:   centers,
		logger:    logger,
	}
}

// IngestPayload validates a raw payload and runs the pipeline. Schema
// failures come back as *validator.ValidationError so transports can tell
// them apart from persistence failures.
func (s *IngestService) IngestPayload(ctx context.Context, body []byte, topic string) error {
	reading, err := s.validator.ValidateReading(body)
	if err != nil {
		return err
	}
	return s.Ingest(ctx, reading, topic)
}

// Ingest processes one validated reading. Enrichment is best-effort and
// never blocks persistence; failures of either write are returned to the
// caller.
func (s *IngestService) Ingest(ctx context.Context, reading *validator.TelemetryReading, topic string) error {
	lat := reading.GPSLocation.Latitude
	lon := reading.GPSLocation.Longitude

	enr := s.enrich(ctx, lat, lon)

	now := time.Now().UTC()

	raw := &db.RawMessage{
		Payload: db.ReadingPayload{
			Timestamp:  reading.RawTimestamp,
			DeviceName: reading.DeviceName,
			GPSLocation: db.GPSCoordinates{
				Latitude:  lat,
				Longitude: lon,
			},
			MacAddr:           reading.MacAddr,
			LTESignalStrength: reading.LTESignalStrength,
		},
		MessageTimestamp: reading.Timestamp,
		ReceivedAt:       now,
		CreatedAt:        now,
	}
	if topic != "" {
		raw.Topic = &topic
	}

	// Raw durability first: the append happens regardless of enrichment.
	if err := s.store.AppendRaw(ctx, raw); err != nil {
		return fmt.Errorf("failed to append raw message: %w", err)
	}

	fields := repository.DeviceStateFields{
		GPSLocation:          db.GPSCoordinates{Latitude: lat, Longitude: lon},
		Location:             db.NewGeoPoint(lat, lon),
		LTESignalStrength:    reading.LTESignalStrength,
		LastMessageTimestamp: reading.Timestamp,
		LastSeen:             now,
		City:                 enr.city,
		State:                enr.state,
		Country:              enr.country,
		DisplayName:          enr.displayName,
		DistanceFromCityKM:   enr.distanceKM,
	}

	if err := s.store.UpsertDeviceState(ctx, reading.MacAddr, reading.DeviceName, fields); err != nil {
		return fmt.Errorf("failed to upsert device state: %w", err)
	}

	return nil
}

// enrichment fields are nil when unresolved and written as explicit nulls
type enrichment struct {
	city        *string
	state       *string
	country     *string
	displayName *string
	distanceKM  *float64
}

func (s *IngestService) enrich(ctx context.Context, lat, lon float64) enrichment {
	place := s.places.Resolve(ctx, lat, lon)
	if place == nil {
		return enrichment{}
	}

	enr := enrichment{
		city:        place.City,
		state:       place.State,
		country:     place.Country,
		displayName: place.DisplayName,
	}

	if place.City == nil {
		return enr
	}

	center := s.centers.Resolve(ctx, *place.City, deref(place.State), deref(place.Country))
	if center == nil {
		return enr
	}

	km := geo.HaversineKM(lat, lon, center.Lat, center.Lon)
	rounded := math.Round(km*10) / 10
	enr.distanceKM = &rounded

	s.logger.Debug("reading enriched",
		zap.String("city", *place.City),
		zap.Float64("distance_from_city_km", rounded),
	)

	return enr
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
