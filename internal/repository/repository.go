package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/septivank/lte-signal-map/internal/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// earthEquatorialRadiusKM converts a kilometer radius to the radians
// $centerSphere expects.
const earthEquatorialRadiusKM = 6378.1

// Repository handles database operations
type Repository struct {
	rawMessages *mongo.Collection
	devices     *mongo.Collection
}

// NewRepository creates a new repository
func NewRepository(database *mongo.Database) *Repository {
	return &Repository{
		rawMessages: database.Collection("raw_message"),
		devices:     database.Collection("device_details"),
	}
}

// EnsureIndexes creates the indexes the ingest path and geo queries rely
// on: the unique device identity pair and the 2dsphere location index.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.devices.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "mac_addr", Value: 1}, {Key: "device_name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "location", Value: "2dsphere"}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create device_details indexes: %w", err)
	}

	_, err = r.rawMessages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create raw_message index: %w", err)
	}

	return nil
}

// AppendRaw inserts a raw message record
func (r *Repository) AppendRaw(ctx context.Context, msg *db.RawMessage) error {
	if _, err := r.rawMessages.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert raw message: %w", err)
	}
	return nil
}

// DeviceStateFields is the full replacement set written on every upsert.
// Nil pointers are stored as explicit nulls.
type DeviceStateFields struct {
	GPSLocation          db.GPSCoordinates
	Location             *db.GeoPoint
	LTESignalStrength    float64
	LastMessageTimestamp *time.Time
	LastSeen             time.Time
	City                 *string
	State                *string
	Country              *string
	DisplayName          *string
	DistanceFromCityKM   *float64
}

// UpsertDeviceState atomically creates or overwrites the current-state
// document for one (mac_addr, device_name) identity. Concurrent callers
// rely on the atomic filtered update plus the unique index, not on any
// in-process lock.
func (r *Repository) UpsertDeviceState(ctx context.Context, macAddr, deviceName string, fields DeviceStateFields) error {
	filter := bson.M{"mac_addr": macAddr, "device_name": deviceName}

	set := bson.M{
		"gps_location":           fields.GPSLocation,
		"lte_signal_strength":    fields.LTESignalStrength,
		"last_message_timestamp": fields.LastMessageTimestamp,
		"last_seen":              fields.LastSeen,
		"city":                   fields.City,
		"state":                  fields.State,
		"country":                fields.Country,
		"display_name":           fields.DisplayName,
		"distance_from_city_km":  fields.DistanceFromCityKM,
		"updated_at":             fields.LastSeen,
	}
	if fields.Location != nil {
		set["location"] = fields.Location
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": fields.LastSeen},
	}

	_, err := r.devices.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert device state: %w", err)
	}
	return nil
}

// ListDevices returns one page of device documents, most recently updated
// first, plus the total count.
func (r *Repository) ListDevices(ctx context.Context, limit, page int) ([]db.DeviceDetail, int64, error) {
	skip := int64((page - 1) * limit)

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(limit))

	cursor, err := r.devices.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query devices: %w", err)
	}

	items := make([]db.DeviceDetail, 0, limit)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode devices: %w", err)
	}

	total, err := r.devices.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count devices: %w", err)
	}

	return items, total, nil
}

// GetDeviceByID returns one device document, or nil when absent
func (r *Repository) GetDeviceByID(ctx context.Context, id primitive.ObjectID) (*db.DeviceDetail, error) {
	var device db.DeviceDetail
	err := r.devices.FindOne(ctx, bson.M{"_id": id}).Decode(&device)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query device: %w", err)
	}
	return &device, nil
}

// FindDevicesNearCenter returns devices whose location falls inside the
// given radius around a center point, optionally filtered by device name.
func (r *Repository) FindDevicesNearCenter(ctx context.Context, lat, lon, radiusKM float64, deviceName string, limit, page int) ([]db.DeviceDetail, int64, error) {
	filter := bson.M{
		"location": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{bson.A{lon, lat}, radiusKM / earthEquatorialRadiusKM},
			},
		},
	}
	if deviceName != "" {
		filter["device_name"] = deviceName
	}

	skip := int64((page - 1) * limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(limit))

	cursor, err := r.devices.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query devices near center: %w", err)
	}

	items := make([]db.DeviceDetail, 0, limit)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode devices: %w", err)
	}

	total, err := r.devices.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count devices near center: %w", err)
	}

	return items, total, nil
}

// MessageFilter narrows a raw message listing
type MessageFilter struct {
	MacAddr    string
	DeviceName string
	From       *time.Time
	To         *time.Time
}

// ListMessages returns one page of raw messages, newest first, filtered by
// payload identity fields and message timestamp range.
func (r *Repository) ListMessages(ctx context.Context, filter MessageFilter, limit, page int) ([]db.RawMessage, int64, error) {
	query := bson.M{}
	if filter.MacAddr != "" {
		query["payload.mac_addr"] = filter.MacAddr
	}
	if filter.DeviceName != "" {
		query["payload.device_name"] = filter.DeviceName
	}
	if filter.From != nil || filter.To != nil {
		timeRange := bson.M{}
		if filter.From != nil {
			timeRange["$gte"] = *filter.From
		}
		if filter.To != nil {
			timeRange["$lte"] = *filter.To
		}
		query["message_timestamp"] = timeRange
	}

	skip := int64((page - 1) * limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(limit))

	cursor, err := r.rawMessages.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query raw messages: %w", err)
	}

	items := make([]db.RawMessage, 0, limit)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode raw messages: %w", err)
	}

	total, err := r.rawMessages.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count raw messages: %w", err)
	}

	return items, total, nil
}
