package service

import (
	"context"
	"errors"

	"github.com/septivank/lte-signal-map/internal/db"
	"github.com/septivank/lte-signal-map/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrCityNotResolved is returned when a near-city search names a city the
// forward geocoder cannot place.
var ErrCityNotResolved = errors.New("city could not be geocoded")

// DeviceQueryService serves the read-only device endpoints
type DeviceQueryService struct {
	repo    *repository.Repository
	centers CityCenterResolver
}

// NewDeviceQueryService creates a new device query service
func NewDeviceQueryService(repo *repository.Repository, centers CityCenterResolver) *DeviceQueryService {
	return &DeviceQueryService{repo: repo, centers: centers}
}

// List returns one page of devices, most recently updated first
func (q *DeviceQueryService) List(ctx context.Context, limit, page int) ([]db.DeviceDetail, int64, error) {
	return q.repo.ListDevices(ctx, limit, page)
}

// GetByID returns a device by hex object id, nil when absent or malformed
func (q *DeviceQueryService) GetByID(ctx context.Context, id string) (*db.DeviceDetail, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return q.repo.GetDeviceByID(ctx, oid)
}

// NearCity forward geocodes the city through the shared resolver (and its
// cache), then runs a radius query around the resolved center.
func (q *DeviceQueryService) NearCity(ctx context.Context, city, deviceName string, radiusKM float64, limit, page int) ([]db.DeviceDetail, int64, error) {
	center := q.centers.Resolve(ctx, city, "", "")
	if center == nil {
		return nil, 0, ErrCityNotResolved
	}
	return q.repo.FindDevicesNearCenter(ctx, center.Lat, center.Lon, radiusKM, deviceName, limit, page)
}

// MessageQueryService serves the read-only raw message endpoint
type MessageQueryService struct {
	repo *repository.Repository
}

// NewMessageQueryService creates a new message query service
func NewMessageQueryService(repo *repository.Repository) *MessageQueryService {
	return &MessageQueryService{repo: repo}
}

// List returns one page of raw messages, newest first
func (q *MessageQueryService) List(ctx context.Context, filter repository.MessageFilter, limit, page int) ([]db.RawMessage, int64, error) {
	return q.repo.ListMessages(ctx, filter, limit, page)
}
