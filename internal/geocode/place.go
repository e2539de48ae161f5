package geocode

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Place is a reverse-geocoded location. Fields are nil when the upstream
// response carried no usable value at any granularity.
type Place struct {
	City        *string
	State       *string
	Country     *string
	DisplayName *string
}

// PlaceResolver resolves coordinates to place names, caching results by
// quantized coordinate so repeat readings from the same spot stay local.
type PlaceResolver struct {
	client *Client
	cache  *lru.Cache[string, *Place]
	logger *zap.Logger
}

// NewPlaceResolver creates a place resolver with a bounded cache
func NewPlaceResolver(client *Client, cacheSize int, logger *zap.Logger) (*PlaceResolver, error) {
	cache, err := lru.New[string, *Place](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create reverse geocode cache: %w", err)
	}
	return &PlaceResolver{client: client, cache: cache, logger: logger}, nil
}

// Resolve reverse geocodes the coordinates. It never returns an error:
// network failures, timeouts and responses without an address block all
// degrade to nil so ingestion can proceed without enrichment.
func (r *PlaceResolver) Resolve(ctx context.Context, lat, lon float64) *Place {
	// ~100m resolution, tolerates GPS jitter while bounding cardinality
	key := fmt.Sprintf("%.3f,%.3f", lat, lon)
	if place, ok := r.cache.Get(key); ok {
		return place
	}

	resp, err := r.client.reverse(ctx, lat, lon)
	if err != nil {
		r.logger.Warn("reverse geocode failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
		return nil
	}

	if resp.Address == nil {
		r.logger.Warn("no address found for coordinates",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
		)
		return nil
	}

	addr := resp.Address
	place := &Place{
		City:        firstNonEmpty(addr.City, addr.Town, addr.Village, addr.Hamlet, addr.Suburb, addr.Neighbourhood),
		State:       firstNonEmpty(addr.State, addr.StateDistrict, addr.Region, addr.Province, addr.County),
		Country:     normalizeCountry(addr.Country),
		DisplayName: firstNonEmpty(resp.DisplayName),
	}

	// Only successful resolutions are cached; a later reading may retry.
	r.cache.Add(key, place)

	return place
}

// normalizeCountry maps Nominatim's long-form USA name to the short form
// used across the rest of the data set.
func normalizeCountry(country string) *string {
	if country == "" {
		return nil
	}
	if country == "United States of America" {
		country = "United States"
	}
	return &country
}

func firstNonEmpty(values ...string) *string {
	for _, v := range values {
		if v != "" {
			return &v
		}
	}
	return nil
}
