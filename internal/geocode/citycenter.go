package geocode

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// CityCenter is the representative coordinate of a place
type CityCenter struct {
	Lat float64
	Lon float64
}

// CityCenterResolver forward geocodes a place name to its center,
// caching by normalized place key.
type CityCenterResolver struct {
	client *Client
	cache  *lru.Cache[string, CityCenter]
	logger *zap.Logger
}

// NewCityCenterResolver creates a city center resolver with a bounded cache
func NewCityCenterResolver(client *Client, cacheSize int, logger *zap.Logger) (*CityCenterResolver, error) {
	cache, err := lru.New[string, CityCenter](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create city geocode cache: %w", err)
	}
	return &CityCenterResolver{client: client, cache: cache, logger: logger}, nil
}

// Resolve forward geocodes (city, state, country) to a center coordinate.
// Returns nil without a network call when city is empty, and nil on any
// upstream failure or empty result set. Failures are not cached so a later
// reading can retry.
func (r *CityCenterResolver) Resolve(ctx context.Context, city, state, country string) *CityCenter {
	if city == "" {
		return nil
	}

	// Empty components stay in the key so (city, "", country) and a missing
	// state normalize identically.
	key := strings.ToLower(city + "|" + state + "|" + country)
	if center, ok := r.cache.Get(key); ok {
		return &center
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{city, state, country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	query := strings.Join(parts, ", ")

	results, err := r.client.search(ctx, query)
	if err != nil {
		r.logger.Warn("city geocode failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	if len(results) == 0 {
		r.logger.Warn("city geocode returned no results", zap.String("query", query))
		return nil
	}

	// Best match per upstream ranking, no local re-ranking
	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		r.logger.Warn("city geocode returned malformed coordinates",
			zap.String("query", query),
			zap.String("lat", results[0].Lat),
			zap.String("lon", results[0].Lon),
		)
		return nil
	}

	center := CityCenter{Lat: lat, Lon: lon}
	r.cache.Add(key, center)

	return &center
}
