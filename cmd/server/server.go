package main

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/septivank/lte-signal-map/internal/config"
	"github.com/septivank/lte-signal-map/internal/db"
	"github.com/septivank/lte-signal-map/internal/geocode"
	"github.com/septivank/lte-signal-map/internal/httpserver"
	"github.com/septivank/lte-signal-map/internal/mq"
	"github.com/septivank/lte-signal-map/internal/repository"
	"github.com/septivank/lte-signal-map/internal/service"
	"github.com/septivank/lte-signal-map/internal/validator"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ensureIndexes creates the unique identity and 2dsphere indexes on startup
func ensureIndexes(lc fx.Lifecycle, repo *repository.Repository, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("ensuring database indexes")
			return repo.EnsureIndexes(ctx)
		},
	})
}

// startHTTPServer wires the router into a lifecycle-managed server
func startHTTPServer(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config, router *mux.Router) *http.Server {
	return httpserver.NewServer(lc, logger, cfg.HTTPPort, router)
}

// startSubscriber starts the MQTT consumer, or skips it when the broker is
// not configured (HTTP-only deployments).
func startSubscriber(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger, ingest *service.IngestService) error {
	if cfg.MQTT.URL == "" || cfg.MQTT.Topic == "" {
		logger.Warn("mqtt disabled (MQTT_URL or MQTT_TOPIC missing)")
		return nil
	}

	sub := mq.NewSubscriber(mq.SubscriberConfig{
		URL:      cfg.MQTT.URL,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		Topic:    cfg.MQTT.Topic,
		Logger:   logger,
		Handler: func(ctx context.Context, topic string, body []byte) error {
			return ingest.IngestPayload(ctx, body, topic)
		},
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting mqtt subscriber", zap.String("topic", cfg.MQTT.Topic))
			return sub.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return sub.Close()
		},
	})

	return nil
}

// ProvideDatabase creates the MongoDB database handle
func ProvideDatabase(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mongo.Database, error) {
	return db.NewDatabase(lc, logger, cfg.Mongo)
}

// ProvideRepository creates a new repository instance
func ProvideRepository(database *mongo.Database) *repository.Repository {
	return repository.NewRepository(database)
}

// ProvideGeocodeClient creates the Nominatim API client
func ProvideGeocodeClient(cfg *config.Config) *geocode.Client {
	return geocode.NewClient(cfg.Geocode.BaseURL, cfg.Geocode.UserAgent, cfg.Geocode.Timeout)
}

// ProvidePlaceResolver creates the reverse geocoding resolver
func ProvidePlaceResolver(client *geocode.Client, cfg *config.Config, logger *zap.Logger) (*geocode.PlaceResolver, error) {
	return geocode.NewPlaceResolver(client, cfg.Geocode.CacheSize, logger)
}

// ProvideCityCenterResolver creates the forward geocoding resolver
func ProvideCityCenterResolver(client *geocode.Client, cfg *config.Config, logger *zap.Logger) (*geocode.CityCenterResolver, error) {
	return geocode.NewCityCenterResolver(client, cfg.Geocode.CacheSize, logger)
}

// ProvideValidator creates a new validator instance
func ProvideValidator() *validator.Validator {
	return validator.NewValidator()
}

// ProvideIngestService creates the ingestion pipeline
func ProvideIngestService(
	repo *repository.Repository,
	v *validator.Validator,
	places *geocode.PlaceResolver,
	centers *geocode.CityCenterResolver,
	logger *zap.Logger,
) *service.IngestService {
	return service.NewIngestService(repo, v, places, centers, logger)
}

// ProvideDeviceQueryService creates the device read service
func ProvideDeviceQueryService(repo *repository.Repository, centers *geocode.CityCenterResolver) *service.DeviceQueryService {
	return service.NewDeviceQueryService(repo, centers)
}

// ProvideMessageQueryService creates the raw message read service
func ProvideMessageQueryService(repo *repository.Repository) *service.MessageQueryService {
	return service.NewMessageQueryService(repo)
}

// ProvideHandlers creates the HTTP handler set
func ProvideHandlers(
	ingest *service.IngestService,
	devices *service.DeviceQueryService,
	messages *service.MessageQueryService,
	logger *zap.Logger,
) *httpserver.Handlers {
	return httpserver.NewHandlers(ingest, devices, messages, logger)
}

// ProvideRouter builds the HTTP route table
func ProvideRouter(h *httpserver.Handlers) *mux.Router {
	return httpserver.NewRouter(h)
}
