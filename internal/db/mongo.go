package db

import (
	"context"
	"fmt"

	"github.com/septivank/lte-signal-map/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewDatabase creates a MongoDB client bound to the fx lifecycle and
// returns a handle to the configured database.
func NewDatabase(lc fx.Lifecycle, logger *zap.Logger, cfg config.MongoConfig) (*mongo.Database, error) {
	logger.Info("initializing mongodb client")

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout)

	client, err := mongo.Connect(context.Background(), opts)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] failed to create mongodb client: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("attempting to connect to mongodb...")
			if err := client.Ping(ctx, readpref.Primary()); err != nil {
				logger.Error("mongodb ping failed", zap.Error(err), zap.String("uri", maskPassword(cfg.URI)))
				return fmt.Errorf("[DATABASE CONNECTION FAILED] cannot reach mongodb. Please check: 1) MongoDB is running, 2) MONGODB_URI is correct, 3) Network/firewall allows connection. Error: %w", err)
			}
			logger.Info("mongodb connection established successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := client.Disconnect(ctx); err != nil {
				logger.Error("failed to disconnect mongodb client", zap.Error(err))
				return err
			}
			logger.Info("mongodb connection closed")
			return nil
		},
	})

	return client.Database(cfg.Database), nil
}

// maskPassword masks the password in a connection URI for logging
func maskPassword(uri string) string {
	if len(uri) == 0 {
		return "<empty>"
	}
	// Simple masking - find password part between : and @
	start := 0
	for i := 0; i < len(uri); i++ {
		if uri[i] == ':' && i > 0 && uri[i-1] != '/' {
			start = i + 1
		}
		if uri[i] == '@' && start > 0 {
			return uri[:start] + "***" + uri[i:]
		}
	}
	return uri
}
