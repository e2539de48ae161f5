package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	HTTPPort    int
	Mongo       MongoConfig
	MQTT        MQTTConfig
	Geocode     GeocodeConfig
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI                    string
	Database               string
	MaxPoolSize            uint64
	ServerSelectionTimeout time.Duration
}

// MQTTConfig holds MQTT connection and subscription settings.
// The subscriber is disabled when URL or Topic is empty.
type MQTTConfig struct {
	URL      string
	Username string
	Password string
	Topic    string
}

// GeocodeConfig holds Nominatim client and cache settings
type GeocodeConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	CacheSize int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "lte-signal-map-backend"),
		HTTPPort:    getEnvAsInt("PORT", 4000),
		Mongo: MongoConfig{
			URI:                    getEnv("MONGODB_URI", ""),
			Database:               getEnv("MONGODB_DATABASE", "lte_signal_map"),
			MaxPoolSize:            uint64(getEnvAsInt("MONGODB_MAX_POOL_SIZE", 50)),
			ServerSelectionTimeout: time.Duration(getEnvAsInt("MONGODB_SERVER_SELECTION_TIMEOUT_MS", 15000)) * time.Millisecond,
		},
		MQTT: MQTTConfig{
			URL:      getEnv("MQTT_URL", ""),
			Username: getEnv("MQTT_USERNAME", ""),
			Password: getEnv("MQTT_PASSWORD", ""),
			Topic:    getEnv("MQTT_TOPIC", ""),
		},
		Geocode: GeocodeConfig{
			BaseURL:   getEnv("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent: getEnv("NOMINATIM_USER_AGENT", "lte-signal-map-backend/1.0 (contact@example.com)"),
			Timeout:   time.Duration(getEnvAsInt("NOMINATIM_TIMEOUT_MS", 5000)) * time.Millisecond,
			CacheSize: getEnvAsInt("GEOCODE_CACHE_SIZE", 4096),
		},
	}

	// Validate required fields
	if cfg.Mongo.URI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required but not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
