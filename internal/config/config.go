package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// UPS
	UPSClientID      string `envconfig:"UPS_CLIENT_ID"`
	UPSClientSecret  string `envconfig:"UPS_CLIENT_SECRET"`
	UPSAccountNumber string `envconfig:"UPS_ACCOUNT_NUMBER"`
	UPSBaseURL       string `envconfig:"UPS_BASE_URL" default:"https://onlinetools.ups.com"`
	UPSEnabled       bool   `envconfig:"UPS_ENABLED" default:"true"`
	UPSUseMock       bool   `envconfig:"UPS_USE_MOCK" default:"false"`

	// Session carrier: the carrier pickup sessions are bound to.
	DefaultCarrier string `envconfig:"DEFAULT_CARRIER" default:"ups"`

	// Redis (durable storage for confirmations and tokens)
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.observability.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"pickup-bridge"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("ups.enabled", c.UPSEnabled),
		attribute.String("default.carrier", c.DefaultCarrier),
	}
}
