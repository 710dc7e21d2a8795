package main

import (
	"context"

	"github.com/tournevent/pickup/internal/config"
	"github.com/tournevent/pickup/internal/store"
	"github.com/tournevent/pickup/internal/telemetry"
	"github.com/tournevent/pickup/pkg/carrier"
	"github.com/tournevent/pickup/pkg/carrier/ups"
	"github.com/tournevent/pickup/pkg/pickup"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

func initStorage(ctx context.Context, cfg *config.Config) (*store.Redis, error) {
	return store.Open(ctx, store.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func initCarrierRegistry(cfg *config.Config, storage *store.Redis, logger *otelzap.Logger) *carrier.Registry {
	registry := carrier.NewRegistry()

	var tracer trace.Tracer
	// tracer would be initialized from otel.GetTracerProvider().Tracer(cfg.ServiceName)

	if cfg.UPSEnabled {
		client := ups.New(ups.Config{
			ClientID:      cfg.UPSClientID,
			ClientSecret:  cfg.UPSClientSecret,
			AccountNumber: cfg.UPSAccountNumber,
			BaseURL:       cfg.UPSBaseURL,
			UseMock:       cfg.UPSUseMock,
		}, storage, logger, tracer)
		registry.Register(client)
	}

	return registry
}

func initSessionManager(cfg *config.Config, registry *carrier.Registry, storage *store.Redis, logger *otelzap.Logger) (*pickup.Manager, error) {
	c, err := registry.Get(cfg.DefaultCarrier)
	if err != nil {
		return nil, err
	}
	return pickup.NewManager(c, storage, logger), nil
}
