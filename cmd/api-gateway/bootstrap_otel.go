package main

import (
	"context"

	config "github.com/graphetch/graphetch/internal/config/api-gateway"
	"github.com/graphetch/graphetch/internal/obs"
)

func initOTel(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	closer, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error { return closer.Shutdown(ctx) }, nil
}
