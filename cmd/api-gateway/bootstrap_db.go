package main

import (
	"context"

	config "github.com/graphetch/graphetch/internal/config/api-gateway"
	pg "github.com/graphetch/graphetch/internal/repository/postgres"
)

func initDB(ctx context.Context, cfg *config.Config) (*pg.DB, error) {
	return pg.New(ctx, cfg.DB)
}
