package main

import (
	"context"

	config "github.com/graphetch/graphetch/internal/config/api-gateway"
	"github.com/graphetch/graphetch/internal/repository/redisstore"
)

func initRedis(ctx context.Context, cfg *config.Config) (*redisstore.CredentialStore, error) {
	return redisstore.New(ctx, cfg.Redis)
}
