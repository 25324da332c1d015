package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/graphetch/graphetch/internal/config/api-gateway"
	domainauth "github.com/graphetch/graphetch/internal/domain/auth"
	"github.com/graphetch/graphetch/internal/repository/kafka"
	pg "github.com/graphetch/graphetch/internal/repository/postgres"
	authsvc "github.com/graphetch/graphetch/internal/services/api-gateway/auth"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := flag.String("config", "config/api-gateway.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting api-gateway", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	otelShutdown, err := initOTel(rootCtx, cfg)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(rootCtx) }()

	db, err := initDB(rootCtx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	creds, err := initRedis(rootCtx, cfg)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	defer func() { _ = creds.Close() }()

	var events domainauth.EventSink
	if cfg.Kafka.Enable {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
		defer func() { _ = producer.Close() }()
		events = kafka.NewAuthEvents(producer)
	}

	verifier, err := authsvc.NewGoogleVerifier(rootCtx, cfg.Auth.GoogleClientID, logger)
	if err != nil {
		logger.Fatal("google oidc discovery", zap.Error(err))
	}
	exchanger := authsvc.NewGoogleExchanger(authsvc.ExchangerConfig{
		ClientID:     cfg.Auth.GoogleClientID,
		ClientSecret: cfg.Auth.GoogleClientSecret,
		RedirectURI:  cfg.Auth.GoogleRedirectURI,
	}, creds, logger)

	users := pg.NewUserRepo(db)
	uc := authsvc.NewUsecase(
		logger,
		users,
		pg.NewRefreshTokenRepo(db),
		pg.NewTransactor(db, logger),
		verifier,
		exchanger,
		events,
		authsvc.Config{
			Secret:     []byte(cfg.Auth.JWTSecret),
			AccessTTL:  cfg.Auth.AccessTTL,
			RefreshTTL: cfg.Auth.RefreshTTL,
		},
	)
	controller := authsvc.NewController(uc, users, authsvc.Opts{
		Logger:       logger,
		CookieName:   cfg.Auth.CookieName,
		CookieDomain: cfg.Auth.CookieDomain,
		CookiePath:   cfg.Auth.CookiePath,
		CookieSecure: cfg.Auth.CookieSecure,
		RefreshTTL:   cfg.Auth.RefreshTTL,
	})

	httpSrv := buildHTTPServer(cfg, controller, db, creds)

	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, cfg, logger) }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(shCtx)

	time.Sleep(100 * time.Millisecond)
	logger.Info("bye")
}
