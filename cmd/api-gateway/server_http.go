package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	config "github.com/graphetch/graphetch/internal/config/api-gateway"
	"github.com/graphetch/graphetch/internal/obs"
	pg "github.com/graphetch/graphetch/internal/repository/postgres"
	"github.com/graphetch/graphetch/internal/repository/redisstore"
	authsvc "github.com/graphetch/graphetch/internal/services/api-gateway/auth"
)

func buildHTTPServer(cfg *config.Config, controller *authsvc.Controller, db *pg.DB, creds *redisstore.CredentialStore) *http.Server {
	root := chi.NewRouter()

	root.Mount("/users", obs.HTTPMetrics("/users", controller.Routes()))
	root.Handle("/metrics", obs.MetricsHandler())
	root.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		hctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := db.Pool.Ping(hctx); err != nil {
			http.Error(w, "unhealthy: db", http.StatusServiceUnavailable)
			return
		}
		if err := creds.Ping(hctx); err != nil {
			http.Error(w, "unhealthy: redis", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := cors(cfg.Server.CORSOrigins)(root)
	handler = otelhttp.NewHandler(handler, "http.server")

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// cors allows the configured browser origins; credentials are always allowed
// because the refresh token rides in a cookie.
func cors(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; ok {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Vary", "Origin")
				if r.Method == http.MethodOptions {
					h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func serveHTTP(srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
	return srv.ListenAndServe()
}
