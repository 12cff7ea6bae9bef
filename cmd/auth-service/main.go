package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contractauth/auth-service/internal/auth"
	"contractauth/auth-service/internal/config"
	"contractauth/auth-service/internal/database"
	"contractauth/auth-service/internal/httpapi"
	"contractauth/auth-service/internal/store"
	"contractauth/auth-service/internal/store/memory"
	"contractauth/auth-service/internal/store/postgres"
	"contractauth/auth-service/internal/telemetry"
	"contractauth/auth-service/internal/token"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("auth-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	var st store.Store
	if cfg.DatabaseURL == "" {
		// No DSN means an ephemeral in-process store. Useful for local
		// development, never for deployments.
		log.Printf("DB_DSN not set, using in-memory store")
		st = memory.NewStore()
	} else {
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer pool.Close()
		st = postgres.NewStore(pool)
	}

	tokens := token.NewManager([]byte(cfg.JWTSecret), cfg.AccessTTL, cfg.RefreshTTL, nil)
	service := auth.NewService(st, tokens)
	handler := httpapi.NewHandler(service)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:       cfg.RateLimitPerMinute,
		IPBurst:           cfg.RateLimitBurst,
		ContractPerMinute: cfg.ContractRateLimitPerMinute,
		ContractBurst:     cfg.ContractRateLimitBurst,
	})

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(handler.Routes())), "auth-service")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("auth-service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
