// Package main is the entry point for the Sitedrop delivery-slot API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // registers "postgres" driver for database/sql
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/pkordes/sitedrop/backend/internal/authz"
	"github.com/pkordes/sitedrop/backend/internal/claimstore"
	"github.com/pkordes/sitedrop/backend/internal/clock"
	"github.com/pkordes/sitedrop/backend/internal/config"
	"github.com/pkordes/sitedrop/backend/internal/events"
	"github.com/pkordes/sitedrop/backend/internal/handler"
	"github.com/pkordes/sitedrop/backend/internal/logger"
	"github.com/pkordes/sitedrop/backend/internal/middleware"
	"github.com/pkordes/sitedrop/backend/internal/obs"
	"github.com/pkordes/sitedrop/backend/internal/repo"
	"github.com/pkordes/sitedrop/backend/internal/service"
	"github.com/pkordes/sitedrop/backend/migrations"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sitedrop-api:", err)
		os.Exit(1)
	}
}

func run() error {
	// --- Config -----------------------------------------------------------
	// A missing .env is fine; variables already in the environment win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// --- Logger -----------------------------------------------------------
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	// --- Tracing ----------------------------------------------------------
	shutdownTracer, err := obs.InitTracer(ctx, cfg.ServiceName, version, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	// --- Database ---------------------------------------------------------
	// pgxpool serves the request path. New() does not open connections
	// immediately, so Ping before accepting traffic.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	log.Info("database connection established")

	// database/sql carries goose migrations and the report queries.
	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open sql db: %w", err)
	}
	defer sqlDB.Close()

	if err := migrate(ctx, sqlDB, log); err != nil {
		return err
	}

	// --- Claim store ------------------------------------------------------
	claims, closeClaims, err := newClaimStore(ctx, cfg, pool, log)
	if err != nil {
		return err
	}
	defer closeClaims()

	// --- Events -----------------------------------------------------------
	var publisher service.EventPublisher = events.Nop{}
	if cfg.AMQPURL != "" {
		p, err := events.NewPublisher(cfg.AMQPURL, cfg.OrderExchange)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
		log.Info("publishing order events", zap.String("exchange", cfg.OrderExchange))
	} else {
		log.Info("AMQP_URL not set; order events disabled")
	}

	// --- Services ---------------------------------------------------------
	slots := repo.NewSlotRepo(pool)
	orders := repo.NewOrderRepo(pool)

	catalog := service.NewCatalogService(slots, log)
	availability := service.NewAvailabilityService(slots, claims)
	txm := repo.NewTxManager(pool)
	admission := service.NewAdmissionService(txm, slots, claims, orders, log)
	sla := service.NewSLAEvaluator(cfg.Location(), log)
	orderSvc := service.NewOrderService(txm, orders, admission, sla, publisher, clock.NewSystem(), log)
	// Reports read through database/sql so they can point at a read replica
	// independently of the pgx pool that serves admission.
	reports := service.NewReportService(repo.NewReportRepo(sqlDB))

	// The in-memory store starts empty; seed it from the orders that still
	// hold capacity before any reservation can be admitted.
	if cfg.ClaimStore == config.ClaimStoreMemory {
		n, err := admission.Restore(ctx)
		if err != nil {
			return err
		}
		log.Info("claim store restored from orders", zap.Int("orders", n))
	}

	srvHandler := handler.NewServer(handler.Services{
		Catalog:      catalog,
		Availability: availability,
		Admission:    admission,
		Orders:       orderSvc,
		Reports:      reports,
	}, log)

	var guard handler.Guard
	if cfg.AuthzEnabled {
		enforcer, err := authz.New()
		if err != nil {
			return err
		}
		guard = func(resource, action string) func(http.Handler) http.Handler {
			return middleware.RequirePermission(enforcer, resource, action)
		}
	} else {
		log.Warn("role enforcement disabled")
	}

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS → MaxBodySize.
	// RequestID generates a unique trace ID per request.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP.
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewZapLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Mount("/", handler.NewRouter(srvHandler, guard))

	// --- HTTP Server ------------------------------------------------------
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("claim_store", cfg.ClaimStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// migrate applies every pending goose migration.
func migrate(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Info("migrations applied", zap.Int("count", len(results)))
	return nil
}

// newClaimStore builds the backend named by CLAIM_STORE. The returned func
// releases any connection the store holds.
func newClaimStore(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, log *zap.Logger) (repo.ClaimStore, func(), error) {
	switch cfg.ClaimStore {
	case config.ClaimStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		log.Info("redis claim store ready", zap.String("addr", cfg.RedisAddr))
		return claimstore.NewRedis(client, cfg.RedisPrefix, cfg.ClaimRetention()), func() { _ = client.Close() }, nil
	case config.ClaimStoreMemory:
		log.Warn("in-memory claim store: claims are not shared between instances; run a single replica")
		return claimstore.NewMemory(), func() {}, nil
	default:
		return repo.NewClaimStore(pool), func() {}, nil
	}
}
