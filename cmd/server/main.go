package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"engage/internal/eventbus"
	"engage/internal/events"
	"engage/internal/featureflag"
	"engage/internal/gateway"
	gwmetrics "engage/internal/gateway/metrics"
	jwttoken "engage/internal/jwt_token"
	"engage/internal/notification"
	notificationhandler "engage/internal/notification/handler"
	notificationstore "engage/internal/notification/store"
	"engage/internal/platform/config"
	"engage/internal/platform/health"
	"engage/internal/platform/httpserver"
	"engage/internal/platform/logger"
	"engage/internal/platform/metrics"
	"engage/internal/platform/postgres"
	"engage/internal/platform/redis"
	"engage/internal/ratelimit/limiter"
	rlmetrics "engage/internal/ratelimit/metrics"
	"engage/internal/ratelimit/models"
	"engage/internal/ratelimit/store/bucket"
	recognitionhandler "engage/internal/recognition/handler"
	recognitionservice "engage/internal/recognition/service"
	recognitionstore "engage/internal/recognition/store"
	audit "engage/pkg/platform/audit"
	auditmemory "engage/pkg/platform/audit/store/memory"
	auditpostgres "engage/pkg/platform/audit/store/postgres"
	"engage/pkg/platform/middleware/admin"
	"engage/pkg/platform/middleware/auth"
	"engage/pkg/platform/middleware/metadata"
)

var version = "dev"

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	config.LoadDotEnv(".env", ".env.local")
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := metrics.NewRegistry(version)

	redisClient, err := redis.New(ctx, cfg.RedisURL, redis.WithPoolSize(20))
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	// Event bus and subscribers.
	bus := eventbus.New(events.NewRegistry(),
		eventbus.WithLogger(log),
		eventbus.WithMetrics(eventbus.NewMetrics(reg)),
	)
	auditStore, err := newAuditStore(ctx, db)
	if err != nil {
		return err
	}
	audit.NewSubscriber(auditStore, audit.WithLogger(log)).Attach(bus, events.Types()...)
	notification.NewAnalytics(reg).Attach(bus, events.Types()...)

	var inbox interface {
		notification.Inbox
		notificationhandler.Reader
	} = notificationstore.NewInMemoryStore(notificationstore.DefaultInboxSize)
	if redisClient != nil {
		inbox = notificationstore.NewRedisStore(redisClient.Client, notificationstore.DefaultInboxSize, 30*24*time.Hour)
	}
	notification.NewDispatcher(inbox, notification.WithLogger(log)).Attach(bus)

	// Rate limiting: Redis when configured, with the in-memory store as fallback.
	memoryBuckets := bucket.NewInMemoryBucketStore()
	var primary bucket.Store = memoryBuckets
	limiterOpts := []limiter.Option{
		limiter.WithLogger(log),
		limiter.WithMetrics(rlmetrics.New(reg)),
	}
	if redisClient != nil {
		primary = bucket.NewRedisBucketStore(redisClient.Client)
		limiterOpts = append(limiterOpts, limiter.WithFallback(memoryBuckets))
	}
	rl, err := limiter.New(primary, limiterOpts...)
	if err != nil {
		return fmt.Errorf("create rate limiter: %w", err)
	}

	evaluator, err := newEvaluator(cfg.FeatureFlagsFile)
	if err != nil {
		return err
	}

	jwtService := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	authn := jwttoken.NewJWTServiceAdapter(jwtService)

	clientIP, err := metadata.NewResolver(cfg.TrustedProxies...)
	if err != nil {
		return fmt.Errorf("parse TRUSTED_PROXIES: %w", err)
	}

	router := chi.NewRouter()
	if cfg.IsDevelopment() {
		router.Handle("/metrics", metrics.Handler(reg))
	} else {
		router.With(auth.RequireAuth(authn, log), admin.RequireRoles(nil, true, log)).
			Handle("/metrics", metrics.Handler(reg))
	}

	gw := gateway.New(router,
		gateway.WithLogger(log),
		gateway.WithFlags(featureflag.NewInitializer(evaluator, cfg.Environment,
			featureflag.WithLogger(log),
			featureflag.WithMetrics(featureflag.NewMetrics(reg)),
		)),
		gateway.WithLimiter(rl, models.Rule{Window: cfg.RateLimit.Window, Max: cfg.RateLimit.Max}),
		gateway.WithAuthenticator(authn),
		gateway.WithClientIPResolver(clientIP),
		gateway.WithTimeout(cfg.RequestTimeout),
		gateway.WithDevMode(cfg.IsDevelopment()),
		gateway.WithMetrics(gwmetrics.New(reg)),
	)

	recognitions := recognitionservice.New(recognitionstore.NewInMemoryStore(), bus,
		recognitionservice.WithLogger(log),
		recognitionservice.WithCache(gw.Cache()),
	)

	checker := health.NewChecker(2*time.Second,
		health.Probe{Name: "redis", Check: redisCheck(redisClient)},
		health.Probe{Name: "postgres", Check: postgresCheck(db)},
	)

	gw.RegisterRoutes(checker.Routes()...)
	gw.RegisterRoutes(recognitionhandler.New(recognitions, log, cfg.CacheTTL).Routes()...)
	gw.RegisterRoutes(notificationhandler.New(inbox).Routes()...)

	srv := httpserver.New(cfg.Addr, router, cfg.RequestTimeout, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting engage", "addr", cfg.Addr, "env", cfg.Environment, "routes", len(gw.Routes()))
		err := httpserver.Run(gctx, srv, 10*time.Second)
		log.Info("server stopped")
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := memoryBuckets.Prune(); n > 0 {
					log.Debug("pruned rate limit buckets", "count", n)
				}
			}
		}
	})
	return g.Wait()
}

func newAuditStore(ctx context.Context, db *sql.DB) (audit.Store, error) {
	if db == nil {
		return auditmemory.NewInMemoryStore(), nil
	}
	store := auditpostgres.New(db)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func newEvaluator(path string) (featureflag.Evaluator, error) {
	if path == "" {
		return featureflag.NewStaticEvaluator(nil), nil
	}
	evaluator, err := featureflag.LoadStaticEvaluator(path)
	if err != nil {
		return nil, fmt.Errorf("load feature flags: %w", err)
	}
	return evaluator, nil
}

func redisCheck(c *redis.Client) health.CheckFunc {
	if c == nil {
		return nil
	}
	return c.Health
}

func postgresCheck(db *sql.DB) health.CheckFunc {
	if db == nil {
		return nil
	}
	return db.PingContext
}
