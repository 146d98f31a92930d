package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"alcyxob/trainer-core/internal/api"
	"alcyxob/trainer-core/internal/config"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/metrics"
	"alcyxob/trainer-core/internal/repository"
	"alcyxob/trainer-core/internal/repository/mongo"
	"alcyxob/trainer-core/internal/repository/sqlstore"
	"alcyxob/trainer-core/internal/service"
	"alcyxob/trainer-core/internal/storage"
	"alcyxob/trainer-core/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

type ServeCmd struct{}

type MigrateCmd struct{}

// store is an opened backend with its repositories and a close func.
type store struct {
	repos *repository.Repositories
	close func() error
}

func setup(configDir string) (config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(logger.Options{Mode: cfg.Log.Mode, Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// openStore connects the configured backend. With migrate set the schema
// (or the mongo indexes) is brought up to date first.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger, migrate bool) (*store, error) {
	switch cfg.Driver {
	case sqlstore.DriverPostgres, sqlstore.DriverSQLite:
		db, err := sqlstore.Open(cfg.Driver, cfg.DSN, log)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
		}
		if migrate {
			if err := sqlstore.Migrate(db); err != nil {
				return nil, multierr.Append(fmt.Errorf("migrate: %w", err), sqlstore.Close(db))
			}
		}
		return &store{
			repos: sqlstore.NewRepositories(db, log),
			close: func() error { return sqlstore.Close(db) },
		}, nil
	case "mongo":
		client, err := mongo.ConnectDB(ctx, cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		db := client.Database(cfg.Name)
		if migrate {
			if err := mongo.EnsureIndexes(ctx, db); err != nil {
				return nil, multierr.Append(fmt.Errorf("ensure indexes: %w", err), mongo.DisconnectDB(client))
			}
		}
		return &store{
			repos: mongo.NewRepositories(client, db, log),
			close: func() error { return mongo.DisconnectDB(client) },
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

func (c *MigrateCmd) Run(cli *CLI) error {
	cfg, log, err := setup(cli.ConfigDir)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	st, err := openStore(ctx, cfg.Database, log, true)
	if err != nil {
		return err
	}
	log.Info("schema is up to date", "driver", cfg.Database.Driver)
	return st.close()
}

func (c *ServeCmd) Run(cli *CLI) (err error) {
	cfg, log, err := setup(cli.ConfigDir)
	if err != nil {
		return err
	}
	defer log.Sync()
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracing, err := telemetry.InitTracing(ctx, log, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = multierr.Append(err, shutdownTracing(flushCtx))
	}()

	// --- Store ---
	st, err := openStore(ctx, cfg.Database, log, cfg.Database.Driver == sqlstore.DriverSQLite)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.close()) }()
	log.Info("database connection established", "driver", cfg.Database.Driver)

	// --- Redis (optional) ---
	var rdb *redis.Client
	var limiter api.RequestRateLimiter
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { err = multierr.Append(err, rdb.Close()) }()
		if pingErr := rdb.Ping(ctx).Err(); pingErr != nil {
			log.Warn("redis unreachable, writes are served without rate limiting or replay protection", "error", pingErr)
		}
		limiter = redis_rate.NewLimiter(rdb)
	} else {
		log.Warn("redis not configured: rate limiting and idempotency replay are off")
	}

	// --- Object storage (optional) ---
	var files storage.FileStorage
	if cfg.S3.Enabled() {
		files, err = storage.NewS3Storage(ctx, cfg.S3, log)
		if err != nil {
			return fmt.Errorf("init s3 storage: %w", err)
		}
	}

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewManager("trainer_core", "api", reg)

	// --- Services ---
	location, err := time.LoadLocation(cfg.Scheduling.Timezone)
	if err != nil {
		return fmt.Errorf("scheduling timezone: %w", err)
	}
	repos := st.repos
	services := api.Services{
		Trainer:  service.NewTrainerService(repos.Clients, log),
		Exercise: service.NewExerciseService(repos.Exercises),
		Scheduling: service.NewSchedulingService(repos, m, service.SchedulingOptions{
			Location:            location,
			RequireAvailability: cfg.Scheduling.RequireAvailability,
			LateCancelWindow:    cfg.Scheduling.LateCancelWindow,
		}, log),
		Program:   service.NewProgramService(repos, log),
		Workout:   service.NewWorkoutService(repos, m, nil, log),
		Analytics: service.NewAnalyticsService(repos, files, m, nil, log),
	}

	// --- HTTP ---
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	serviceName := ""
	if cfg.Tracing.Enabled {
		serviceName = cfg.Tracing.ServiceName
	}
	api.SetupRoutes(router, api.RouterConfig{
		JWTSecret:       cfg.JWT.Secret,
		RateLimiter:     limiter,
		WritesPerMinute: cfg.RateLimit.WritesPerMinute,
		Redis:           rdb,
		IdempotencyTTL:  cfg.Idempotency.TTL,
		Metrics:         m,
		Log:             log,
		ServiceName:     serviceName,
	}, services)

	apiServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{apiServer, metricsServer} {
		g.Go(func() error {
			log.Info("listener starting", "address", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return multierr.Combine(
			apiServer.Shutdown(shutdownCtx),
			metricsServer.Shutdown(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server exited")
	return nil
}
