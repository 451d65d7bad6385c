// Package bootstrap wires configuration into the long-running processes:
// logger, metrics, backing stores and the featurization service.
package bootstrap

import (
	"context"
	"net/http"

	"github.com/turtacn/MolGraph-Codec/internal/application/featurization"
	"github.com/turtacn/MolGraph-Codec/internal/config"
	"github.com/turtacn/MolGraph-Codec/internal/domain/molgraph"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/database/neo4j"
	neo4jrepo "github.com/turtacn/MolGraph-Codec/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/database/postgres"
	pgrepo "github.com/turtacn/MolGraph-Codec/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/database/redis"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MolGraph-Codec/internal/interfaces/http/handlers"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	lc := logging.LogConfig{Level: cfg.Level, Format: cfg.Format}
	if len(cfg.Output) > 0 {
		lc.OutputPaths = cfg.Output
	}
	return logging.NewLogger(lc)
}

// NewMetrics registers the codec metric families on a fresh registry.
func NewMetrics(cfg config.MetricsConfig, log logging.Logger) (prometheus.MetricsCollector, *prometheus.CodecMetrics, error) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return collector, prometheus.NewCodecMetrics(collector), nil
}

// Infrastructure holds the clients shared by the API server and the worker.
// Neo4j is optional and stays nil when no URI is configured.
type Infrastructure struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.CodecMetrics

	DB    *postgres.Connection
	Redis *redis.Client
	Neo4j *neo4j.Driver
}

// Open connects to PostgreSQL, Redis and, when configured, Neo4j.  Clients
// opened before a failure are closed again.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger, collector prometheus.MetricsCollector, metrics *prometheus.CodecMetrics) (*Infrastructure, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrCodeValidation, "configuration is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	infra := &Infrastructure{Config: cfg, Logger: log, Collector: collector, Metrics: metrics}

	db, err := postgres.NewConnection(ctx, cfg.Database, log.Named("postgres"))
	if err != nil {
		return nil, err
	}
	infra.DB = db

	rdb, err := redis.NewClient(redis.ClientConfigFrom(cfg.Redis), log.Named("redis"))
	if err != nil {
		infra.Close(ctx)
		return nil, err
	}
	infra.Redis = rdb

	if cfg.Neo4j.URI != "" {
		drv, err := neo4j.NewDriver(ctx, cfg.Neo4j, log.Named("neo4j"))
		if err != nil {
			infra.Close(ctx)
			return nil, err
		}
		infra.Neo4j = drv
	}

	log.Info("infrastructure initialized",
		logging.Bool("neo4j", infra.Neo4j != nil),
		logging.String("redis", cfg.Redis.Addr),
		logging.String("database", cfg.Database.DBName))
	return infra, nil
}

// GraphRepository returns the PostgreSQL graph repository, or nil when no
// database is open.
func (i *Infrastructure) GraphRepository() molgraph.GraphRepository {
	if i.DB == nil {
		return nil
	}
	var opts []pgrepo.GraphRepositoryOption
	if i.Metrics != nil {
		opts = append(opts, pgrepo.WithQueryObserver(i.Metrics))
	}
	return pgrepo.NewGraphRepository(i.DB.Pool(), i.Logger.Named("graph-repo"), opts...)
}

// FeaturizationService builds the service over whatever is open: the
// repository, the Redis cache and the Neo4j topology store.
func (i *Infrastructure) FeaturizationService() featurization.Service {
	codec := i.Config.Codec
	var opts []featurization.Option
	if i.Redis != nil {
		opts = append(opts, featurization.WithCache(redis.NewRedisCache(i.Redis, i.Logger.Named("cache"),
			redis.WithPrefix(i.Config.Redis.KeyPrefix),
			redis.WithDefaultTTL(codec.CacheTTL),
			redis.WithJitter(true))))
	}
	if i.Neo4j != nil {
		opts = append(opts, featurization.WithGraphStore(neo4jrepo.NewMoleculeGraphStore(i.Neo4j, i.Logger.Named("graph-store"))))
	}
	if i.Metrics != nil {
		opts = append(opts, featurization.WithMetrics(i.Metrics))
	}

	return featurization.NewService(featurization.Config{
		MaxLength:         codec.MaxLength,
		Pad:               codec.Pad,
		StrictDefeaturize: codec.StrictDefeaturize,
		CacheTTL:          codec.CacheTTL,
		PersistGraphs:     codec.PersistGraphs && i.DB != nil,
		StoreGraphs:       codec.StoreGraphs && i.Neo4j != nil,
		BatchLimit:        codec.BatchLimit,
		Concurrency:       codec.Concurrency,
	}, i.GraphRepository(), i.Logger.Named("featurization"), opts...)
}

// HealthCheckers returns one readiness check per open client.
func (i *Infrastructure) HealthCheckers() []handlers.HealthChecker {
	var checkers []handlers.HealthChecker
	if i.DB != nil {
		checkers = append(checkers, handlers.CheckerFunc{Component: "postgres", Fn: i.DB.HealthCheck})
	}
	if i.Redis != nil {
		checkers = append(checkers, handlers.CheckerFunc{Component: "redis", Fn: i.Redis.Ping})
	}
	if i.Neo4j != nil {
		checkers = append(checkers, handlers.CheckerFunc{Component: "neo4j", Fn: i.Neo4j.HealthCheck})
	}
	return checkers
}

// MetricsHandler serves the registry, or nil when metrics are disabled.
func (i *Infrastructure) MetricsHandler() http.Handler {
	if i.Collector == nil || !i.Config.Metrics.Enabled {
		return nil
	}
	return i.Collector.Handler()
}

// Close releases every open client in reverse order of opening.
func (i *Infrastructure) Close(ctx context.Context) {
	if i.Neo4j != nil {
		if err := i.Neo4j.Close(ctx); err != nil {
			i.Logger.Warn("neo4j close failed", logging.Err(err))
		}
		i.Neo4j = nil
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			i.Logger.Warn("redis close failed", logging.Err(err))
		}
		i.Redis = nil
	}
	if i.DB != nil {
		i.DB.Close()
		i.DB = nil
	}
}

//Personal.AI order the ending
