package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolGraph-Codec/internal/application/featurization"
	"github.com/turtacn/MolGraph-Codec/internal/bootstrap"
	"github.com/turtacn/MolGraph-Codec/internal/config"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/MolGraph-Codec/internal/interfaces/http"
	"github.com/turtacn/MolGraph-Codec/internal/interfaces/http/handlers"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

const eventSource = "molgraph-worker"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: MOLGRAPH_* environment)")
	workers := flag.Int("workers", 0, "number of group members to run (default: worker.concurrency)")
	ensureTopics := flag.Bool("ensure-topics", false, "create the request, completed and dead letter topics on startup")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Worker.Concurrency = *workers
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *ensureTopics, logger); err != nil {
		logger.Error("worker exited", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, ensureTopics bool, logger logging.Logger) error {
	logger.Info("starting molgraph worker",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.Int("workers", cfg.Worker.Concurrency),
		logging.String("request_topic", cfg.Worker.RequestTopic))

	collector, metrics, err := bootstrap.NewMetrics(cfg.Metrics, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg, logger, collector, metrics)
	if err != nil {
		return err
	}
	defer infra.Close(context.Background())

	if ensureTopics {
		if err := createTopics(ctx, cfg, logger); err != nil {
			return err
		}
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:          cfg.Kafka.Brokers,
		Acks:             "all",
		MaxRetries:       cfg.Kafka.MaxRetries,
		BatchSize:        cfg.Kafka.BatchSize,
		CompressionCodec: "snappy",
	}, logger)
	if err != nil {
		return err
	}
	defer producer.Close()

	jobs := featurization.NewJobHandler(
		infra.FeaturizationService(),
		kafka.NewEventPublisher(producer, eventSource),
		featurization.JobHandlerConfig{ResultTopic: cfg.Worker.CompletedTopic, ChunkSize: cfg.Codec.BatchLimit},
		metrics,
		logger,
	)
	handler := kafka.NewFeaturizeJobHandler(jobs, logger)

	consumers := make([]*kafka.Consumer, 0, cfg.Worker.Concurrency)
	defer func() {
		for _, c := range consumers {
			if err := c.Close(); err != nil {
				logger.Warn("consumer close failed", logging.Err(err))
			}
		}
	}()
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:         cfg.Kafka.Brokers,
			GroupID:         cfg.Kafka.GroupID,
			Topics:          []string{cfg.Worker.RequestTopic},
			AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
			RetryConfig: kafka.RetryConfig{
				MaxRetries:      cfg.Worker.MaxRetries,
				RetryBackoff:    cfg.Worker.RetryBackoff,
				DeadLetterTopic: cfg.Kafka.DeadLetterTopic,
			},
		}, logger, kafka.WithObserver(metrics), kafka.WithDeadLetterPublisher(sharedProducer{producer}))
		if err != nil {
			return err
		}
		consumers = append(consumers, consumer)
		if err := consumer.Subscribe(cfg.Worker.RequestTopic, handler); err != nil {
			return err
		}
		if err := consumer.Start(ctx); err != nil {
			return err
		}
	}

	health := startHealthServer(cfg, infra, logger)

	<-ctx.Done()
	logger.Info("received shutdown signal, draining consumers")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := health.Stop(shutdownCtx); err != nil {
		logger.Error("health server shutdown failed", logging.Err(err))
	}
	logger.Info("molgraph worker stopped")
	return nil
}

// sharedProducer lends the process producer to each consumer; it is closed
// once by run after every consumer has stopped.
type sharedProducer struct {
	*kafka.Producer
}

func (sharedProducer) Close() error { return nil }

func createTopics(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureTopics(ctx, kafka.DefaultTopics(cfg.Worker.RequestTopic, cfg.Worker.CompletedTopic, cfg.Kafka.DeadLetterTopic, 1))
}

// startHealthServer serves /healthz, /readyz and metrics on worker.metrics_addr.
func startHealthServer(cfg *config.Config, infra *bootstrap.Infrastructure, logger logging.Logger) *httpserver.Server {
	gin.SetMode(gin.ReleaseMode)
	router := httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:  handlers.NewHealthHandler(version, infra.Metrics, infra.HealthCheckers()...),
		Logger:         logger,
		MetricsHandler: infra.MetricsHandler(),
		MetricsPath:    cfg.Metrics.Path,
	})

	srv := httpserver.NewServerAt(cfg.Worker.MetricsAddr, cfg.Server, router, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("health server failed", logging.Err(err))
		}
	}()
	return srv
}

//Personal.AI order the ending
