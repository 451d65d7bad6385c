package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolGraph-Codec/internal/bootstrap"
	"github.com/turtacn/MolGraph-Codec/internal/config"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/database/redis"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/MolGraph-Codec/internal/interfaces/http"
	"github.com/turtacn/MolGraph-Codec/internal/interfaces/http/handlers"
	"github.com/turtacn/MolGraph-Codec/internal/interfaces/http/middleware"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: MOLGRAPH_* environment)")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("api server exited", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	logger.Info("starting molgraph api server",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.String("addr", cfg.Server.Addr()))

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

	gin.SetMode(cfg.Server.Mode)

	routerCfg := httpserver.RouterConfig{
		FeaturizationHandler: handlers.NewFeaturizationHandler(infra.FeaturizationService(), cfg.Codec.BatchLimit),
		HealthHandler:        handlers.NewHealthHandler(version, metrics, infra.HealthCheckers()...),
		Logger:               logger,
		Metrics:              metrics,
		MetricsHandler:       infra.MetricsHandler(),
		MetricsPath:          cfg.Metrics.Path,
		MaxBodySize:          cfg.Server.MaxBodySize,
	}
	if cfg.Server.RateLimit > 0 {
		routerCfg.RateLimiter = redis.NewWindowLimiter(infra.Redis, cfg.Redis.KeyPrefix+"ratelimit:",
			cfg.Server.RateLimit, cfg.Server.RateWindow, logger)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.CORSOrigins
		routerCfg.CORS = &cors
	}

	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	logger.Info("api server stopped")
	return nil
}

//Personal.AI order the ending
