// Package main provides the entry point for the casescreen HTTP service,
// which screens case documents for wrongful-conviction indicators.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lvonguyen/casescreen/internal/analyzer"
	"github.com/lvonguyen/casescreen/internal/api"
	"github.com/lvonguyen/casescreen/internal/api/gateway"
	"github.com/lvonguyen/casescreen/internal/config"
	"github.com/lvonguyen/casescreen/internal/observability"
)

// Version information (injected at build time via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("casescreen %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "casescreen: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tel, err := observability.New(observability.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Telemetry.Environment,
		LogLevel:       cfg.Logging.Level,
		LogFormat:      cfg.Logging.Format,
		MetricsEnabled: cfg.Telemetry.MetricsEnabled,
		TracingEnabled: cfg.Telemetry.TracingEnabled,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	logger := tel.Logger()

	logger.Info("Starting casescreen",
		zap.String("version", Version),
		zap.String("commit", GitCommit),
		zap.String("config", configPath),
		zap.Bool("tracing", cfg.Telemetry.TracingEnabled),
	)

	analyzerCfg, err := cfg.AnalyzerConfig()
	if err != nil {
		return err
	}
	a := analyzer.New(analyzerCfg, logger.Named("analyzer"), analyzer.WithObserver(tel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tel.StartSystemMetricsCollector(ctx, 15*time.Second)

	var limiter *gateway.RateLimiter
	if cfg.RateLimit.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RedisPassword(),
			DB:       cfg.RateLimit.RedisDB,
			PoolSize: cfg.RateLimit.RedisPoolSize,
		})
		defer rdb.Close()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("Redis unreachable, rate limiting will fail open",
				zap.String("addr", cfg.RateLimit.RedisAddr),
				zap.Error(err),
			)
		}
		pingCancel()

		limiter = gateway.NewRateLimiter(rdb, cfg.GatewayConfig(), logger.Named("ratelimit"))
	}

	metricsPath := ""
	if cfg.Telemetry.MetricsEnabled {
		metricsPath = cfg.Telemetry.MetricsPath
	}

	srv := api.NewServer(a, tel, api.Options{
		Version:        Version,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
		MetricsPath:    metricsPath,
		RateLimiter:    limiter,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	logger.Info("Server stopped")

	return tel.Shutdown(shutdownCtx)
}
