// Command analytics runs the standalone analytics aggregation service.
//
// It consumes match and extract events from the match-analytics Kafka topic,
// aggregates them in memory (request totals, cache hit rate, latency
// percentiles, average top score, most frequent skills and queries) and
// serves them at GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		fmt.Fprintln(os.Stderr, "kafka.brokers is empty; nothing to consume")
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	topic := cfg.Kafka.Topics.MatchAnalytics
	consumer := kafka.NewConsumer(cfg.Kafka, topic, analytics.HandleEvent(aggregator))

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("consumer stopped", "error", err)
		}
	}()
	slog.Info("analytics consumer started", "topic", topic, "group", cfg.Kafka.ConsumerGroup)

	checker := health.NewChecker()
	brokers := cfg.Kafka.Brokers
	checker.Register("kafka", health.PingCheck(func(ctx context.Context) error {
		return kafka.Ping(ctx, brokers)
	}, true))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, middleware.RequestID),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
