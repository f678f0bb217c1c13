package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/api/handler"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/api/router"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/cache"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/resilience"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the matching HTTP API",
		Long:  "Starts the HTTP API with the configured job source, optional Redis result cache, optional Kafka analytics publishing and the Prometheus metrics server. Shuts down gracefully on SIGINT/SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
}

// serve boots every collaborator the config enables, serves the API until
// ctx is cancelled and then drains in reverse order.
func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	slog.Info("starting jobmatch", "port", cfg.Server.Port, "job_source", cfg.Jobs.Source)

	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	checker := health.NewChecker()

	store, closeStore, err := openJobStore(ctx, cfg, m, checker)
	if err != nil {
		return err
	}
	defer closeStore()

	extractor, rk, err := a.matcher()
	if err != nil {
		return err
	}

	var matchCache *cache.MatchCache
	if cfg.Redis.Addr != "" {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer client.Close()
		// Extractor settings are part of every key; the bonus weight is not.
		namespace := fmt.Sprintf("b%g", cfg.Matcher.BonusPerSkill)
		matchCache = cache.New(client, cfg.Redis.CacheTTL,
			cache.WithNamespace(namespace),
			cache.WithCounters(m.CacheHitsTotal.Inc, m.CacheMissesTotal.Inc),
		)
		checker.Register("redis", health.PingCheck(client.Ping, false))
		slog.Info("match cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	agg := analytics.NewAggregator()
	var publisher analytics.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MatchAnalytics)
		defer producer.Close()
		publisher = producer
		brokers := cfg.Kafka.Brokers
		checker.Register("kafka", health.PingCheck(func(ctx context.Context) error {
			return kafka.Ping(ctx, brokers)
		}, false))
		slog.Info("analytics publishing enabled", "topic", cfg.Kafka.Topics.MatchAnalytics)
	}
	collector := analytics.NewCollector(publisher, 10000, analytics.WithRecorder(agg))
	collector.Start(ctx)
	defer collector.Close()

	h := handler.New(handler.Deps{
		Store:           store,
		Extractor:       extractor,
		Ranker:          rk,
		Cache:           matchCache,
		Collector:       collector,
		Metrics:         m,
		DefaultMinScore: cfg.Matcher.DefaultMinScore,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
	})

	opts := router.Options{
		Metrics:   m,
		Timeout:   cfg.Server.RequestTimeout,
		Analytics: analytics.NewHandler(agg),
		Health:    checker,
	}
	if len(cfg.CORS.AllowedOrigins) > 0 {
		cors := middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins)
		opts.CORS = &cors
	}
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
		go limiter.Cleanup(ctx, time.Minute)
		opts.Limiter = limiter
	}

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.New(h, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("jobmatch listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("jobmatch stopped", "analytics_dropped", collector.Dropped())
	return nil
}

// openJobStore returns the configured job catalog and a func releasing it.
// A postgres catalog is guarded by a circuit breaker whose state is exported
// as a metric, and is registered as a required readiness dependency.
func openJobStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics, checker *health.Checker) (jobs.Store, func(), error) {
	switch cfg.Jobs.Source {
	case config.JobSourcePostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		breaker := resilience.NewCircuitBreaker("job-catalog", resilience.CircuitBreakerConfig{
			OnStateChange: func(name string, to resilience.State) {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			},
		})
		store := jobs.NewPostgresStore(client.DB, breaker, cfg.Postgres.QueryTimeout)
		checker.Register("postgres", health.PingCheck(client.Ping, true))

		if postings, err := store.List(ctx); err != nil {
			slog.Warn("job catalog not readable at startup", "error", err)
		} else {
			m.JobsLoaded.Set(float64(len(postings)))
			slog.Info("job catalog connected", "jobs", len(postings))
		}
		return store, func() { client.Close() }, nil

	default:
		postings, err := loadPostings(cfg.Jobs.File)
		if err != nil {
			return nil, nil, err
		}
		if err := jobs.Validate(postings); err != nil {
			return nil, nil, fmt.Errorf("invalid job collection: %w", err)
		}
		m.JobsLoaded.Set(float64(len(postings)))
		slog.Info("job collection loaded", "jobs", len(postings), "file", cfg.Jobs.File)
		return jobs.NewMemoryStore(postings), func() {}, nil
	}
}
