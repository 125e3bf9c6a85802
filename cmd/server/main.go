package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"modwallet/internal/ledger/cache"
	"modwallet/internal/ledger/handler"
	ledgermetrics "modwallet/internal/ledger/metrics"
	"modwallet/internal/ledger/service/account"
	"modwallet/internal/ledger/service/document"
	pgstore "modwallet/internal/ledger/store/postgres"
	"modwallet/internal/platform/config"
	"modwallet/internal/platform/httpserver"
	"modwallet/internal/platform/kafka"
	"modwallet/internal/platform/logger"
	"modwallet/internal/platform/metrics"
	"modwallet/internal/platform/middleware"
	"modwallet/internal/platform/outbox"
	"modwallet/internal/platform/postgres"
	"modwallet/internal/platform/redis"
	"modwallet/internal/platform/tracing"
	"modwallet/pkg/platform/circuit"
	"modwallet/pkg/platform/httputil"
)

// main wires the process: config, logger, postgres, redis, kafka, HTTP and
// the outbox worker. Business logic lives in internal/ledger.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log, syncLog, err := logger.New(cfg.Server.LogLevel)
	if err != nil {
		slog.Error("failed to build logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = syncLog() }()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		_ = syncLog()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("trace flush failed", "error", err)
		}
	}()
	if cfg.Tracing.Enabled() {
		log.Info("trace export enabled", "endpoint", cfg.Tracing.Endpoint, "service", cfg.Tracing.ServiceName)
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(db, pgstore.Migrations, "migrations", log); err != nil {
			return err
		}
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "wallet"),
	)
	if redisClient != nil {
		reg.MustRegister(redis.NewPoolCollector(redisClient))
	}
	ledgerMetrics := ledgermetrics.New(reg)
	httpMetrics := metrics.New(reg)

	stores := pgstore.Stores(db)
	tx := pgstore.NewTx(db, cfg.Ledger.TxTimeout)

	accountOpts := []account.Option{
		account.WithLogger(log),
		account.WithMetrics(ledgerMetrics),
		account.WithHistoryLimit(cfg.Ledger.HistoryDefaultLimit),
	}
	documentOpts := []document.Option{
		document.WithLogger(log),
		document.WithMetrics(ledgerMetrics),
		document.WithTransferLimit(cfg.Ledger.TransferLimit),
	}
	if redisClient != nil {
		dates := cache.NewGuarded(
			cache.NewHistoryDates(redisClient, cache.WithTTL(cfg.Redis.HistoryTTL), cache.WithRegisterer(reg)),
			circuit.New("history_dates_cache"),
			cache.WithLogger(log),
		)
		accountOpts = append(accountOpts, account.WithHistoryDatesCache(dates))
		documentOpts = append(documentOpts, document.WithHistoryDatesCache(dates))
	}

	accounts, err := account.New(tx, stores, accountOpts...)
	if err != nil {
		return err
	}
	documents, err := document.New(tx, stores, documentOpts...)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	router.Get("/healthz", healthz(db, redisClient))
	router.Group(func(r chi.Router) {
		middleware.Register(r, log, httpMetrics, cfg.Server.RequestTimeout)
		handler.New(accounts, documents, log).Register(r)
	})

	srv := httpserver.New(cfg.Server, router, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting wallet ledger", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Kafka.Enabled() {
		worker, closePub, err := newOutboxWorker(ctx, cfg, db, log)
		if err != nil {
			return err
		}
		defer closePub()
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		log.Warn("kafka is not configured; outbox events stay pending")
	}

	return g.Wait()
}

func newOutboxWorker(ctx context.Context, cfg config.Config, db *sql.DB, log *slog.Logger) (*outbox.Worker, func(), error) {
	pub, err := kafka.New(cfg.Kafka, kafka.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	if err := pub.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
		pub.Close()
		return nil, nil, err
	}
	worker, err := outbox.NewWorker(outbox.NewPostgresStore(db), pub,
		outbox.WithPollInterval(cfg.Outbox.PollInterval),
		outbox.WithBatchSize(cfg.Outbox.BatchSize),
		outbox.WithLogger(log),
	)
	if err != nil {
		pub.Close()
		return nil, nil, err
	}
	return worker, pub.Close, nil
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis,omitempty"`
}

func healthz(db *sql.DB, rc *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Database: "ok"}
		status := http.StatusOK
		if err := db.PingContext(ctx); err != nil {
			resp.Status, resp.Database = "degraded", err.Error()
			status = http.StatusServiceUnavailable
		}
		if rc != nil {
			resp.Redis = "ok"
			if err := rc.Health(ctx); err != nil {
				resp.Status, resp.Redis = "degraded", err.Error()
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}
