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
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"provchain/internal/events"
	"provchain/internal/platform/config"
	"provchain/internal/platform/httpserver"
	"provchain/internal/platform/logger"
	platformredis "provchain/internal/platform/redis"
	"provchain/internal/provenance/handler"
	"provchain/internal/provenance/metrics"
	"provchain/internal/provenance/service"
	manufacturerstore "provchain/internal/provenance/store/manufacturer"
	productstore "provchain/internal/provenance/store/product"
	transferstore "provchain/internal/provenance/store/transfer"
	"provchain/internal/provenance/store/verification"
	id "provchain/pkg/domain"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Custody rules live in the provenance service.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var (
		manufacturers service.ManufacturerStore
		products      service.ProductStore
		transfers     service.TransferStore
		txRunner      service.TxRunner
		outbox        events.Store
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		manufacturers = manufacturerstore.NewPostgres(db)
		products = productstore.NewPostgres(db)
		transfers = transferstore.NewPostgres(db)
		txRunner = newPostgresTx(db)
		outbox = events.NewPostgresStore(db)
		log.Info("using postgres stores")
	} else {
		manufacturers = manufacturerstore.NewInMemory()
		products = productstore.NewInMemory()
		transfers = transferstore.NewInMemory()
		txRunner = service.NewPassthroughTx()
		outbox = events.NewInMemoryStore()
		log.Info("using in-memory stores; set PROVCHAIN_POSTGRES_URL for durability")
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithLockTimeout(cfg.LockTimeout),
		service.WithEventPublisher(events.NewPublisher(outbox)),
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, service.WithVerifyCache(
			verification.NewRedisCache(redisClient.Client, cfg.VerifyCacheTTL)))
		log.Info("verification cache enabled")
	}

	engine := service.New(manufacturers, products, transfers, txRunner,
		id.Principal(cfg.RootPrincipal), opts...)

	router := chi.NewRouter()
	handler.New(engine, log).Register(router)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := events.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer sink.Close()
		worker := events.NewWorker(outbox, sink, log)
		group.Go(func() error {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		log.Info("custody event stream enabled", "topic", cfg.Kafka.Topic)
	}

	group.Go(func() error {
		log.Info("starting provchain", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
