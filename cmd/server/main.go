// Command server runs the contact identity resolution service. main wires
// dependencies and the process lifecycle; business logic lives in the
// internal packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"contactgraph/internal/audit"
	"contactgraph/internal/contact/cache"
	contacthandler "contactgraph/internal/contact/handler"
	contactmetrics "contactgraph/internal/contact/metrics"
	"contactgraph/internal/contact/service"
	"contactgraph/internal/contact/store"
	"contactgraph/internal/platform/config"
	"contactgraph/internal/platform/httpserver"
	"contactgraph/internal/platform/logger"
	"contactgraph/internal/platform/postgres"
	"contactgraph/internal/platform/redis"
	httptransport "contactgraph/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: PostgreSQL when configured, in-memory otherwise.
	var (
		contactStore store.Store
		txRunner     store.TxRunner
	)
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if _, err := db.ExecContext(ctx, store.Schema); err != nil {
			log.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
		contactStore = store.NewPostgresStore(db)
		txRunner = store.NewPostgresTxRunner(db)
		log.Info("using postgres contact store")
	} else {
		contactStore = store.NewMemoryStore()
		txRunner = store.NewMemoryTxRunner()
		log.Warn("DATABASE_URL not set, using in-memory contact store")
	}

	// Audit pipeline: Kafka sink when brokers are configured, in-memory
	// otherwise.
	var auditSink audit.Store
	if len(cfg.KafkaBrokers) > 0 {
		kafkaStore, err := audit.NewKafkaStore(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("kafka audit sink failed", "error", err)
			os.Exit(1)
		}
		defer kafkaStore.Close()
		auditSink = kafkaStore
		log.Info("audit events publishing to kafka", "topic", cfg.AuditTopic)
	} else {
		auditSink = audit.NewMemoryStore()
		log.Warn("KAFKA_BROKERS not set, audit events stay in memory")
	}
	auditPublisher := audit.NewPublisher(1024, log)
	auditWorker := audit.NewWorker(auditSink, auditPublisher.Events(), log)

	opts := []service.Option{service.WithAuditPublisher(auditPublisher)}

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		if viewCache := cache.New(redisClient, config.ViewCacheTTL, log); viewCache != nil {
			opts = append(opts, service.WithViewCache(viewCache))
			log.Info("view cache enabled", "ttl", config.ViewCacheTTL)
		}
	}

	svc := service.New(contactStore, txRunner, log, contactmetrics.New(), opts...)
	router := httptransport.NewRouter(contacthandler.New(svc, log))
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting contactgraph", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		if err := auditWorker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
