package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	applicationhandler "creditdesk/internal/application/handler"
	applicationservice "creditdesk/internal/application/service"
	applicationstore "creditdesk/internal/application/store"
	"creditdesk/internal/audit"
	audithandler "creditdesk/internal/audit/handler"
	"creditdesk/internal/audit/outbox"
	auditstore "creditdesk/internal/audit/store"
	"creditdesk/internal/auth/adapters"
	authhandler "creditdesk/internal/auth/handler"
	authservice "creditdesk/internal/auth/service"
	"creditdesk/internal/auth/store/revocation"
	userstore "creditdesk/internal/auth/store/user"
	"creditdesk/internal/jwttoken"
	"creditdesk/internal/platform/config"
	"creditdesk/internal/platform/httpserver"
	"creditdesk/internal/platform/logger"
	"creditdesk/internal/platform/metrics"
	"creditdesk/internal/platform/postgres"
	"creditdesk/internal/platform/redis"
	httptransport "creditdesk/internal/transport/http"
	"creditdesk/pkg/platform/tx"
)

// main wires the dependency graph and owns the process lifecycle. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores: postgres when configured, in-memory otherwise. With postgres the
	// application write and its audit entry commit in one transaction.
	var (
		appStore   applicationservice.Store
		trailStore audit.Store
		users      authservice.UserStore
		runner     tx.Runner = tx.NewPassthroughRunner()
		outboxSrc  outbox.Source
	)
	if db != nil {
		auditPG := auditstore.NewPostgresStore(db)
		appStore = applicationstore.NewPostgresStore(db)
		trailStore = auditPG
		users = userstore.NewPostgresStore(db)
		runner = tx.NewSQLRunner(db)
		outboxSrc = auditPG
		log.Info("using postgres stores")
	} else {
		appStore = applicationstore.NewInMemoryStore()
		trailStore = auditstore.NewInMemoryStore()
		users = userstore.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	var revoked authservice.RevocationList
	if redisClient != nil {
		revoked = revocation.NewRedisTRL(redisClient.Client)
	} else {
		revoked = revocation.NewMemoryTRL()
		log.Warn("REDIS_URL not set, token revocation is per-instance only")
	}

	tokens := jwttoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	validator := authservice.NewValidator(tokens, revoked)

	auditSvc := audit.NewService(trailStore, adapters.NewUserDirectory(users), log, m)
	appSvc := applicationservice.NewService(appStore, auditSvc, runner, log, m)
	authSvc := authservice.NewService(users, tokens, revoked, cfg.TokenTTL, log)

	router := httptransport.NewRouter(log,
		authhandler.New(authSvc, log),
		applicationhandler.New(appSvc, log, validator),
		audithandler.New(auditSvc, log, validator),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting creditdesk", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// The outbox needs both a durable queue and somewhere to publish.
	if outboxSrc != nil && len(cfg.KafkaBrokers) > 0 {
		producer, err := outbox.NewKafkaProducer(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		worker := outbox.NewWorker(outboxSrc, producer, log, cfg.OutboxInterval, cfg.OutboxBatchSize)
		g.Go(func() error {
			log.Info("starting audit outbox publisher", "topic", cfg.AuditTopic)
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else if len(cfg.KafkaBrokers) > 0 {
		log.Warn("KAFKA_BROKERS set but postgres is not, audit events will not be published")
	}

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
