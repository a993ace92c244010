// Command server runs the consent compliance engine: the admin catalog and
// targeting surfaces, the public consent surface, the audit outbox relay and
// the daily compliance sweep, all in one process.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"assent/internal/acceptance"
	"assent/internal/adminauth"
	cataloghandler "assent/internal/catalog/handler"
	catalogmetrics "assent/internal/catalog/metrics"
	catalogservice "assent/internal/catalog/service"
	catalogstore "assent/internal/catalog/store"
	"assent/internal/compliance"
	consenthandler "assent/internal/consent/handler"
	consentmetrics "assent/internal/consent/metrics"
	consentservice "assent/internal/consent/service"
	ledgerstore "assent/internal/ledger/store"
	"assent/internal/platform/config"
	"assent/internal/platform/httpserver"
	"assent/internal/platform/logger"
	platformmetrics "assent/internal/platform/metrics"
	"assent/internal/platform/postgres"
	platformredis "assent/internal/platform/redis"
	"assent/internal/ratelimit"
	ratelimitstore "assent/internal/ratelimit/store"
	"assent/internal/resolver"
	"assent/internal/sweep"
	targetinghandler "assent/internal/targeting/handler"
	targetingservice "assent/internal/targeting/service"
	targetingstore "assent/internal/targeting/store"
	auditpublisher "assent/pkg/platform/audit/publisher"
	auditpg "assent/pkg/platform/audit/store/postgres"
	auditworker "assent/pkg/platform/audit/worker"
	"assent/pkg/platform/privacy"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("failed to open postgres", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("failed to run migrations", "error", err.Error())
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err.Error())
		os.Exit(1)
	}
	if redisClient == nil {
		log.Warn("redis not configured, compliance state cache disabled")
	} else {
		defer redisClient.Close()
	}

	hasher, err := privacy.NewIdentityHasher(cfg.IdentitySalt)
	if err != nil {
		log.Error("failed to build identity hasher", "error", err.Error())
		os.Exit(1)
	}

	// Stores share the one pool; the audit store doubles as the outbox.
	catalogStore := catalogstore.NewPostgres(db)
	targetingStore := targetingstore.NewPostgres(db)
	ledgerStore := ledgerstore.NewPostgres(db)
	auditStore := auditpg.New(db)

	versionResolver := resolver.New(catalogStore, targetingStore, log)
	evaluator := compliance.NewEvaluator(versionResolver, ledgerStore, cfg.RenewalInterval, log)

	var stateCache *compliance.StateCache
	if redisClient != nil {
		stateCache = compliance.NewStateCache(redisClient.Client, cfg.CacheTTL)
	}

	acceptor := acceptance.New(
		versionResolver,
		ledgerStore,
		auditStore,
		hasher,
		acceptance.NewSQLTxRunner(db),
		stateCache,
		cfg.SnapshotContent,
		log,
	)

	consentSvc := consentservice.New(
		versionResolver, evaluator, acceptor, ledgerStore, hasher, consentmetrics.New(), log)
	catalogSvc := catalogservice.New(catalogStore, auditStore, catalogmetrics.New(), log)
	targetingSvc := targetingservice.New(targetingStore, catalogStore, hasher, auditStore, log)

	adminJWT := adminauth.NewJWTService(cfg.AdminJWTSigningKey, cfg.AdminJWTIssuer, cfg.AdminJWTAudience)

	limitCounters := ratelimitstore.NewMemory()
	limiter := ratelimit.NewMiddleware(
		ratelimit.NewLimiter(limitCounters, nil),
		ratelimit.NewMetrics(),
		log,
	)

	router := chi.NewRouter()
	router.Use(platformmetrics.New().Middleware)
	router.Use(limiter.ByPath)
	cataloghandler.New(catalogSvc, adminJWT, log).Register(router)
	targetinghandler.New(targetingSvc, adminJWT, log).Register(router)
	consenthandler.New(consentSvc, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "postgres unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := auditpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err.Error())
			os.Exit(1)
		}
		defer kafkaPublisher.Close()

		relay := auditworker.NewWorker(auditStore, kafkaPublisher, log)
		group.Go(func() error {
			if err := relay.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		log.Warn("kafka not configured, audit events stay in the outbox")
	}

	group.Go(func() error {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				limitCounters.Prune()
			}
		}
	})

	sweeper := sweep.NewWorker(ledgerStore, evaluator, stateCache, sweep.NewMetrics(), log).
		WithInterval(cfg.SweepInterval)
	group.Go(func() error {
		if err := sweeper.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server stopped")
}
