// Command server wires the community events service: stores (in-memory or
// PostgreSQL), the Redis listing cache, the audit trail with its optional
// Kafka sink, and the HTTP surface. Business logic lives in the internal
// service packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"communitylink/internal/audit"
	auditkafka "communitylink/internal/audit/kafka"
	auditstore "communitylink/internal/audit/store"
	"communitylink/internal/event/cache"
	eventhandler "communitylink/internal/event/handler"
	eventservice "communitylink/internal/event/service"
	eventstore "communitylink/internal/event/store"
	"communitylink/internal/platform/config"
	"communitylink/internal/platform/httpserver"
	"communitylink/internal/platform/logger"
	"communitylink/internal/platform/metrics"
	"communitylink/internal/platform/postgres"
	platformredis "communitylink/internal/platform/redis"
	profilehandler "communitylink/internal/profile/handler"
	profileservice "communitylink/internal/profile/service"
	profilestore "communitylink/internal/profile/store"
	"communitylink/internal/token"
	userstore "communitylink/internal/user/store"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var (
		events   eventservice.EventStore
		profiles profileservice.Store
		users    eventservice.UserDirectory
		trail    audit.Store
	)

	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		eventPG := eventstore.NewPostgres(pool)
		profilePG := profilestore.NewPostgres(pool)
		userPG := userstore.NewPostgres(pool)
		for _, ensure := range []func(context.Context) error{
			eventPG.EnsureSchema, profilePG.EnsureSchema, userPG.EnsureSchema,
		} {
			if err := ensure(ctx); err != nil {
				return err
			}
		}
		events, profiles, users = eventPG, profilePG, userPG

		auditDB, err := auditstore.OpenPostgres(cfg.AuditDatabaseURL)
		if err != nil {
			return err
		}
		defer auditDB.Close()
		auditPG := auditstore.NewPostgres(auditDB)
		if err := auditPG.EnsureSchema(ctx); err != nil {
			return err
		}
		trail = auditPG

		log.Info("using postgres stores")
	} else {
		events = eventstore.NewInMemory()
		profiles = profilestore.NewInMemory()
		users = userstore.NewInMemory()
		trail = auditstore.NewInMemory()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		events = cache.New(events, redisClient.Client,
			cache.WithTTL(cfg.CacheTTL),
			cache.WithLogger(log),
			cache.WithMetrics(m),
		)
		log.Info("upcoming-events cache enabled", "ttl", cfg.CacheTTL)
	}

	auditOpts := []audit.Option{}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := auditkafka.NewSink(cfg.KafkaBrokers,
			auditkafka.WithTopic(cfg.KafkaTopic),
			auditkafka.WithLogger(log),
		)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := sink.Close(closeCtx); err != nil {
				log.Warn("kafka sink close failed", "error", err)
			}
		}()
		auditOpts = append(auditOpts, audit.WithSink(sink))
		log.Info("audit kafka sink enabled", "brokers", cfg.KafkaBrokers)
	}
	publisher := audit.NewPublisher(trail, auditOpts...)

	jwtService := token.NewJWTService(cfg.JWTSigningKey, "communitylink", "communitylink-api")
	jwtValidator := token.NewJWTServiceAdapter(jwtService)

	eventSvc := eventservice.New(events, profiles, users,
		eventservice.WithLogger(log),
		eventservice.WithMetrics(m),
		eventservice.WithAuditPublisher(publisher),
	)
	profileSvc := profileservice.New(profiles,
		profileservice.WithLogger(log),
		profileservice.WithAuditPublisher(publisher),
	)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	eventhandler.New(eventSvc, log, m, jwtValidator).Register(router)
	profilehandler.New(profileSvc, log, m, jwtValidator).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting communitylink server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
