package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"checkout-service/internal/backend"
	"checkout-service/internal/checkout"
	"checkout-service/internal/config"
	"checkout-service/internal/db"
	"checkout-service/internal/events"
	"checkout-service/internal/httpserver"
	"checkout-service/internal/location"
	"checkout-service/internal/logging"
	locationrepo "checkout-service/internal/repository/location"
	sessionrepo "checkout-service/internal/repository/session"
)

const sweepInterval = 5 * time.Minute

type publisher interface {
	checkout.EventPublisher
	Close() error
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var pool *pgxpool.Pool
	if needsDB(cfg) {
		pool, err = db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			logger.Fatal("connect to db", zap.Error(err))
		}
		defer pool.Close()
	}

	var locationStore location.RecordSource
	if pool != nil {
		locationStore = locationrepo.NewPostgres(pool, logger)
	}
	catalog, err := location.Load(ctx, cfg.Location.Source, cfg.Location.File, locationStore)
	if err != nil {
		logger.Fatal("load location catalog", zap.Error(err))
	}
	logger.Info("location catalog loaded",
		zap.String("source", cfg.Location.Source),
		zap.Int("provinces", len(catalog.Provinces())),
	)

	sessions, closeSessions, err := openSessionStore(ctx, cfg, pool, logger)
	if err != nil {
		logger.Fatal("open session store", zap.Error(err))
	}
	defer closeSessions()

	client, err := backend.New(cfg.Backend.URL, cfg.Backend.Timeout, logger.Named("backend"))
	if err != nil {
		logger.Fatal("init backend client", zap.Error(err))
	}

	var pub publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger.Named("events"))
		logger.Info("publishing order events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn("close event publisher", zap.Error(err))
		}
	}()

	svc, err := checkout.New(checkout.Deps{
		Sessions:  sessions,
		Catalog:   catalog,
		Addresses: client,
		Discounts: client,
		Orders:    client,
		Payments:  client,
		Cart:      client,
		Events:    pub,
		Logger:    logger.Named("checkout"),
	})
	if err != nil {
		logger.Fatal("init checkout service", zap.Error(err))
	}
	go sweep(ctx, sessions, svc, logger)

	var pinger httpserver.Pinger
	if pool != nil {
		pinger = pool
	}
	srv, err := httpserver.New(cfg.HTTPAddr, logger.Named("http"), pinger, httpserver.Deps{
		Checkout:    svc,
		Locations:   catalog,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}

func needsDB(cfg config.Config) bool {
	return cfg.Session.Store == config.SessionStorePostgres ||
		strings.EqualFold(strings.TrimSpace(cfg.Location.Source), location.SourcePostgres)
}

func openSessionStore(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger *zap.Logger) (sessionrepo.Repository, func(), error) {
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Session.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return sessionrepo.NewRedis(client, cfg.Session.TTL), func() { _ = client.Close() }, nil
	case config.SessionStoreMemory:
		logger.Warn("sessions kept in memory; they are lost on restart and not shared between replicas")
		return sessionrepo.NewMemory(cfg.Session.TTL), func() {}, nil
	default:
		return sessionrepo.NewPostgres(pool, cfg.Session.TTL, logger.Named("sessions")), func() {}, nil
	}
}

// sweep drops expired sessions and the locks of sessions that are gone until
// ctx is cancelled.
func sweep(ctx context.Context, sessions checkout.SessionStore, svc *checkout.Service, logger *zap.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sweeper, ok := sessions.(sessionrepo.Sweeper); ok {
				n, err := sweeper.DeleteExpired(ctx)
				if err != nil {
					logger.Warn("sweep expired sessions", zap.Error(err))
				} else if n > 0 {
					logger.Info("swept expired sessions", zap.Int64("count", n))
				}
			}
			if n := svc.PruneLocks(ctx); n > 0 {
				logger.Debug("pruned session locks", zap.Int("count", n))
			}
		}
	}
}
