package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/oggyb/vivah/internal/app"
	tokens "github.com/oggyb/vivah/internal/auth"
	"github.com/oggyb/vivah/internal/cache"
	"github.com/oggyb/vivah/internal/config"
	"github.com/oggyb/vivah/internal/db"
	"github.com/oggyb/vivah/internal/logger"
	"github.com/oggyb/vivah/internal/metrics"
	"github.com/oggyb/vivah/internal/notify"
	"github.com/oggyb/vivah/internal/relay"
	"github.com/oggyb/vivah/internal/repository"
	"github.com/oggyb/vivah/internal/server"
	"github.com/oggyb/vivah/internal/service/admin"
	authsvc "github.com/oggyb/vivah/internal/service/auth"
	"github.com/oggyb/vivah/internal/service/interest"
	"github.com/oggyb/vivah/internal/service/messaging"
	"github.com/oggyb/vivah/internal/service/profile"
	"github.com/oggyb/vivah/internal/service/shortlist"
	"github.com/oggyb/vivah/internal/storage"
	httptransport "github.com/oggyb/vivah/internal/transport/http"
)

func main() {
	_ = godotenv.Load()
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	if err := run(cfg); err != nil {
		log.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg *config.Config) error {
	log := logger.L()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return err
	}
	defer redisCache.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	appCtx := app.New(database, redisCache, log).WithMetrics(m)

	if cfg.IsDevelopment() && os.Getenv("SEED") == "true" {
		if err := db.SeedTestData(database, log); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	// Message log: relational by default, Mongo when MESSAGE_STORE=mongo.
	var messages repository.MessageStore = repository.NewMessageRepository(database)
	if cfg.Mongo.Enabled {
		client, mdb, err := db.ConnectMongo(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		mongoStore := repository.NewMongoMessageRepository(mdb)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			return err
		}
		messages = mongoStore
		log.Info("using mongo message store", "database", cfg.Mongo.Database)
	}

	notifier, closeNotifier, err := notify.New(cfg, log)
	if err != nil {
		return err
	}
	defer closeNotifier()
	dispatcher := notify.NewDispatcher(notifier, log.With("component", "notify"), m)
	defer dispatcher.Wait()

	photos, err := storage.New(ctx, cfg)
	if err != nil {
		return err
	}

	jwt := tokens.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTTL)

	messagingSvc := messaging.NewMessagingService(appCtx, messages, nil)
	hub := relay.NewHub(appCtx, messagingSvc, cfg.Relay.PresenceTTL)
	messagingSvc.SetRelay(hub)

	services := httptransport.Services{
		Auth: authsvc.NewAuthService(appCtx, jwt, dispatcher, authsvc.Options{
			VerificationTTL: cfg.Auth.VerificationTTL,
			ResetTTL:        cfg.Auth.ResetTTL,
		}),
		Profile:   profile.NewProfileService(appCtx, photos),
		Interest:  interest.NewInterestService(appCtx, dispatcher),
		Shortlist: shortlist.NewShortlistService(appCtx),
		Messaging: messagingSvc,
		Admin:     admin.NewAdminService(appCtx, messages, photos),
	}

	healthChecks := server.NewHealthRegistrar(log.With("component", "health"), map[string]server.Check{
		"db":    sqlDB.PingContext,
		"redis": redisCache.Ping,
	})

	handler := httptransport.NewRouter(httptransport.NewHandler(appCtx, jwt, services, hub, httptransport.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		WriteTimeout:   cfg.Relay.WriteTimeout,
		PongWait:       cfg.Relay.PongWait,
		MetricsHandler: promhttp.Handler(),
		Health:         healthChecks.Snapshot,
	}))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return healthChecks.Run(gctx, 15*time.Second)
	})
	g.Go(func() error {
		log.Info("starting HTTP server", "addr", cfg.HTTP.Host+":"+cfg.HTTP.Port)
		return server.StartHTTPServer(gctx, cfg, handler, 15*time.Second)
	})
	g.Go(func() error {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		return server.StartGRPCServer(gctx, cfg, healthChecks)
	})
	g.Go(func() error {
		<-gctx.Done()
		// live sessions are hijacked connections that HTTP shutdown does not close
		hub.CloseAll()
		return nil
	})

	return g.Wait()
}
