package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/publora/platform/backend/services/social-service/internal/config"
	"github.com/publora/platform/backend/services/social-service/internal/events"
	"github.com/publora/platform/backend/services/social-service/internal/events/kafka"
	httpHandler "github.com/publora/platform/backend/services/social-service/internal/handler/http"
	"github.com/publora/platform/backend/services/social-service/internal/infrastructure/cache"
	"github.com/publora/platform/backend/services/social-service/internal/infrastructure/database"
	"github.com/publora/platform/backend/services/social-service/internal/infrastructure/database/postgres"
	"github.com/publora/platform/backend/services/social-service/internal/infrastructure/media"
	"github.com/publora/platform/backend/services/social-service/internal/oauthstate"
	"github.com/publora/platform/backend/services/social-service/internal/platform"
	"github.com/publora/platform/backend/services/social-service/internal/platform/facebook"
	"github.com/publora/platform/backend/services/social-service/internal/platform/instagram"
	"github.com/publora/platform/backend/services/social-service/internal/platform/linkedin"
	"github.com/publora/platform/backend/services/social-service/internal/platform/pinterest"
	"github.com/publora/platform/backend/services/social-service/internal/platform/tiktok"
	"github.com/publora/platform/backend/services/social-service/internal/platform/x"
	"github.com/publora/platform/backend/services/social-service/internal/platform/youtube"
	"github.com/publora/platform/backend/services/social-service/internal/service"
	"github.com/publora/platform/backend/services/social-service/internal/utils/logger"
	"github.com/publora/platform/backend/services/social-service/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if cfg.Database.AutoMigrate {
		log.Info("Running database migrations")
		if err := migrations.Run(cfg.Database, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	ctx := context.Background()
	dbPool, err := postgres.NewDBPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize PostgreSQL connection pool", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient, err := cache.NewRedisClient(
		fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to initialize Redis client", zap.Error(err))
	}
	defer redisClient.Close()
	brandCache := cache.NewBrandCache(redisClient, log)

	var emitter events.ActivityEmitter = events.NoopEmitter{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ActivityTopic, log, cfg.Kafka.CloudEventSource)
		if err != nil {
			log.Fatal("Failed to initialize Kafka producer", zap.Error(err))
		}
		defer producer.Close()
		emitter = producer
	} else {
		log.Warn("Kafka disabled, activity events will be discarded")
	}

	registry := newPlatformRegistry(cfg.Platforms, log)
	stateCodec := oauthstate.NewCodec(cfg.OAuth.StateSecret, cfg.OAuth.StateTTL)

	accountRepo := database.NewPgxConnectedAccountRepository(dbPool)
	brandRepo := database.NewPgxBrandRepository(dbPool)
	workspaceRepo := database.NewPgxWorkspaceRepository(dbPool)
	pendingRepo := database.NewPgxPendingSelectionRepository(dbPool)

	mediaResolver := media.NewHTTPResolver(cfg.Publish.MediaBaseURL, log)

	reconciliationService := service.NewReconciliationService(
		accountRepo, brandRepo, workspaceRepo, brandCache, emitter, log)
	connectService := service.NewConnectService(
		registry, stateCodec, reconciliationService, pendingRepo, brandRepo, cfg.OAuth, log)
	selectionService := service.NewSelectionService(pendingRepo, reconciliationService, log)
	accountService := service.NewAccountService(
		accountRepo, brandRepo, registry, brandCache, emitter, log)
	publishService := service.NewPublishService(
		accountRepo, brandRepo, registry, mediaResolver, emitter, cfg.Publish.RequestTimeout, log)

	router := httpHandler.NewRouter(httpHandler.RouterDeps{
		Social:  httpHandler.NewSocialHandler(connectService, selectionService, log),
		Account: httpHandler.NewAccountHandler(accountService, log),
		Publish: httpHandler.NewPublishHandler(publishService, log),
		Health: httpHandler.NewHealthHandler(log,
			httpHandler.HealthChecker{Name: "postgres", Check: dbPool.Ping},
			httpHandler.HealthChecker{Name: "redis", Check: redisPing(redisClient)},
		),
		Logger: log,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited properly")
}

// newPlatformRegistry registers a client for every platform with
// configured credentials. Platforms without a client id stay
// unregistered and resolve to unsupported at request time.
func newPlatformRegistry(cfg config.PlatformsConfig, log *zap.Logger) *platform.Registry {
	registry := platform.NewRegistry()
	register := func(name string, creds config.PlatformCredentials, build func(platform.Credentials, *zap.Logger) platform.Client) {
		if creds.ClientID == "" {
			log.Warn("Platform credentials missing, platform disabled", zap.String("platform", name))
			return
		}
		registry.Register(build(platform.Credentials{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURI:  creds.RedirectURI,
			Scopes:       creds.Scopes,
		}, log))
	}

	register("facebook", cfg.Facebook, func(c platform.Credentials, l *zap.Logger) platform.Client {
		return facebook.NewClient(c, l)
	})
	register("instagram", cfg.Instagram, func(c platform.Credentials, l *zap.Logger) platform.Client {
		return instagram.NewClient(c, l)
	})
	register("linkedin", cfg.LinkedIn, func(c platform.Credentials, l *zap.Logger) platform.Client {
		return linkedin.NewClient(c, l)
	})
	register("tiktok", cfg.TikTok, func(c platform.Credentials, l *zap.Logger) platform.Client {
		return tiktok.NewClient(c, l)
	})
	register("pinterest", cfg.Pinterest, func(c platform.Credentials, l *zap.Logger) platform.Client {
		return pinterest.NewClient(c, l)
	})
	register("x", cfg.X, func(c platform.Credentials, l *zap.Logger) platform.Client {
		return x.NewClient(c, l)
	})
	register("youtube", cfg.YouTube, func(c platform.Credentials, l *zap.Logger) platform.Client {
		return youtube.NewClient(c, l)
	})
	return registry
}

func redisPing(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
