package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ims-service/internal/api/http"
	"github.com/spec-kit/ims-service/internal/api/http/handlers"
	"github.com/spec-kit/ims-service/internal/auth"
	"github.com/spec-kit/ims-service/internal/config"
	"github.com/spec-kit/ims-service/internal/events"
	"github.com/spec-kit/ims-service/internal/observability"
	"github.com/spec-kit/ims-service/internal/persistence"
	"github.com/spec-kit/ims-service/internal/repository"
	"github.com/spec-kit/ims-service/internal/repository/memory"
	"github.com/spec-kit/ims-service/internal/service"
	"github.com/spec-kit/ims-service/internal/storage"
	"github.com/spec-kit/ims-service/internal/worker"
)

type repositories struct {
	accounts repository.AccountRepository
	roles    repository.RoleRepository
	classes  repository.ClassRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Auth.InsecureSecret {
		logger.Warn("JWT_SECRET not set; signing tokens with the insecure development secret")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	repos := buildRepositories(pg, logger)
	metrics := observability.NewMetrics()

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartNotificationWorker(dispatcher, cfg.Notification, logger)

	var uploader service.AssetUploader
	assets, err := storage.NewCloudinary(cfg.Assets, logger)
	switch {
	case err == nil:
		uploader = assets
		reconciler := worker.NewAssetReconciler(*cfg, assets, repos.accounts, metrics, logger)
		go reconciler.Run(ctx)
	case errors.Is(err, storage.ErrNotConfigured):
		logger.Warn("cloudinary credentials not set; avatar uploads disabled")
	default:
		logger.Fatal("failed to init asset store", zap.Error(err))
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret)
	authService, err := service.NewAuthService(*cfg, repos.accounts, tokens, metrics, logger)
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}
	registrationService := service.NewRegistrationService(*cfg, service.RegistrationDependencies{
		Accounts:   repos.accounts,
		Roles:      repos.roles,
		Assets:     uploader,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	}, logger)
	roleService := service.NewRoleService(repos.roles, repos.classes, redis.RoleCache(), logger)

	var checks []handlers.DependencyCheck
	if pg.PoolHandle() != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "postgres", Ping: pg.Ping})
	}
	if redis.Client != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Ping: redis.Ping})
	}

	app := httptransport.NewServer(*cfg, logger, metrics)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks...),
		Auth:           handlers.NewAuthHandler(authService),
		Registration:   handlers.NewRegistrationHandler(registrationService, cfg.Upload.MaxBytes),
		Roles:          handlers.NewRolesHandler(roleService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
		RateLimit:      cfg.RateLimit,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

// buildRepositories uses Postgres when a pool is available and the process-local store
// otherwise, so the service can run without DATABASE_URL during development.
func buildRepositories(pg *persistence.Postgres, logger *zap.Logger) repositories {
	if pool := pg.PoolHandle(); pool != nil {
		return repositories{
			accounts: repository.NewAccountRepository(pool),
			roles:    repository.NewRoleRepository(pool),
			classes:  repository.NewClassRepository(pool),
		}
	}

	logger.Warn("using in-memory store; data is lost on restart")
	store := memory.NewStore().SeedRoles().SeedClasses()
	return repositories{
		accounts: store.Accounts(),
		roles:    store.Roles(),
		classes:  store.Classes(),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
