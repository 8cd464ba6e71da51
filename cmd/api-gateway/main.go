package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-leave-api/api/swagger"
	"github.com/noah-isme/sma-leave-api/internal/handler"
	"github.com/noah-isme/sma-leave-api/internal/middleware"
	"github.com/noah-isme/sma-leave-api/internal/models"
	"github.com/noah-isme/sma-leave-api/internal/repository"
	"github.com/noah-isme/sma-leave-api/internal/service"
	"github.com/noah-isme/sma-leave-api/pkg/cache"
	"github.com/noah-isme/sma-leave-api/pkg/config"
	"github.com/noah-isme/sma-leave-api/pkg/database"
	"github.com/noah-isme/sma-leave-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-leave-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-leave-api/pkg/middleware/requestid"
)

// @title SMA Leave API
// @version 1.0.0
// @description Two-stage leave request approval for students, teachers and admins
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, checks, closeStore, err := openStore(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore()

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	validate := validator.New()
	directory := service.NewDirectoryService(store, validate, logr)
	if err := directory.Restore(ctx); err != nil {
		logr.Fatal("failed to restore directory", zap.Error(err))
	}
	if err := bootstrapUsers(ctx, cfg.Bootstrap, directory, logr); err != nil {
		logr.Fatal("failed to bootstrap users", zap.Error(err))
	}

	sessions := service.NewSessionService(directory, store, validate, logr, service.SessionConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
	})
	engine := service.NewLeaveEngine(directory, store, logr, service.WithLeaveMetrics(metrics))
	if err := engine.Restore(ctx); err != nil {
		logr.Fatal("failed to restore leave ledger", zap.Error(err))
	}
	exporter := service.NewLeaveExportService(engine, logr, nil, nil)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, middleware.ContextUserKey))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	ops := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", ops.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Routes{
		Auth:         handler.NewAuthHandler(directory, sessions),
		Directory:    handler.NewDirectoryHandler(directory),
		Leave:        handler.NewLeaveHandler(engine, exporter),
		Authenticate: middleware.JWT(sessions),
	}.Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (service.Store, map[string]handler.ReadinessCheck, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		store := repository.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
		return store, checks, func() { _ = db.Close() }, nil
	case config.StoreDriverRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		checks := map[string]handler.ReadinessCheck{"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() }}
		return repository.NewRedisStore(client, cfg.Redis.KeyPrefix, logr), checks, func() { _ = client.Close() }, nil
	default:
		logr.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), nil, func() {}, nil
	}
}

func bootstrapUsers(ctx context.Context, cfg config.BootstrapConfig, directory *service.DirectoryService, logr *zap.Logger) error {
	var seeds []config.SeedUser
	if cfg.AdminUsername != "" {
		seeds = append(seeds, config.SeedUser{Username: cfg.AdminUsername, Password: cfg.AdminPassword, Role: string(models.RoleAdmin)})
	}
	if cfg.SeedFile != "" {
		fromFile, err := config.LoadSeedUsers(cfg.SeedFile)
		if err != nil {
			return err
		}
		seeds = append(seeds, fromFile...)
	}

	for _, seed := range seeds {
		role, err := models.ParseUserRole(seed.Role)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", seed.Username, err)
		}
		created, err := directory.EnsureUser(ctx, seed.Username, seed.Password, role)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", seed.Username, err)
		}
		if created {
			logr.Info("bootstrap user created", zap.String("username", seed.Username), zap.String("role", string(role)))
		}
	}
	return nil
}
