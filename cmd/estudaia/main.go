package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/estudaia-api/api/swagger"
	"github.com/noah-isme/estudaia-api/internal/handler"
	internalmiddleware "github.com/noah-isme/estudaia-api/internal/middleware"
	"github.com/noah-isme/estudaia-api/internal/repository"
	"github.com/noah-isme/estudaia-api/internal/service"
	"github.com/noah-isme/estudaia-api/pkg/config"
	"github.com/noah-isme/estudaia-api/pkg/database"
	"github.com/noah-isme/estudaia-api/pkg/kv"
	"github.com/noah-isme/estudaia-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/estudaia-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/estudaia-api/pkg/middleware/requestid"
	"github.com/noah-isme/estudaia-api/pkg/relay"
	"github.com/noah-isme/estudaia-api/pkg/supabase"
)

// @title Estuda.ia API
// @version 0.1.0
// @description Session, catalog and chat relay surface for the Estuda.ia study assistant
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 10 * time.Second

// backends is whatever the selected operating mode wired up.
type backends struct {
	auth    service.AuthBackend
	catalog service.CatalogStore
	closers []func() error
}

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

	store, err := kv.Open(ctx, cfg)
	if err != nil {
		logr.Fatal("failed to open local store", zap.String("driver", cfg.LocalStore.Driver), zap.Error(err))
	}
	defer store.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var wired *backends
	if cfg.RemoteConfigured() {
		wired, err = wireRemote(ctx, cfg, store, metrics, logr)
	} else {
		logr.Info("supabase settings absent, running in local-mock mode")
		wired = wireLocal(cfg, store, logr)
	}
	if err != nil {
		logr.Fatal("failed to wire backend", zap.Error(err))
	}
	defer func() {
		for _, closeFn := range wired.closers {
			if err := closeFn(); err != nil {
				logr.Warn("close backend resource", zap.Error(err))
			}
		}
	}()

	var ready atomic.Bool
	sessions := service.NewSessionManager(wired.auth, metrics, logr)
	if err := sessions.Start(ctx); err != nil {
		logr.Fatal("failed to start session manager", zap.Error(err))
	}
	defer sessions.Close()
	ready.Store(true)

	validate := validator.New()
	catalogSvc := service.NewCatalogService(wired.catalog, validate, logr)
	relayClient := relay.NewClient(cfg.Chat.WebhookURL, nil, logr)
	if !relayClient.Configured() {
		logr.Warn("chat webhook url is not set, chat turns will fail")
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	handler.RegisterOps(r, handler.NewMetricsHandler(metrics, sessions.Mode(), ready.Load), cfg.Metrics.Enabled)
	handler.RegisterRoutes(r.Group(cfg.APIPrefix), sessions, handler.Handlers{
		Auth:        handler.NewAuthHandler(sessions, validate),
		Courses:     handler.NewCourseHandler(catalogSvc),
		Disciplines: handler.NewDisciplineHandler(catalogSvc),
		Chat:        handler.NewChatHandler(service.NewChatService(relayClient, metrics, logr)),
		Export:      handler.NewExportHandler(service.NewExportService(wired.catalog, logr, nil, nil)),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "mode", sessions.Mode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func wireLocal(cfg *config.Config, store kv.Store, logr *zap.Logger) *backends {
	accounts := repository.NewLocalAccountRepository(store, logr)
	auth := service.NewLocalAuthBackend(accounts, service.LocalAuthConfig{
		AdminEmail:    cfg.MockAuth.AdminEmail,
		AdminPassword: cfg.MockAuth.AdminPassword,
		AdminName:     cfg.MockAuth.AdminName,
	}, logr)
	return &backends{
		auth:    auth,
		catalog: repository.NewLocalCatalogRepository(store, logr),
	}
}

func wireRemote(ctx context.Context, cfg *config.Config, store kv.Store, metrics *service.MetricsService, logr *zap.Logger) (*backends, error) {
	client, err := supabase.NewClient(supabase.Config{
		URL:           cfg.Supabase.URL,
		AnonKey:       cfg.Supabase.AnonKey,
		Storage:       repository.NewKVSessionStorage(store, logr),
		RefreshLeeway: cfg.Supabase.RefreshLeeway,
		Logger:        logr,
	})
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}

	wired := &backends{}
	var profiles service.ProfileStore
	var catalog service.CatalogStore
	switch cfg.Supabase.TablesDriver {
	case config.TablesDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		wired.closers = append(wired.closers, db.Close)
		profiles = repository.NewPostgresProfileRepository(db)
		catalog = repository.NewPostgresCatalogRepository(db, cfg.Catalog.Order)
	default:
		profiles = repository.NewRESTProfileRepository(client)
		catalog = repository.NewRESTCatalogRepository(client, cfg.Catalog.Order)
	}

	gateway := service.NewRemoteGateway(client.Auth, profiles, catalog, metrics, logr)
	client.Auth.StartAutoRefresh(ctx)

	wired.auth = service.NewRemoteAuthBackend(client.Auth, gateway, logr)
	wired.catalog = gateway
	logr.Info("running in remote mode", zap.String("tables_driver", cfg.Supabase.TablesDriver))
	return wired, nil
}
