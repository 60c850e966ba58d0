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
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/waste-mgmt-api/api/swagger"
	"github.com/noah-isme/waste-mgmt-api/internal/handler"
	internalmiddleware "github.com/noah-isme/waste-mgmt-api/internal/middleware"
	"github.com/noah-isme/waste-mgmt-api/internal/repository"
	"github.com/noah-isme/waste-mgmt-api/internal/service"
	"github.com/noah-isme/waste-mgmt-api/pkg/cache"
	"github.com/noah-isme/waste-mgmt-api/pkg/config"
	"github.com/noah-isme/waste-mgmt-api/pkg/database"
	"github.com/noah-isme/waste-mgmt-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/waste-mgmt-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/waste-mgmt-api/pkg/middleware/requestid"
	"github.com/noah-isme/waste-mgmt-api/pkg/notify"
	"github.com/noah-isme/waste-mgmt-api/pkg/storage"
)

// @title Waste Management API
// @version 1.0.0
// @description Municipal waste collection backend: districts, truck drivers, waste categories, pickup requests and payments.
// @BasePath /api/v1
// @schemes http https
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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	validate := validator.New()

	var cacheStore service.CacheStore
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		defer client.Close() //nolint:errcheck
		cacheStore = repository.NewCacheRepository(client, logr)
	}
	cacheSvc := service.NewCacheService(cacheStore, metrics, service.CacheConfig{
		Namespace:  cfg.Cache.Namespace,
		DefaultTTL: cfg.Cache.CategoryTTL,
	}, logr)

	uow := service.NewSQLUnitOfWork(db, metrics)
	relations := service.NewRelationshipService(logr)

	images, err := storage.NewLocalStorage(cfg.Storage.BaseDir, cfg.Storage.MaxFileSizeBytes, cfg.Storage.AllowedMIMEs)
	if err != nil {
		logr.Fatal("failed to init image storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	location, err := time.LoadLocation(cfg.Reports.Timezone)
	if err != nil {
		logr.Warn("unknown report timezone, using UTC", zap.String("timezone", cfg.Reports.Timezone))
		location = time.UTC
	}

	userRepo := repository.NewUserRepository(db)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	districtSvc := service.NewDistrictService(uow, relations, validate, logr)
	driverSvc := service.NewDriverService(uow, relations, images, signer, validate, logr)
	categorySvc := service.NewWasteCategoryService(uow, cacheSvc, cfg.Cache.CategoryTTL, validate, logr)
	requestSvc := service.NewWasteRequestService(uow, relations, metrics, validate, logr, service.WasteRequestConfig{
		MinLeadTime: cfg.Requests.MinLeadTime,
	})
	paymentSvc := service.NewPaymentService(uow, metrics, validate, logr)
	reportSvc := service.NewReportService(repository.NewReportRepository(db), nil, nil, cacheSvc, metrics, logr, service.ReportConfig{
		Title:    cfg.Reports.Title,
		MaxRows:  cfg.Reports.MaxRows,
		Location: location,
		CacheTTL: cfg.Cache.ReportTTL,
	})

	if cfg.Outbox.Enabled {
		dispatcher, err := newDispatcher(ctx, cfg, db, uow, metrics, logr)
		if err != nil {
			logr.Fatal("failed to init event dispatcher", zap.Error(err))
		}
		go dispatcher.Run(ctx)
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

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())
	handler.RegisterRoutes(api, handler.Handlers{
		Auth:            handler.NewAuthHandler(authSvc),
		Users:           handler.NewUserHandler(userSvc),
		Districts:       handler.NewDistrictHandler(districtSvc),
		Drivers:         handler.NewDriverHandler(driverSvc),
		WasteCategories: handler.NewWasteCategoryHandler(categorySvc),
		WasteRequests:   handler.NewWasteRequestHandler(requestSvc),
		Payments:        handler.NewPaymentHandler(paymentSvc),
		Reports:         handler.NewReportHandler(reportSvc),
		Metrics:         metricsHandler,
	}, internalmiddleware.JWT(authSvc))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newDispatcher(ctx context.Context, cfg *config.Config, db sqlx.ExtContext, uow service.UnitOfWork, metrics *service.MetricsService, logr *zap.Logger) (*service.EventDispatcher, error) {
	renderer, err := notify.NewRenderer()
	if err != nil {
		return nil, err
	}
	senders := map[notify.Channel]notify.Notifier{}
	if email := notify.NewEmailSender(cfg.SMTP, renderer); email != nil {
		senders[notify.ChannelEmail] = email
	}
	sms, err := notify.NewSMSSender(ctx, cfg.SMS, renderer)
	if err != nil {
		return nil, err
	}
	if sms != nil {
		senders[notify.ChannelSMS] = sms
	}

	return service.NewEventDispatcher(repository.NewOutboxRepository(db), uow, notify.NewRouter(senders), metrics, logr, service.DispatcherConfig{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		Workers:      cfg.Outbox.Workers,
		MaxAttempts:  cfg.Outbox.MaxRetries,
		SendTimeout:  cfg.Outbox.SendTimeout,
	}), nil
}
