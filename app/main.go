package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"site-entry/internal/listeners"
	"site-entry/internal/routes"
	"site-entry/pkg/api"
	"site-entry/pkg/config"
	"site-entry/pkg/database/migrations"
	"site-entry/pkg/database/postgresql"
	apperrors "site-entry/pkg/errors"
	"site-entry/pkg/eventbus"
	"site-entry/pkg/filestorage"
	applogger "site-entry/pkg/logger"
	"site-entry/pkg/metrics"
	"site-entry/pkg/middleware"
	"site-entry/pkg/service"
	"site-entry/pkg/validation"
	"site-entry/pkg/websocket"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. config and logger
	cfg := config.New()
	logger := applogger.NewLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	// 2. storage backends
	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbConn.Close()

	if cfg.Postgres.RunMigrations {
		if err := migrations.Up(ctx, dbConn, logger); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err), zap.String("address", cfg.Redis.Address))
	}

	files, err := filestorage.New(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to initialise file storage", zap.Error(err))
	}

	// 3. notifications: event bus fanned out to websocket clients
	bus := eventbus.New(logger)
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)
	listeners.NewNotificationListener(hub, logger).Register(bus)
	listeners.NewAuditListener(logger).Register(bus)

	// 4. http server
	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic while handling request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "internal server error", err, nil)
				_ = api.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition},
	}))
	e.Use(middleware.InjectLogger(logger))

	if cfg.Storage.Driver == "" || cfg.Storage.Driver == "local" {
		e.Static("/uploads", cfg.Storage.BasePath)
	}

	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL, logger)

	routes.InitRouter(e, routes.Dependencies{
		DB:      dbConn,
		Redis:   redisClient,
		JWT:     jwtSvc,
		Storage: files,
		Bus:     bus,
		Hub:     hub,
		Metrics: metrics.New(cfg.Metrics),
		Config:  cfg,
		Logger:  logger,
	})

	// 5. run until signalled
	go func() {
		logger.Info("server started", zap.String("port", cfg.Server.Port), zap.Bool("tls", cfg.Server.TLS.Enabled()))
		if err := start(e, cfg.Server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped unexpectedly", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	bus.Wait()
}

// start serves plain HTTP, HTTPS from a certificate pair, or HTTPS with
// certificates obtained through ACME.
func start(e *echo.Echo, cfg config.ServerConfig) error {
	addr := ":" + cfg.Port
	switch {
	case len(cfg.TLS.AutoTLSHosts) > 0:
		e.AutoTLSManager.HostPolicy = autocert.HostWhitelist(cfg.TLS.AutoTLSHosts...)
		e.AutoTLSManager.Cache = autocert.DirCache(cfg.TLS.AutoTLSCacheDir)
		return e.StartAutoTLS(addr)
	case cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "":
		return e.StartTLS(addr, cfg.TLS.CertFile, cfg.TLS.KeyFile)
	}
	return e.Start(addr)
}
