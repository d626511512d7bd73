package routes

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"site-entry/internal/controllers"
	"site-entry/internal/repositories"
	"site-entry/internal/services"
	"site-entry/pkg/config"
	"site-entry/pkg/eventbus"
	"site-entry/pkg/filestorage"
	"site-entry/pkg/metrics"
	"site-entry/pkg/middleware"
	"site-entry/pkg/service"
	"site-entry/pkg/websocket"
)

// Dependencies are the long-lived resources main opens before routing.
type Dependencies struct {
	DB      *pgxpool.Pool
	Redis   *redis.Client
	JWT     service.JWTService
	Storage filestorage.FileStorage
	Bus     *eventbus.Bus
	Hub     *websocket.Hub
	Metrics *metrics.Metrics
	Config  *config.Config
	Logger  *zap.Logger
}

// Handlers holds every controller the router mounts.
type Handlers struct {
	EntryRequests *controllers.EntryRequestController
	Compliance    *controllers.ComplianceController
	Deployments   *controllers.DeploymentController
	WebSocket     *controllers.WebSocketController
	Health        *controllers.HealthController
}

// InitRouter builds repositories, services and controllers over deps and
// mounts them on e.
func InitRouter(e *echo.Echo, deps Dependencies) {
	logger := deps.Logger
	logger.Info("InitRouter: building routes")

	timeout := deps.Config.Server.RequestTimeout

	// --- 1. repositories ---
	txManager := repositories.NewTxManager(deps.DB)
	entryRequestRepo := repositories.NewEntryRequestRepository(deps.DB, logger)
	resourceRepo := repositories.NewResourceRepository(deps.DB, logger)
	documentRepo := repositories.NewDocumentRepository(deps.DB)
	deploymentRepo := repositories.NewDeploymentRepository(deps.DB, logger)
	sequenceRepo := repositories.NewSequenceRepository(repositories.NewRedisCacheRepository(deps.Redis))

	// --- 2. services ---
	notifier := services.NewNotificationService(deps.Bus, deps.Metrics, logger)
	complianceService := services.NewComplianceService(resourceRepo, documentRepo, deps.Metrics, logger)
	deploymentService := services.NewDeploymentService(
		txManager, deploymentRepo, entryRequestRepo, resourceRepo, complianceService, notifier, deps.Metrics, logger,
	)
	entryRequestService := services.NewEntryRequestService(
		txManager, entryRequestRepo, resourceRepo, sequenceRepo, complianceService,
		deploymentService, deps.Storage, notifier, deps.Metrics, logger,
	)
	reportService := services.NewDeploymentReportService(deploymentService, logger)

	// --- 3. controllers ---
	handlers := Handlers{
		EntryRequests: controllers.NewEntryRequestController(entryRequestService, timeout, logger),
		Compliance:    controllers.NewComplianceController(complianceService, timeout, logger),
		Deployments:   controllers.NewDeploymentController(deploymentService, reportService, timeout, logger),
		WebSocket:     controllers.NewWebSocketController(deps.Hub, deps.Config.Server.AllowedOrigins, logger),
		Health: controllers.NewHealthController(map[string]controllers.HealthCheck{
			"postgres": deps.DB.Ping,
			"redis": func(ctx context.Context) error {
				return deps.Redis.Ping(ctx).Err()
			},
		}, logger),
	}

	Mount(e, handlers, middleware.NewAuthMiddleware(deps.JWT, logger), deps.Metrics)
	logger.Info("InitRouter: routes ready")
}

// Mount registers the HTTP surface.
func Mount(e *echo.Echo, h Handlers, authMW *middleware.AuthMiddleware, m *metrics.Metrics) {
	e.GET("/health", h.Health.Health)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	e.GET("/ws", h.WebSocket.ServeWs, authMW.Auth)

	secureGroup := e.Group("/api", authMW.Auth)
	runEntryRequestRouter(secureGroup, h.EntryRequests)
	runComplianceRouter(secureGroup, h.Compliance)
	runDeploymentRouter(secureGroup, h.Deployments)
}
