package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/smap-labs/smap-compliance-api/api/swagger"
	"github.com/smap-labs/smap-compliance-api/internal/handler"
	"github.com/smap-labs/smap-compliance-api/internal/middleware"
	"github.com/smap-labs/smap-compliance-api/internal/models"
	"github.com/smap-labs/smap-compliance-api/internal/repository"
	"github.com/smap-labs/smap-compliance-api/internal/service"
	"github.com/smap-labs/smap-compliance-api/pkg/cache"
	"github.com/smap-labs/smap-compliance-api/pkg/config"
	"github.com/smap-labs/smap-compliance-api/pkg/database"
	"github.com/smap-labs/smap-compliance-api/pkg/jobs"
	"github.com/smap-labs/smap-compliance-api/pkg/kvstore"
	"github.com/smap-labs/smap-compliance-api/pkg/logger"
	corsmiddleware "github.com/smap-labs/smap-compliance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/smap-labs/smap-compliance-api/pkg/middleware/requestid"
)

// @title SMAP Compliance API
// @version 0.1.0
// @description Compliance document, approval, sync, and risk register service
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var store kvstore.Store
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, falling back to in-memory store", "error", err)
		store = kvstore.NewMemoryStore()
	} else {
		defer redisClient.Close()
		store = kvstore.NewRedisStore(redisClient, "smap")
	}

	documentRepo := repository.NewDocumentRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	versionRepo := repository.NewVersionRepository(store)
	revisionRepo := repository.NewRevisionRepository(store)
	workflowRepo := repository.NewWorkflowRepository(store)
	syncRepo := repository.NewSyncRepository(store)
	riskRepo := repository.NewRiskRepository(store)
	notificationRepo := repository.NewNotificationRepository(store)

	metricsSvc := service.NewMetricsService()
	notificationSvc := service.NewNotificationService(notificationRepo, cfg.Notifications.Enabled, logr)
	authSvc := service.NewAuthService(userRepo, auditRepo, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	documentSvc := service.NewDocumentService(documentRepo, auditRepo, nil, logr)
	versionSvc := service.NewVersionService(versionRepo, documentRepo, auditRepo, logr)
	revisionSvc := service.NewRevisionService(revisionRepo, auditRepo, nil, logr)
	approvalSvc := service.NewApprovalService(workflowRepo, logr,
		service.WithWorkflowEventHandlers(service.NewDocumentStatusUpdater(documentRepo)),
		service.WithApprovalNotifier(notificationSvc),
		service.WithApprovalAudit(auditRepo),
		service.WithApprovalMetrics(metricsSvc),
	)
	riskSvc := service.NewRiskService(riskRepo, auditRepo, nil, logr, cfg.Risks.TopRiskCount)

	appliers := map[models.SyncEntity]service.SyncApplier{
		models.SyncEntityDocument: service.NewDocumentSyncApplier(documentRepo, logr),
		models.SyncEntityRisk:     service.NewRiskSyncApplier(riskRepo, logr),
	}
	if cfg.Sync.RemoteBaseURL != "" {
		remote := service.NewRemoteSyncApplier(cfg.Sync.RemoteBaseURL, nil, logr)
		appliers[models.SyncEntityAssessment] = remote
		appliers[models.SyncEntityAudit] = remote
		appliers[models.SyncEntityUser] = remote
	}
	syncSvc := service.NewSyncService(syncRepo, logr,
		service.WithSyncAppliers(appliers),
		service.WithSyncMetrics(metricsSvc),
		service.WithSyncAudit(auditRepo),
	)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc, versionSvc)
	revisionHandler := handler.NewRevisionHandler(revisionSvc)
	approvalHandler := handler.NewApprovalHandler(approvalSvc)
	riskHandler := handler.NewRiskHandler(riskSvc, nil)
	if cfg.Risks.ExportEnabled {
		riskHandler = handler.NewRiskHandler(riskSvc, service.NewReportService(riskSvc, logr))
	}
	syncHandler := handler.NewSyncHandler(syncSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("", middleware.JWT(authSvc))
	authed.GET("/auth/profile", authHandler.Profile)

	authed.POST("/documents", documentHandler.Create)
	authed.GET("/documents", documentHandler.List)
	authed.GET("/documents/:id", documentHandler.Get)
	authed.PATCH("/documents/:id", documentHandler.Update)
	authed.DELETE("/documents/:id",
		middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), documentHandler.Delete)

	authed.POST("/documents/:id/versions", documentHandler.CreateVersion)
	authed.GET("/documents/:id/versions", documentHandler.ListVersions)
	authed.GET("/documents/:id/versions/:number", documentHandler.GetVersion)

	authed.POST("/documents/:id/revisions", revisionHandler.Create)
	authed.GET("/documents/:id/revisions", revisionHandler.List)
	authed.GET("/documents/:id/revisions/compare", revisionHandler.Compare)
	authed.GET("/documents/:id/revisions/:revisionId", revisionHandler.Get)
	authed.PUT("/documents/:id/revisions/:revisionId/status", revisionHandler.UpdateStatus)
	authed.POST("/documents/:id/revisions/:revisionId/comments", revisionHandler.AddComment)
	authed.POST("/documents/:id/revisions/:revisionId/comments/:commentId/resolve", revisionHandler.ResolveComment)

	authed.POST("/documents/:id/workflow", approvalHandler.Create)
	authed.GET("/documents/:id/workflow", approvalHandler.Get)
	authed.POST("/documents/:id/workflow/steps/:stepId/approve", approvalHandler.Approve)
	authed.POST("/documents/:id/workflow/steps/:stepId/reject", approvalHandler.Reject)

	authed.POST("/risks", riskHandler.Create)
	authed.GET("/risks", riskHandler.List)
	authed.GET("/risks/report", riskHandler.Report)
	authed.GET("/risks/export", riskHandler.Export)
	authed.GET("/risks/:id", riskHandler.Get)
	authed.PATCH("/risks/:id", riskHandler.Update)
	authed.DELETE("/risks/:id",
		middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), riskHandler.Delete)
	authed.POST("/risks/:id/assessments", riskHandler.AddAssessment)
	authed.POST("/risks/:id/mitigations", riskHandler.AddMitigation)
	authed.PATCH("/risks/:id/mitigations/:mitigationId", riskHandler.UpdateMitigation)

	authed.POST("/sync/queue", syncHandler.Enqueue)
	authed.GET("/sync/queue", syncHandler.Pending)
	authed.POST("/sync/queue/:id/synced", syncHandler.MarkSynced)
	authed.POST("/sync/drain", syncHandler.Drain)

	authed.POST("/notifications",
		middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), notificationHandler.Create)
	authed.GET("/notifications", notificationHandler.List)
	authed.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
	authed.POST("/notifications/:id/read", notificationHandler.MarkAsRead)
	authed.DELETE("/notifications/:id", notificationHandler.Delete)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Sync.Enabled {
		startDrainLoop(ctx, cfg.Sync.DrainInterval, syncSvc, logr)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// startDrainLoop schedules periodic queue drains through the jobs worker
// pool so drain work never runs on a request goroutine.
func startDrainLoop(ctx context.Context, interval time.Duration, syncSvc *service.SyncService, logr *zap.Logger) {
	queue := jobs.NewQueue("sync-drain", func(ctx context.Context, job jobs.Job) error {
		result, err := syncSvc.DrainAll(ctx)
		if err != nil {
			return err
		}
		if result.Synced > 0 || result.Failed > 0 {
			logr.Sugar().Infow("sync queue drained",
				"synced", result.Synced, "failed", result.Failed, "success", result.Success)
		}
		return nil
	}, jobs.QueueConfig{Workers: 1, BufferSize: 1, Logger: logr})
	queue.Start(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				queue.Stop()
				return
			case <-ticker.C:
				// Drop the tick when a drain is still running.
				if _, err := queue.TryEnqueue(jobs.Job{Type: "drain"}); err != nil {
					logr.Sugar().Warnw("failed to schedule sync drain", "error", err)
				}
			}
		}
	}()
}
