package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/fieldtrack/practicum-api/api/swagger"
	"github.com/fieldtrack/practicum-api/internal/handler"
	"github.com/fieldtrack/practicum-api/internal/middleware"
	"github.com/fieldtrack/practicum-api/internal/models"
	"github.com/fieldtrack/practicum-api/internal/repository"
	"github.com/fieldtrack/practicum-api/internal/service"
	"github.com/fieldtrack/practicum-api/pkg/cache"
	"github.com/fieldtrack/practicum-api/pkg/config"
	"github.com/fieldtrack/practicum-api/pkg/database"
	"github.com/fieldtrack/practicum-api/pkg/jobs"
	"github.com/fieldtrack/practicum-api/pkg/logger"
	corsmiddleware "github.com/fieldtrack/practicum-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fieldtrack/practicum-api/pkg/middleware/requestid"
	"github.com/fieldtrack/practicum-api/pkg/token"
)

// @title Practicum API
// @version 1.0.0
// @description Field placement, timesheet, and site approval workflows
// @BasePath /api/v1
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	placementRepo := repository.NewPlacementRepository(db)
	timesheetRepo := repository.NewTimesheetRepository(db)
	siteRepo := repository.NewSiteRepository(db)
	contractRepo := repository.NewLearningContractRepository(db)
	supervisorRepo := repository.NewSupervisorRepository(db)
	classRepo := repository.NewClassRepository(db)

	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "practicum-api",
	})

	notifier := service.NewNotificationService(nil, userRepo, supervisorRepo, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, logr)
	notifier.Start(ctx)
	defer notifier.Stop()

	hoursSvc := service.NewHoursService(placementRepo, timesheetRepo)
	placementSvc := service.NewPlacementService(placementRepo, siteRepo, classRepo, supervisorRepo,
		hoursSvc, userRepo, notifier, validate, logr).WithMetrics(metricsSvc)
	timesheetSvc := service.NewTimesheetService(timesheetRepo, placementRepo, supervisorRepo,
		userRepo, notifier, validate, logr).WithMetrics(metricsSvc)
	supervisorSvc := service.NewSupervisorService(supervisorRepo, userRepo, userRepo, notifier, logr)

	signer := token.NewContractSigner(cfg.Contracts.TokenSecret, cfg.Contracts.TokenTTL)
	siteSvc := service.NewSiteService(siteRepo, contractRepo, signer, userRepo, notifier, validate, logr).
		WithMetrics(metricsSvc)

	var dashboardCache service.DashboardCache
	if cacheRepo != nil {
		dashboardCache = cacheRepo
	}
	dashboardSvc := service.NewDashboardService(placementRepo, timesheetRepo, siteRepo, contractRepo,
		hoursSvc, dashboardCache, cfg.Dashboard.CacheTTL, logr)
	placementSvc.WithDashboards(dashboardSvc)
	timesheetSvc.WithDashboards(dashboardSvc)
	siteSvc.WithDashboards(dashboardSvc)

	exportSvc := service.NewExportService(placementRepo, timesheetRepo, hoursSvc, nil, nil, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	placementHandler := handler.NewPlacementHandler(placementSvc, hoursSvc)
	timesheetHandler := handler.NewTimesheetHandler(timesheetSvc, exportSvc)
	siteHandler := handler.NewSiteHandler(siteSvc)
	supervisorHandler := handler.NewSupervisorHandler(supervisorSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public routes.
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/contracts/submit/:token",
		middleware.OptionalJWT(authSvc),
		middleware.Audit(userRepo, "contract.submit", "learning_contract"),
		siteHandler.SubmitContract)

	// Authenticated routes.
	auth := api.Group("")
	auth.Use(middleware.JWT(authSvc))
	{
		auth.POST("/auth/logout", authHandler.Logout)
		auth.POST("/auth/change-password", authHandler.ChangePassword)
		auth.GET("/auth/me", authHandler.Me)

		auth.GET("/placements", placementHandler.List)
		auth.GET("/placements/:id", placementHandler.Get)
		auth.GET("/placements/:id/hours", placementHandler.HoursSummary)
		auth.GET("/placements/:id/hours/export", timesheetHandler.Export)
		auth.GET("/placements/:id/readiness", placementHandler.Readiness)

		auth.GET("/timesheets", timesheetHandler.List)
		auth.GET("/timesheets/:id", timesheetHandler.Get)

		auth.GET("/sites", siteHandler.List)
		auth.GET("/sites/:id", siteHandler.Get)

		students := auth.Group("")
		students.Use(middleware.RequireRoles(models.RoleStudent))
		{
			students.POST("/placements", placementHandler.Create)
			students.POST("/timesheets", timesheetHandler.Create)
			students.PATCH("/timesheets/:id", timesheetHandler.Update)
			students.POST("/timesheets/submit-week", timesheetHandler.SubmitWeek)
		}

		supervisors := auth.Group("")
		supervisors.Use(middleware.RequireRoles(models.RoleSupervisor, models.RoleFaculty, models.RoleAdmin))
		{
			supervisors.POST("/timesheets/:id/approve", timesheetHandler.Approve)
			supervisors.POST("/timesheets/:id/reject", timesheetHandler.Reject)
		}

		// Students and faculty may archive; the service checks ownership.
		archive := auth.Group("")
		archive.Use(middleware.RequireRoles(models.RoleStudent, models.RoleFaculty, models.RoleAdmin))
		{
			archive.POST("/placements/:id/archive", placementHandler.Archive)
		}

		staff := auth.Group("")
		staff.Use(middleware.RequireRoles(models.RoleFaculty, models.RoleAdmin))
		{
			staff.POST("/placements/:id/approve", placementHandler.Approve)
			staff.POST("/placements/:id/reject", placementHandler.Reject)
			staff.POST("/placements/:id/activate", placementHandler.Activate)
			staff.PATCH("/placements/:id/artifacts", placementHandler.SetArtifacts)

			staff.POST("/sites", siteHandler.Create)
			staff.POST("/sites/:id/approve", siteHandler.Approve)
			staff.POST("/sites/:id/contracts", siteHandler.SendContract)
			staff.GET("/sites/:id/contracts/current", siteHandler.CurrentContract)
			staff.POST("/contracts/:id/review", siteHandler.ReviewContract)

			staff.GET("/supervisors/pending", supervisorHandler.ListPending)
			staff.GET("/supervisors/pending/:id", supervisorHandler.GetPending)
			staff.POST("/supervisors/pending/:id/resolve", supervisorHandler.Resolve)

			staff.GET("/dashboard", dashboardHandler.Program)
			staff.GET("/dashboard/progress", dashboardHandler.Progress)
		}

		admin := auth.Group("")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/metrics/snapshot", metricsHandler.Snapshot)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logr.Sugar().Errorw("shutdown error", "error", err)
	}
}
