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

	_ "github.com/noah-isme/institute-crm-api/api/swagger"
	"github.com/noah-isme/institute-crm-api/internal/handler"
	"github.com/noah-isme/institute-crm-api/internal/middleware"
	"github.com/noah-isme/institute-crm-api/internal/models"
	"github.com/noah-isme/institute-crm-api/internal/repository"
	"github.com/noah-isme/institute-crm-api/internal/service"
	"github.com/noah-isme/institute-crm-api/pkg/cache"
	"github.com/noah-isme/institute-crm-api/pkg/config"
	"github.com/noah-isme/institute-crm-api/pkg/database"
	"github.com/noah-isme/institute-crm-api/pkg/jobs"
	"github.com/noah-isme/institute-crm-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/institute-crm-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/institute-crm-api/pkg/middleware/requestid"
	"github.com/noah-isme/institute-crm-api/pkg/storage"
)

// @title Institute CRM API
// @version 1.0.0
// @description Enquiry lifecycle, admissions and billing backend for institute branches
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
	defer db.Close() //nolint:errcheck

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()

	enquiryRepo := repository.NewEnquiryRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	followUpRepo := repository.NewFollowUpRepository(db)
	callLogRepo := repository.NewCallLogRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	admissionRepo := repository.NewAdmissionRepository(db)
	billingRepo := repository.NewBillingRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.EnquiryTTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "institute-crm-api",
	})

	var assignmentSvc *service.AssignmentService
	queue := jobs.NewQueue("assignments", func(ctx context.Context, job jobs.Job) error {
		return assignmentSvc.ProcessJob(ctx, job.ID)
	}, jobs.QueueConfig{
		Workers:    cfg.Assignments.WorkerConcurrency,
		MaxRetries: cfg.Assignments.WorkerRetries,
		Logger:     logr,
	})

	enquirySvc := service.NewEnquiryService(enquiryRepo, cacheSvc, metricsSvc, validate, logr)
	timelineSvc := service.NewTimelineService(activityRepo, followUpRepo, callLogRepo, cacheSvc, cfg.Cache.TimelineTTL, logr)
	followUpSvc := service.NewFollowUpService(followUpRepo, enquiryRepo, cacheSvc, validate, logr)
	callLogSvc := service.NewCallLogService(callLogRepo, enquiryRepo, cacheSvc, validate, logr)
	assignmentSvc = service.NewAssignmentService(assignmentRepo, userRepo, queue, cacheSvc, validate, logr)
	admissionSvc := service.NewAdmissionService(admissionRepo, enquiryRepo, cacheSvc, validate, logr)
	billingSvc := service.NewBillingService(billingRepo, enquiryRepo, validate, logr)
	expenseSvc := service.NewExpenseService(expenseRepo, validate, logr)
	catalogSvc := service.NewCatalogService(catalogRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	reportSvc := service.NewReportService(reportRepo, cacheSvc, cfg.Cache.DashboardTTL, logr)
	exportSvc := service.NewExportService(enquiryRepo, store, signer, metricsSvc, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	enquiryHandler := handler.NewEnquiryHandler(enquirySvc, timelineSvc)
	followUpHandler := handler.NewFollowUpHandler(followUpSvc)
	callLogHandler := handler.NewCallLogHandler(callLogSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	admissionHandler := handler.NewAdmissionHandler(admissionSvc)
	billingHandler := handler.NewBillingHandler(billingSvc)
	expenseHandler := handler.NewExpenseHandler(expenseSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	userHandler := handler.NewUserHandler(userSvc)
	reportHandler := handler.NewReportHandler(reportSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.GET("/reports/downloads", reportHandler.Download)

	authed := api.Group("", middleware.JWT(authSvc))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.POST("/auth/change-password", authHandler.ChangePassword)
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/enquiries", enquiryHandler.List)
		authed.POST("/enquiries", enquiryHandler.Create)
		authed.GET("/enquiries/:id", enquiryHandler.Get)
		authed.PUT("/enquiries/:id", enquiryHandler.Update)
		authed.PATCH("/enquiries/:id/status", enquiryHandler.UpdateStatus)
		authed.POST("/enquiries/:id/enroll-direct", enquiryHandler.EnrollDirect)
		authed.GET("/enquiries/:id/timeline", enquiryHandler.Timeline)

		authed.GET("/enquiries/:id/follow-ups", followUpHandler.ListByEnquiry)
		authed.POST("/enquiries/:id/follow-ups", followUpHandler.Create)
		authed.GET("/follow-ups/pending", followUpHandler.ListPending)
		authed.PATCH("/follow-ups/:id", followUpHandler.Resolve)

		authed.GET("/enquiries/:id/calls", callLogHandler.ListByEnquiry)
		authed.POST("/enquiries/:id/calls", callLogHandler.Create)

		authed.GET("/branches", catalogHandler.ListBranches)
		authed.GET("/sources", catalogHandler.ListSources)
		authed.GET("/courses", catalogHandler.ListCourses)
		authed.GET("/services", catalogHandler.ListServices)
	}

	staff := authed.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleExecutive))
	{
		staff.POST("/enquiries/:id/admission", admissionHandler.Create)
		staff.GET("/admissions", admissionHandler.List)

		staff.GET("/invoices", billingHandler.ListInvoices)
		staff.POST("/invoices", billingHandler.CreateInvoice)
		staff.GET("/invoices/:id", billingHandler.GetInvoice)
		staff.POST("/invoices/:id/receipts", billingHandler.RecordPayment)

		staff.GET("/expenses", expenseHandler.List)
		staff.POST("/expenses", expenseHandler.Create)
		staff.GET("/expenses/:id", expenseHandler.Get)
		staff.PUT("/expenses/:id", expenseHandler.Update)

		staff.GET("/reports/dashboard", reportHandler.Dashboard)
		staff.GET("/reports/enquiries/export", reportHandler.ExportEnquiries)
	}

	admin := authed.Group("", middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/assignments", assignmentHandler.Assign)
		admin.POST("/assignments/jobs", assignmentHandler.CreateJob)
		admin.GET("/assignments/jobs", assignmentHandler.ListJobs)
		admin.GET("/assignments/jobs/:id", assignmentHandler.GetJob)

		admin.DELETE("/expenses/:id", expenseHandler.Delete)

		admin.POST("/branches", catalogHandler.CreateBranch)
		admin.PUT("/branches/:id", catalogHandler.UpdateBranch)
		admin.POST("/sources", catalogHandler.CreateSource)
		admin.POST("/courses", catalogHandler.CreateCourse)
		admin.PUT("/courses/:id", catalogHandler.UpdateCourse)
		admin.POST("/services", catalogHandler.CreateService)
		admin.PUT("/services/:id", catalogHandler.UpdateService)

		admin.GET("/users", userHandler.List)
		admin.POST("/users", userHandler.Create)
		admin.GET("/users/:id", userHandler.Get)
		admin.PUT("/users/:id", userHandler.Update)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	defer queue.Stop()

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				exportSvc.Cleanup(cfg.Exports.CleanupAfter)
			}
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("server stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("forced shutdown", "error", err)
	}
}
