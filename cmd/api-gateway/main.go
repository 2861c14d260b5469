package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/edu-platform-api/api/swagger"
	"github.com/noah-isme/edu-platform-api/internal/handler"
	"github.com/noah-isme/edu-platform-api/internal/middleware"
	"github.com/noah-isme/edu-platform-api/internal/models"
	"github.com/noah-isme/edu-platform-api/internal/repository"
	"github.com/noah-isme/edu-platform-api/internal/service"
	"github.com/noah-isme/edu-platform-api/pkg/cache"
	"github.com/noah-isme/edu-platform-api/pkg/config"
	"github.com/noah-isme/edu-platform-api/pkg/database"
	"github.com/noah-isme/edu-platform-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/edu-platform-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/edu-platform-api/pkg/middleware/requestid"
	"github.com/noah-isme/edu-platform-api/pkg/storage"
)

// @title Edu Platform API
// @version 1.0.0
// @description Multi-tenant school administration and enrollment API
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

	validate := validator.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	sessionRepo := repository.NewAcademicSessionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	admissionRepo := repository.NewAdmissionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, cfg.Cache.KeyPrefix, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
	}

	auditSvc := service.NewAuditService(userRepo, cfg.Audit.Workers, cfg.Audit.BufferSize, logr, cfg.Audit.Enabled)
	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "edu-platform-api",
	})
	userSvc := service.NewUserService(userRepo, tenantRepo, validate, logr)
	tenantSvc := service.NewTenantService(tenantRepo, validate, logr)
	schoolSvc := service.NewSchoolService(schoolRepo, tenantRepo, validate, logr)
	sessionSvc := service.NewAcademicSessionService(sessionRepo, tenantRepo, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, tenantRepo, validate, logr)
	sectionSvc := service.NewSectionService(sectionRepo, gradeRepo, schoolRepo, sessionRepo, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, tenantRepo, validate, logr)
	admissionSvc := service.NewAdmissionService(admissionRepo, studentRepo, gradeRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, admissionRepo, sectionRepo, gradeRepo, validate, logr)

	var reportSvc *service.ReportService
	if cfg.Exports.Enabled {
		files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		reportSvc = service.NewReportService(enrollmentSvc, enrollmentSvc, sectionRepo, studentRepo, files, signer, service.ReportConfig{
			APIPrefix:       cfg.APIPrefix,
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: time.Hour,
		}, logr)
		reportSvc.StartCleanup(ctx)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	tenantHandler := handler.NewTenantHandler(tenantSvc)
	schoolHandler := handler.NewSchoolHandler(schoolSvc)
	sessionHandler := handler.NewAcademicSessionHandler(sessionSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	sectionHandler := handler.NewSectionHandler(sectionSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	admissionHandler := handler.NewAdmissionHandler(admissionSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, metricsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(corsmiddleware.Config{AllowedOrigins: cfg.CORS.AllowedOrigins}))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Identity(authSvc))

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", authHandler.Me)
	}

	adminRoles := []models.Role{models.RoleTenantAdmin, models.RoleSchoolAdmin}
	readRoles := append([]models.Role{models.RoleTeacher, models.RoleStaff}, adminRoles...)

	users := api.Group("/users")
	{
		users.PUT("/:id/role", middleware.Authorize(models.RoleTenantAdmin), userHandler.AssignRole)
	}

	tenants := api.Group("/tenants")
	tenants.Use(middleware.Authorize(models.RoleSuperAdmin))
	{
		tenants.GET("", tenantHandler.List)
		tenants.GET("/:id", tenantHandler.Get)
		tenants.POST("", tenantHandler.Create)
		tenants.PUT("/:id", tenantHandler.Update)
		tenants.DELETE("/:id", middleware.Audit(auditSvc, models.AuditActionTenantDelete, "tenant"), tenantHandler.Delete)
	}

	schools := api.Group("/schools")
	{
		schools.GET("", middleware.Authorize(readRoles...), schoolHandler.List)
		schools.GET("/:id", middleware.Authorize(readRoles...), schoolHandler.Get)
		schools.POST("", middleware.Authorize(models.RoleTenantAdmin), schoolHandler.Create)
		schools.PUT("/:id", middleware.Authorize(models.RoleTenantAdmin), schoolHandler.Update)
	}

	sessions := api.Group("/academic-sessions")
	{
		sessions.GET("", middleware.Authorize(readRoles...), sessionHandler.List)
		sessions.GET("/:id", middleware.Authorize(readRoles...), sessionHandler.Get)
		sessions.POST("", middleware.Authorize(models.RoleTenantAdmin), sessionHandler.Create)
		sessions.PUT("/:id", middleware.Authorize(models.RoleTenantAdmin), sessionHandler.Update)
	}

	grades := api.Group("/grades")
	{
		grades.GET("", middleware.Authorize(readRoles...), gradeHandler.List)
		grades.GET("/:id", middleware.Authorize(readRoles...), gradeHandler.Get)
		grades.POST("", middleware.Authorize(models.RoleTenantAdmin), gradeHandler.Create)
		grades.PUT("/:id", middleware.Authorize(models.RoleTenantAdmin), gradeHandler.Update)
	}

	sections := api.Group("/sections")
	{
		sections.GET("", middleware.Authorize(readRoles...), sectionHandler.List)
		sections.GET("/:id", middleware.Authorize(readRoles...), sectionHandler.Get)
		sections.GET("/:id/roster", middleware.Authorize(readRoles...), enrollmentHandler.Roster)
		sections.POST("", middleware.Authorize(adminRoles...), sectionHandler.Create)
		sections.PUT("/:id/status", middleware.Authorize(adminRoles...), middleware.Audit(auditSvc, models.AuditActionSectionToggle, "section"), sectionHandler.SetActive)
	}

	students := api.Group("/students")
	{
		students.GET("", middleware.Authorize(readRoles...), studentHandler.List)
		students.GET("/:id", middleware.Authorize(readRoles...), studentHandler.Get)
		students.POST("", middleware.Authorize(adminRoles...), studentHandler.Create)
	}

	admissions := api.Group("/admissions")
	{
		admissions.GET("", middleware.Authorize(readRoles...), admissionHandler.List)
		admissions.GET("/:id", middleware.Authorize(readRoles...), admissionHandler.Get)
		admissions.POST("", middleware.Authorize(adminRoles...), middleware.Audit(auditSvc, models.AuditActionAdmissionCreate, "admission"), admissionHandler.Create)
		admissions.PUT("/:id/activate", middleware.Authorize(adminRoles...), admissionHandler.Activate)
		admissions.PUT("/:id/deactivate", middleware.Authorize(adminRoles...), admissionHandler.Deactivate)
	}

	enrollments := api.Group("/enrollments")
	{
		enrollments.GET("", middleware.Authorize(readRoles...), enrollmentHandler.List)
		enrollments.GET("/eligible", middleware.Authorize(adminRoles...), enrollmentHandler.Eligible)
		enrollments.POST("", middleware.Authorize(adminRoles...), middleware.Audit(auditSvc, models.AuditActionEnrollBatch, "enrollment"), enrollmentHandler.Enroll)
		enrollments.PUT("/:id/transfer", middleware.Authorize(adminRoles...), middleware.Audit(auditSvc, models.AuditActionTransfer, "enrollment"), enrollmentHandler.Transfer)
		enrollments.PUT("/:id/withdraw", middleware.Authorize(adminRoles...), middleware.Audit(auditSvc, models.AuditActionWithdraw, "enrollment"), enrollmentHandler.Withdraw)
	}

	if reportSvc != nil {
		reportHandler := handler.NewReportHandler(reportSvc)
		reports := api.Group("/reports")
		{
			reports.POST("/sections/:id/export", middleware.Authorize(readRoles...), reportHandler.ExportRoster)
			reports.POST("/eligible/export", middleware.Authorize(adminRoles...), reportHandler.ExportEligible)
			reports.GET("/download/:token", reportHandler.Download)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
