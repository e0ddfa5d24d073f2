package main

import (
	"context"
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

	_ "github.com/noah-isme/univ-erp-api/api/swagger"
	"github.com/noah-isme/univ-erp-api/internal/handler"
	"github.com/noah-isme/univ-erp-api/internal/middleware"
	"github.com/noah-isme/univ-erp-api/internal/models"
	"github.com/noah-isme/univ-erp-api/internal/repository"
	"github.com/noah-isme/univ-erp-api/internal/service"
	"github.com/noah-isme/univ-erp-api/pkg/cache"
	"github.com/noah-isme/univ-erp-api/pkg/config"
	"github.com/noah-isme/univ-erp-api/pkg/database"
	"github.com/noah-isme/univ-erp-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/univ-erp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/univ-erp-api/pkg/middleware/requestid"
	"github.com/noah-isme/univ-erp-api/pkg/storage"
)

// @title Univ ERP API
// @version 0.1.0
// @description Enrollment and grading engine for academic records
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Services.
	metricsSvc := service.NewMetricsService()
	settingsSvc := service.NewSettingsService(settingsRepo, logr, service.SettingsServiceConfig{
		DefaultDropDeadlineDays: cfg.Registration.DefaultDropDeadlineDays,
	})
	accessSvc := service.NewAccessService(settingsSvc, logr)
	authSvc := service.NewAuthService(userRepo, cfg.JWT, cfg.Auth, validate, logr)
	catalogSvc := service.NewCatalogService(sectionRepo, courseRepo, accessSvc, redisClient, cfg.Catalog.CacheTTL, logr).
		WithMetrics(metricsSvc)
	registrationSvc := service.NewRegistrationService(enrollmentRepo, sectionRepo, courseRepo, studentRepo, gradeRepo, settingsSvc, accessSvc, logr).
		WithMetrics(metricsSvc)
	gradebookSvc := service.NewGradebookService(gradeRepo, enrollmentRepo, sectionRepo, instructorRepo, studentRepo, accessSvc, logr).
		WithMetrics(metricsSvc)
	statsSvc := service.NewStatsService(enrollmentRepo, sectionRepo, instructorRepo, accessSvc, logr)
	adminSvc := service.NewAdminService(userRepo, studentRepo, instructorRepo, courseRepo, sectionRepo, validate, logr)

	var transcriptSvc *service.TranscriptService
	if cfg.Transcripts.Enabled {
		store, err := storage.NewLocalStorage(cfg.Transcripts.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init transcript storage", "error", err)
		}
		transcriptSvc = service.NewTranscriptService(enrollmentRepo, studentRepo, store, accessSvc, logr,
			cfg.Transcripts.WorkerConcurrency, cfg.Transcripts.WorkerRetries)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc)
	gradebookHandler := handler.NewGradebookHandler(gradebookSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)
	adminHandler := handler.NewAdminHandler(adminSvc, settingsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.MaintenanceBanner(settingsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/auth/me", authHandler.Me)
		authed.POST("/auth/change-password", authHandler.ChangePassword)

		authed.GET("/catalog/courses", catalogHandler.Courses)
		authed.GET("/catalog/courses/:code/sections", catalogHandler.CourseSections)
		authed.GET("/catalog/sections", catalogHandler.Sections)
		authed.GET("/catalog/sections/:id", catalogHandler.Section)

		students := authed.Group("")
		students.Use(middleware.RequireRoles(models.RoleStudent))
		{
			students.POST("/registrations", registrationHandler.Register)
			students.POST("/registrations/:id/drop", registrationHandler.Drop)
			students.GET("/registrations", registrationHandler.List)
			students.GET("/registrations/timetable", registrationHandler.Timetable)
			students.GET("/grades", gradebookHandler.MyGrades)
		}

		graders := authed.Group("")
		graders.Use(middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin))
		{
			graders.PUT("/enrollments/:id/grades", gradebookHandler.EnterComponent)
			graders.POST("/enrollments/:id/final-grade", gradebookHandler.ComputeFinal)
			graders.GET("/sections/:id/roster", gradebookHandler.Roster)
			graders.GET("/sections/:id/statistics", statsHandler.SectionStatistics)
			graders.GET("/my/sections", statsHandler.MySections)
		}
		authed.GET("/enrollments/:id/grades", gradebookHandler.EnrollmentGrades)

		admins := authed.Group("/admin")
		admins.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admins.POST("/students", adminHandler.CreateStudent)
			admins.POST("/instructors", adminHandler.CreateInstructor)
			admins.POST("/courses", adminHandler.CreateCourse)
			admins.POST("/sections", adminHandler.CreateSection)
			admins.PUT("/sections/:id/instructor", adminHandler.AssignInstructor)
			admins.POST("/users/:id/unlock", adminHandler.UnlockUser)
			admins.POST("/maintenance", adminHandler.SetMaintenance)
			admins.GET("/settings", adminHandler.ListSettings)
			admins.PUT("/settings/:key", adminHandler.UpdateSetting)
		}

		if transcriptSvc != nil {
			transcriptHandler := handler.NewTranscriptHandler(transcriptSvc)
			authed.POST("/transcripts", transcriptHandler.Request)
			authed.GET("/transcripts/:id", transcriptHandler.Status)
			authed.GET("/transcripts/:id/download", transcriptHandler.Download)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if transcriptSvc != nil {
		transcriptSvc.Start(ctx)
		defer transcriptSvc.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
