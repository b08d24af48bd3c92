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

	_ "github.com/noah-isme/mentorship-api/api/swagger"
	"github.com/noah-isme/mentorship-api/internal/handler"
	"github.com/noah-isme/mentorship-api/internal/middleware"
	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/internal/repository"
	"github.com/noah-isme/mentorship-api/internal/service"
	"github.com/noah-isme/mentorship-api/pkg/cache"
	"github.com/noah-isme/mentorship-api/pkg/config"
	"github.com/noah-isme/mentorship-api/pkg/database"
	"github.com/noah-isme/mentorship-api/pkg/jobs"
	"github.com/noah-isme/mentorship-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/mentorship-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/mentorship-api/pkg/middleware/requestid"
	"github.com/noah-isme/mentorship-api/pkg/storage"
)

// @title Mentorship Program API
// @version 1.0.0
// @description Academic progress, eligibility and access-code service for the mentorship program
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheService *service.CacheService
	metricsService := service.NewMetricsService()
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Cache.TTL, logr, true)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	mentorRepo := repository.NewMentorRepository(db)
	attendanceRepo := repository.NewLessonAttendanceRepository(db)
	weeklyRepo := repository.NewWeeklyAttendanceRepository(db)
	scoreRepo := repository.NewExamScoreRepository(db)
	accessCodeRepo := repository.NewAccessCodeRepository(db)
	reportJobRepo := repository.NewReportJobRepository(db)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	progressService := service.NewProgressService(studentRepo, attendanceRepo, scoreRepo, cacheService, logr)
	eligibilityService := service.NewEligibilityService(studentRepo, attendanceRepo, scoreRepo, weeklyRepo, logr)
	accessCodeService := service.NewAccessCodeService(accessCodeRepo, userRepo, validate, logr, service.CodeGenConfig{
		InvitePrefix: cfg.Program.InviteCodePrefix,
		InviteLength: cfg.Program.InviteCodeLength,
		WeeklyPrefix: cfg.Program.WeeklyCodePrefix,
		WeeklyLength: cfg.Program.WeeklyCodeLength,
		MaxAttempts:  cfg.Program.CodeIssueAttempts,
	})
	registrationService := service.NewRegistrationService(userRepo, studentRepo, accessCodeService, weeklyRepo, validate, logr, cfg.Program.TempPasswordLength)
	attendanceService := service.NewAttendanceService(attendanceRepo, studentRepo, scoreRepo, weeklyRepo, progressService, validate, logr)
	mentorService := service.NewMentorService(mentorRepo, studentRepo, validate, logr)
	userService := service.NewUserService(userRepo, validate, logr)
	studentService := service.NewStudentService(studentRepo, validate, logr)

	authHandler := handler.NewAuthHandler(authService)
	progressHandler := handler.NewProgressHandler(progressService, eligibilityService, studentRepo)
	accessCodeHandler := handler.NewAccessCodeHandler(accessCodeService)
	registrationHandler := handler.NewRegistrationHandler(registrationService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, studentRepo)
	mentorHandler := handler.NewMentorHandler(mentorService, studentRepo)
	userHandler := handler.NewUserHandler(userService)
	studentHandler := handler.NewStudentHandler(studentService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
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
	api.POST("/registrations", registrationHandler.Register)
	api.POST("/access-codes/validate", accessCodeHandler.Validate)

	authed := api.Group("", middleware.JWT(authService))
	authed.POST("/auth/logout", authHandler.Logout)
	authed.POST("/auth/change-password", authHandler.ChangePassword)
	authed.GET("/auth/me", authHandler.Me)

	authed.POST("/weekly-checkins", registrationHandler.WeeklyCheckIn)

	students := authed.Group("/students", middleware.RequireCapability(models.CapViewProgress))
	students.GET("/:id/progress", progressHandler.Progress)
	students.GET("/:id/projection", progressHandler.Projection)
	students.GET("/:id/eligibility", progressHandler.Eligibility)
	students.GET("/:id/weekly", attendanceHandler.WeeklyHistory)
	students.GET("/:id/mentor", mentorHandler.CurrentMentor)

	authed.GET("/students", middleware.RequireCapability(models.CapRecordAttendance), studentHandler.List)
	authed.PATCH("/students/:id/status", middleware.RequireCapability(models.CapManageUsers), middleware.Audit(userRepo, models.AuditActionRecordWrite, "student_status"), studentHandler.UpdateStatus)

	recording := authed.Group("", middleware.RequireCapability(models.CapRecordAttendance), middleware.Audit(userRepo, models.AuditActionRecordWrite, "attendance"))
	recording.POST("/lessons", attendanceHandler.CreateLesson)
	recording.POST("/attendance", attendanceHandler.Record)
	recording.POST("/weekly", attendanceHandler.MarkWeekly)

	authed.GET("/attendance", middleware.RequireCapability(models.CapViewProgress), attendanceHandler.List)
	authed.POST("/scores", middleware.RequireCapability(models.CapRecordScores), middleware.Audit(userRepo, models.AuditActionRecordWrite, "exam_score"), attendanceHandler.RecordScore)

	admin := authed.Group("/admin", middleware.RequireCapability(models.CapManageUsers))
	admin.GET("/metrics", metricsHandler.Snapshot)
	userAudit := middleware.Audit(userRepo, models.AuditActionUserChange, "user")
	admin.GET("/users", userHandler.List)
	admin.PUT("/users/:id", userAudit, userHandler.Update)
	admin.DELETE("/users/:id", userAudit, userHandler.Deactivate)

	codes := authed.Group("/access-codes", middleware.RequireCapability(models.CapManageCodes))
	codes.POST("", accessCodeHandler.Issue)
	codes.GET("", accessCodeHandler.List)
	codes.DELETE("/:id", accessCodeHandler.Revoke)

	mentors := authed.Group("/mentors")
	mentorAudit := middleware.Audit(userRepo, models.AuditActionMentorChange, "mentor_assignment")
	mentors.POST("/assignments", middleware.RequireCapability(models.CapManageMentors), mentorAudit, mentorHandler.Assign)
	mentors.DELETE("/assignments/:id", middleware.RequireCapability(models.CapManageMentors), mentorAudit, mentorHandler.EndAssignment)
	mentors.GET("/:id/assignments", middleware.RequireCapability(models.CapViewProgress), mentorHandler.Assignments)

	if cfg.Reports.Enabled {
		store, err := storage.NewExportStore(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewDownloadSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportService := service.NewExportService(store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, nil, nil)

		reportWorker := service.NewReportWorker(reportJobRepo, studentRepo, eligibilityService, exportService, logr)
		pool := jobs.NewPool("reports", reportWorker.Handle, jobs.Config{
			Workers:     cfg.Reports.WorkerConcurrency,
			MaxAttempts: cfg.Reports.WorkerRetries,
			Logger:      logr,
		})
		pool.Start(ctx)
		defer pool.Stop()

		reportService := service.NewReportService(reportJobRepo, studentRepo, pool, exportService, logr)
		reportService.StartCleanup(ctx, time.Hour, cfg.Reports.SignedURLTTL)
		reportHandler := handler.NewReportHandler(reportService)

		reports := authed.Group("/reports", middleware.RequireCapability(models.CapExportReports))
		reports.POST("/graduation", reportHandler.Create)
		reports.GET("", reportHandler.List)
		reports.GET("/:id", reportHandler.Status)
		reports.GET("/:id/download", reportHandler.SignDownload)

		// Download tokens are self-authenticating; no session required.
		api.GET("/export/:token", reportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
