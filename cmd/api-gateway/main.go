package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/classtrack/classtrack-api/api/swagger"
	"github.com/classtrack/classtrack-api/internal/handler"
	"github.com/classtrack/classtrack-api/internal/middleware"
	"github.com/classtrack/classtrack-api/internal/repository"
	"github.com/classtrack/classtrack-api/internal/service"
	"github.com/classtrack/classtrack-api/pkg/cache"
	"github.com/classtrack/classtrack-api/pkg/config"
	"github.com/classtrack/classtrack-api/pkg/database"
	"github.com/classtrack/classtrack-api/pkg/logger"
	corsmiddleware "github.com/classtrack/classtrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classtrack/classtrack-api/pkg/middleware/requestid"
)

// @title ClassTrack API
// @version 1.0.0
// @description Classroom attendance tracking with QR sessions, geofencing and reports
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	sessionRepo := repository.NewQRSessionRepository(db)

	// Metrics and cache.
	metricsSvc := service.NewMetricsService()
	var cacheSvc *service.CacheService
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Dashboard.CacheTTL, logr, false)
	} else {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)
	}

	// Background notification dispatcher.
	notifySvc := service.NewNotificationService(service.NotificationConfig{
		Enabled:    cfg.Notifications.Enabled,
		WebhookURL: cfg.Notifications.WebhookURL,
		Timeout:    cfg.Notifications.Timeout,
		Throttle:   cfg.Notifications.Throttle,
		Workers:    cfg.Notifications.Workers,
	}, logr)
	notifySvc.Start(context.Background())
	defer notifySvc.Stop()

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "classtrack-api",
	})
	sessionSvc := service.NewSessionService(sessionRepo, attendanceRepo, validate, logr, metricsSvc, service.SessionConfig{
		TokenSecret:     cfg.QRSession.TokenSecret,
		DefaultRadiusM:  cfg.QRSession.DefaultRadiusM,
		DefaultDuration: cfg.QRSession.DefaultDuration,
		MaxDuration:     cfg.QRSession.MaxDuration,
	})
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, notifySvc, validate, logr)
	reportSvc := service.NewReportService(attendanceRepo, studentRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(teacherRepo, attendanceRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	studentSvc := service.NewStudentService(studentRepo, userRepo, classRepo, attendanceRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, userRepo, classRepo, validate, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, sessionSvc)
	classHandler := handler.NewClassHandler(classSvc, studentSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, reportSvc, sessionSvc, dashboardSvc, teacherSvc, studentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
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

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/verify", middleware.JWT(authSvc), authHandler.Verify)
	}

	students := api.Group("/students", middleware.JWT(authSvc))
	{
		students.GET("/me/profile", middleware.StudentOnly(), studentHandler.MyProfile)
		students.GET("/me/qr-code", middleware.StudentOnly(), studentHandler.MyQRCode)

		students.GET("", middleware.TeacherOnly(), studentHandler.List)
		students.POST("", middleware.TeacherOnly(), studentHandler.Create)
		students.GET("/:id", middleware.TeacherOnly(), studentHandler.Get)
		students.PUT("/:id", middleware.TeacherOnly(), studentHandler.Update)
		students.DELETE("/:id", middleware.TeacherOnly(), studentHandler.Delete)
	}

	classes := api.Group("/classes", middleware.JWT(authSvc))
	{
		classes.GET("", classHandler.List)
		classes.POST("", middleware.TeacherOnly(), classHandler.Create)
		classes.GET("/:id/students", middleware.TeacherOnly(), classHandler.Students)
	}

	teacher := api.Group("/teacher", middleware.JWT(authSvc), middleware.TeacherOnly())
	{
		teacher.GET("/profile", teacherHandler.Profile)
		teacher.PUT("/profile", teacherHandler.UpdateProfile)
	}

	attendance := api.Group("/attendance", middleware.JWT(authSvc))
	{
		attendance.POST("/save", middleware.TeacherOnly(), attendanceHandler.Save)
		attendance.GET("/daily-report", middleware.TeacherOnly(), attendanceHandler.DailyReport)
		attendance.GET("/monthly-report", middleware.TeacherOnly(), attendanceHandler.MonthlyReport)
		attendance.GET("/today-class-report", middleware.TeacherOnly(), attendanceHandler.TodayClassReport)
		attendance.GET("/dashboard-summary", middleware.TeacherOnly(), attendanceHandler.DashboardSummary)
		attendance.POST("/report", middleware.TeacherOnly(), attendanceHandler.ExportReport)
		attendance.POST("/qr-session", middleware.TeacherOnly(), attendanceHandler.CreateQRSession)
		attendance.DELETE("/qr-session/:id", middleware.TeacherOnly(), attendanceHandler.DeleteQRSession)

		attendance.POST("/mark-by-qr", middleware.StudentOnly(), attendanceHandler.MarkByQR)
		attendance.POST("/verify-location", middleware.StudentOnly(), attendanceHandler.VerifyLocation)
	}

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
