package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/collegesync/collegesync-api/api/swagger"
	"github.com/collegesync/collegesync-api/internal/handler"
	"github.com/collegesync/collegesync-api/internal/middleware"
	"github.com/collegesync/collegesync-api/internal/models"
	"github.com/collegesync/collegesync-api/internal/repository"
	"github.com/collegesync/collegesync-api/internal/service"
	"github.com/collegesync/collegesync-api/pkg/cache"
	"github.com/collegesync/collegesync-api/pkg/config"
	"github.com/collegesync/collegesync-api/pkg/database"
	"github.com/collegesync/collegesync-api/pkg/logger"
	corsmiddleware "github.com/collegesync/collegesync-api/pkg/middleware/cors"
	reqidmiddleware "github.com/collegesync/collegesync-api/pkg/middleware/requestid"
)

// @title CollegeSync API
// @version 1.0.0
// @description Appointment scheduling for students, teachers and admins
// @BasePath /
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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, login throttling disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)

	metricsSvc := service.NewMetricsService()

	auditRecorder := middleware.NewAuditRecorder(userRepo, logr)
	defer auditRecorder.Stop()

	throttle := service.NewLoginThrottle(redisClient, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginAttemptWindow)
	throttle.OnThrottled(metricsSvc.RecordLoginThrottled)

	authSvc := service.NewAuthService(userRepo, throttle, validate, logr, service.AuthTokenConfig{
		Secret:             cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "collegesync-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, profileRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, profileRepo, subjectRepo, validate, logr)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, subjectRepo, validate, logr)
	calendarSvc := service.NewCalendarService(appointmentRepo, metricsSvc, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	appointmentHandler := handler.NewAppointmentHandler(appointmentSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
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

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/profile", authHandler.Profile)
		authed.PUT("/profile", authHandler.UpdateProfile)

		authed.GET("/calendar", calendarHandler.Events)

		authed.GET("/subjects/options", subjectHandler.Options)

		authed.POST("/appointments", appointmentHandler.Create)
		authed.GET("/appointments/:id", appointmentHandler.Detail)
		authed.PUT("/appointments/:id", appointmentHandler.Update)
		authed.DELETE("/appointments/:id", appointmentHandler.Delete)

		authed.GET("/my/subjects", middleware.RequireRoles(models.RoleStudent), enrollmentHandler.MySubjects)

		teachers := authed.Group("/my/students", middleware.RequireRoles(models.RoleTeacher))
		{
			teachers.GET("", enrollmentHandler.MyStudents)
			teachers.GET("/export", enrollmentHandler.ExportRoster)
		}
	}

	admin := api.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/subjects", subjectHandler.List)
		admin.GET("/subjects/:id", subjectHandler.Get)
		admin.GET("/subjects/teacher-options", subjectHandler.TeacherOptions)
		admin.POST("/subjects", middleware.Audit(auditRecorder, models.AuditActionCreate, "subject"), subjectHandler.Create)
		admin.PUT("/subjects/:id", middleware.Audit(auditRecorder, models.AuditActionUpdate, "subject"), subjectHandler.Update)
		admin.DELETE("/subjects/:id", middleware.Audit(auditRecorder, models.AuditActionDelete, "subject"), subjectHandler.Delete)

		admin.POST("/enrollments", middleware.Audit(auditRecorder, models.AuditActionCreate, "enrollment"), enrollmentHandler.Enroll)
		admin.DELETE("/enrollments/:studentId/:subjectId", middleware.Audit(auditRecorder, models.AuditActionDelete, "enrollment"), enrollmentHandler.Unenroll)

		admin.GET("/users", userHandler.List)
		admin.GET("/users/:id", userHandler.Get)
		admin.POST("/users", middleware.Audit(auditRecorder, models.AuditActionCreate, "user"), userHandler.Create)
		admin.PUT("/users/:id", middleware.Audit(auditRecorder, models.AuditActionUpdate, "user"), userHandler.Update)
		admin.DELETE("/users/:id", middleware.Audit(auditRecorder, models.AuditActionDelete, "user"), userHandler.Delete)
		admin.POST("/users/:id/admin", middleware.Audit(auditRecorder, models.AuditActionUpdate, "user"), userHandler.PromoteAdmin)
		admin.DELETE("/users/:id/admin", middleware.Audit(auditRecorder, models.AuditActionUpdate, "user"), userHandler.RevokeAdmin)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
