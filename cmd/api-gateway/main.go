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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/intern-tracker-api/api/swagger"
	"github.com/noah-isme/intern-tracker-api/internal/handler"
	"github.com/noah-isme/intern-tracker-api/internal/repository"
	"github.com/noah-isme/intern-tracker-api/internal/router"
	"github.com/noah-isme/intern-tracker-api/internal/service"
	"github.com/noah-isme/intern-tracker-api/pkg/cache"
	"github.com/noah-isme/intern-tracker-api/pkg/config"
	"github.com/noah-isme/intern-tracker-api/pkg/database"
	"github.com/noah-isme/intern-tracker-api/pkg/logger"
	"github.com/noah-isme/intern-tracker-api/pkg/mail"
	"github.com/noah-isme/intern-tracker-api/pkg/storage"
	"github.com/noah-isme/intern-tracker-api/pkg/validation"
)

// @title Intern Tracker API
// @version 1.0.0
// @description Schools, students, employees and attendance for the internship programme
// @BasePath /api
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

	ctx := context.Background()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	var cacheClient redis.UniversalClient
	if redisClient != nil {
		cacheClient = redisClient
		defer redisClient.Close() //nolint:errcheck
	}

	archive, err := storage.NewLocalStorage(cfg.Import.ArchiveDir)
	if err != nil {
		logr.Fatal("failed to prepare import archive", zap.Error(err))
	}
	if removed, err := archive.CleanupOlderThan(cfg.Import.ArchiveTTL); err != nil {
		logr.Warn("import archive cleanup failed", zap.Error(err))
	} else if len(removed) > 0 {
		logr.Info("import archive cleaned", zap.Int("files", len(removed)))
	}

	validate := validation.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(cacheClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && cacheClient != nil)
	syncer := service.NewEmployeeSyncer(employeeRepo, cfg.Employees.IQThreshold, logr)
	reconciler := service.NewImportReconciler(schoolRepo, studentRepo, syncer, logr)

	authSvc := service.NewAuthService(userRepo, mail.New(cfg.Mail, logr), validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		ResetTokenTTL:      cfg.Mail.PasswordResetTTL,
		FrontendURL:        cfg.Mail.FrontendURL,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	schoolSvc := service.NewSchoolService(schoolRepo, userRepo, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(service.StudentServiceParams{
		DB:         db,
		Students:   studentRepo,
		Schools:    schoolRepo,
		Employees:  employeeRepo,
		Attendance: attendanceRepo,
		Syncer:     syncer,
		Audit:      userRepo,
		Cache:      cacheSvc,
		Validator:  validate,
		Logger:     logr,
	})
	importSvc := service.NewImportService(service.ImportServiceParams{
		DB:          db,
		Reconciler:  reconciler,
		Archive:     archive,
		Audit:       userRepo,
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Validator:   validate,
		Logger:      logr,
		MaxFileSize: cfg.Import.MaxFileSizeBytes,
	})
	exportSvc := service.NewExportService(studentRepo, logr)
	employeeSvc := service.NewEmployeeService(employeeRepo, cacheSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, cacheSvc, cfg.Attendance.LateAfter, validate, logr)
	dashboardSvc := service.NewDashboardService(dashboardRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	engine := router.New(cfg, router.Dependencies{
		Tokens:  authSvc,
		Audit:   userRepo,
		Metrics: metricsSvc,
		Logger:  logr,
	}, router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Users:      handler.NewUserHandler(userSvc),
		Schools:    handler.NewSchoolHandler(schoolSvc),
		Students:   handler.NewStudentHandler(studentSvc, importSvc, exportSvc),
		Employees:  handler.NewEmployeeHandler(employeeSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Dashboard:  handler.NewDashboardHandler(dashboardSvc),
		Metrics:    handler.NewMetricsHandler(metricsSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
