package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/intern-tracker-api/internal/handler"
	"github.com/noah-isme/intern-tracker-api/internal/middleware"
	"github.com/noah-isme/intern-tracker-api/internal/models"
	"github.com/noah-isme/intern-tracker-api/internal/service"
	"github.com/noah-isme/intern-tracker-api/pkg/config"
	"github.com/noah-isme/intern-tracker-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/intern-tracker-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/intern-tracker-api/pkg/middleware/requestid"
)

// Handlers bundles the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Auth       *handler.AuthHandler
	Users      *handler.UserHandler
	Schools    *handler.SchoolHandler
	Students   *handler.StudentHandler
	Employees  *handler.EmployeeHandler
	Attendance *handler.AttendanceHandler
	Dashboard  *handler.DashboardHandler
	Metrics    *handler.MetricsHandler
}

// Dependencies are the cross-cutting collaborators of the middleware chain.
type Dependencies struct {
	Tokens  middleware.TokenValidator
	Audit   middleware.AuditWriter
	Metrics *service.MetricsService
	Logger  *zap.Logger
}

// New builds the gin engine with global middleware and every API route.
func New(cfg *config.Config, deps Dependencies, h Handlers) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics, "/metrics", "/health", "/ready"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(apiPrefix(cfg.APIPrefix))
	Register(api, deps, h)
	return r
}

// Register mounts the API routes on group.
func Register(api *gin.RouterGroup, deps Dependencies, h Handlers) {
	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/forgot-password", h.Auth.ForgotPassword)
	auth.POST("/reset-password", h.Auth.ResetPassword)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Tokens))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/auth/profile", h.Auth.Profile)
	secured.PUT("/auth/profile", h.Auth.UpdateProfile)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)

	read := middleware.RequireCapability(models.CapRead)

	secured.GET("/dashboard", read, h.Dashboard.Summary)
	secured.GET("/metrics/system", read, h.Metrics.System)

	users := secured.Group("/users", middleware.RequireCapability(models.CapManageUsers))
	users.GET("", h.Users.List)
	users.GET("/:id", h.Users.Get)
	users.POST("", h.Users.Create)
	users.PUT("/:id", h.Users.Update)
	users.DELETE("/:id", h.Users.Delete)

	manageSchools := middleware.RequireCapability(models.CapManageSchools)
	schools := secured.Group("/schools")
	schools.GET("", read, h.Schools.List)
	schools.GET("/:id", read, h.Schools.Get)
	schools.POST("", manageSchools, h.Schools.Create)
	schools.PUT("/:id", manageSchools, h.Schools.Update)
	schools.DELETE("/:id", manageSchools, h.Schools.Delete)

	manageStudents := middleware.RequireCapability(models.CapManageStudents)
	students := secured.Group("/students")
	students.GET("", read, h.Students.List)
	students.GET("/export", manageStudents,
		middleware.Audit(deps.Audit, models.AuditActionStudentExport, models.AuditResourceStudent), h.Students.Export)
	students.POST("/import", manageStudents, h.Students.Import)
	students.GET("/:id", read, h.Students.Get)
	students.POST("", manageStudents, h.Students.Create)
	students.PUT("/:id", manageStudents, h.Students.Update)
	students.DELETE("/:id", manageStudents, h.Students.Delete)

	manageEmployees := middleware.RequireCapability(models.CapManageEmployees)
	employees := secured.Group("/employees")
	employees.GET("", read, h.Employees.List)
	employees.GET("/:id", read, h.Employees.Get)
	employees.PUT("/:id", manageEmployees, h.Employees.Update)
	employees.DELETE("/:id", manageEmployees, h.Employees.Delete)

	manageAttendance := middleware.RequireCapability(models.CapManageAttendance)
	attendance := secured.Group("/attendance")
	attendance.GET("", read, h.Attendance.List)
	attendance.GET("/range", read, h.Attendance.ByRange)
	attendance.GET("/student/:studentId", read, h.Attendance.ByStudent)
	attendance.GET("/:id", read, h.Attendance.Get)
	attendance.POST("", manageAttendance, h.Attendance.Create)
	attendance.PUT("/:id", manageAttendance, h.Attendance.Update)
	attendance.DELETE("/:id", manageAttendance, h.Attendance.Delete)
}

func apiPrefix(prefix string) string {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return "/"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}
