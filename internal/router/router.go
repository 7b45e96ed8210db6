package router

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/config"
	"github.com/stemsi/eduadmin-backend/internal/handler"
	"github.com/stemsi/eduadmin-backend/internal/metrics"
	"github.com/stemsi/eduadmin-backend/internal/middleware"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/response"
	"github.com/stemsi/eduadmin-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth              *handler.AuthHandler
	AttendanceSession *handler.AttendanceSessionHandler
	StudentAttendance *handler.StudentAttendanceHandler
	Roster            *handler.RosterWSHandler
	Enrollment        *handler.EnrollmentHandler
	Subject           *handler.SubjectHandler
	Room              *handler.RoomHandler
	StudentMgmt       *handler.StudentManagementHandler
	AI                *handler.AIHandler
	System            *handler.SystemHandler
}

// Limiters holds the rate limiters; their cleanup goroutines belong to the caller's context.
type Limiters struct {
	Auth      *middleware.RateLimiter
	PinSubmit *middleware.RateLimiter
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	limiters *Limiters,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log and every envelope carry it.
	router.Use(response.RequestIDMiddleware())
	router.Use(response.RequestLogger(log))
	router.Use(metrics.Middleware())

	compress := middleware.DefaultCompressConfig
	compress.Skip = func(c *gin.Context) bool {
		return strings.HasPrefix(c.Request.URL.Path, "/ws/") || c.Request.URL.Path == "/metrics"
	}
	router.Use(middleware.Compress(compress))

	// ─── Ops ───────────────────────────────────────────────────────────
	router.GET("/health", middleware.NoStore(), handlers.System.Health)
	router.GET("/metrics", metrics.Handler())

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/student/login", limiters.Auth.Middleware(), handlers.Auth.StudentLogin)
		auth.POST("/teacher/login", limiters.Auth.Middleware(), handlers.Auth.TeacherLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me",
			middleware.RequireStudentJWT(authService),
			middleware.CheckSingleDeviceSession(authService),
			handlers.Auth.GetStudentProfile,
		)
		auth.GET("/teacher/me", middleware.RequireTeacherJWT(authService), handlers.Auth.GetTeacherProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
		middleware.NoStore(),
	)
	{
		studentAPI.POST("/attendance/submit",
			limiters.PinSubmit.MiddlewareBy(middleware.ClaimsKey),
			handlers.StudentAttendance.SubmitPin,
		)
		studentAPI.GET("/attendance", handlers.StudentAttendance.ListMyAttendance)
	}

	// ─── 3. WebSocket Group (Teacher WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireTeacherWSAuth(authService))
	{
		ws.GET("/teacher/attendance/sessions/:id/roster",
			middleware.RequirePermission(model.PermissionAttendanceManage),
			handlers.Roster.RosterStream,
		)
	}

	// ─── 4. Teacher Group (JWT + RBAC) ─────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		// Attendance sessions
		sessions := teacherAPI.Group("/attendance/sessions")
		sessions.Use(
			middleware.RequirePermission(model.PermissionAttendanceManage),
			middleware.NoStore(),
		)
		{
			sessions.POST("", handlers.AttendanceSession.StartSession)
			sessions.GET("", handlers.AttendanceSession.GetSessionHistory)
			sessions.GET("/active", handlers.AttendanceSession.GetActiveSession)
			sessions.POST("/:id/regenerate-pin", handlers.AttendanceSession.RegeneratePin)
			sessions.POST("/:id/end", handlers.AttendanceSession.EndSession)
			sessions.GET("/:id/attendees", handlers.AttendanceSession.GetAttendees)
			sessions.GET("/:id/qr", handlers.AttendanceSession.GetPinQR)
		}

		// Enrollments
		teacherAPI.POST("/enrollments/check",
			middleware.RequirePermission(model.PermissionEnrollmentsRead),
			handlers.Enrollment.CheckConflicts,
		)
		teacherAPI.GET("/enrollments",
			middleware.RequirePermission(model.PermissionEnrollmentsRead),
			handlers.Enrollment.ListEnrollments,
		)
		teacherAPI.GET("/enrollments/:id",
			middleware.RequirePermission(model.PermissionEnrollmentsRead),
			handlers.Enrollment.GetEnrollment,
		)
		teacherAPI.POST("/enrollments",
			middleware.RequirePermission(model.PermissionEnrollmentsWrite),
			handlers.Enrollment.CreateEnrollment,
		)
		teacherAPI.DELETE("/enrollments/:id",
			middleware.RequirePermission(model.PermissionEnrollmentsWrite),
			handlers.Enrollment.DeleteEnrollment,
		)

		// Subjects
		teacherAPI.GET("/subjects",
			middleware.RequirePermission(model.PermissionSubjectsRead),
			handlers.Subject.GetAll,
		)
		teacherAPI.GET("/subjects/:id",
			middleware.RequirePermission(model.PermissionSubjectsRead),
			handlers.Subject.GetByID,
		)
		teacherAPI.POST("/subjects",
			middleware.RequirePermission(model.PermissionSubjectsWrite),
			handlers.Subject.Create,
		)
		teacherAPI.PUT("/subjects/:id",
			middleware.RequirePermission(model.PermissionSubjectsWrite),
			handlers.Subject.Update,
		)
		teacherAPI.DELETE("/subjects/:id",
			middleware.RequirePermission(model.PermissionSubjectsWrite),
			handlers.Subject.Delete,
		)

		// Rooms
		teacherAPI.GET("/rooms",
			middleware.RequirePermission(model.PermissionRoomsRead),
			handlers.Room.List,
		)
		teacherAPI.GET("/rooms/:id",
			middleware.RequirePermission(model.PermissionRoomsRead),
			handlers.Room.GetByID,
		)
		teacherAPI.POST("/rooms",
			middleware.RequirePermission(model.PermissionRoomsWrite),
			handlers.Room.Create,
		)
		teacherAPI.PUT("/rooms/:id",
			middleware.RequirePermission(model.PermissionRoomsWrite),
			handlers.Room.Update,
		)
		teacherAPI.DELETE("/rooms/:id",
			middleware.RequirePermission(model.PermissionRoomsWrite),
			handlers.Room.Delete,
		)

		// Students
		teacherAPI.GET("/students",
			middleware.RequirePermission(model.PermissionStudentsRead),
			handlers.StudentMgmt.ListStudents,
		)
		teacherAPI.GET("/students/:id",
			middleware.RequirePermission(model.PermissionStudentsRead),
			handlers.StudentMgmt.GetStudent,
		)
		teacherAPI.POST("/students",
			middleware.RequirePermission(model.PermissionStudentsWrite),
			handlers.StudentMgmt.CreateStudent,
		)
		teacherAPI.PUT("/students/:id",
			middleware.RequirePermission(model.PermissionStudentsWrite),
			handlers.StudentMgmt.UpdateStudent,
		)
		teacherAPI.DELETE("/students/:id",
			middleware.RequirePermission(model.PermissionStudentsWrite),
			handlers.StudentMgmt.DeleteStudent,
		)
		teacherAPI.POST("/students/:id/reset-session",
			middleware.RequirePermission(model.PermissionStudentsResetSession),
			handlers.StudentMgmt.ResetStudentSession,
		)

		// AI
		teacherAPI.POST("/ai/generate",
			middleware.RequirePermission(model.PermissionAIUse),
			handlers.AI.Generate,
		)
		teacherAPI.GET("/ai/config",
			middleware.RequirePermission(model.PermissionAIConfigure),
			middleware.NoStore(),
			handlers.AI.GetConfig,
		)
		teacherAPI.PUT("/ai/config",
			middleware.RequirePermission(model.PermissionAIConfigure),
			handlers.AI.UpdateConfig,
		)
	}

	return router
}
