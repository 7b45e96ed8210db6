package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/ai"
	"github.com/stemsi/eduadmin-backend/internal/cache"
	"github.com/stemsi/eduadmin-backend/internal/config"
	"github.com/stemsi/eduadmin-backend/internal/database"
	"github.com/stemsi/eduadmin-backend/internal/handler"
	"github.com/stemsi/eduadmin-backend/internal/logger"
	"github.com/stemsi/eduadmin-backend/internal/middleware"
	"github.com/stemsi/eduadmin-backend/internal/realtime"
	"github.com/stemsi/eduadmin-backend/internal/repository"
	"github.com/stemsi/eduadmin-backend/internal/router"
	"github.com/stemsi/eduadmin-backend/internal/service"
	"github.com/stemsi/eduadmin-backend/internal/validator"
	"github.com/stemsi/eduadmin-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting EduAdmin Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	teacherRepo := repository.NewTeacherRepository(pool)
	subjectRepo := repository.NewSubjectRepository(pool)
	roomRepo := repository.NewRoomRepository(pool)
	sessionRepo := repository.NewAttendanceSessionRepository(pool)
	recordRepo := repository.NewAttendanceRecordRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)

	// ─── Realtime + Cache ──────────────────────────────────────────────
	broker := realtime.NewBroker(rdb, log)
	pinIndex := cache.NewPinIndex(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo, authService)
	teacherService := service.NewTeacherService(teacherRepo, authService)
	subjectService := service.NewSubjectService(subjectRepo, log)
	roomService := service.NewRoomService(roomRepo, log)
	sessionService := service.NewAttendanceSessionService(sessionRepo, pinIndex, broker, cfg.Attendance, log, nil)
	attendanceService := service.NewAttendanceService(sessionRepo, recordRepo, pinIndex, broker, log, nil)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, log)

	aiConfig := ai.NewConfigService(cfg.AI)
	aiService := ai.NewService(aiConfig, ai.NewHTTPProvider(aiConfig, nil), log)
	if !aiConfig.Get().Enabled() {
		log.Warn().Msg("AI_API_KEY not set; AI endpoints will answer AI_DISABLED")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:              handler.NewAuthHandler(authService, studentService, teacherService, log),
		AttendanceSession: handler.NewAttendanceSessionHandler(sessionService, attendanceService, cfg.Attendance, log),
		StudentAttendance: handler.NewStudentAttendanceHandler(attendanceService, log),
		Roster:            handler.NewRosterWSHandler(broker, sessionService, attendanceService, cfg.Attendance.RosterPollInterval, log, cfg.AllowedOrigins),
		Enrollment:        handler.NewEnrollmentHandler(enrollmentService, log),
		Subject:           handler.NewSubjectHandler(subjectService, log),
		Room:              handler.NewRoomHandler(roomService, log),
		StudentMgmt:       handler.NewStudentManagementHandler(studentService, authService, log),
		AI:                handler.NewAIHandler(aiService, aiConfig, log),
		System: handler.NewSystemHandler(map[string]handler.HealthCheck{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	expiryWorker := worker.NewExpiryWorker(
		sessionRepo,
		pinIndex,
		broker,
		cache.NewSweepCursor(rdb),
		cfg.Attendance.ExpirySweepSchedule,
		log,
		nil,
	)
	if err := expiryWorker.Start(workerCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start expiry worker")
	}

	limiters := &router.Limiters{
		// 30 login attempts per minute per IP.
		Auth:      middleware.NewRateLimiter(workerCtx, 30, time.Minute),
		PinSubmit: middleware.NewRateLimiter(workerCtx, cfg.Attendance.SubmitRatePerMinute, time.Minute),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, limiters, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts derive from ctx so cancelling it also ends hijacked roster sockets.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Close roster streams, stop the expiry schedule and limiter cleanup.
	workerCancel()
	cancel()
	time.Sleep(500 * time.Millisecond)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
